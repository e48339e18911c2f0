package main

import (
	"fmt"
	"strings"
	"text/template"
)

var funcMap = template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
	"lower": strings.ToLower,
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(
	fileTmpl + packetsTmpl,
))

func renderTemplate(b *strings.Builder, name string, data any) error {
	if err := templates.ExecuteTemplate(b, name, data); err != nil {
		return fmt.Errorf("template %s: %w", name, err)
	}
	return nil
}

const fileTmpl = `{{define "file"}}// Code generated by ctlm-gen from {{.Source}}. DO NOT EDIT.

package {{.Package}}
{{range .Targets}}
// Target{{.GoName}} is the {{.Name}} target.
const Target{{.GoName}} = {{quote .Name}}
{{template "packets" .Commands}}
{{- template "packets" .Telemetry}}
{{- end}}
{{- end}}`

const packetsTmpl = `{{define "packets"}}
{{- if .}}
// {{(index . 0).Target}} {{(index . 0).Kind | lower}} packets.
const (
{{- range .}}
{{.GoName}} = {{quote .Name}}
{{- end}}
)
{{range .}}
{{- if .Items}}
// {{.Target}} {{.Name}} items.
const (
{{- range .Items}}
{{.GoName}} = {{quote .Name}}
{{- end}}
)
{{range .Items}}
{{- if .States}}
// {{.Path}} states.
const (
{{- range .States}}
{{.GoName}} = {{.Value}}
{{- end}}
)
{{end}}
{{- end}}
{{- end}}
{{- end}}
{{- end}}
{{- end}}`
