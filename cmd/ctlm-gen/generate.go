package main

import (
	"fmt"
	"go/token"
	"strings"
	"unicode"

	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
)

// initialisms are kept upper case in Go names.
var initialisms = map[string]bool{
	"ID": true, "CRC": true, "UTC": true, "CCSDS": true, "APID": true,
}

type fileData struct {
	Package string
	Source  string
	Targets []*targetData
}

type targetData struct {
	Name      string
	GoName    string
	Commands  []packetData
	Telemetry []packetData
}

type packetData struct {
	Target string
	Kind   string
	Name   string
	GoName string
	Items  []itemData
}

type itemData struct {
	Name   string
	GoName string
	Path   string
	States []stateData
}

type stateData struct {
	GoName string
	Value  string
}

// Generate renders the constants of defs as a Go file of package pkg.
// Definitions of the same target are merged in the order given.
func Generate(pkg, source string, defs []*defparse.RawTargetDef) (string, error) {
	if !token.IsIdentifier(pkg) {
		return "", fmt.Errorf("invalid package name %q", pkg)
	}
	data := fileData{Package: pkg, Source: source}
	byName := map[string]*targetData{}
	for _, def := range defs {
		name := strings.ToUpper(def.Target)
		if name == "" {
			return "", fmt.Errorf("%w: definition without target", defparse.ErrDefinition)
		}
		t, ok := byName[name]
		if !ok {
			t = &targetData{Name: name, GoName: goName(name)}
			byName[name] = t
			data.Targets = append(data.Targets, t)
		}
		for i := range def.Commands {
			t.Commands = append(t.Commands, packetFor(t, "Cmd", "Command", &def.Commands[i]))
		}
		for i := range def.Telemetry {
			t.Telemetry = append(t.Telemetry, packetFor(t, "Tlm", "Telemetry", &def.Telemetry[i]))
		}
	}

	var b strings.Builder
	if err := renderTemplate(&b, "file", data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func packetFor(t *targetData, prefix, kind string, def *defparse.RawPacketDef) packetData {
	name := strings.ToUpper(def.Name)
	p := packetData{
		Target: t.Name,
		Kind:   kind,
		Name:   name,
		GoName: t.GoName + prefix + goName(name),
	}
	for _, item := range def.Items {
		itemName := strings.ToUpper(item.Name)
		id := itemData{
			Name:   itemName,
			GoName: p.GoName + goName(itemName),
			Path:   fmt.Sprintf("%s %s %s", t.Name, name, itemName),
		}
		for _, s := range item.States {
			if v, ok := constValue(s.Value); ok {
				id.States = append(id.States, stateData{
					GoName: id.GoName + goName(strings.ToUpper(s.Label)),
					Value:  v,
				})
			}
		}
		p.Items = append(p.Items, id)
	}
	return p
}

// constValue renders a state value as an untyped Go constant.
func constValue(v any) (string, bool) {
	switch v := v.(type) {
	case int, int64, uint64:
		return fmt.Sprintf("%d", v), true
	case float64:
		return fmt.Sprintf("%g", v), true
	case string:
		return fmt.Sprintf("%q", v), true
	case bool:
		return fmt.Sprintf("%t", v), true
	}
	return "", false
}

// goName converts "CCSDS_APID" to "CCSDSAPID" and "TEMP1" to "Temp1".
// Characters that cannot appear in an identifier separate words.
func goName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, w := range words {
		up := strings.ToUpper(w)
		if initialisms[up] {
			b.WriteString(up)
			continue
		}
		b.WriteString(up[:1])
		b.WriteString(strings.ToLower(up[1:]))
	}
	out := b.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "X" + out
	}
	return out
}
