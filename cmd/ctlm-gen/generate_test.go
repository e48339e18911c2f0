package main

import (
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
)

const instDefs = `
target: inst
commands:
  - name: COLLECT
    items:
      - { name: CCSDS_ID, bitSize: 8, dataType: UINT, id: 1 }
      - name: TYPE
        bitSize: 8
        dataType: UINT
        states:
          - { label: NORMAL, value: 0 }
          - { label: SPECIAL, value: 1, hazardous: true }
telemetry:
  - name: HEALTH_STATUS
    items:
      - { name: TEMP1, bitSize: 16, dataType: INT }
      - name: MODE
        bitSize: 8
        dataType: UINT
        states:
          - { label: SAFE, value: 0 }
          - { label: "FINE-POINT", value: 2 }
`

const sysDefs = `
target: SYSTEM
telemetry:
  - name: LIMITS_CHANGE
    items:
      - { name: STATE, bitSize: 32, dataType: STRING }
`

func parseDefs(t *testing.T, docs ...string) []*defparse.RawTargetDef {
	t.Helper()
	var defs []*defparse.RawTargetDef
	for _, doc := range docs {
		def, err := defparse.ParseTargetDef([]byte(doc))
		if err != nil {
			t.Fatalf("ParseTargetDef failed: %v", err)
		}
		defs = append(defs, def)
	}
	return defs
}

func TestGenerate(t *testing.T) {
	output, err := Generate("names", "defs", parseDefs(t, instDefs))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	mustContain(t, output, "// Code generated by ctlm-gen from defs. DO NOT EDIT.")
	mustContain(t, output, "package names")
	mustContain(t, output, `const TargetInst = "INST"`)
	mustContain(t, output, "// INST command packets.")
	mustContain(t, output, `InstCmdCollect = "COLLECT"`)
	mustContain(t, output, `InstCmdCollectCCSDSID = "CCSDS_ID"`)
	mustContain(t, output, "// INST COLLECT TYPE states.")
	mustContain(t, output, "InstCmdCollectTypeNormal = 0")
	mustContain(t, output, "InstCmdCollectTypeSpecial = 1")
	mustContain(t, output, "// INST telemetry packets.")
	mustContain(t, output, `InstTlmHealthStatus = "HEALTH_STATUS"`)
	mustContain(t, output, `InstTlmHealthStatusTemp1 = "TEMP1"`)
	mustContain(t, output, "InstTlmHealthStatusModeFinePoint = 2")
	mustNotContain(t, output, "Temp1States")
}

func TestGenerate_MergesTargets(t *testing.T) {
	extra := `
target: INST
telemetry:
  - name: ADCS
    items:
      - { name: Q1, bitSize: 32, dataType: FLOAT }
`
	output, err := Generate("names", "defs", parseDefs(t, instDefs, sysDefs, extra))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n := strings.Count(output, "const TargetInst ="); n != 1 {
		t.Errorf("TargetInst declared %d times, want 1", n)
	}
	mustContain(t, output, `TargetSystem = "SYSTEM"`)
	mustContain(t, output, `InstTlmAdcsQ1 = "Q1"`)
	mustContain(t, output, `SystemTlmLimitsChangeState = "STATE"`)
	if strings.Index(output, "InstTlmAdcs ") > strings.Index(output, "TargetSystem") {
		t.Error("merged INST packets should precede the SYSTEM target")
	}
}

func TestGenerate_Parses(t *testing.T) {
	output, err := Generate("names", "defs", parseDefs(t, instDefs, sysDefs))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "names_gen.go", output, 0); err != nil {
		t.Fatalf("generated code does not parse: %v\n%s", err, output)
	}
}

func TestGenerate_InvalidPackage(t *testing.T) {
	if _, err := Generate("my-names", "defs", parseDefs(t, instDefs)); err == nil {
		t.Error("expected error for invalid package name")
	}
}

func TestGoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TEMP1", "Temp1"},
		{"CCSDS_APID", "CCSDSAPID"},
		{"HEALTH_STATUS", "HealthStatus"},
		{"FINE-POINT", "FinePoint"},
		{"PKT_ID", "PktID"},
		{"1HZ", "X1hz"},
		{"", "X"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := goName(tt.in); got != tt.want {
				t.Errorf("goName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "inst.yaml"), []byte(instDefs), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "gen", "names_gen.go")

	opts := options{defsDir: dir, pkg: "names", output: out}

	opts.check = true
	if err := run(opts); !errors.Is(err, errStale) {
		t.Fatalf("check before generating: got %v, want errStale", err)
	}

	opts.check = false
	if err := run(opts); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	mustContain(t, string(data), "package names")
	mustContain(t, string(data), "\tInstCmdCollect")
	if _, err := os.Stat(out + ".broken"); !os.IsNotExist(err) {
		t.Error("unexpected .broken file")
	}

	opts.check = true
	if err := run(opts); err != nil {
		t.Errorf("check after generating: %v", err)
	}
	if err := os.WriteFile(out, append(data, "// edited\n"...), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := run(opts); !errors.Is(err, errStale) {
		t.Errorf("check after edit: got %v, want errStale", err)
	}
}

func TestRun_EmptyDir(t *testing.T) {
	opts := options{defsDir: t.TempDir(), pkg: "names", output: filepath.Join(t.TempDir(), "x.go")}
	if err := run(opts); err == nil {
		t.Error("expected error for a directory without definitions")
	}
}

func mustContain(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Errorf("output does not contain %q\nOutput:\n%s", substr, output)
	}
}

func mustNotContain(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Errorf("output should not contain %q", substr)
	}
}
