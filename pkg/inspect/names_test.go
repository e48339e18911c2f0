package inspect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
	"github.com/ctlm-ground/ctlm-go/pkg/inspect"
)

const namesDefs = `
target: INST
commands:
  - name: COLLECT
    items:
      - { name: OPCODE, bitSize: 8, dataType: UINT, id: 1 }
      - { name: DURATION, bitSize: 16, dataType: UINT }
  - name: CLEAR
    items:
      - { name: OPCODE, bitSize: 8, dataType: UINT, id: 2 }
telemetry:
  - name: HEALTH
    items:
      - { name: TEMP1, bitSize: 16, dataType: INT }
      - { name: TEMP2, bitSize: 16, dataType: INT }
`

func newNames(t *testing.T) *inspect.Names {
	t.Helper()
	def, err := defparse.ParseTargetDef([]byte(namesDefs))
	require.NoError(t, err)
	cat := catalog.New(catalog.Config{})
	_, err = defparse.Apply(cat, def)
	require.NoError(t, err)
	return inspect.NewNames(cat, []string{"build", "read", "help"}, []string{"build"})
}

func TestNamesComplete(t *testing.T) {
	n := newNames(t)

	tests := []struct {
		name    string
		words   []string
		partial string
		want    []string
	}{
		{"verbs", nil, "", []string{"build", "help", "read"}},
		{"verb prefix", nil, "re", []string{"read"}},
		{"targets", []string{"read"}, "", []string{"INST"}},
		{"case-insensitive", []string{"read"}, "in", []string{"INST"}},
		{"telemetry packets", []string{"read", "INST"}, "", []string{"HEALTH"}},
		{"command packets", []string{"build", "inst"}, "", []string{"CLEAR", "COLLECT"}},
		{"command prefix", []string{"build", "INST"}, "CO", []string{"COLLECT"}},
		{"items", []string{"read", "INST", "HEALTH"}, "TEMP", []string{"TEMP1", "TEMP2"}},
		{"reserved items", []string{"read", "INST", "HEALTH"}, "RECEIVED_C", []string{"RECEIVED_COUNT"}},
		{"unknown target", []string{"read", "NOPE"}, "", nil},
		{"past the item", []string{"read", "INST", "HEALTH", "TEMP1"}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Complete(tt.words, tt.partial))
		})
	}
}

func TestNamesDo(t *testing.T) {
	n := newNames(t)

	line := []rune("read INST HEALTH TE")
	got, length := n.Do(line, len(line))
	assert.Equal(t, 2, length)
	assert.Equal(t, [][]rune{[]rune("MP1 "), []rune("MP2 ")}, got)

	line = []rune("build INST ")
	got, length = n.Do(line, len(line))
	assert.Equal(t, 0, length)
	assert.Equal(t, [][]rune{[]rune("CLEAR "), []rune("COLLECT ")}, got)
}
