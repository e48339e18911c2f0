package defparse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargetDef_Minimal(t *testing.T) {
	yaml := `
version: "1.0"
target: INST
commands:
  - name: NOOP
    items:
      - name: OPCODE
        bitSize: 8
        dataType: UINT
        id: 0x10
`
	def, err := ParseTargetDef([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "1.0", def.Version)
	assert.Equal(t, "INST", def.Target)
	require.Len(t, def.Commands, 1)
	assert.Empty(t, def.Telemetry)

	cmd := def.Commands[0]
	assert.Equal(t, "NOOP", cmd.Name)
	require.Len(t, cmd.Items, 1)

	item := cmd.Items[0]
	assert.Equal(t, "OPCODE", item.Name)
	assert.Nil(t, item.BitOffset)
	assert.Equal(t, 8, item.BitSize)
	assert.Equal(t, "UINT", item.DataType)
	assert.Equal(t, 16, item.ID)
}

func TestParseTargetDef_ItemDetails(t *testing.T) {
	yaml := `
target: INST
telemetry:
  - name: HEALTH
    items:
      - name: TEMP
        bitOffset: -16
        bitSize: 16
        dataType: INT
        readConversion: { type: polynomial, coeffs: [1, 2.5] }
        limits:
          - { redLow: -10, yellowLow: -5, yellowHigh: 5, redHigh: 10, greenLow: -1, greenHigh: 1 }
        persistence: 3
`
	def, err := ParseTargetDef([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, def.Telemetry, 1)
	item := def.Telemetry[0].Items[0]

	require.NotNil(t, item.BitOffset)
	assert.Equal(t, -16, *item.BitOffset)
	require.NotNil(t, item.ReadConversion)
	assert.Equal(t, "polynomial", item.ReadConversion.Type)
	assert.Equal(t, []float64{1, 2.5}, item.ReadConversion.Coeffs)
	require.Len(t, item.Limits, 1)
	require.NotNil(t, item.Limits[0].GreenLow)
	assert.Equal(t, -1.0, *item.Limits[0].GreenLow)
	assert.Equal(t, 3, item.Persistence)
}

func TestParseTargetDef_MissingTarget(t *testing.T) {
	_, err := ParseTargetDef([]byte("version: \"1.0\"\n"))
	assert.Error(t, err)
}

func TestParseTargetDef_BadYAML(t *testing.T) {
	_, err := ParseTargetDef([]byte("target: [unclosed"))
	assert.ErrorContains(t, err, "parsing target def")
}

func TestLoadTargetDef_Missing(t *testing.T) {
	_, err := LoadTargetDef(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading")
}

func TestLoadDir(t *testing.T) {
	defs, err := LoadDir("testdata")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "INST", defs[0].Target)
	assert.Equal(t, "POWER", defs[1].Target)
}

func TestLoadDir_SkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("target: A\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not yaml"), 0o644))

	defs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "A", defs[0].Target)
}
