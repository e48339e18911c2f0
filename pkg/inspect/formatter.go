package inspect

import (
	"fmt"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes data type and length information
	ShowMetadata bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		IndentWidth:  2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	indent := strings.Repeat(" ", depth*width)
	return indent + content
}

// FormatValue formats a value for display, followed by its units.
func (f *Formatter) FormatValue(value any, units string) string {
	if value == nil {
		return "null"
	}

	var s string
	switch v := value.(type) {
	case string:
		s = fmt.Sprintf("%q", v)
	default:
		s = packets.FormatValue(v)
	}
	if units != "" {
		return s + " " + units
	}
	return s
}

// FormatLimitsState formats a limits state for display. Items without a
// limits state render as an empty string.
func FormatLimitsState(s packets.LimitsState) string {
	if s == packets.LimitsNone {
		return ""
	}
	return s.String()
}

// FormatDataType formats an item's data type for display, such as
// "UINT16", "FLOAT32[]" or "STRING".
func FormatDataType(item *packets.Item) string {
	s := item.DataType.String()
	if item.DataType.IsNumeric() {
		s = fmt.Sprintf("%s%d", s, item.BitSize)
	}
	if item.DataType == accessor.DataTypeDerived {
		s = "DERIVED"
	}
	if item.Array {
		s += "[]"
	}
	return s
}

// FormatHex formats a buffer as space separated hex bytes.
func FormatHex(b []byte) string {
	if len(b) == 0 {
		return "(empty)"
	}
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return strings.Join(parts, " ")
}

// ItemRow represents a formatted item for display.
type ItemRow struct {
	Name   string
	Value  string
	Type   string
	Limits string
}

// FormatItemTable formats a list of items as a table.
func (f *Formatter) FormatItemTable(rows []ItemRow) string {
	if len(rows) == 0 {
		return "  (no items)\n"
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row.Name))
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(f.Indent(1, fmt.Sprintf("%-*s %s", width+1, row.Name+":", row.Value)))
		if row.Limits != "" {
			sb.WriteString(" [" + row.Limits + "]")
		}
		if f.ShowMetadata && row.Type != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", row.Type))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
