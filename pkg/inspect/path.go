// Package inspect provides catalog inspection and item manipulation
// utilities for interactive tools.
//
// The inspect package offers a unified interface for:
//   - Parsing path expressions (e.g., "INST HEALTH TEMP1")
//   - Completing target, packet and item names
//   - Reading and writing items of the current value table
//   - Formatting output for display
package inspect

import (
	"errors"
	"strings"
)

// Path errors.
var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("invalid path format")
)

// Path represents a parsed inspection path.
// Format: TARGET [PACKET [ITEM]]
type Path struct {
	Target string
	Packet string
	Item   string

	// IsPartial indicates the path doesn't include an item (used for
	// inspect operations that show a whole packet or target).
	IsPartial bool

	// Raw stores the original input string.
	Raw string
}

// ParsePath parses a path string into a Path struct.
//
// Supported formats:
//   - "TARGET PACKET ITEM" - one item
//   - "TARGET PACKET" - partial (for listing items)
//   - "TARGET" - partial (for listing packets)
//
// Parts may also be separated by "/" or ".", as in "INST/HEALTH/TEMP1".
// Names are upper-cased.
func ParsePath(input string) (*Path, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyPath
	}

	// Check for invalid patterns
	if strings.HasPrefix(input, "/") || strings.HasSuffix(input, "/") ||
		strings.Contains(input, "//") || strings.Contains(input, "..") {
		return nil, ErrInvalidPath
	}

	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == '/' || r == '.' || r == ' ' || r == '\t'
	})
	if len(parts) == 0 {
		return nil, ErrEmptyPath
	}
	if len(parts) > 3 {
		return nil, ErrInvalidPath
	}

	p := &Path{Raw: input, Target: strings.ToUpper(parts[0])}
	if len(parts) > 1 {
		p.Packet = strings.ToUpper(parts[1])
	}
	if len(parts) > 2 {
		p.Item = strings.ToUpper(parts[2])
	}
	p.IsPartial = p.Item == ""
	return p, nil
}

// String returns the path as a space separated string.
func (p *Path) String() string {
	parts := []string{p.Target}
	if p.Packet != "" {
		parts = append(parts, p.Packet)
	}
	if p.Item != "" {
		parts = append(parts, p.Item)
	}
	return strings.Join(parts, " ")
}
