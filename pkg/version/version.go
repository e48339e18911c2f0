// Package version provides definition format version parsing, comparison
// and the embedded format manifests.
package version

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the definition format version written and read by this library.
const Current = "1.0"

// ErrUnsupportedFormat is returned for definition files of another major
// format version.
var ErrUnsupportedFormat = errors.New("unsupported definition format")

// FormatVersion is a parsed "major.minor" definition format version.
type FormatVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string. Both components must be
// plain decimal numbers.
func Parse(s string) (FormatVersion, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return FormatVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}
	maj, err := parseComponent(major)
	if err != nil {
		return FormatVersion{}, fmt.Errorf("invalid version %q: major: %w", s, err)
	}
	mnr, err := parseComponent(minor)
	if err != nil {
		return FormatVersion{}, fmt.Errorf("invalid version %q: minor: %w", s, err)
	}
	return FormatVersion{Major: maj, Minor: mnr}, nil
}

func parseComponent(s string) (uint16, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

func (v FormatVersion) String() string {
	return strconv.Itoa(int(v.Major)) + "." + strconv.Itoa(int(v.Minor))
}

// Compare orders versions by major and then minor component.
func (v FormatVersion) Compare(other FormatVersion) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	return cmp.Compare(v.Minor, other.Minor)
}

// Compatible reports whether other shares v's major version.
func (v FormatVersion) Compatible(other FormatVersion) bool {
	return v.Major == other.Major
}

// Check parses s and verifies this library can read it. An empty string
// means Current. A newer minor version of the current major is accepted;
// unknown fields in such a file are ignored by the loader.
func Check(s string) (FormatVersion, error) {
	if s == "" {
		s = Current
	}
	v, err := Parse(s)
	if err != nil {
		return FormatVersion{}, err
	}
	current := MustParse(Current)
	if !current.Compatible(v) {
		return FormatVersion{}, fmt.Errorf("%w %s: this library reads %d.x", ErrUnsupportedFormat, v, current.Major)
	}
	return v, nil
}

// MustParse is like Parse but panics on a malformed version.
func MustParse(s string) FormatVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}
