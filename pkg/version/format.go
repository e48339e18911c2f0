package version

import (
	"embed"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed formats/*.yaml
var formatFS embed.FS

// FormatManifest describes what a definition format version accepts.
type FormatManifest struct {
	Version       string   `yaml:"version"`
	Description   string   `yaml:"description"`
	DataTypes     []string `yaml:"dataTypes"`
	Endianness    []string `yaml:"endianness"`
	Overflow      []string `yaml:"overflow"`
	Conversions   []string `yaml:"conversions"`
	StateColors   []string `yaml:"stateColors"`
	ReservedItems []string `yaml:"reservedItems"`
}

var (
	manifestsMu sync.Mutex
	manifests   = make(map[string]*FormatManifest)
)

// LoadFormat loads a format manifest by version string (e.g. "1.0").
// Manifests are parsed once and shared.
func LoadFormat(ver string) (*FormatManifest, error) {
	manifestsMu.Lock()
	defer manifestsMu.Unlock()
	if m := manifests[ver]; m != nil {
		return m, nil
	}

	data, err := formatFS.ReadFile("formats/" + ver + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: no manifest for %q", ErrUnsupportedFormat, ver)
	}
	m := new(FormatManifest)
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing format %q: %w", ver, err)
	}
	manifests[ver] = m
	return m, nil
}

// LoadFormatFor loads the manifest of v's major version. Minor versions
// share their major version's manifest.
func LoadFormatFor(v FormatVersion) (*FormatManifest, error) {
	return LoadFormat(FormatVersion{Major: v.Major}.String())
}

// LoadCurrentFormat loads the manifest for the current format version.
func LoadCurrentFormat() (*FormatManifest, error) {
	return LoadFormatFor(MustParse(Current))
}

// AvailableFormats returns the version strings of all embedded manifests.
func AvailableFormats() ([]string, error) {
	entries, err := formatFS.ReadDir("formats")
	if err != nil {
		return nil, fmt.Errorf("reading formats directory: %w", err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			versions = append(versions, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// SupportsDataType reports whether name is a data type of this format.
func (m *FormatManifest) SupportsDataType(name string) bool {
	return containsFold(m.DataTypes, name)
}

// SupportsConversion reports whether kind is a conversion of this format.
func (m *FormatManifest) SupportsConversion(kind string) bool {
	return containsFold(m.Conversions, kind)
}

// SupportsStateColor reports whether color may be given to a state.
func (m *FormatManifest) SupportsStateColor(color string) bool {
	return containsFold(m.StateColors, color)
}

// IsReservedItem reports whether name is defined by the library itself.
func (m *FormatManifest) IsReservedItem(name string) bool {
	return containsFold(m.ReservedItems, name)
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(v string) bool { return strings.EqualFold(v, s) })
}
