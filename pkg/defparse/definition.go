// Package defparse reads command and telemetry packet definitions from YAML
// files and loads them into a catalog. The ctlm-console and ctlm-gen tools
// both import this package.
package defparse

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// RawTargetDef represents the definitions of one target loaded from YAML.
type RawTargetDef struct {
	Version    string         `yaml:"version"`
	Target     string         `yaml:"target"`
	Endianness string         `yaml:"endianness"` // "BIG_ENDIAN" (default), "LITTLE_ENDIAN"
	Commands   []RawPacketDef `yaml:"commands"`
	Telemetry  []RawPacketDef `yaml:"telemetry"`
}

// RawPacketDef represents a command or telemetry packet definition.
type RawPacketDef struct {
	Name                 string              `yaml:"name"`
	Description          string              `yaml:"description"`
	Endianness           string              `yaml:"endianness"`
	Hazardous            bool                `yaml:"hazardous"`
	HazardousDescription string              `yaml:"hazardousDescription"`
	Disabled             bool                `yaml:"disabled"`
	Hidden               bool                `yaml:"hidden"`
	Restricted           bool                `yaml:"restricted"`
	MessagesDisabled     bool                `yaml:"messagesDisabled"`
	Virtual              bool                `yaml:"virtual"`
	Subpacket            bool                `yaml:"subpacket"`
	ShortBufferAllowed   bool                `yaml:"shortBufferAllowed"`
	IgnoreOverlap        bool                `yaml:"ignoreOverlap"`
	Template             string              `yaml:"template"` // hex, "0x" prefix optional
	Meta                 map[string][]string `yaml:"meta"`
	Items                []RawItemDef        `yaml:"items"`
}

// RawItemDef represents an item (command parameter or telemetry point).
// Items without bitOffset are appended after the previous item.
type RawItemDef struct {
	Name            string            `yaml:"name"`
	BitOffset       *int              `yaml:"bitOffset"`
	BitSize         int               `yaml:"bitSize"`
	DataType        string            `yaml:"dataType"`  // "INT", "UINT", "FLOAT", "STRING", "BLOCK", "DERIVED"
	ArraySize       *int              `yaml:"arraySize"` // total array size in bits; makes the item an array
	Endianness      string            `yaml:"endianness"`
	Overflow        string            `yaml:"overflow"`
	ID              any               `yaml:"id"` // raw id value; marks an id item
	Default         any               `yaml:"default"`
	Min             any               `yaml:"min"`
	Max             any               `yaml:"max"`
	Required        bool              `yaml:"required"`
	Obfuscate       bool              `yaml:"obfuscate"`
	Hidden          bool              `yaml:"hidden"`
	Overlap         bool              `yaml:"overlap"`
	Format          string            `yaml:"format"`
	Units           string            `yaml:"units"`
	UnitsFullName   string            `yaml:"unitsFullName"`
	Description     string            `yaml:"description"`
	States          []RawStateDef     `yaml:"states"`
	ReadConversion  *RawConversionDef `yaml:"readConversion"`
	WriteConversion *RawConversionDef `yaml:"writeConversion"`
	Limits          []RawLimitsDef    `yaml:"limits"`
	Persistence     int               `yaml:"persistence"`
}

// RawStateDef represents one state of an item.
type RawStateDef struct {
	Label                string `yaml:"label"`
	Value                any    `yaml:"value"`
	Hazardous            bool   `yaml:"hazardous"`
	HazardousDescription string `yaml:"hazardousDescription"`
	MessagesDisabled     bool   `yaml:"messagesDisabled"`
	Color                string `yaml:"color"` // "GREEN", "YELLOW", "RED"
}

// RawConversionDef represents a read or write conversion.
type RawConversionDef struct {
	Type             string          `yaml:"type"`
	Coeffs           []float64       `yaml:"coeffs"`
	Segments         []RawSegmentDef `yaml:"segments"`
	SecondsItem      string          `yaml:"secondsItem"`
	MicrosecondsItem string          `yaml:"microsecondsItem"`
}

// RawSegmentDef represents one segment of a segmented polynomial.
type RawSegmentDef struct {
	LowerBound float64   `yaml:"lowerBound"`
	Coeffs     []float64 `yaml:"coeffs"`
}

// RawLimitsDef represents one limits set of an item.
type RawLimitsDef struct {
	Set        string   `yaml:"set"` // defaults to DEFAULT
	RedLow     float64  `yaml:"redLow"`
	YellowLow  float64  `yaml:"yellowLow"`
	YellowHigh float64  `yaml:"yellowHigh"`
	RedHigh    float64  `yaml:"redHigh"`
	GreenLow   *float64 `yaml:"greenLow"`
	GreenHigh  *float64 `yaml:"greenHigh"`
}

// ParseTargetDef parses target definitions from YAML bytes.
func ParseTargetDef(data []byte) (*RawTargetDef, error) {
	var def RawTargetDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing target def: %w", err)
	}
	if def.Target == "" {
		return nil, fmt.Errorf("target definition missing target")
	}
	return &def, nil
}

// LoadTargetDef loads and parses target definitions from a file.
func LoadTargetDef(path string) (*RawTargetDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseTargetDef(data)
}

// LoadDir loads every *.yaml and *.yml file of dir in name order.
func LoadDir(dir string) ([]*RawTargetDef, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	defs := make([]*RawTargetDef, 0, len(paths))
	for _, path := range paths {
		def, err := LoadTargetDef(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
