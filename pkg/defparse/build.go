package defparse

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
	"github.com/ctlm-ground/ctlm-go/pkg/catalog"
	"github.com/ctlm-ground/ctlm-go/pkg/conversion"
	"github.com/ctlm-ground/ctlm-go/pkg/packets"
	"github.com/ctlm-ground/ctlm-go/pkg/version"
)

// ErrDefinition is wrapped by every invalid definition.
var ErrDefinition = errors.New("invalid definition")

// LoadCatalog loads every definition file of dir into a new catalog. The
// returned warnings are the bit offset overlaps found while adding packets.
func LoadCatalog(dir string, config catalog.Config) (*catalog.Catalog, []string, error) {
	defs, err := LoadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	cat := catalog.New(config)
	var warnings []string
	for _, def := range defs {
		w, err := Apply(cat, def)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, w...)
	}
	return cat, warnings, nil
}

// Apply builds the packets of def and adds them to cat. A packet that is
// already defined is replaced.
func Apply(cat *catalog.Catalog, def *RawTargetDef) ([]string, error) {
	v, err := version.Check(def.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: target %s: %v", ErrDefinition, def.Target, err)
	}
	manifest, err := version.LoadFormatFor(v)
	if err != nil {
		return nil, err
	}

	endianness := accessor.BigEndian
	if def.Endianness != "" {
		if endianness, err = accessor.ParseEndianness(def.Endianness); err != nil {
			return nil, fmt.Errorf("%w: target %s: %v", ErrDefinition, def.Target, err)
		}
	}

	// Build everything first so a bad file leaves cat untouched.
	var cmds, tlm []*packets.Packet
	for i := range def.Commands {
		p, err := BuildPacket(def.Target, &def.Commands[i], false, endianness, manifest)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, p)
	}
	for i := range def.Telemetry {
		p, err := BuildPacket(def.Target, &def.Telemetry[i], true, endianness, manifest)
		if err != nil {
			return nil, err
		}
		tlm = append(tlm, p)
	}

	var warnings []string
	for _, p := range cmds {
		warnings = append(warnings, cat.Commands.AddPacket(p)...)
	}
	for _, p := range tlm {
		warnings = append(warnings, cat.Telemetry.AddPacket(p)...)
	}
	return warnings, nil
}

// BuildPacket builds one packet definition. Telemetry packets also get the
// reserved time and count items.
func BuildPacket(target string, pd *RawPacketDef, telemetry bool, endianness accessor.Endianness, manifest *version.FormatManifest) (*packets.Packet, error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s %s: %s", ErrDefinition, strings.ToUpper(target), strings.ToUpper(pd.Name), fmt.Sprintf(format, args...))
	}
	if pd.Name == "" {
		return nil, fail("packet missing name")
	}

	if pd.Endianness != "" {
		e, err := accessor.ParseEndianness(pd.Endianness)
		if err != nil {
			return nil, fail("%v", err)
		}
		endianness = e
	}

	p := packets.NewPacket(target, pd.Name, endianness)
	p.Description = pd.Description
	p.Hazardous = pd.Hazardous
	p.HazardousDescription = pd.HazardousDescription
	p.Disabled = pd.Disabled
	p.Hidden = pd.Hidden
	p.Restricted = pd.Restricted
	p.MessagesDisabled = pd.MessagesDisabled
	p.Subpacket = pd.Subpacket
	p.ShortBufferAllowed = pd.ShortBufferAllowed
	p.IgnoreOverlap = pd.IgnoreOverlap
	p.Meta = pd.Meta
	if pd.Template != "" {
		tmpl, err := parseHex(pd.Template)
		if err != nil {
			return nil, fail("template: %v", err)
		}
		p.Template = tmpl
	}

	for i := range pd.Items {
		if err := defineItem(p, &pd.Items[i], manifest); err != nil {
			return nil, fail("%v", err)
		}
	}
	if telemetry {
		if err := conversion.DefineReservedItems(p); err != nil {
			return nil, fail("%v", err)
		}
	}
	if pd.Virtual {
		p.SetVirtual(true)
	}
	p.Refresh()
	return p, nil
}

func defineItem(p *packets.Packet, d *RawItemDef, manifest *version.FormatManifest) error {
	if d.Name == "" {
		return errors.New("item missing name")
	}
	if manifest.IsReservedItem(d.Name) {
		return fmt.Errorf("%s is a reserved item name", strings.ToUpper(d.Name))
	}
	if !manifest.SupportsDataType(d.DataType) {
		return fmt.Errorf("%s: unknown dataType %q", strings.ToUpper(d.Name), d.DataType)
	}
	dt, err := accessor.ParseDataType(d.DataType)
	if err != nil {
		return err
	}
	endianness := p.DefaultEndianness
	if d.Endianness != "" {
		if endianness, err = accessor.ParseEndianness(d.Endianness); err != nil {
			return err
		}
	}

	offset := 0
	if d.BitOffset != nil {
		offset = *d.BitOffset
	}
	item, err := packets.NewItem(d.Name, offset, d.BitSize, dt, endianness)
	if err != nil {
		return err
	}
	if d.ArraySize != nil {
		item.Array = true
		item.ArraySize = *d.ArraySize
	}
	if d.Overflow != "" {
		if item.Overflow, err = accessor.ParseOverflow(d.Overflow); err != nil {
			return err
		}
	}
	item.Required = d.Required
	item.Obfuscate = d.Obfuscate
	item.Hidden = d.Hidden
	item.Overlap = d.Overlap
	item.FormatString = d.Format
	item.Units = d.Units
	item.UnitsFullName = d.UnitsFullName
	item.Description = d.Description

	if item.ReadConversion, err = buildConversion(d.ReadConversion, manifest); err != nil {
		return fmt.Errorf("%s: readConversion: %w", item.Name, err)
	}
	if item.WriteConversion, err = buildConversion(d.WriteConversion, manifest); err != nil {
		return fmt.Errorf("%s: writeConversion: %w", item.Name, err)
	}

	if d.ID != nil {
		if item.IDValue, err = rawValue(dt, d.ID); err != nil {
			return fmt.Errorf("%s: id: %w", item.Name, err)
		}
	}

	for _, sd := range d.States {
		s, err := buildState(dt, sd, manifest)
		if err != nil {
			return fmt.Errorf("%s: state %s: %w", item.Name, sd.Label, err)
		}
		item.AddState(s)
	}

	// Default, min and max are engineering values; only plain items have
	// them coerced to the raw type.
	plain := item.WriteConversion == nil
	for _, f := range []struct {
		dst *any
		src any
	}{{&item.Default, d.Default}, {&item.Minimum, d.Min}, {&item.Maximum, d.Max}} {
		*f.dst = f.src
		if plain && f.src != nil && !isStateLabel(item, f.src) {
			if *f.dst, err = rawValue(dt, f.src); err != nil {
				return fmt.Errorf("%s: %w", item.Name, err)
			}
		}
	}

	if item.Default == nil && item.IDValue != nil {
		item.Default = item.IDValue
	}

	for _, ld := range d.Limits {
		if err := item.SetLimits(ld.Set, buildLimits(ld)); err != nil {
			return err
		}
	}
	if d.Persistence > 0 {
		item.Limits.PersistenceSetting = d.Persistence
	}

	if d.BitOffset != nil {
		return p.Define(item)
	}
	return p.Append(item)
}

func buildState(dt accessor.DataType, sd RawStateDef, manifest *version.FormatManifest) (packets.State, error) {
	s := packets.State{
		Label:                sd.Label,
		Hazardous:            sd.Hazardous,
		HazardousDescription: sd.HazardousDescription,
		MessagesDisabled:     sd.MessagesDisabled,
	}
	if sd.Label == "" {
		return s, errors.New("state missing label")
	}
	if v, ok := sd.Value.(string); ok && strings.EqualFold(v, packets.AnyState) {
		s.Value = packets.AnyState
	} else {
		var err error
		if s.Value, err = rawValue(dt, sd.Value); err != nil {
			return s, err
		}
	}
	if sd.Color != "" {
		if !manifest.SupportsStateColor(sd.Color) {
			return s, fmt.Errorf("unknown color %q", sd.Color)
		}
		color, err := packets.ParseLimitsState(sd.Color)
		if err != nil {
			return s, err
		}
		s.Color = color
	}
	return s, nil
}

func buildLimits(ld RawLimitsDef) packets.Limits {
	l := packets.Limits{
		RedLow:     ld.RedLow,
		YellowLow:  ld.YellowLow,
		YellowHigh: ld.YellowHigh,
		RedHigh:    ld.RedHigh,
	}
	if ld.GreenLow != nil && ld.GreenHigh != nil {
		l.HasGreen = true
		l.GreenLow = *ld.GreenLow
		l.GreenHigh = *ld.GreenHigh
	}
	return l
}

func buildConversion(cd *RawConversionDef, manifest *version.FormatManifest) (packets.Conversion, error) {
	if cd == nil {
		return nil, nil
	}
	if !manifest.SupportsConversion(cd.Type) {
		return nil, fmt.Errorf("unknown conversion type %q", cd.Type)
	}
	switch strings.ToLower(cd.Type) {
	case "polynomial":
		if len(cd.Coeffs) == 0 {
			return nil, errors.New("polynomial needs at least one coefficient")
		}
		return conversion.NewPolynomial(cd.Coeffs...), nil
	case "segmented_polynomial":
		if len(cd.Segments) == 0 {
			return nil, errors.New("segmented_polynomial needs at least one segment")
		}
		c := conversion.NewSegmentedPolynomial()
		for _, seg := range cd.Segments {
			c.AddSegment(seg.LowerBound, seg.Coeffs...)
		}
		return c, nil
	case "unix_time":
		if cd.SecondsItem == "" {
			return nil, errors.New("unix_time needs secondsItem")
		}
		return conversion.UnixTime{
			SecondsItem:      strings.ToUpper(cd.SecondsItem),
			MicrosecondsItem: strings.ToUpper(cd.MicrosecondsItem),
		}, nil
	case "received_count":
		return conversion.ReceivedCount{}, nil
	case "received_time_seconds":
		return conversion.ReceivedTimeSeconds{}, nil
	case "packet_time_seconds":
		return conversion.PacketTimeSeconds{}, nil
	}
	return nil, fmt.Errorf("conversion type %q is not supported", cd.Type)
}

func isStateLabel(item *packets.Item, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, found := item.StateByLabel(s)
	return found
}

// rawValue coerces a YAML scalar to the Go type dt reads as. Numeric
// strings such as "0x1F" become integers for INT and UINT; other strings are
// kept since they may name a state.
func rawValue(dt accessor.DataType, v any) (any, error) {
	if s, ok := v.(string); ok && dt.IsInteger() {
		if n, err := accessor.Coerce(s, dt); err == nil {
			return n, nil
		}
		return v, nil
	}
	switch dt {
	case accessor.DataTypeInt:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case float64:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		}
	case accessor.DataTypeUint:
		switch x := v.(type) {
		case int:
			if x >= 0 {
				return uint64(x), nil
			}
			return int64(x), nil
		case uint64:
			return x, nil
		case float64:
			if x >= 0 && x == math.Trunc(x) {
				return uint64(x), nil
			}
		}
	case accessor.DataTypeFloat:
		switch x := v.(type) {
		case int:
			return float64(x), nil
		case float64:
			return x, nil
		}
	case accessor.DataTypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case int, float64, bool:
			return fmt.Sprint(x), nil
		}
	case accessor.DataTypeBlock:
		if s, ok := v.(string); ok {
			if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
				return parseHex(s)
			}
			return []byte(s), nil
		}
	}
	return v, nil
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.ReplaceAll(s, " ", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad hex %q: %w", s, err)
	}
	return b, nil
}
