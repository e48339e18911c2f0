package packets

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
)

// ValueType selects how far a read value is processed.
type ValueType uint8

const (
	// Raw is the value as stored in the buffer.
	Raw ValueType = iota
	// Converted applies the read conversion and state labels.
	Converted
	// Formatted additionally applies the format string.
	Formatted
	// WithUnits additionally appends the units.
	WithUnits
)

var valueTypeNames = []string{"RAW", "CONVERTED", "FORMATTED", "WITH_UNITS"}

func (v ValueType) String() string {
	if int(v) < len(valueTypeNames) {
		return valueTypeNames[v]
	}
	return fmt.Sprintf("VALUE_TYPE(%d)", uint8(v))
}

// ParseValueType parses RAW, CONVERTED, FORMATTED or WITH_UNITS.
func ParseValueType(s string) (ValueType, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range valueTypeNames {
		if name == up {
			return ValueType(i), nil
		}
	}
	return Raw, fmt.Errorf("%w: Unknown value type '%s', must be RAW, CONVERTED, FORMATTED, or WITH_UNITS",
		ErrConfiguration, s)
}

// Names of the DERIVED items every telemetry packet carries.
const (
	ItemPacketTimeSeconds     = "PACKET_TIMESECONDS"
	ItemPacketTimeFormatted   = "PACKET_TIMEFORMATTED"
	ItemReceivedTimeSeconds   = "RECEIVED_TIMESECONDS"
	ItemReceivedTimeFormatted = "RECEIVED_TIMEFORMATTED"
	ItemReceivedCount         = "RECEIVED_COUNT"

	// ItemPacketTime, when defined with a conversion returning time.Time,
	// supplies the packet time.
	ItemPacketTime = "PACKET_TIME"
)

// ReservedItemNames lists the DERIVED items managed by the system.
var ReservedItemNames = []string{
	ItemPacketTimeSeconds,
	ItemPacketTimeFormatted,
	ItemReceivedTimeSeconds,
	ItemReceivedTimeFormatted,
	ItemReceivedCount,
}

// IsReservedItem reports whether name is a reserved item name.
func IsReservedItem(name string) bool {
	return slices.Contains(ReservedItemNames, strings.ToUpper(name))
}

// Packet is a Structure with a target and packet name, identification,
// states, limits and conversions.
//
// A Packet is not safe for concurrent use. Catalog packets are shared
// definitions and must be cloned before they are mutated.
type Packet struct {
	Structure

	Description string

	Hazardous            bool
	HazardousDescription string
	MessagesDisabled     bool
	Disabled             bool
	Hidden               bool
	Restricted           bool

	// IgnoreOverlap silences CheckBitOffsets.
	IgnoreOverlap bool

	// Subpacket marks packets identified from within another packet's data.
	Subpacket bool

	// Template is the default buffer content applied by RestoreDefaults.
	Template []byte

	ReceivedTime  time.Time
	ReceivedCount uint64

	// Meta holds free-form packet metadata.
	Meta map[string][]string

	// GivenValues are the parameters a command was built from.
	GivenValues map[string]any

	// Raw marks a command built from raw parameter values.
	Raw bool

	virtual      bool
	packetTime   time.Time
	limitsChange LimitsChangeFunc

	cacheVersion uint64
	cached       bool
	idItems      []*Item
	configName   string
}

// NewPacket creates an empty packet. Names are upper-cased.
func NewPacket(targetName, packetName string, defaultEndianness accessor.Endianness) *Packet {
	p := &Packet{}
	p.init(defaultEndianness)
	p.targetName = strings.ToUpper(targetName)
	p.packetName = strings.ToUpper(packetName)
	return p
}

// TargetName returns the upper-cased target name.
func (p *Packet) TargetName() string { return p.targetName }

// PacketName returns the upper-cased packet name.
func (p *Packet) PacketName() string { return p.packetName }

// SetNames renames the packet.
func (p *Packet) SetNames(targetName, packetName string) {
	p.targetName = strings.ToUpper(targetName)
	p.packetName = strings.ToUpper(packetName)
	p.touch()
}

// Virtual reports whether the packet is virtual. Virtual packets never
// identify.
func (p *Packet) Virtual() bool { return p.virtual }

// SetVirtual marks the packet virtual, which also hides and disables it.
func (p *Packet) SetVirtual(v bool) {
	p.virtual = v
	if v {
		p.Hidden = true
		p.Disabled = true
	}
}

// Refresh must be called after the IDValue of an already defined item is
// changed.
func (p *Packet) Refresh() { p.touch() }

func (p *Packet) refreshCaches() {
	if p.cached && p.cacheVersion == p.version {
		return
	}
	p.idItems = nil
	for _, item := range p.sorted {
		if item.IDValue != nil {
			if v, err := accessor.Coerce(item.IDValue, item.DataType); err == nil && item.DataType != accessor.DataTypeDerived {
				item.IDValue = v
			}
			p.idItems = append(p.idItems, item)
		}
	}
	p.configName = ""
	p.cacheVersion = p.version
	p.cached = true
}

// IDItems returns the identification items in layout order.
func (p *Packet) IDItems() []*Item {
	p.refreshCaches()
	return p.idItems
}

// Identify reports whether buf holds this packet: every id item must read
// back its id value. A read failure counts as a mismatch. A packet without
// id items identifies any non-nil buffer.
func (p *Packet) Identify(buf []byte) bool {
	if buf == nil || p.virtual {
		return false
	}
	for _, item := range p.IDItems() {
		v, err := p.readRaw(item, buf)
		if err != nil {
			return false
		}
		if !ValuesEqual(item.IDValue, v) {
			return false
		}
	}
	return true
}

// ReadIDValues reads the id items from buf. Items that cannot be read yield
// nil.
func (p *Packet) ReadIDValues(buf []byte) []any {
	if buf == nil {
		return nil
	}
	ids := p.IDItems()
	values := make([]any, len(ids))
	for i, item := range ids {
		if v, err := p.readRaw(item, buf); err == nil {
			values[i] = v
		}
	}
	return values
}

// IDValues returns the configured id values in id item order.
func (p *Packet) IDValues() []any {
	ids := p.IDItems()
	values := make([]any, len(ids))
	for i, item := range ids {
		values[i] = item.IDValue
	}
	return values
}

// SetBuffer replaces the buffer. A length mismatch is reported but the
// buffer is still taken.
func (p *Packet) SetBuffer(b []byte) error {
	if err := p.Structure.SetBuffer(b); err != nil {
		return fmt.Errorf("%s %s received with actual packet length of %d but defined length of %d: %w",
			p.targetName, p.packetName, len(b), p.definedLength, err)
	}
	return nil
}

// PacketTime returns the time the packet represents: the PACKET_TIME item
// when it converts to a time.Time, otherwise an explicitly set packet time,
// otherwise the received time.
func (p *Packet) PacketTime() time.Time {
	if item, ok := p.items[ItemPacketTime]; ok {
		if v, err := p.ReadItem(item, Converted); err == nil {
			if t, ok := v.(time.Time); ok {
				return t
			}
		}
	}
	if !p.packetTime.IsZero() {
		return p.packetTime
	}
	return p.ReceivedTime
}

// SetPacketTime overrides the packet time.
func (p *Packet) SetPacketTime(t time.Time) { p.packetTime = t }

// ReadItem reads item from the buffer and processes it to value type vt.
func (p *Packet) ReadItem(item *Item, vt ValueType) (any, error) {
	return p.readItem(item, vt, p.buf())
}

// ReadItemFrom reads item from buf instead of the packet's own buffer.
func (p *Packet) ReadItemFrom(item *Item, vt ValueType, buf []byte) (any, error) {
	return p.readItem(item, vt, buf)
}

func (p *Packet) readItem(item *Item, vt ValueType, buf []byte) (any, error) {
	if vt > WithUnits {
		return nil, fmt.Errorf("%w: Unknown value type '%s', must be RAW, CONVERTED, FORMATTED, or WITH_UNITS",
			ErrConfiguration, vt)
	}
	value, err := p.readRaw(item, buf)
	if err != nil {
		return nil, err
	}
	derivedRaw := false
	if item.DataType == accessor.DataTypeDerived && vt == Raw {
		vt = Converted
		derivedRaw = true
	}
	if vt == Raw {
		return value, nil
	}

	if item.ReadConversion != nil {
		if value, err = p.convert(item, item.ReadConversion, value, buf); err != nil {
			return nil, err
		}
	}
	if derivedRaw {
		return value, nil
	}

	if item.Array {
		elems, err := accessor.ToSlice(value)
		if err != nil {
			return value, nil
		}
		if len(item.States) == 0 && vt == Converted {
			return value, nil
		}
		out := make([]any, len(elems))
		for i, v := range elems {
			out[i] = p.stateOrFormat(item, v, vt)
		}
		return out, nil
	}
	return p.stateOrFormat(item, value, vt), nil
}

func (p *Packet) convert(item *Item, c Conversion, value any, buf []byte) (any, error) {
	if item.Array {
		elems, err := accessor.ToSlice(value)
		if err != nil {
			return nil, p.itemError(item, err)
		}
		out := make([]any, len(elems))
		for i, v := range elems {
			if out[i], err = c.Convert(v, p, buf); err != nil {
				return nil, p.itemError(item, err)
			}
		}
		return out, nil
	}
	v, err := c.Convert(value, p, buf)
	if err != nil {
		return nil, p.itemError(item, err)
	}
	return v, nil
}

func (p *Packet) stateOrFormat(item *Item, value any, vt ValueType) any {
	if len(item.States) > 0 {
		if label, ok := item.StateLabel(value); ok {
			return label
		}
	}
	return applyFormat(item, value, vt)
}

func applyFormat(item *Item, value any, vt ValueType) any {
	if vt != Formatted && vt != WithUnits {
		return value
	}
	var s string
	if item.FormatString != "" && value != nil {
		s = formatWith(item.FormatString, value)
	} else {
		s = FormatValue(value)
	}
	if vt == WithUnits && item.Units != "" {
		s += " " + item.Units
	}
	return s
}

// WriteItem writes value to item. Raw values are written as given.
// Converted values map state labels to their values and apply the write
// conversion first.
func (p *Packet) WriteItem(item *Item, value any, vt ValueType) error {
	p.buf()
	return p.writeItem(item, value, vt, &p.buffer)
}

func (p *Packet) writeItem(item *Item, value any, vt ValueType, buf *[]byte) error {
	switch vt {
	case Raw:
		return p.writeRaw(item, value, buf)
	case Converted:
	case Formatted, WithUnits:
		return fmt.Errorf("%w: Invalid value type on write: %s", ErrConfiguration, vt)
	default:
		return fmt.Errorf("%w: Unknown value type '%s', must be RAW, CONVERTED, FORMATTED, or WITH_UNITS",
			ErrConfiguration, vt)
	}

	if label, ok := value.(string); ok && len(item.States) > 0 {
		if s, ok := item.StateByLabel(label); ok {
			value = s.Value
		}
	}
	if item.WriteConversion != nil {
		v, err := item.WriteConversion.Convert(value, p, *buf)
		if err != nil {
			return p.itemError(item, err)
		}
		value = v
	} else if item.DataType == accessor.DataTypeDerived {
		return p.itemError(item, fmt.Errorf("%w: Cannot write DERIVED item %s without a write conversion",
			ErrConfiguration, item.Name))
	}

	err := p.writeRaw(item, value, buf)
	if err != nil && len(item.States) > 0 && errors.Is(err, ErrRange) {
		if label, ok := value.(string); ok {
			return p.itemError(item, fmt.Errorf("%w: Unknown state '%s' for %s, must be one of %s",
				ErrRange, label, item.Name, strings.Join(item.StateLabels(), ", ")))
		}
	}
	return err
}

// Read reads the named item as value type vt.
func (p *Packet) Read(name string, vt ValueType) (any, error) {
	item, err := p.Item(name)
	if err != nil {
		return nil, err
	}
	return p.ReadItem(item, vt)
}

// Write writes the named item as value type vt.
func (p *Packet) Write(name string, value any, vt ValueType) error {
	item, err := p.Item(name)
	if err != nil {
		return err
	}
	return p.WriteItem(item, value, vt)
}

// ReadItems reads several items as value type vt.
func (p *Packet) ReadItems(items []*Item, vt ValueType) (map[string]any, error) {
	out := make(map[string]any, len(items))
	for _, item := range items {
		v, err := p.ReadItem(item, vt)
		if err != nil {
			return nil, err
		}
		out[item.Name] = v
	}
	return out, nil
}

// WriteItems writes values[i] to items[i] as value type vt.
func (p *Packet) WriteItems(items []*Item, values []any, vt ValueType) error {
	if len(items) != len(values) {
		return fmt.Errorf("%w: %d values given for %d items", ErrRange, len(values), len(items))
	}
	for i, item := range items {
		if err := p.WriteItem(item, values[i], vt); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll reads every item in layout order as value type vt. Each entry
// carries the item's current limits state.
func (p *Packet) ReadAll(vt ValueType) ([]ItemValue, error) {
	out := make([]ItemValue, 0, len(p.sorted))
	for _, item := range p.sorted {
		v, err := p.ReadItem(item, vt)
		if err != nil {
			return nil, err
		}
		out = append(out, ItemValue{Name: item.Name, Value: v, LimitsState: item.Limits.State})
	}
	return out, nil
}

// Formatted renders every item as "NAME: value" lines using value type vt.
// BLOCK items are hex dumped unless a read conversion produced the value.
func (p *Packet) Formatted(vt ValueType, indent int, ignored ...string) (string, error) {
	return p.formatted(indent, ignored, func(item *Item) (any, bool, error) {
		v, err := p.ReadItem(item, vt)
		dump := vt == Raw || item.ReadConversion == nil
		return v, dump, err
	})
}

// RestoreDefaults applies the template and then writes every item's default
// value as a converted value. Reserved items and the named items are skipped.
func (p *Packet) RestoreDefaults(skip ...string) error {
	if p.Template != nil {
		p.buffer = bytes.Clone(p.Template)
	}
	p.buf()
	skipped := make([]string, len(skip))
	for i, name := range skip {
		skipped[i] = strings.ToUpper(name)
	}
	for _, item := range p.sorted {
		if item.Default == nil || IsReservedItem(item.Name) || slices.Contains(skipped, item.Name) {
			continue
		}
		if err := p.writeItem(item, item.Default, Converted, &p.buffer); err != nil {
			return err
		}
	}
	return nil
}

// NextBitOffset returns where the next item would start if items were packed
// directly after item. Offsets at or below zero mean the item extends to the
// end of the buffer.
func NextBitOffset(item *Item) int {
	if item.Array {
		if item.ArraySize > 0 {
			return item.BitOffset + item.ArraySize
		}
		return item.ArraySize
	}
	if item.BitOffset > 0 && item.LittleEndianBitField() {
		// bit offset names the most significant bit
		remaining := 8 - item.BitOffset%8
		if item.BitSize > remaining {
			return item.BitOffset + remaining
		}
	}
	if item.BitSize > 0 {
		return item.BitOffset + item.BitSize
	}
	return item.BitSize
}

// CheckBitOffsets returns a warning for every item that starts inside the
// span of the item before it, unless the item allows overlap.
func (p *Packet) CheckBitOffsets() []string {
	if p.IgnoreOverlap {
		return nil
	}
	var (
		warnings []string
		prev     *Item
		expected int
	)
	for _, item := range p.sorted {
		if prev != nil && item.BitOffset < expected && !item.Overlap {
			warnings = append(warnings, fmt.Sprintf(
				"Bit definition overlap at bit offset %d for packet %s %s items %s and %s",
				item.BitOffset, p.targetName, p.packetName, item.Name, prev.Name))
		}
		expected = NextBitOffset(item)
		prev = item
	}
	return warnings
}

// Packed reports whether the items leave no gaps and do not overlap.
func (p *Packet) Packed() bool {
	var (
		started  bool
		expected int
	)
	for _, item := range p.sorted {
		if started && item.BitOffset != expected {
			return false
		}
		expected = NextBitOffset(item)
		started = true
	}
	return true
}

// ConfigName returns a digest of the packet's shape. It changes whenever an
// item's layout, states or read conversion type changes.
func (p *Packet) ConfigName() string {
	p.refreshCaches()
	if p.configName != "" {
		return p.configName
	}
	var sb strings.Builder
	sb.WriteString(p.targetName)
	sb.WriteByte(' ')
	sb.WriteString(p.packetName)
	for _, item := range p.sorted {
		conv := "NO_CONVERSION"
		if item.ReadConversion != nil {
			conv = fmt.Sprintf("%T", item.ReadConversion)
		}
		arraySize := ""
		if item.Array {
			arraySize = fmt.Sprint(item.ArraySize)
		}
		states := make([]string, len(item.States))
		for i, s := range item.States {
			states[i] = s.Label + "=" + FormatValue(s.Value)
		}
		fmt.Fprintf(&sb, " ITEM %s %d %d %s %s %s %s {%s} %s",
			item.Name, item.BitOffset, item.BitSize, item.DataType, arraySize,
			item.Endianness, item.Overflow, strings.Join(states, ", "), conv)
	}
	sum := blake2b.Sum256([]byte(sb.String()))
	p.configName = hex.EncodeToString(sum[:])
	return p.configName
}

// Reset clears the received time and count.
func (p *Packet) Reset() {
	p.ReceivedTime = time.Time{}
	p.ReceivedCount = 0
	p.packetTime = time.Time{}
}

// Clone returns a deep copy of the packet with its own items and buffer.
func (p *Packet) Clone() *Packet {
	c := &Packet{}
	*c = *p
	p.Structure.cloneInto(&c.Structure)
	c.Meta = maps.Clone(p.Meta)
	c.GivenValues = maps.Clone(p.GivenValues)
	c.idItems = nil
	c.cached = false
	return c
}
