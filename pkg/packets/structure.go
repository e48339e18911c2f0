package packets

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
)

// Structure is an ordered set of items over one owned byte buffer.
//
// Items are kept both by name and in layout order. The defined length is the
// furthest extent of any item measured from the start of the buffer plus the
// furthest negative offset measured from its end.
type Structure struct {
	// DefaultEndianness is used by DefineItem and AppendItem.
	DefaultEndianness accessor.Endianness

	// ShortBufferAllowed lets SetBuffer accept buffers shorter than the
	// defined length. They are zero-padded.
	ShortBufferAllowed bool

	targetName string
	packetName string

	items  map[string]*Item
	sorted []*Item
	buffer []byte

	posBitSize        int
	negBitSize        int
	definedLengthBits int
	definedLength     int
	fixedSize         bool
	nextCreateIndex   int

	// version changes whenever the item set changes.
	version uint64
}

// ItemValue pairs an item name with a value read from the buffer.
type ItemValue struct {
	Name        string
	Value       any
	LimitsState LimitsState
}

// NewStructure creates an empty structure. The buffer is allocated on first
// use at the defined length.
func NewStructure(defaultEndianness accessor.Endianness) *Structure {
	s := &Structure{}
	s.init(defaultEndianness)
	return s
}

func (s *Structure) init(defaultEndianness accessor.Endianness) {
	s.DefaultEndianness = defaultEndianness
	s.items = make(map[string]*Item)
	s.fixedSize = true
}

// DefineItem creates and defines a scalar item using the default endianness.
func (s *Structure) DefineItem(name string, bitOffset, bitSize int, dt accessor.DataType) (*Item, error) {
	item, err := NewItem(name, bitOffset, bitSize, dt, s.DefaultEndianness)
	if err != nil {
		return nil, err
	}
	return item, s.Define(item)
}

// DefineArrayItem creates and defines an array item using the default
// endianness. arraySize is the total size of the array in bits.
func (s *Structure) DefineArrayItem(name string, bitOffset, bitSize int, dt accessor.DataType, arraySize int) (*Item, error) {
	item := &Item{
		Name:       strings.ToUpper(strings.TrimSpace(name)),
		Key:        name,
		BitOffset:  bitOffset,
		BitSize:    bitSize,
		DataType:   dt,
		Endianness: s.DefaultEndianness,
		Array:      true,
		ArraySize:  arraySize,
		Limits:     ItemLimits{Enabled: true, PersistenceSetting: 1},
	}
	return item, s.Define(item)
}

// AppendItem defines a scalar item immediately after the current defined
// length.
func (s *Structure) AppendItem(name string, bitSize int, dt accessor.DataType) (*Item, error) {
	item, err := NewItem(name, 0, bitSize, dt, s.DefaultEndianness)
	if err != nil {
		return nil, err
	}
	return item, s.Append(item)
}

// AppendArrayItem defines an array item immediately after the current
// defined length.
func (s *Structure) AppendArrayItem(name string, bitSize int, dt accessor.DataType, arraySize int) (*Item, error) {
	item := &Item{
		Name:       strings.ToUpper(strings.TrimSpace(name)),
		Key:        name,
		BitSize:    bitSize,
		DataType:   dt,
		Endianness: s.DefaultEndianness,
		Array:      true,
		ArraySize:  arraySize,
		Limits:     ItemLimits{Enabled: true, PersistenceSetting: 1},
	}
	return item, s.Append(item)
}

// Append places item at the current defined length and defines it. DERIVED
// items are placed at offset zero. Appending after a variably sized item
// fails because there is no fixed append point.
func (s *Structure) Append(item *Item) error {
	if item.DataType == accessor.DataTypeDerived {
		item.BitOffset = 0
		return s.Define(item)
	}
	if !s.fixedSize {
		return fmt.Errorf("%w: Can't append an item after a variably sized item", ErrConfiguration)
	}
	item.BitOffset = s.definedLengthBits
	return s.Define(item)
}

// Define adds item to the structure, replacing any item of the same name,
// and grows the buffer if the defined length increased.
func (s *Structure) Define(item *Item) error {
	if s.items == nil {
		s.init(s.DefaultEndianness)
	}
	item.Name = strings.ToUpper(item.Name)
	if item.Key == "" {
		item.Key = item.Name
	}
	if err := item.Validate(); err != nil {
		return err
	}

	if _, ok := s.items[item.Name]; ok {
		s.sorted = slices.DeleteFunc(s.sorted, func(i *Item) bool { return i.Name == item.Name })
	}
	item.createIndex = s.nextCreateIndex
	s.nextCreateIndex++

	s.sorted = append(s.sorted, item)
	if n := len(s.sorted); n > 1 {
		last := s.sorted[n-2]
		if last.BitOffset <= 0 || item.BitOffset <= 0 || item.BitOffset < last.BitOffset {
			slices.SortStableFunc(s.sorted, compareItems)
		}
	}
	s.items[item.Name] = item

	if item.VariableSize() {
		s.fixedSize = false
	}
	s.accountLength(item)
	s.version++
	s.resizeBuffer()
	return nil
}

func (s *Structure) accountLength(item *Item) {
	update := false
	if item.BitOffset >= 0 {
		var end int
		switch {
		case item.BitSize <= 0:
			end = item.BitOffset
		case item.Array && item.ArraySize >= 0:
			end = item.BitOffset + item.ArraySize
		case item.Array:
			end = item.BitOffset
		default:
			end = item.BitOffset + item.BitSize
		}
		if end > s.posBitSize {
			s.posBitSize = end
			update = true
		}
	} else if -item.BitOffset > s.negBitSize {
		s.negBitSize = -item.BitOffset
		update = true
	}
	if update {
		s.definedLengthBits = s.posBitSize + s.negBitSize
		s.definedLength = (s.definedLengthBits + 7) / 8
	}
}

// DeleteItem removes an item. The layout is not compacted: the span it
// occupied stays part of the defined length.
func (s *Structure) DeleteItem(name string) error {
	up := strings.ToUpper(name)
	if _, ok := s.items[up]; !ok {
		return s.unknownItem(name)
	}
	s.sorted = slices.DeleteFunc(s.sorted, func(i *Item) bool { return i.Name == up })
	delete(s.items, up)
	s.version++
	return nil
}

// RenameItem changes the name of an existing item.
func (s *Structure) RenameItem(name, newName string) (*Item, error) {
	item, err := s.Item(name)
	if err != nil {
		return nil, err
	}
	newName = strings.ToUpper(strings.TrimSpace(newName))
	if newName == "" {
		return nil, fmt.Errorf("%w: name must contain at least one character", ErrConfiguration)
	}
	if _, taken := s.items[newName]; taken && newName != item.Name {
		return nil, fmt.Errorf("%w: item %s already exists", ErrConfiguration, newName)
	}
	delete(s.items, item.Name)
	item.Name = newName
	item.Key = newName
	s.items[newName] = item
	s.version++
	return item, nil
}

// Item returns the item with the given name (case-insensitive).
func (s *Structure) Item(name string) (*Item, error) {
	if item, ok := s.items[strings.ToUpper(name)]; ok {
		return item, nil
	}
	return nil, s.unknownItem(name)
}

// HasItem reports whether an item with the given name is defined.
func (s *Structure) HasItem(name string) bool {
	_, ok := s.items[strings.ToUpper(name)]
	return ok
}

// Items returns the items keyed by name. The map is a copy.
func (s *Structure) Items() map[string]*Item {
	return maps.Clone(s.items)
}

// SortedItems returns the items in layout order. The slice is a copy.
func (s *Structure) SortedItems() []*Item {
	return slices.Clone(s.sorted)
}

// ItemNames returns the item names in layout order.
func (s *Structure) ItemNames() []string {
	names := make([]string, len(s.sorted))
	for i, item := range s.sorted {
		names[i] = item.Name
	}
	return names
}

// DefinedLength returns the minimum buffer length in bytes.
func (s *Structure) DefinedLength() int { return s.definedLength }

// DefinedLengthBits returns the minimum buffer length in bits.
func (s *Structure) DefinedLengthBits() int { return s.definedLengthBits }

// FixedSize reports whether no item has a variable size.
func (s *Structure) FixedSize() bool { return s.fixedSize }

// Defined reports whether any item is defined.
func (s *Structure) Defined() bool { return len(s.sorted) > 0 }

// Length returns the current buffer length in bytes.
func (s *Structure) Length() int {
	return len(s.buf())
}

// buf returns the buffer, allocating it at the defined length if needed.
func (s *Structure) buf() []byte {
	if s.buffer == nil {
		s.buffer = make([]byte, s.definedLength)
	}
	return s.buffer
}

// resizeBuffer grows an allocated buffer to the defined length.
func (s *Structure) resizeBuffer() {
	if s.buffer != nil && len(s.buffer) < s.definedLength {
		s.buffer = append(s.buffer, make([]byte, s.definedLength-len(s.buffer))...)
	}
}

// Buffer returns a copy of the buffer.
func (s *Structure) Buffer() []byte {
	return bytes.Clone(s.buf())
}

// SetBuffer replaces the buffer with a copy of b. A buffer shorter than the
// defined length is zero-padded and, unless ShortBufferAllowed, reported as
// an error. A fixed size structure also rejects longer buffers. The buffer is
// set in both error cases.
func (s *Structure) SetBuffer(b []byte) error {
	s.buffer = bytes.Clone(b)
	if s.buffer == nil {
		s.buffer = []byte{}
	}
	if len(s.buffer) == s.definedLength {
		return nil
	}
	if len(s.buffer) < s.definedLength {
		s.resizeBuffer()
		if !s.ShortBufferAllowed {
			return fmt.Errorf("%w: Buffer length less than defined length", ErrBounds)
		}
		return nil
	}
	if s.fixedSize && s.definedLength != 0 {
		return fmt.Errorf("%w: Buffer length greater than defined length", ErrBounds)
	}
	return nil
}

// Resize sets the buffer length, truncating or zero-padding it.
func (s *Structure) Resize(n int) {
	b := s.buf()
	if n <= len(b) {
		s.buffer = b[:n:n]
		return
	}
	s.buffer = append(b, make([]byte, n-len(b))...)
}

func (s *Structure) readRaw(item *Item, buf []byte) (any, error) {
	var (
		v   any
		err error
	)
	switch {
	case item.DataType == accessor.DataTypeDerived:
		return nil, nil
	case item.Array:
		v, err = accessor.ReadArray(item.BitOffset, item.BitSize, item.DataType, item.ArraySize, buf, item.Endianness)
	default:
		v, err = accessor.Read(item.BitOffset, item.BitSize, item.DataType, buf, item.Endianness)
	}
	if err != nil {
		return nil, s.itemError(item, err)
	}
	return v, nil
}

func (s *Structure) writeRaw(item *Item, value any, buf *[]byte) error {
	var err error
	switch {
	case item.DataType == accessor.DataTypeDerived:
		return nil
	case item.Array:
		err = accessor.WriteArray(value, item.BitOffset, item.BitSize, item.DataType, item.ArraySize, buf, item.Endianness, item.Overflow)
	default:
		_, err = accessor.Write(value, item.BitOffset, item.BitSize, item.DataType, buf, item.Endianness, item.Overflow)
	}
	if err != nil {
		return s.itemError(item, err)
	}
	return nil
}

// ReadItem reads the raw value of item from the buffer. DERIVED items read
// as nil.
func (s *Structure) ReadItem(item *Item) (any, error) {
	return s.readRaw(item, s.buf())
}

// WriteItem writes the raw value of item into the buffer. Variably sized
// STRING, BLOCK and array items resize the buffer.
func (s *Structure) WriteItem(item *Item, value any) error {
	s.buf()
	return s.writeRaw(item, value, &s.buffer)
}

// Read reads the raw value of the named item.
func (s *Structure) Read(name string) (any, error) {
	item, err := s.Item(name)
	if err != nil {
		return nil, err
	}
	return s.ReadItem(item)
}

// Write writes the raw value of the named item.
func (s *Structure) Write(name string, value any) error {
	item, err := s.Item(name)
	if err != nil {
		return err
	}
	return s.WriteItem(item, value)
}

// ReadItems reads several items into a map keyed by item name.
func (s *Structure) ReadItems(items []*Item) (map[string]any, error) {
	out := make(map[string]any, len(items))
	for _, item := range items {
		v, err := s.ReadItem(item)
		if err != nil {
			return nil, err
		}
		out[item.Name] = v
	}
	return out, nil
}

// WriteItems writes values[i] to items[i].
func (s *Structure) WriteItems(items []*Item, values []any) error {
	if len(items) != len(values) {
		return fmt.Errorf("%w: %d values given for %d items", ErrRange, len(values), len(items))
	}
	for i, item := range items {
		if err := s.WriteItem(item, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll reads every item in layout order.
func (s *Structure) ReadAll() ([]ItemValue, error) {
	out := make([]ItemValue, 0, len(s.sorted))
	for _, item := range s.sorted {
		v, err := s.ReadItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, ItemValue{Name: item.Name, Value: v})
	}
	return out, nil
}

// Formatted renders every item as "NAME: value" lines. BLOCK values are
// rendered as an indented hex dump. Items named in ignored are skipped.
func (s *Structure) Formatted(indent int, ignored ...string) (string, error) {
	return s.formatted(indent, ignored, func(item *Item) (any, bool, error) {
		v, err := s.ReadItem(item)
		return v, true, err
	})
}

// formatted renders items through read. The bool result of read says whether
// a BLOCK value should be dumped as hex.
func (s *Structure) formatted(indent int, ignored []string, read func(*Item) (any, bool, error)) (string, error) {
	pad := strings.Repeat(" ", indent)
	var sb strings.Builder
	for _, item := range s.sorted {
		if slices.Contains(ignored, item.Name) {
			continue
		}
		v, dump, err := read(item)
		if err != nil {
			return "", err
		}
		if b, ok := v.([]byte); ok && dump && item.DataType == accessor.DataTypeBlock {
			fmt.Fprintf(&sb, "%s%s:\n", pad, item.Name)
			sb.WriteString(hexDump(b, indent+2))
			continue
		}
		fmt.Fprintf(&sb, "%s%s: %s\n", pad, item.Name, FormatValue(v))
	}
	return sb.String(), nil
}

func hexDump(b []byte, indent int) string {
	if len(b) == 0 {
		return ""
	}
	pad := strings.Repeat(" ", indent)
	lines := strings.SplitAfter(hex.Dump(b), "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line != "" {
			sb.WriteString(pad)
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// Clone returns a deep copy: items are cloned and the buffer is copied.
func (s *Structure) Clone() *Structure {
	c := &Structure{}
	s.cloneInto(c)
	return c
}

func (s *Structure) cloneInto(c *Structure) {
	*c = *s
	c.items = make(map[string]*Item, len(s.items))
	c.sorted = make([]*Item, len(s.sorted))
	for i, item := range s.sorted {
		ci := item.Clone()
		c.sorted[i] = ci
		c.items[ci.Name] = ci
	}
	if s.buffer != nil {
		c.buffer = bytes.Clone(s.buffer)
	}
}

// touch records an in-place change to item metadata.
func (s *Structure) touch() { s.version++ }

// IsUnknownItem reports whether err was caused by an undefined item name.
func IsUnknownItem(err error) bool {
	return errors.Is(err, ErrUnknownItem)
}
