package packets

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
)

// Conversion converts an item value between its raw and engineering forms.
// Implementations must not retain buf.
type Conversion interface {
	Convert(value any, p *Packet, buf []byte) (any, error)
}

// Item describes one named field of a Structure.
type Item struct {
	// Name is the upper-cased unique item name.
	Name string

	// Key is the name as originally given.
	Key string

	// BitOffset is the offset of the first bit (or, for little endian
	// bitfields, the most significant bit). Negative offsets are measured
	// from the end of the buffer.
	BitOffset int

	// BitSize is the size of one value in bits. STRING and BLOCK items may
	// use zero or a negative size to extend to the end of the buffer.
	BitSize int

	DataType   accessor.DataType
	Endianness accessor.Endianness
	Overflow   accessor.Overflow

	// Array marks an array item. ArraySize is the total size of the array
	// in bits; zero or negative means "to the end of the buffer".
	Array     bool
	ArraySize int

	// Overlap suppresses overlap warnings for this item.
	Overlap bool

	// Hidden items are left out of tools that list items.
	Hidden bool

	// Obfuscate masks the value in command output strings.
	Obfuscate bool

	FormatString    string
	ReadConversion  Conversion
	WriteConversion Conversion

	// IDValue is the raw value that identifies the owning packet. Nil for
	// items that are not id items.
	IDValue any

	// States maps raw values to labels, in definition order.
	States []State

	Default  any
	Minimum  any
	Maximum  any
	Required bool

	Description   string
	Units         string
	UnitsFullName string

	Limits ItemLimits

	createIndex int
}

// NewItem creates a validated item definition. The name is upper-cased;
// the original spelling is kept in Key.
func NewItem(name string, bitOffset, bitSize int, dt accessor.DataType, e accessor.Endianness) (*Item, error) {
	item := &Item{
		Name:       strings.ToUpper(strings.TrimSpace(name)),
		Key:        name,
		BitOffset:  bitOffset,
		BitSize:    bitSize,
		DataType:   dt,
		Endianness: e,
		Overflow:   accessor.OverflowError,
		Limits:     ItemLimits{Enabled: true, PersistenceSetting: 1},
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks the layout fields of the item.
func (i *Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: name must contain at least one character", ErrConfiguration)
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrConfiguration, i.Name, fmt.Sprintf(format, args...))
	}

	switch i.DataType {
	case accessor.DataTypeInt, accessor.DataTypeUint:
		if i.BitSize <= 0 {
			return fail("bit_size cannot be negative or zero for 'INT', 'UINT', and 'FLOAT' items: %d", i.BitSize)
		}
	case accessor.DataTypeFloat:
		if i.BitOffset%8 != 0 {
			return fail("bit_offset for 'FLOAT', 'STRING', and 'BLOCK' items must be byte aligned")
		}
		if i.BitSize != 32 && i.BitSize != 64 {
			return fail("bit_size for FLOAT items must be 32 or 64. Given: %d", i.BitSize)
		}
	case accessor.DataTypeString, accessor.DataTypeBlock:
		if i.BitOffset%8 != 0 {
			return fail("bit_offset for 'FLOAT', 'STRING', and 'BLOCK' items must be byte aligned")
		}
		if i.BitSize%8 != 0 {
			return fail("bit_size for STRING and BLOCK items must be byte multiples")
		}
	case accessor.DataTypeDerived:
		if i.BitOffset != 0 {
			return fail("DERIVED items must have bit_offset of zero")
		}
		if i.BitSize != 0 {
			return fail("DERIVED items must have bit_size of zero")
		}
		if i.Array {
			return fail("DERIVED items cannot be arrays")
		}
	default:
		return fail("unknown data_type: %s - Must be 'INT', 'UINT', 'FLOAT', 'STRING', 'BLOCK', or 'DERIVED'", i.DataType)
	}

	if i.Endianness != accessor.BigEndian && i.Endianness != accessor.LittleEndian {
		return fail("unknown endianness: %s", i.Endianness)
	}
	if i.Overflow > accessor.OverflowErrorAllowHex {
		return fail("unknown overflow type: %s", i.Overflow)
	}

	if i.Array {
		if i.BitSize <= 0 {
			return fail("bit_size cannot be negative or zero for array items")
		}
		if i.ArraySize > 0 && i.ArraySize%i.BitSize != 0 {
			return fail("array_size must be a multiple of bit_size")
		}
		if i.LittleEndianBitField() && i.BitSize > 1 {
			return fail("arrays of LITTLE_ENDIAN bitfields are not supported")
		}
	}

	if i.BitOffset < 0 {
		if i.BitSize <= 0 && i.DataType != accessor.DataTypeDerived {
			return fail("Can't define an item with negative bit_size %d and negative bit_offset %d", i.BitSize, i.BitOffset)
		}
		if i.Array && i.ArraySize <= 0 {
			return fail("Can't define an item with negative array_size %d and negative bit_offset %d", i.ArraySize, i.BitOffset)
		}
		if i.Array && i.ArraySize > -i.BitOffset {
			return fail("Can't define an item with array_size %d greater than negative bit_offset %d", i.ArraySize, i.BitOffset)
		}
		if !i.Array && i.BitSize > -i.BitOffset {
			return fail("Can't define an item with bit_size %d greater than negative bit_offset %d", i.BitSize, i.BitOffset)
		}
	} else if i.LittleEndianBitField() {
		numBytes := ((i.BitOffset%8)+i.BitSize-1)/8 + 1
		if i.BitOffset/8-numBytes+1 < 0 {
			return fail("LITTLE_ENDIAN bitfield with bit_offset %d and bit_size %d is invalid", i.BitOffset, i.BitSize)
		}
	}
	return nil
}

// LittleEndianBitField reports whether the item uses the little endian
// bitfield addressing rules.
func (i *Item) LittleEndianBitField() bool {
	return accessor.IsLittleEndianBitField(i.DataType, i.Endianness, i.BitOffset, i.BitSize)
}

// VariableSize reports whether the item's extent depends on the buffer.
func (i *Item) VariableSize() bool {
	if i.DataType == accessor.DataTypeDerived {
		return false
	}
	if i.Array {
		return i.ArraySize <= 0
	}
	return i.BitSize <= 0
}

// Less orders items by bit offset (non-negative offsets before negative
// ones), then by bit size, then by definition order.
func (i *Item) Less(other *Item) bool {
	if i.BitOffset == other.BitOffset {
		if i.BitSize == other.BitSize {
			return i.createIndex < other.createIndex
		}
		return i.BitSize < other.BitSize
	}
	if (i.BitOffset >= 0) == (other.BitOffset >= 0) {
		return i.BitOffset < other.BitOffset
	}
	return i.BitOffset > other.BitOffset
}

func compareItems(a, b *Item) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// Clone returns a deep copy of the item. Conversions are shared.
func (i *Item) Clone() *Item {
	c := *i
	c.States = slices.Clone(i.States)
	c.Limits.Values = maps.Clone(i.Limits.Values)
	return &c
}

// IsIDItem reports whether the item takes part in packet identification.
func (i *Item) IsIDItem() bool { return i.IDValue != nil }

// String describes the item layout.
func (i *Item) String() string {
	if i.Array {
		return fmt.Sprintf("%s %d %d %s ARRAY %d %s", i.Name, i.BitOffset, i.BitSize, i.DataType, i.ArraySize, i.Endianness)
	}
	return fmt.Sprintf("%s %d %d %s %s", i.Name, i.BitOffset, i.BitSize, i.DataType, i.Endianness)
}
