package accessor

import (
	"fmt"
	"strings"
)

// DataType identifies how the bits of a field are interpreted.
type DataType uint8

const (
	DataTypeUnknown DataType = iota
	DataTypeInt
	DataTypeUint
	DataTypeFloat
	DataTypeString
	DataTypeBlock
	DataTypeDerived
)

var dataTypeNames = []string{"UNKNOWN", "INT", "UINT", "FLOAT", "STRING", "BLOCK", "DERIVED"}

// String returns the data type name.
func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "UNKNOWN"
}

// IsNumeric reports whether the type is INT, UINT or FLOAT.
func (d DataType) IsNumeric() bool {
	return d == DataTypeInt || d == DataTypeUint || d == DataTypeFloat
}

// IsInteger reports whether the type is INT or UINT.
func (d DataType) IsInteger() bool {
	return d == DataTypeInt || d == DataTypeUint
}

// IsBytes reports whether the type is STRING or BLOCK.
func (d DataType) IsBytes() bool {
	return d == DataTypeString || d == DataTypeBlock
}

// ParseDataType parses a data type name such as "UINT" (case-insensitive).
func ParseDataType(s string) (DataType, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range dataTypeNames {
		if i > 0 && name == up {
			return DataType(i), nil
		}
	}
	return DataTypeUnknown, fmt.Errorf("%w: unknown data_type %q", ErrConfiguration, s)
}

// Endianness is the byte order of a field.
type Endianness uint8

const (
	BigEndian Endianness = iota
	LittleEndian
)

// String returns BIG_ENDIAN or LITTLE_ENDIAN.
func (e Endianness) String() string {
	switch e {
	case BigEndian:
		return "BIG_ENDIAN"
	case LittleEndian:
		return "LITTLE_ENDIAN"
	default:
		return fmt.Sprintf("ENDIANNESS(%d)", uint8(e))
	}
}

// ParseEndianness parses BIG_ENDIAN or LITTLE_ENDIAN (case-insensitive).
func ParseEndianness(s string) (Endianness, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BIG_ENDIAN":
		return BigEndian, nil
	case "LITTLE_ENDIAN":
		return LittleEndian, nil
	}
	return BigEndian, fmt.Errorf("%w: unknown endianness %q", ErrConfiguration, s)
}

// Overflow is the policy applied to integer writes that do not fit the
// field's bit size.
type Overflow uint8

const (
	// OverflowError rejects values outside the signed or unsigned range.
	OverflowError Overflow = iota

	// OverflowTruncate keeps the low bit_size bits of the value.
	OverflowTruncate

	// OverflowSaturate clamps the value to the field's min/max.
	OverflowSaturate

	// OverflowErrorAllowHex is OverflowError, but also accepts the full
	// unsigned bit pattern for signed fields.
	OverflowErrorAllowHex
)

var overflowNames = []string{"ERROR", "TRUNCATE", "SATURATE", "ERROR_ALLOW_HEX"}

// String returns the overflow policy name.
func (o Overflow) String() string {
	if int(o) < len(overflowNames) {
		return overflowNames[o]
	}
	return fmt.Sprintf("OVERFLOW(%d)", uint8(o))
}

// ParseOverflow parses an overflow policy name (case-insensitive).
func ParseOverflow(s string) (Overflow, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range overflowNames {
		if name == up {
			return Overflow(i), nil
		}
	}
	return OverflowError, fmt.Errorf("%w: unknown overflow type %q", ErrConfiguration, s)
}
