package accessor

import (
	"fmt"
	"math"
)

// OverflowRange returns the minimum, maximum and hex maximum values for an
// integer field of up to 64 bits. Hex maximum is the largest unsigned bit
// pattern, which ERROR_ALLOW_HEX accepts for signed fields. A signed field
// reads back sign extended, so a 1-bit INT holds -1 and 0.
func OverflowRange(bitSize int, dt DataType) (minValue int64, maxValue, hexMax uint64) {
	hexMax = mask(bitSize)
	if dt == DataTypeInt {
		if bitSize >= 64 {
			return math.MinInt64, math.MaxInt64, hexMax
		}
		return -(int64(1) << uint(bitSize-1)), uint64(1)<<uint(bitSize-1) - 1, hexMax
	}
	return 0, hexMax, hexMax
}

// CheckOverflow applies the overflow policy to an integer value and returns
// the bit pattern to store in a field of bitSize bits. Fields wider than 64
// bits go through CheckOverflowBig.
func CheckOverflow(value any, bitSize int, dt DataType, o Overflow) (uint64, error) {
	if bitSize > 64 {
		return 0, fmt.Errorf("%w: bit_size %d needs CheckOverflowBig", ErrConfiguration, bitSize)
	}
	v, err := toInt(value)
	if err != nil {
		return 0, err
	}
	return checkOverflow(v, bitSize, dt, o)
}

func checkOverflow(v intValue, bitSize int, dt DataType, o Overflow) (uint64, error) {
	minValue, maxValue, hexMax := OverflowRange(bitSize, dt)
	switch o {
	case OverflowTruncate:
		return v.u & hexMax, nil
	case OverflowSaturate:
		if v.greater(maxValue) {
			return maxValue & hexMax, nil
		}
		if v.less(minValue) {
			return uint64(minValue) & hexMax, nil
		}
	case OverflowError:
		if v.greater(maxValue) || v.less(minValue) {
			return 0, fmt.Errorf("%w: value of %s invalid for %d-bit %s", ErrRange, v, bitSize, dt)
		}
	case OverflowErrorAllowHex:
		if v.greater(hexMax) || v.less(minValue) {
			return 0, fmt.Errorf("%w: value of %s invalid for %d-bit %s", ErrRange, v, bitSize, dt)
		}
	default:
		return 0, fmt.Errorf("%w: unknown overflow type %s", ErrConfiguration, o)
	}
	return v.u & hexMax, nil
}
