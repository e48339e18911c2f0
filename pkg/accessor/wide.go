package accessor

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Integer fields wider than 64 bits are read and written as *big.Int. They
// always use the bitfield paths: big endian fields are taken from the bit
// stream directly, little endian fields from the reversed byte window.

func bigMask(n int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(n))
	return m.Sub(m, big.NewInt(1))
}

// spanBytes returns the byte range [first, last] covered by size bits at off.
func spanBytes(off, size int) (first, last int) {
	return off / 8, (off + size - 1) / 8
}

// extractBig is the arbitrary width form of extractBits.
func extractBig(b []byte, off, size int) *big.Int {
	first, last := spanBytes(off, size)
	v := new(big.Int).SetBytes(b[first : last+1])
	v.Rsh(v, uint((last+1)*8-(off+size)))
	return v.And(v, bigMask(size))
}

// insertBig is the arbitrary width form of insertBits. v must be a bit
// pattern of at most size bits.
func insertBig(b []byte, off, size int, v *big.Int) {
	first, last := spanBytes(off, size)
	shift := uint((last+1)*8 - (off + size))
	cur := new(big.Int).SetBytes(b[first : last+1])
	cur.AndNot(cur, new(big.Int).Lsh(bigMask(size), shift))
	cur.Or(cur, new(big.Int).Lsh(v, shift))
	cur.FillBytes(b[first : last+1])
}

// leBytes copies the little endian window of a bitfield into most
// significant byte first order.
func leBytes(buf []byte, lower, upper int) []byte {
	tmp := make([]byte, upper-lower+1)
	for i := range tmp {
		tmp[i] = buf[upper-i]
	}
	return tmp
}

func readWide(buf []byte, off, size int, e Endianness, givenOffset int) (*big.Int, error) {
	if e == BigEndian {
		return extractBig(buf, off, size), nil
	}
	lower, upper := leWindow(off, size)
	if lower < 0 {
		return nil, bitfieldError(givenOffset, size)
	}
	return extractBig(leBytes(buf, lower, upper), off%8, size), nil
}

func writeWide(buf []byte, off, size int, e Endianness, givenOffset int, v *big.Int) error {
	if e == BigEndian {
		insertBig(buf, off, size, v)
		return nil
	}
	lower, upper := leWindow(off, size)
	if lower < 0 {
		return bitfieldError(givenOffset, size)
	}
	tmp := leBytes(buf, lower, upper)
	insertBig(tmp, off%8, size, v)
	for i, c := range tmp {
		buf[upper-i] = c
	}
	return nil
}

// signExtendBig interprets a size bit pattern as two's complement.
func signExtendBig(v *big.Int, size int) *big.Int {
	if v.Bit(size-1) == 0 {
		return v
	}
	return new(big.Int).Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(size)))
}

// OverflowRangeBig is OverflowRange for fields of any width.
func OverflowRangeBig(bitSize int, dt DataType) (minValue, maxValue, hexMax *big.Int) {
	hexMax = bigMask(bitSize)
	if dt == DataTypeInt {
		half := new(big.Int).Lsh(big.NewInt(1), uint(bitSize-1))
		return new(big.Int).Neg(half), new(big.Int).Sub(half, big.NewInt(1)), hexMax
	}
	return new(big.Int), new(big.Int).Set(hexMax), hexMax
}

// CheckOverflowBig is CheckOverflow for fields of any width.
func CheckOverflowBig(value any, bitSize int, dt DataType, o Overflow) (*big.Int, error) {
	v, err := toBig(value)
	if err != nil {
		return nil, err
	}
	return checkOverflowBig(v, bitSize, dt, o)
}

// checkOverflowBig returns the non-negative bit pattern to store.
func checkOverflowBig(v *big.Int, bitSize int, dt DataType, o Overflow) (*big.Int, error) {
	minValue, maxValue, hexMax := OverflowRangeBig(bitSize, dt)
	pattern := func(x *big.Int) *big.Int { return new(big.Int).And(x, hexMax) }
	switch o {
	case OverflowTruncate:
		return pattern(v), nil
	case OverflowSaturate:
		if v.Cmp(maxValue) > 0 {
			return pattern(maxValue), nil
		}
		if v.Cmp(minValue) < 0 {
			return pattern(minValue), nil
		}
	case OverflowError:
		if v.Cmp(maxValue) > 0 || v.Cmp(minValue) < 0 {
			return nil, fmt.Errorf("%w: value of %s invalid for %d-bit %s", ErrRange, v, bitSize, dt)
		}
	case OverflowErrorAllowHex:
		if v.Cmp(hexMax) > 0 || v.Cmp(minValue) < 0 {
			return nil, fmt.Errorf("%w: value of %s invalid for %d-bit %s", ErrRange, v, bitSize, dt)
		}
	default:
		return nil, fmt.Errorf("%w: unknown overflow type %s", ErrConfiguration, o)
	}
	return pattern(v), nil
}

// toBig coerces a write value to an arbitrary precision integer.
func toBig(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			break
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case float32:
		return floatToBig(float64(v))
	case float64:
		return floatToBig(v)
	case string:
		return parseBig(v)
	case []byte:
		return parseBig(string(v))
	}
	iv, err := toInt(value)
	if err != nil {
		return nil, err
	}
	return iv.big(), nil
}

func floatToBig(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: invalid value for Integer: %v", ErrRange, f)
	}
	v, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return v, nil
}

func parseBig(s string) (*big.Int, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", ""))
	if v, ok := new(big.Int).SetString(s, 0); ok {
		return v, nil
	}
	iv, err := parseInt(s)
	if err != nil {
		return nil, err
	}
	return iv.big(), nil
}

func (v intValue) big() *big.Int {
	if v.neg {
		return big.NewInt(int64(v.u))
	}
	return new(big.Int).SetUint64(v.u)
}

// fromBig narrows a big integer to an intValue, failing when it needs more
// than 64 bits.
func fromBig(v *big.Int) (intValue, error) {
	if v.IsInt64() {
		return fromInt64(v.Int64()), nil
	}
	if v.IsUint64() {
		return intValue{u: v.Uint64()}, nil
	}
	return intValue{}, fmt.Errorf("%w: value of %s does not fit in 64 bits", ErrRange, v)
}
