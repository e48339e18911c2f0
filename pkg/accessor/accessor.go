package accessor

import (
	"bytes"
	"fmt"
	"math"
)

// resolveOffset validates the (offset, size) pair and turns a negative offset
// into an absolute one.
func resolveOffset(op string, givenOffset, givenSize int, dt DataType, buf []byte) (int, error) {
	if givenSize <= 0 && !dt.IsBytes() {
		return 0, fmt.Errorf("%w: bit_size %d must be positive for data types other than 'STRING' and 'BLOCK'",
			ErrConfiguration, givenSize)
	}
	if givenSize <= 0 && givenOffset < 0 {
		return 0, fmt.Errorf("%w: negative or zero bit_sizes (%d) cannot be given with negative bit_offsets (%d)",
			ErrConfiguration, givenSize, givenOffset)
	}
	off := givenOffset
	if off < 0 {
		off += len(buf) * 8
		if off < 0 {
			return 0, bufferError(op, buf, dt, givenOffset, givenSize)
		}
	}
	return off, nil
}

// inBounds reports whether the span fits in a buffer of bufLen bytes. A
// little endian bitfield only needs its most significant byte inside the
// buffer since it extends towards lower addresses.
func inBounds(off, size, bufLen int, dt DataType, e Endianness) bool {
	if (off+size-1)/8 < bufLen {
		return true
	}
	return IsLittleEndianBitField(dt, e, off, size) && off/8 < bufLen
}

func checkEndianness(e Endianness) error {
	if e != BigEndian && e != LittleEndian {
		return fmt.Errorf("%w: unknown endianness %s", ErrConfiguration, e)
	}
	return nil
}

func checkFloatSpan(off, size, givenOffset int) error {
	if !byteAligned(off) {
		return fmt.Errorf("%w: bit_offset %d is not byte aligned for data_type FLOAT", ErrConfiguration, givenOffset)
	}
	if size != 32 && size != 64 {
		return fmt.Errorf("%w: bit_size is %d but must be 32 or 64 for data_type FLOAT", ErrConfiguration, size)
	}
	return nil
}

// resolveBytesSize turns a STRING/BLOCK size of zero or less into the number
// of bits left in the buffer after trimming |size| trailing bits.
func resolveBytesSize(op string, off, givenOffset, givenSize int, dt DataType, buf []byte) (int, error) {
	if !byteAligned(off) {
		return 0, fmt.Errorf("%w: bit_offset %d is not byte aligned for data_type %s", ErrConfiguration, givenOffset, dt)
	}
	if givenSize%8 != 0 {
		return 0, fmt.Errorf("%w: bit_size %d is not a whole number of bytes for data_type %s", ErrConfiguration, givenSize, dt)
	}
	if givenSize > 0 {
		return givenSize, nil
	}
	size := len(buf)*8 - off + givenSize
	if size < 0 {
		return 0, bufferError(op, buf, dt, givenOffset, givenSize)
	}
	return size, nil
}

// Read returns the value of the field at (bitOffset, bitSize) in buf.
func Read(bitOffset, bitSize int, dt DataType, buf []byte, e Endianness) (any, error) {
	if err := checkEndianness(e); err != nil {
		return nil, err
	}
	off, err := resolveOffset("read", bitOffset, bitSize, dt, buf)
	if err != nil {
		return nil, err
	}

	switch dt {
	case DataTypeString, DataTypeBlock:
		size, err := resolveBytesSize("read", off, bitOffset, bitSize, dt, buf)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			if dt == DataTypeString {
				return "", nil
			}
			return []byte{}, nil
		}
		if !inBounds(off, size, len(buf), dt, e) {
			return nil, bufferError("read", buf, dt, bitOffset, bitSize)
		}
		b := buf[off/8 : off/8+size/8]
		if dt == DataTypeString {
			if i := bytes.IndexByte(b, 0); i >= 0 {
				b = b[:i]
			}
			return string(b), nil
		}
		return bytes.Clone(b), nil

	case DataTypeInt, DataTypeUint:
		if !inBounds(off, bitSize, len(buf), dt, e) {
			return nil, bufferError("read", buf, dt, bitOffset, bitSize)
		}
		if bitSize > 64 {
			raw, err := readWide(buf, off, bitSize, e, bitOffset)
			if err != nil {
				return nil, err
			}
			if dt == DataTypeInt {
				return signExtendBig(raw, bitSize), nil
			}
			return raw, nil
		}
		raw, err := readUint(buf, off, bitSize, e, bitOffset)
		if err != nil {
			return nil, err
		}
		if dt == DataTypeInt {
			return signExtend(raw, bitSize), nil
		}
		return raw, nil

	case DataTypeFloat:
		if err := checkFloatSpan(off, bitSize, bitOffset); err != nil {
			return nil, err
		}
		if !inBounds(off, bitSize, len(buf), dt, e) {
			return nil, bufferError("read", buf, dt, bitOffset, bitSize)
		}
		raw := readAligned(buf[off/8:], bitSize, e)
		if bitSize == 32 {
			return float64(math.Float32frombits(uint32(raw))), nil
		}
		return math.Float64frombits(raw), nil
	}

	return nil, fmt.Errorf("%w: data_type %s is not recognized", ErrConfiguration, dt)
}

func readUint(buf []byte, off, size int, e Endianness, givenOffset int) (uint64, error) {
	if byteAligned(off) && evenBitSize(size) {
		return readAligned(buf[off/8:], size, e), nil
	}
	if e == LittleEndian {
		if lower, _ := leWindow(off, size); lower < 0 {
			return 0, bitfieldError(givenOffset, size)
		}
		return readLEBitField(buf, off, size), nil
	}
	return extractBits(buf, off, size), nil
}

func writeUint(buf []byte, off, size int, e Endianness, givenOffset int, v uint64) error {
	if byteAligned(off) && evenBitSize(size) {
		writeAligned(buf[off/8:], size, e, v)
		return nil
	}
	if e == LittleEndian {
		if lower, _ := leWindow(off, size); lower < 0 {
			return bitfieldError(givenOffset, size)
		}
		writeLEBitField(buf, off, size, v)
		return nil
	}
	insertBits(buf, off, size, v)
	return nil
}

// Write stores value in the field at (bitOffset, bitSize) of *buf and
// returns the value as it was stored after the overflow policy. Variable
// sized STRING and BLOCK fields (bitSize <= 0) replace *buf with a resized
// buffer that keeps the trailing |bitSize| bits.
func Write(value any, bitOffset, bitSize int, dt DataType, buf *[]byte, e Endianness, o Overflow) (any, error) {
	if err := checkEndianness(e); err != nil {
		return nil, err
	}
	off, err := resolveOffset("write", bitOffset, bitSize, dt, *buf)
	if err != nil {
		return nil, err
	}
	if o > OverflowErrorAllowHex {
		return nil, fmt.Errorf("%w: unknown overflow type %s", ErrConfiguration, o)
	}

	switch dt {
	case DataTypeString, DataTypeBlock:
		return writeBytes(value, off, bitOffset, bitSize, dt, buf, e, o)

	case DataTypeInt, DataTypeUint:
		if !inBounds(off, bitSize, len(*buf), dt, e) {
			return nil, bufferError("write", *buf, dt, bitOffset, bitSize)
		}
		if bitSize > 64 {
			return writeWideValue(value, off, bitOffset, bitSize, dt, *buf, e, o)
		}
		iv, err := toInt(value)
		if err != nil {
			return nil, err
		}
		pattern, err := checkOverflow(iv, bitSize, dt, o)
		if err != nil {
			return nil, err
		}
		if err := writeUint(*buf, off, bitSize, e, bitOffset, pattern); err != nil {
			return nil, err
		}
		if dt == DataTypeInt {
			return signExtend(pattern, bitSize), nil
		}
		return pattern, nil

	case DataTypeFloat:
		if err := checkFloatSpan(off, bitSize, bitOffset); err != nil {
			return nil, err
		}
		if !inBounds(off, bitSize, len(*buf), dt, e) {
			return nil, bufferError("write", *buf, dt, bitOffset, bitSize)
		}
		f, err := ToFloat64(value)
		if err != nil {
			return nil, err
		}
		if bitSize == 32 {
			f32 := float32(f)
			if math.IsInf(float64(f32), 0) && !math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: value of %v does not fit in a 32-bit FLOAT", ErrRange, f)
			}
			writeAligned((*buf)[off/8:], 32, e, uint64(math.Float32bits(f32)))
			return float64(f32), nil
		}
		writeAligned((*buf)[off/8:], 64, e, math.Float64bits(f))
		return f, nil
	}

	return nil, fmt.Errorf("%w: data_type %s is not recognized", ErrConfiguration, dt)
}

func writeWideValue(value any, off, givenOffset, bitSize int, dt DataType, buf []byte, e Endianness, o Overflow) (any, error) {
	v, err := toBig(value)
	if err != nil {
		return nil, err
	}
	pattern, err := checkOverflowBig(v, bitSize, dt, o)
	if err != nil {
		return nil, err
	}
	if err := writeWide(buf, off, bitSize, e, givenOffset, pattern); err != nil {
		return nil, err
	}
	if dt == DataTypeInt {
		return signExtendBig(pattern, bitSize), nil
	}
	return pattern, nil
}

func writeBytes(value any, off, givenOffset, givenSize int, dt DataType, buf *[]byte, e Endianness, o Overflow) (any, error) {
	b, err := toBytes(value)
	if err != nil {
		return nil, err
	}
	if !byteAligned(off) {
		return nil, fmt.Errorf("%w: bit_offset %d is not byte aligned for data_type %s", ErrConfiguration, givenOffset, dt)
	}
	if givenSize%8 != 0 {
		return nil, fmt.Errorf("%w: bit_size %d is not a whole number of bytes for data_type %s", ErrConfiguration, givenSize, dt)
	}
	lower := off / 8

	if givenSize <= 0 {
		endBytes := -givenSize / 8
		old := *buf
		if lower+endBytes > len(old) {
			return nil, bufferError("write", old, dt, givenOffset, givenSize)
		}
		nb := make([]byte, 0, lower+len(b)+endBytes)
		nb = append(nb, old[:lower]...)
		nb = append(nb, b...)
		nb = append(nb, old[len(old)-endBytes:]...)
		*buf = nb
		return written(b, dt), nil
	}

	if !inBounds(off, givenSize, len(*buf), dt, e) {
		return nil, bufferError("write", *buf, dt, givenOffset, givenSize)
	}
	byteSize := givenSize / 8
	if len(b) > byteSize {
		if o != OverflowTruncate {
			return nil, fmt.Errorf("%w: value of %d bytes does not fit into %d bytes for data_type %s",
				ErrRange, len(b), byteSize, dt)
		}
		b = b[:byteSize]
	}
	dst := (*buf)[lower : lower+byteSize]
	n := copy(dst, b)
	clear(dst[n:])
	return written(b, dt), nil
}

func written(b []byte, dt DataType) any {
	if dt == DataTypeString {
		return string(b)
	}
	return bytes.Clone(b)
}
