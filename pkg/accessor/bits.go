package accessor

import "encoding/binary"

func byteAligned(bitOffset int) bool { return bitOffset%8 == 0 }

func evenBitSize(bitSize int) bool {
	return bitSize == 8 || bitSize == 16 || bitSize == 32 || bitSize == 64
}

// IsLittleEndianBitField reports whether an integer field must be accessed
// with the little endian bitfield rules instead of a whole-word byte swap.
func IsLittleEndianBitField(dt DataType, e Endianness, bitOffset, bitSize int) bool {
	return e == LittleEndian && dt.IsInteger() && !(byteAligned(bitOffset) && evenBitSize(bitSize))
}

func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// extractBits returns the size bits starting at bit off of b, reading b as a
// big endian bit stream. size must be 1..64.
func extractBits(b []byte, off, size int) uint64 {
	end := off + size
	var v uint64
	for j := off / 8; j <= (end-1)/8; j++ {
		lo := max(off, j*8)
		hi := min(end, j*8+8)
		shift := j*8 + 8 - hi
		chunk := (uint64(b[j]) >> uint(shift)) & mask(hi-lo)
		v |= chunk << uint(end-hi)
	}
	return v
}

// insertBits is the inverse of extractBits. Bits of b outside the span are
// left untouched.
func insertBits(b []byte, off, size int, v uint64) {
	end := off + size
	for j := off / 8; j <= (end-1)/8; j++ {
		lo := max(off, j*8)
		hi := min(end, j*8+8)
		shift := uint(j*8 + 8 - hi)
		m := mask(hi - lo)
		chunk := (v >> uint(end-hi)) & m
		b[j] = byte((uint64(b[j]) &^ (m << shift)) | (chunk << shift))
	}
}

// leWindow returns the byte range [lower, upper] covered by a little endian
// bitfield whose most significant bit is at bitOffset.
func leWindow(bitOffset, bitSize int) (lower, upper int) {
	numBytes := ((bitOffset%8)+bitSize-1)/8 + 1
	upper = bitOffset / 8
	lower = upper - numBytes + 1
	return lower, upper
}

// readLEBitField gathers the bitfield bytes from upper down to lower and
// extracts the field from that reversed view.
func readLEBitField(buf []byte, bitOffset, bitSize int) uint64 {
	lower, upper := leWindow(bitOffset, bitSize)
	var tmp [9]byte
	n := upper - lower + 1
	for i := 0; i < n; i++ {
		tmp[i] = buf[upper-i]
	}
	return extractBits(tmp[:n], bitOffset%8, bitSize)
}

func writeLEBitField(buf []byte, bitOffset, bitSize int, v uint64) {
	lower, upper := leWindow(bitOffset, bitSize)
	var tmp [9]byte
	n := upper - lower + 1
	for i := 0; i < n; i++ {
		tmp[i] = buf[upper-i]
	}
	insertBits(tmp[:n], bitOffset%8, bitSize, v)
	for i := 0; i < n; i++ {
		buf[upper-i] = tmp[i]
	}
}

func byteOrder(e Endianness) binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func readAligned(b []byte, bitSize int, e Endianness) uint64 {
	order := byteOrder(e)
	switch bitSize {
	case 8:
		return uint64(b[0])
	case 16:
		return uint64(order.Uint16(b))
	case 32:
		return uint64(order.Uint32(b))
	default:
		return order.Uint64(b)
	}
}

func writeAligned(b []byte, bitSize int, e Endianness, v uint64) {
	order := byteOrder(e)
	switch bitSize {
	case 8:
		b[0] = byte(v)
	case 16:
		order.PutUint16(b, uint16(v))
	case 32:
		order.PutUint32(b, uint32(v))
	default:
		order.PutUint64(b, v)
	}
}

func signExtend(v uint64, bitSize int) int64 {
	if bitSize >= 64 {
		return int64(v)
	}
	s := uint(64 - bitSize)
	return int64(v<<s) >> s
}
