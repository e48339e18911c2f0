// Package accessor reads and writes typed values at arbitrary bit spans of a
// byte buffer.
//
// # Addressing
//
// Every access is described by a bit offset, a bit size, a data type and an
// endianness:
//
//	value, err := accessor.Read(8, 12, accessor.DataTypeUint, buf, accessor.BigEndian)
//
// Negative bit offsets are measured from the end of the buffer. STRING and
// BLOCK fields may use a bit size of zero or less to mean "to the end of the
// buffer", optionally minus a number of trailing bits.
//
// # Little endian bitfields
//
// Integer fields that are LITTLE_ENDIAN but not a byte-aligned 8, 16, 32 or
// 64 bit quantity are bitfields. Their bit offset names the most significant
// bit, and the field extends towards lower byte addresses. A bitfield that
// would start before the first byte of the buffer is rejected.
//
// # Values
//
// Reads return int64 (INT), uint64 (UINT), float64 (FLOAT), string (STRING)
// and []byte (BLOCK). INT and UINT fields wider than 64 bits read as
// *big.Int. Array reads return slices of the same element types. Writes
// accept any Go integer or float kind, *big.Int, and numeric strings for
// numeric fields.
//
// The package holds no state. All functions are safe for concurrent use on
// independent buffers.
package accessor
