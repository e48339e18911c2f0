package accessor

import (
	"errors"
	"fmt"
)

// Codec errors. Every error returned by this package wraps one of these.
var (
	// ErrConfiguration marks a field definition that can never be accessed:
	// bad alignment, unsupported size, ill-defined bitfield and so on.
	ErrConfiguration = errors.New("configuration error")

	// ErrBounds marks a span that lies outside the buffer.
	ErrBounds = errors.New("bounds error")

	// ErrRange marks a value that does not fit the field.
	ErrRange = errors.New("range error")
)

func bufferError(op string, buf []byte, dt DataType, givenOffset, givenSize int) error {
	return fmt.Errorf("%w: %d byte buffer insufficient to %s %s at bit_offset %d with bit_size %d",
		ErrBounds, len(buf), op, dt, givenOffset, givenSize)
}

func bitfieldError(givenOffset, givenSize int) error {
	return fmt.Errorf("%w: LITTLE_ENDIAN bitfield with bit_offset %d and bit_size %d is invalid",
		ErrConfiguration, givenOffset, givenSize)
}
