package accessor

import (
	"fmt"
	"math/big"
	"reflect"
)

// resolveArray validates an array span and returns the absolute bit offset.
func resolveArray(op string, bitOffset, bitSize, arraySize int, dt DataType, buf []byte, e Endianness) (int, error) {
	if err := checkEndianness(e); err != nil {
		return 0, err
	}
	if bitSize <= 0 {
		return 0, fmt.Errorf("%w: bit_size %d must be positive for arrays", ErrConfiguration, bitSize)
	}
	if arraySize <= 0 && bitOffset < 0 {
		return 0, fmt.Errorf("%w: negative or zero array_size (%d) cannot be given with negative bit_offset (%d)",
			ErrConfiguration, arraySize, bitOffset)
	}
	if IsLittleEndianBitField(dt, e, bitOffset, bitSize) && bitSize > 1 {
		return 0, fmt.Errorf("%w: arrays do not support little endian bit fields with bit_size greater than 1",
			ErrConfiguration)
	}
	off := bitOffset
	if off < 0 {
		off += len(buf) * 8
		if off < 0 {
			return 0, bufferError(op, buf, dt, bitOffset, bitSize)
		}
	}
	return off, nil
}

// ElementCount returns the number of elements of an array field, resolving a
// variable array size against the buffer length.
func ElementCount(bitOffset, bitSize, arraySize, bufLen int) (int, error) {
	if bitSize <= 0 {
		return 0, fmt.Errorf("%w: bit_size %d must be positive for arrays", ErrConfiguration, bitSize)
	}
	size := arraySize
	if size <= 0 {
		off := bitOffset
		if off < 0 {
			off += bufLen * 8
		}
		size = bufLen*8 - off + arraySize
		if size <= 0 {
			return 0, nil
		}
	}
	if size%bitSize != 0 {
		return 0, fmt.Errorf("%w: array_size %d not a multiple of bit_size %d", ErrConfiguration, arraySize, bitSize)
	}
	return size / bitSize, nil
}

// ReadArray reads arraySize/bitSize consecutive elements starting at
// bitOffset.
func ReadArray(bitOffset, bitSize int, dt DataType, arraySize int, buf []byte, e Endianness) (any, error) {
	off, err := resolveArray("read", bitOffset, bitSize, arraySize, dt, buf, e)
	if err != nil {
		return nil, err
	}
	size := arraySize
	if size <= 0 {
		size = len(buf)*8 - off + arraySize
		if size < 0 {
			return nil, bufferError("read", buf, dt, bitOffset, bitSize)
		}
	}
	if size%bitSize != 0 {
		return nil, fmt.Errorf("%w: array_size %d not a multiple of bit_size %d", ErrConfiguration, arraySize, bitSize)
	}
	if size > 0 && (off+size-1)/8 >= len(buf) {
		return nil, bufferError("read", buf, dt, bitOffset, bitSize)
	}
	n := size / bitSize

	if dt.IsInteger() && bitSize > 64 {
		out := make([]*big.Int, n)
		for i := range out {
			v, err := Read(off+i*bitSize, bitSize, dt, buf, e)
			if err != nil {
				return nil, err
			}
			out[i] = v.(*big.Int)
		}
		return out, nil
	}

	switch dt {
	case DataTypeInt:
		out := make([]int64, n)
		for i := range out {
			v, err := Read(off+i*bitSize, bitSize, dt, buf, e)
			if err != nil {
				return nil, err
			}
			out[i] = v.(int64)
		}
		return out, nil
	case DataTypeUint:
		out := make([]uint64, n)
		for i := range out {
			v, err := Read(off+i*bitSize, bitSize, dt, buf, e)
			if err != nil {
				return nil, err
			}
			out[i] = v.(uint64)
		}
		return out, nil
	case DataTypeFloat:
		out := make([]float64, n)
		for i := range out {
			v, err := Read(off+i*bitSize, bitSize, dt, buf, e)
			if err != nil {
				return nil, err
			}
			out[i] = v.(float64)
		}
		return out, nil
	case DataTypeString:
		out := make([]string, n)
		for i := range out {
			v, err := Read(off+i*bitSize, bitSize, dt, buf, e)
			if err != nil {
				return nil, err
			}
			out[i] = v.(string)
		}
		return out, nil
	case DataTypeBlock:
		out := make([][]byte, n)
		for i := range out {
			v, err := Read(off+i*bitSize, bitSize, dt, buf, e)
			if err != nil {
				return nil, err
			}
			out[i] = v.([]byte)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: data_type %s is not recognized", ErrConfiguration, dt)
}

// WriteArray writes values as consecutive elements starting at bitOffset.
// A fixed array must receive exactly arraySize/bitSize values. A variable
// array (arraySize <= 0) is resized to hold all values, keeping the trailing
// |arraySize| bits of the buffer.
func WriteArray(values any, bitOffset, bitSize int, dt DataType, arraySize int, buf *[]byte, e Endianness, o Overflow) error {
	vals, err := ToSlice(values)
	if err != nil {
		return err
	}
	off, err := resolveArray("write", bitOffset, bitSize, arraySize, dt, *buf, e)
	if err != nil {
		return err
	}

	if arraySize <= 0 {
		if arraySize%8 != 0 {
			return fmt.Errorf("%w: array_size %d is not a whole number of bytes", ErrConfiguration, arraySize)
		}
		endBytes := -arraySize / 8
		old := *buf
		lower := off / 8
		if lower+endBytes > len(old) {
			return bufferError("write", old, dt, bitOffset, bitSize)
		}
		keep := (off + bitSize*len(vals) + 7) / 8
		nb := make([]byte, keep, keep+endBytes)
		copy(nb, old[:min(keep, len(old)-endBytes)])
		nb = append(nb, old[len(old)-endBytes:]...)
		*buf = nb
	} else {
		if arraySize%bitSize != 0 {
			return fmt.Errorf("%w: array_size %d not a multiple of bit_size %d", ErrConfiguration, arraySize, bitSize)
		}
		if n := arraySize / bitSize; n != len(vals) {
			return fmt.Errorf("%w: %d values given for array of %d elements (array_size %d, bit_size %d)",
				ErrRange, len(vals), n, arraySize, bitSize)
		}
		if (off+arraySize-1)/8 >= len(*buf) {
			return bufferError("write", *buf, dt, bitOffset, bitSize)
		}
	}

	for i, v := range vals {
		if _, err := Write(v, off+i*bitSize, bitSize, dt, buf, e, o); err != nil {
			return err
		}
	}
	return nil
}

// ToSlice converts any slice value into []any. []byte is treated as a single
// BLOCK value, not a slice of elements, so it is rejected.
func ToSlice(values any) ([]any, error) {
	switch v := values.(type) {
	case []any:
		return v, nil
	case []byte:
		return nil, fmt.Errorf("%w: values must be a slice but is []byte", ErrRange)
	case nil:
		return nil, fmt.Errorf("%w: values must be a slice but is nil", ErrRange)
	}
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: values must be a slice but is %T", ErrRange, values)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
