package accessor

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// intValue is an integer wide enough to hold every int64 and uint64.
// When neg is false the value is u; otherwise it is int64(u).
type intValue struct {
	u   uint64
	neg bool
}

func fromInt64(v int64) intValue { return intValue{u: uint64(v), neg: v < 0} }

func (v intValue) String() string {
	if v.neg {
		return strconv.FormatInt(int64(v.u), 10)
	}
	return strconv.FormatUint(v.u, 10)
}

// greater reports v > m for a non-negative bound m.
func (v intValue) greater(m uint64) bool { return !v.neg && v.u > m }

// less reports v < m.
func (v intValue) less(m int64) bool {
	if v.neg {
		return int64(v.u) < m
	}
	return m >= 0 && v.u < uint64(m)
}

// toInt coerces a write value to an integer. Floats are truncated towards
// zero and strings may use any strconv base prefix.
func toInt(value any) (intValue, error) {
	switch v := value.(type) {
	case int:
		return fromInt64(int64(v)), nil
	case int8:
		return fromInt64(int64(v)), nil
	case int16:
		return fromInt64(int64(v)), nil
	case int32:
		return fromInt64(int64(v)), nil
	case int64:
		return fromInt64(v), nil
	case uint:
		return intValue{u: uint64(v)}, nil
	case uint8:
		return intValue{u: uint64(v)}, nil
	case uint16:
		return intValue{u: uint64(v)}, nil
	case uint32:
		return intValue{u: uint64(v)}, nil
	case uint64:
		return intValue{u: v}, nil
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case bool:
		if v {
			return intValue{u: 1}, nil
		}
		return intValue{}, nil
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	case *big.Int:
		if v != nil {
			return fromBig(v)
		}
	}
	return intValue{}, fmt.Errorf("%w: invalid value for Integer: %v (%T)", ErrRange, value, value)
}

func floatToInt(f float64) (intValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return intValue{}, fmt.Errorf("%w: invalid value for Integer: %v", ErrRange, f)
	}
	f = math.Trunc(f)
	if f < 0 {
		if f < math.MinInt64 {
			return intValue{}, fmt.Errorf("%w: value of %v does not fit in 64 bits", ErrRange, f)
		}
		return fromInt64(int64(f)), nil
	}
	if f >= math.MaxUint64 {
		return intValue{}, fmt.Errorf("%w: value of %v does not fit in 64 bits", ErrRange, f)
	}
	return intValue{u: uint64(f)}, nil
}

func parseInt(s string) (intValue, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", ""))
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return fromInt64(i), nil
	}
	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return intValue{u: u}, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatToInt(f)
	}
	return intValue{}, fmt.Errorf("%w: invalid value for Integer: %q", ErrRange, s)
}

// ToFloat64 coerces a numeric value (or numeric string) to float64.
func ToFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case *big.Int:
		if v != nil {
			f, _ := new(big.Float).SetInt(v).Float64()
			return f, nil
		}
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		if b, err := parseBig(s); err == nil {
			f, _ := new(big.Float).SetInt(b).Float64()
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid value for Float: %v (%T)", ErrRange, value, value)
}

// toBytes coerces a STRING/BLOCK write value.
func toBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: invalid value for String or Block: %v (%T)", ErrRange, value, value)
}

// Coerce converts value to the Go type Read returns for dt: int64, uint64,
// float64, string or []byte. Integers that need more than 64 bits stay
// *big.Int. DERIVED values are returned unchanged.
func Coerce(value any, dt DataType) (any, error) {
	switch dt {
	case DataTypeInt, DataTypeUint:
		b, err := toBig(value)
		if err != nil {
			return nil, err
		}
		if dt == DataTypeUint && b.Sign() < 0 {
			return nil, fmt.Errorf("%w: value of %s invalid for UINT", ErrRange, b)
		}
		iv, err := fromBig(b)
		if err != nil {
			return b, nil
		}
		if dt == DataTypeInt {
			return int64(iv.u), nil
		}
		return iv.u, nil
	case DataTypeFloat:
		return ToFloat64(value)
	case DataTypeString:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
		return fmt.Sprint(value), nil
	case DataTypeBlock:
		switch v := value.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		}
		return nil, fmt.Errorf("%w: invalid value for Block: %v (%T)", ErrRange, value, value)
	}
	return value, nil
}
