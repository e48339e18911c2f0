package packets

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ctlm-ground/ctlm-go/pkg/accessor"
)

// integerOf splits any Go integer into sign and two's complement bits.
func integerOf(v any) (neg bool, u uint64, ok bool) {
	switch x := v.(type) {
	case int:
		return x < 0, uint64(x), true
	case int8:
		return x < 0, uint64(x), true
	case int16:
		return x < 0, uint64(x), true
	case int32:
		return x < 0, uint64(x), true
	case int64:
		return x < 0, uint64(x), true
	case uint:
		return false, uint64(x), true
	case uint8:
		return false, uint64(x), true
	case uint16:
		return false, uint64(x), true
	case uint32:
		return false, uint64(x), true
	case uint64:
		return false, x, true
	}
	return false, 0, false
}

// bigOf widens any Go integer or *big.Int.
func bigOf(v any) (*big.Int, bool) {
	if b, ok := v.(*big.Int); ok {
		return b, b != nil
	}
	neg, u, ok := integerOf(v)
	if !ok {
		return nil, false
	}
	if neg {
		return big.NewInt(int64(u)), true
	}
	return new(big.Int).SetUint64(u), true
}

func isBig(v any) bool {
	_, ok := v.(*big.Int)
	return ok
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

// ValuesEqual compares two item values. Integers compare exactly regardless
// of their Go type, integers and floats compare numerically, strings and
// byte slices compare by content, and slices compare element by element.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case string:
		switch bv := b.(type) {
		case string:
			return av == bv
		case []byte:
			return av == string(bv)
		}
		return false
	case []byte:
		switch bv := b.(type) {
		case []byte:
			return bytes.Equal(av, bv)
		case string:
			return string(av) == bv
		}
		return false
	}

	if isBig(a) || isBig(b) {
		ab, aok := bigOf(a)
		bb, bok := bigOf(b)
		if aok && bok {
			return ab.Cmp(bb) == 0
		}
	}

	an, au, aInt := integerOf(a)
	bn, bu, bInt := integerOf(b)
	if aInt && bInt {
		return an == bn && au == bu
	}
	if (aInt || isFloat(a)) && (bInt || isFloat(b)) {
		af, _ := accessor.ToFloat64(a)
		bf, _ := accessor.ToFloat64(b)
		return af == bf
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice && rb.Kind() == reflect.Slice {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !ValuesEqual(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// ValueKey returns a string that is equal for two values exactly when
// ValuesEqual would hold for their coerced forms. It is used to index packets
// by their id values.
func ValueKey(v any) string {
	if neg, u, ok := integerOf(v); ok {
		if neg {
			return "i:" + strconv.FormatInt(int64(u), 10)
		}
		return "i:" + strconv.FormatUint(u, 10)
	}
	switch x := v.(type) {
	case nil:
		return "nil"
	case *big.Int:
		return "i:" + x.String()
	case float32:
		return floatKey(float64(x))
	case float64:
		return floatKey(x)
	case string:
		return "s:" + x
	case []byte:
		return "s:" + string(x)
	}
	return "v:" + reflect.TypeOf(v).String() + ":" + hex.EncodeToString([]byte(reflect.ValueOf(v).String()))
}

func floatKey(f float64) string {
	if f == float64(int64(f)) {
		return "i:" + strconv.FormatInt(int64(f), 10)
	}
	return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatValue renders a value the way tools display it. Byte slices are shown
// as 0x-prefixed hex, floats always carry a decimal point or exponent, and
// slices render as "[a, b]".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return "0x" + strings.ToUpper(hex.EncodeToString(x))
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case fmt.Stringer:
		return x.String()
	}
	if _, _, ok := integerOf(v); ok {
		return fmt.Sprint(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// formatWith applies a printf-style format string to a single value,
// converting between integers and floats to suit the verb.
func formatWith(format string, v any) string {
	verb := formatVerb(format)
	switch verb {
	case 'd', 'x', 'X', 'o', 'b', 'c':
		if isFloat(v) {
			f, _ := accessor.ToFloat64(v)
			v = int64(f)
		}
	case 'f', 'F', 'e', 'E', 'g', 'G':
		if _, ok := bigOf(v); ok {
			f, _ := accessor.ToFloat64(v)
			v = f
		}
	case 's', 'q':
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
	}
	return fmt.Sprintf(format, v)
}

// formatVerb returns the verb of the first directive in format, or 0.
func formatVerb(format string) rune {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		for j := i + 1; j < len(format); j++ {
			c := format[j]
			if c == '%' && j == i+1 {
				i = j
				break
			}
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				return rune(c)
			}
		}
	}
	return 0
}
