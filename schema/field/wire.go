package field

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	errNotInteger = errors.New("not an integer")
	errNotTime    = errors.New("not a time value")
	errOutOfRange = errors.New("out of range")
	errNotFinite  = errors.New("not a finite number")
)

const (
	// unixEpochOrdinal is the ordinal of 1970-01-01 counted from 0001-01-01 = 1.
	unixEpochOrdinal = 719163
	// maxOrdinal is the ordinal of 9999-12-31.
	maxOrdinal       = 3652059
	secondsPerDay    = 24 * 60 * 60
)

// encode renders a normalized value of type t as a query literal.
func (t Type) encode(v any) (string, error) {
	switch t {
	case TypeInt:
		i, ok := v.(int64)
		if !ok {
			return "", errOutOfRange
		}
		return strconv.FormatInt(i, 10), nil
	case TypeFloat:
		f := v.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", errNotFinite
		}
		s := strings.Replace(strconv.FormatFloat(f, 'g', -1, 64), "e+", "e", 1)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s, nil
	case TypeDate:
		return strconv.FormatInt(DateOrdinal(v.(time.Time)), 10), nil
	case TypeDateTime:
		return strconv.FormatInt(Microtimestamp(v.(time.Time)), 10), nil
	default:
		return jsonLiteral(v)
	}
}

// decode converts a backend value to the Go value of type t.
func (t Type) decode(w any) (any, error) {
	switch t {
	case TypeBool:
		if b, ok := w.(bool); ok {
			return b, nil
		}
	case TypeString:
		if s, ok := w.(string); ok {
			return s, nil
		}
	case TypeInt:
		if i, ok := wireInt(w); ok {
			return i, nil
		}
	case TypeFloat:
		if f, ok := wireFloat(w); ok {
			return f, nil
		}
	case TypeDate:
		if i, ok := wireInt(w); ok {
			if i < 1 || i > maxOrdinal {
				return nil, errOutOfRange
			}
			return FromOrdinal(i), nil
		}
	case TypeDateTime:
		if i, ok := wireInt(w); ok {
			return time.UnixMicro(i).UTC(), nil
		}
	}
	return nil, &TypeMismatchError{Property: t.String(), Got: typeName(w), Accepted: wireTypes(t)}
}

// DateOrdinal returns the proleptic Gregorian ordinal of t's calendar date,
// where 0001-01-01 has ordinal 1.
func DateOrdinal(t time.Time) int64 {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.Unix()/secondsPerDay + unixEpochOrdinal
}

// FromOrdinal is the inverse of DateOrdinal.
func FromOrdinal(n int64) time.Time {
	return time.Unix((n-unixEpochOrdinal)*secondsPerDay, 0).UTC()
}

// Microtimestamp returns t as an integer count of microseconds since the
// Unix epoch. The fractional microsecond value is floored unless the floor
// is not close to it (relative tolerance 1e-9), in which case it is rounded
// up.
func Microtimestamp(t time.Time) int64 {
	low := t.UnixMicro()
	rem := t.Nanosecond() % 1000
	if rem == 0 {
		return low
	}
	exact := float64(low) + float64(rem)/1000
	tol := 1e-9 * math.Max(math.Abs(float64(low)), math.Abs(exact))
	if exact-float64(low) <= tol {
		return low
	}
	return low + 1
}

func jsonLiteral(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// wireInt accepts the integer representations drivers return: every Go
// numeric kind, json.Number, and integral floats (JSON-decoded agtype).
func wireInt(w any) (int64, bool) {
	switch x := w.(type) {
	case json.Number:
		i, err := x.Int64()
		return i, err == nil
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	switch rv := reflect.ValueOf(w); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u), true
		}
	}
	return 0, false
}

func wireFloat(w any) (float64, bool) {
	if n, ok := w.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	switch rv := reflect.ValueOf(w); rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func wireTypes(t Type) []string {
	switch t {
	case TypeBool:
		return []string{"bool"}
	case TypeString:
		return []string{"string"}
	case TypeFloat:
		return []string{"float", "integer", "json.Number"}
	default:
		return []string{"integer", "json.Number"}
	}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
