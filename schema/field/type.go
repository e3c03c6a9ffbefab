package field

import (
	"math"
	"math/big"
	"reflect"
	"time"
)

// Type is the kind of a property.
type Type uint8

// Property kinds.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeDate
	TypeDateTime
)

var typeNames = [...]string{
	TypeInvalid:  "invalid",
	TypeBool:     "Boolean",
	TypeInt:      "Integer",
	TypeFloat:    "Float",
	TypeString:   "String",
	TypeDate:     "Date",
	TypeDateTime: "DateTime",
}

// String returns the property kind name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the type is a known property kind.
func (t Type) Valid() bool {
	return t > TypeInvalid && int(t) < len(typeNames)
}

var (
	intTypes = []string{
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
	}
	accepted = map[Type][]string{
		TypeBool:     {"bool"},
		TypeInt:      append(append([]string(nil), intTypes...), "*big.Int"),
		TypeFloat:    append(append([]string(nil), intTypes...), "float32", "float64"),
		TypeString:   {"string"},
		TypeDate:     {"time.Time"},
		TypeDateTime: {"time.Time"},
	}
)

// accepts reports whether v's runtime type belongs to the accepted set of t.
func (t Type) accepts(v any) bool {
	switch t {
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeInt:
		if _, ok := v.(*big.Int); ok {
			return true
		}
		return isInteger(v)
	case TypeFloat:
		return isInteger(v) || isFloat(v)
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeDate, TypeDateTime:
		_, ok := v.(time.Time)
		return ok
	default:
		return false
	}
}

// normalize coerces v to the canonical Go type of t. Values that cannot be
// coerced are returned untouched so validation reports them.
func (t Type) normalize(v any) any {
	switch t {
	case TypeInt:
		if b, ok := bigInt(v); ok && b.IsInt64() {
			return b.Int64()
		}
	case TypeFloat:
		switch rv := reflect.ValueOf(v); rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			return rv.Float()
		}
	case TypeDate:
		if tm, ok := v.(time.Time); ok {
			return time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC)
		}
	case TypeDateTime:
		if tm, ok := v.(time.Time); ok {
			return tm.Round(0)
		}
	}
	return v
}

// builtin returns the rules every descriptor of type t enforces.
func (t Type) builtin() []Rule {
	switch t {
	case TypeInt:
		return []Rule{{Name: "int64 range", Check: checkInt64Range}}
	case TypeFloat:
		return []Rule{{Name: "finite", Check: checkFinite}}
	case TypeDate, TypeDateTime:
		return []Rule{{Name: "year range", Check: checkYearRange}}
	default:
		return nil
	}
}

func isInteger(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isFloat(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// bigInt widens any Go integer (or *big.Int) to a *big.Int.
func bigInt(v any) (*big.Int, bool) {
	if b, ok := v.(*big.Int); ok {
		return b, b != nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), true
	default:
		return nil, false
	}
}

var (
	minInt64   = big.NewInt(math.MinInt64)
	int64Limit = new(big.Int).Lsh(big.NewInt(1), 63)
)

// checkInt64Range enforces -2^63 <= v < 2^63, the native integer width of
// graph backends.
func checkInt64Range(v any) error {
	b, ok := bigInt(v)
	if !ok {
		return errNotInteger
	}
	if b.Cmp(minInt64) < 0 || b.Cmp(int64Limit) >= 0 {
		return errOutOfRange
	}
	return nil
}

func checkFinite(v any) error {
	if !isFloat(v) {
		return nil
	}
	if f := reflect.ValueOf(v).Float(); math.IsNaN(f) || math.IsInf(f, 0) {
		return errNotFinite
	}
	return nil
}

func checkYearRange(v any) error {
	tm, ok := v.(time.Time)
	if !ok {
		return errNotTime
	}
	if y := tm.Year(); y < 1 || y > 9999 {
		return errOutOfRange
	}
	return nil
}
