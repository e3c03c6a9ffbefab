// Package field provides fluent builders for the typed properties of graph
// entities.
//
// Every builder freezes into a *Descriptor, which owns the validation,
// normalization and wire encoding contract of one property:
//
//	field.String("name").NotEmpty().MaxLen(100)
//	field.Int("age").NonNegative()
//	field.Float("score").Optional().Range(0, 5)
//	field.Bool("active").Default(true)
//	field.Date("born")
//	field.DateTime("created_at").DefaultFunc(time.Now)
//
// # Property Types
//
// Each descriptor accepts a fixed set of Go runtime types:
//
//	Boolean   bool
//	Integer   int, int8 ... int64, uint ... uint64, *big.Int
//	Float     every integer kind, float32, float64
//	String    string
//	Date      time.Time
//	DateTime  time.Time
//
// Values are normalized before validation: integers become int64, floats
// become float64, dates are truncated to midnight UTC of their calendar day.
//
// # Wire Encoding
//
// ToWire renders the literal embedded in compiled query text. Booleans,
// numbers and strings are JSON literals with Unicode preserved. Dates are
// encoded as proleptic Gregorian ordinals (0001-01-01 is 1) and date-times
// as microsecond Unix timestamps, so both compare numerically on the
// backend. FromWire is the exact inverse over the supported domain.
//
// # Required Properties
//
// Properties are required unless marked Optional. A required property
// without a value and without a default fails entity construction.
package field
