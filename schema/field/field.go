package field

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// A Rule is a named predicate over a normalized property value.
type Rule struct {
	Name  string
	Check func(any) error
}

// Descriptor is the frozen definition of one property. Descriptors are
// immutable once a schema is loaded and are shared by every instance of the
// schema.
type Descriptor struct {
	Name     string
	Type     Type
	Required bool
	// Default is the literal default value. DefaultFunc, when set, computes
	// the default at construction time instead.
	Default     any
	DefaultFunc func() any
	// Rules are checked after the built-in rules of the type.
	Rules       []Rule
	Normalizers []func(any) any
	Comment     string
	// Err holds a builder error, reported when the schema is loaded.
	Err error
}

// Accepts returns the Go type names the property accepts.
func (d *Descriptor) Accepts() []string {
	return slices.Clone(accepted[d.Type])
}

// HasDefault reports whether the descriptor declares a default value.
func (d *Descriptor) HasDefault() bool {
	return d.Default != nil || d.DefaultFunc != nil
}

// DefaultValue returns the default of the property, or nil.
func (d *Descriptor) DefaultValue() any {
	if d.DefaultFunc != nil {
		return d.DefaultFunc()
	}
	return d.Default
}

// ValidateType checks that the runtime type of v is accepted by the property.
func (d *Descriptor) ValidateType(v any) error {
	if !d.Type.accepts(v) {
		return &TypeMismatchError{Property: d.Type.String(), Got: typeName(v), Accepted: d.Accepts()}
	}
	return nil
}

// ValidateRules runs the built-in rules of the type and the declared rules.
func (d *Descriptor) ValidateRules(v any) error {
	for _, r := range append(d.Type.builtin(), d.Rules...) {
		if err := r.Check(v); err != nil {
			return &RuleViolationError{Property: d.Name, Rule: r.Name, Value: v, Err: err}
		}
	}
	return nil
}

// Validate runs ValidateType then ValidateRules.
func (d *Descriptor) Validate(v any) error {
	if err := d.ValidateType(v); err != nil {
		return err
	}
	return d.ValidateRules(v)
}

// Normalize coerces v to the canonical Go type of the property.
func (d *Descriptor) Normalize(v any) any {
	v = d.Type.normalize(v)
	if !d.Type.accepts(v) {
		return v
	}
	for _, fn := range d.Normalizers {
		v = fn(v)
	}
	return v
}

// ToWire returns the literal encoding of v for embedding in query text.
// A nil value is encoded as null.
func (d *Descriptor) ToWire(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	v = d.Normalize(v)
	if err := d.ValidateType(v); err != nil {
		return "", err
	}
	s, err := d.Type.encode(v)
	if err != nil {
		return "", &RuleViolationError{Property: d.Name, Rule: "wire encoding", Value: v, Err: err}
	}
	return s, nil
}

// FromWire decodes a value returned by the backend. It is the inverse of
// ToWire; nil decodes to nil.
func (d *Descriptor) FromWire(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	v, err := d.Type.decode(w)
	if err != nil && !IsTypeMismatch(err) {
		return nil, &RuleViolationError{Property: d.Name, Rule: "wire decoding", Value: w, Err: err}
	}
	return v, err
}

// builder holds the state shared by all typed builders.
type builder struct {
	desc *Descriptor
}

func newBuilder(name string, t Type) builder {
	return builder{desc: &Descriptor{Name: name, Type: t, Required: true}}
}

func (b builder) rule(name string, check func(any) error) {
	b.desc.Rules = append(b.desc.Rules, Rule{Name: name, Check: check})
}

// descriptor returns a copy of the built descriptor, so later builder calls
// never leak into a loaded schema.
func (b builder) descriptor() *Descriptor {
	d := *b.desc
	d.Rules = slices.Clone(b.desc.Rules)
	d.Normalizers = slices.Clone(b.desc.Normalizers)
	if d.Name == "" && d.Err == nil {
		d.Err = errors.New("field: missing property name")
	}
	return &d
}

// BoolBuilder is the builder for Boolean properties.
type BoolBuilder struct{ builder }

// Bool returns a new Boolean property builder.
func Bool(name string) *BoolBuilder { return &BoolBuilder{newBuilder(name, TypeBool)} }

// Optional marks the property as not required.
func (b *BoolBuilder) Optional() *BoolBuilder { b.desc.Required = false; return b }

// Default sets the default value.
func (b *BoolBuilder) Default(v bool) *BoolBuilder { b.desc.Default = v; return b }

// Comment sets the property comment.
func (b *BoolBuilder) Comment(c string) *BoolBuilder { b.desc.Comment = c; return b }

// Descriptor implements the cypher.Field interface.
func (b *BoolBuilder) Descriptor() *Descriptor { return b.descriptor() }

// IntBuilder is the builder for Integer properties.
type IntBuilder struct{ builder }

// Int returns a new Integer property builder.
func Int(name string) *IntBuilder { return &IntBuilder{newBuilder(name, TypeInt)} }

// Optional marks the property as not required.
func (b *IntBuilder) Optional() *IntBuilder { b.desc.Required = false; return b }

// Default sets the default value.
func (b *IntBuilder) Default(v int64) *IntBuilder { b.desc.Default = v; return b }

// Comment sets the property comment.
func (b *IntBuilder) Comment(c string) *IntBuilder { b.desc.Comment = c; return b }

// Min adds a rule rejecting values below i.
func (b *IntBuilder) Min(i int64) *IntBuilder {
	b.rule(fmt.Sprintf("min %d", i), intRule(func(v int64) bool { return v >= i }))
	return b
}

// Max adds a rule rejecting values above i.
func (b *IntBuilder) Max(i int64) *IntBuilder {
	b.rule(fmt.Sprintf("max %d", i), intRule(func(v int64) bool { return v <= i }))
	return b
}

// Range adds a rule rejecting values outside [i, j].
func (b *IntBuilder) Range(i, j int64) *IntBuilder {
	b.rule(fmt.Sprintf("range [%d, %d]", i, j), intRule(func(v int64) bool { return v >= i && v <= j }))
	return b
}

// Positive adds a rule rejecting values <= 0.
func (b *IntBuilder) Positive() *IntBuilder {
	b.rule("positive", intRule(func(v int64) bool { return v > 0 }))
	return b
}

// NonNegative adds a rule rejecting values < 0.
func (b *IntBuilder) NonNegative() *IntBuilder {
	b.rule("non-negative", intRule(func(v int64) bool { return v >= 0 }))
	return b
}

// Validate adds a custom rule.
func (b *IntBuilder) Validate(fn func(int64) error) *IntBuilder {
	b.rule("custom", func(v any) error {
		i, ok := v.(int64)
		if !ok {
			return errOutOfRange
		}
		return fn(i)
	})
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *IntBuilder) Descriptor() *Descriptor { return b.descriptor() }

// FloatBuilder is the builder for Float properties.
type FloatBuilder struct{ builder }

// Float returns a new Float property builder.
func Float(name string) *FloatBuilder { return &FloatBuilder{newBuilder(name, TypeFloat)} }

// Optional marks the property as not required.
func (b *FloatBuilder) Optional() *FloatBuilder { b.desc.Required = false; return b }

// Default sets the default value.
func (b *FloatBuilder) Default(v float64) *FloatBuilder { b.desc.Default = v; return b }

// Comment sets the property comment.
func (b *FloatBuilder) Comment(c string) *FloatBuilder { b.desc.Comment = c; return b }

// Min adds a rule rejecting values below f.
func (b *FloatBuilder) Min(f float64) *FloatBuilder {
	b.rule(fmt.Sprintf("min %g", f), floatRule(func(v float64) bool { return v >= f }))
	return b
}

// Max adds a rule rejecting values above f.
func (b *FloatBuilder) Max(f float64) *FloatBuilder {
	b.rule(fmt.Sprintf("max %g", f), floatRule(func(v float64) bool { return v <= f }))
	return b
}

// Range adds a rule rejecting values outside [i, j].
func (b *FloatBuilder) Range(i, j float64) *FloatBuilder {
	b.rule(fmt.Sprintf("range [%g, %g]", i, j), floatRule(func(v float64) bool { return v >= i && v <= j }))
	return b
}

// Positive adds a rule rejecting values <= 0.
func (b *FloatBuilder) Positive() *FloatBuilder {
	b.rule("positive", floatRule(func(v float64) bool { return v > 0 }))
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *FloatBuilder) Descriptor() *Descriptor { return b.descriptor() }

// StringBuilder is the builder for String properties.
type StringBuilder struct{ builder }

// String returns a new String property builder.
func String(name string) *StringBuilder { return &StringBuilder{newBuilder(name, TypeString)} }

// Optional marks the property as not required.
func (b *StringBuilder) Optional() *StringBuilder { b.desc.Required = false; return b }

// Default sets the default value.
func (b *StringBuilder) Default(s string) *StringBuilder { b.desc.Default = s; return b }

// Comment sets the property comment.
func (b *StringBuilder) Comment(c string) *StringBuilder { b.desc.Comment = c; return b }

// NotEmpty adds a rule rejecting the empty string.
func (b *StringBuilder) NotEmpty() *StringBuilder {
	b.rule("not empty", stringRule(func(s string) bool { return s != "" }))
	return b
}

// MinLen adds a rule rejecting strings with fewer than i characters.
func (b *StringBuilder) MinLen(i int) *StringBuilder {
	b.rule(fmt.Sprintf("min length %d", i), stringRule(func(s string) bool { return utf8.RuneCountInString(s) >= i }))
	return b
}

// MaxLen adds a rule rejecting strings with more than i characters.
func (b *StringBuilder) MaxLen(i int) *StringBuilder {
	b.rule(fmt.Sprintf("max length %d", i), stringRule(func(s string) bool { return utf8.RuneCountInString(s) <= i }))
	return b
}

// Match adds a rule rejecting strings that do not match re.
func (b *StringBuilder) Match(re *regexp.Regexp) *StringBuilder {
	b.rule("match "+re.String(), stringRule(re.MatchString))
	return b
}

// NFC normalizes values to Unicode Normalization Form C before validation.
func (b *StringBuilder) NFC() *StringBuilder {
	b.desc.Normalizers = append(b.desc.Normalizers, func(v any) any {
		return norm.NFC.String(v.(string))
	})
	return b
}

// Descriptor implements the cypher.Field interface.
func (b *StringBuilder) Descriptor() *Descriptor { return b.descriptor() }

// DateBuilder is the builder for Date properties.
type DateBuilder struct{ builder }

// Date returns a new Date property builder.
func Date(name string) *DateBuilder { return &DateBuilder{newBuilder(name, TypeDate)} }

// Optional marks the property as not required.
func (b *DateBuilder) Optional() *DateBuilder { b.desc.Required = false; return b }

// Default sets the default value.
func (b *DateBuilder) Default(t time.Time) *DateBuilder { b.desc.Default = t; return b }

// DefaultFunc sets a function computing the default value on construction.
func (b *DateBuilder) DefaultFunc(fn func() time.Time) *DateBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// Comment sets the property comment.
func (b *DateBuilder) Comment(c string) *DateBuilder { b.desc.Comment = c; return b }

// Descriptor implements the cypher.Field interface.
func (b *DateBuilder) Descriptor() *Descriptor { return b.descriptor() }

// DateTimeBuilder is the builder for DateTime properties.
type DateTimeBuilder struct{ builder }

// DateTime returns a new DateTime property builder.
func DateTime(name string) *DateTimeBuilder { return &DateTimeBuilder{newBuilder(name, TypeDateTime)} }

// Optional marks the property as not required.
func (b *DateTimeBuilder) Optional() *DateTimeBuilder { b.desc.Required = false; return b }

// Default sets the default value.
func (b *DateTimeBuilder) Default(t time.Time) *DateTimeBuilder { b.desc.Default = t; return b }

// DefaultFunc sets a function computing the default value on construction,
// e.g. time.Now.
func (b *DateTimeBuilder) DefaultFunc(fn func() time.Time) *DateTimeBuilder {
	b.desc.DefaultFunc = func() any { return fn() }
	return b
}

// Comment sets the property comment.
func (b *DateTimeBuilder) Comment(c string) *DateTimeBuilder { b.desc.Comment = c; return b }

// Descriptor implements the cypher.Field interface.
func (b *DateTimeBuilder) Descriptor() *Descriptor { return b.descriptor() }

var errRule = errors.New("rule not satisfied")

func intRule(pred func(int64) bool) func(any) error {
	return func(v any) error {
		if i, ok := v.(int64); ok && pred(i) {
			return nil
		}
		return errRule
	}
}

func floatRule(pred func(float64) bool) func(any) error {
	return func(v any) error {
		if f, ok := v.(float64); ok && pred(f) {
			return nil
		}
		return errRule
	}
}

func stringRule(pred func(string) bool) func(any) error {
	return func(v any) error {
		if s, ok := v.(string); ok && pred(s) {
			return nil
		}
		return errRule
	}
}
