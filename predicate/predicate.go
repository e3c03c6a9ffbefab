package predicate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/syssam/cypher/graph"
	"github.com/syssam/cypher/schema/field"
)

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	OpEQ        Op = "="
	OpNEQ       Op = "<>"
	OpLT        Op = "<"
	OpLTE       Op = "<="
	OpGT        Op = ">"
	OpGTE       Op = ">="
	OpIn        Op = "IN"
	OpIsNull    Op = "IS NULL"
	OpNotNull   Op = "IS NOT NULL"
	OpContains  Op = "CONTAINS"
	OpHasPrefix Op = "STARTS WITH"
	OpHasSuffix Op = "ENDS WITH"
)

// Unary reports whether the operator takes no right-hand operand.
func (o Op) Unary() bool {
	return o == OpIsNull || o == OpNotNull
}

func (o Op) text() bool {
	return o == OpContains || o == OpHasPrefix || o == OpHasSuffix
}

// Reference is a right-hand operand pointing at a property of another bound
// variable, e.g. b.age in a.age < b.age.
type Reference struct {
	Var  string
	Prop graph.Property
}

// Ref returns a reference to the property of the given variable.
func Ref(variable string, p graph.Property) *Reference {
	return &Reference{Var: variable, Prop: p}
}

// String returns the rendered operand.
func (r *Reference) String() string {
	return Ident(r.Var) + "." + Ident(r.Prop.Name())
}

// Comparison is one binary condition on a property of a bound variable.
// Comparisons are plain data, rendered once when the query is compiled.
type Comparison struct {
	// Var is the bound variable. Comparisons passed along with a pattern
	// element bind to its variable when Var is empty.
	Var   string
	Prop  graph.Property
	Op    Op
	Value any
}

// EQ returns a predicate that checks if the property equals v.
func EQ(p graph.Property, v any) *Comparison { return newComparison(p, OpEQ, v) }

// NEQ returns a predicate that checks if the property does not equal v.
func NEQ(p graph.Property, v any) *Comparison { return newComparison(p, OpNEQ, v) }

// LT returns a predicate that checks if the property is less than v.
func LT(p graph.Property, v any) *Comparison { return newComparison(p, OpLT, v) }

// LTE returns a predicate that checks if the property is less than or equal to v.
func LTE(p graph.Property, v any) *Comparison { return newComparison(p, OpLTE, v) }

// GT returns a predicate that checks if the property is greater than v.
func GT(p graph.Property, v any) *Comparison { return newComparison(p, OpGT, v) }

// GTE returns a predicate that checks if the property is greater than or equal to v.
func GTE(p graph.Property, v any) *Comparison { return newComparison(p, OpGTE, v) }

// In returns a predicate that checks if the property value is in the given list.
func In(p graph.Property, vs ...any) *Comparison { return newComparison(p, OpIn, vs) }

// IsNull returns a predicate that checks if the property is null.
func IsNull(p graph.Property) *Comparison { return newComparison(p, OpIsNull, nil) }

// NotNull returns a predicate that checks if the property is not null.
func NotNull(p graph.Property) *Comparison { return newComparison(p, OpNotNull, nil) }

// Contains returns a predicate that checks if the property contains v.
func Contains(p graph.Property, v any) *Comparison { return newComparison(p, OpContains, v) }

// HasPrefix returns a predicate that checks if the property starts with v.
func HasPrefix(p graph.Property, v any) *Comparison { return newComparison(p, OpHasPrefix, v) }

// HasSuffix returns a predicate that checks if the property ends with v.
func HasSuffix(p graph.Property, v any) *Comparison { return newComparison(p, OpHasSuffix, v) }

func newComparison(p graph.Property, op Op, v any) *Comparison {
	return &Comparison{Prop: p, Op: op, Value: v}
}

// On returns a copy of the comparison bound to the given variable.
func (c *Comparison) On(variable string) *Comparison {
	cc := *c
	cc.Var = variable
	return &cc
}

// Err reports whether the comparison is malformed: an unknown property,
// a text operator on a non-String property, or a mistyped operand.
func (c *Comparison) Err() error {
	if err := c.Prop.Err(); err != nil {
		return err
	}
	switch c.Op {
	case OpEQ, OpNEQ, OpLT, OpLTE, OpGT, OpGTE, OpIn, OpIsNull, OpNotNull:
	case OpContains, OpHasPrefix, OpHasSuffix:
		if c.Prop.Desc.Type != field.TypeString {
			return fmt.Errorf("cypher: operator %s requires a String property, %s is %s", c.Op, c.Prop, c.Prop.Desc.Type)
		}
	default:
		return fmt.Errorf("cypher: unknown operator %q", c.Op)
	}
	if c.Op == OpIn {
		if k := reflect.ValueOf(c.Value).Kind(); k != reflect.Slice && k != reflect.Array {
			return fmt.Errorf("cypher: IN expects a list of values, got %T", c.Value)
		}
	}
	if ref, ok := c.Value.(*Reference); ok {
		if ref.Var == "" {
			return fmt.Errorf("cypher: reference to %s without a variable", ref.Prop)
		}
		if err := ref.Prop.Err(); err != nil {
			return err
		}
		if c.Op.text() && ref.Prop.Desc.Type != field.TypeString {
			return fmt.Errorf("cypher: operator %s requires a String operand, %s is %s", c.Op, ref.Prop, ref.Prop.Desc.Type)
		}
	}
	return nil
}

// Render returns the comparison as query text, e.g. p.age > 18. Literal
// operands are encoded with the wire encoding of the property.
func (c *Comparison) Render() (string, error) {
	if err := c.Err(); err != nil {
		return "", err
	}
	if c.Var == "" {
		return "", fmt.Errorf("cypher: comparison on %s is not bound to a variable", c.Prop)
	}
	lhs := Ident(c.Var) + "." + Ident(c.Prop.Name())
	if c.Op.Unary() {
		return lhs + " " + string(c.Op), nil
	}
	rhs, err := c.Operand()
	if err != nil {
		return "", err
	}
	return lhs + " " + string(c.Op) + " " + rhs, nil
}

// Operand returns the rendered right-hand side of the comparison.
func (c *Comparison) Operand() (string, error) {
	if ref, ok := c.Value.(*Reference); ok {
		return ref.String(), nil
	}
	if c.Op != OpIn {
		return c.Prop.Wire(c.Value)
	}
	rv := reflect.ValueOf(c.Value)
	items := make([]string, rv.Len())
	for i := range items {
		s, err := c.Prop.Wire(rv.Index(i).Interface())
		if err != nil {
			return "", err
		}
		items[i] = s
	}
	return "[" + strings.Join(items, ", ") + "]", nil
}

// String implements the fmt.Stringer interface.
func (c *Comparison) String() string {
	s, err := c.Render()
	if err != nil {
		return fmt.Sprintf("%s %s %v", c.Prop, c.Op, c.Value)
	}
	return s
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Ident returns name as a query identifier, quoting it with backticks when
// it is not a plain identifier.
func Ident(name string) string {
	if identRe.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
