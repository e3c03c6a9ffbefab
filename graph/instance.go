package graph

import (
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema/mixin"
)

// Values holds property values keyed by property name.
type Values map[string]any

// Instance is a validated value of an entity type. Instances are compared by
// identity: two instances with equal values are still distinct, so an
// instance can key the variable it is bound to in a query.
type Instance struct {
	typ    *Type
	values Values
}

// NewUID returns a random 128-bit identifier as 32 hex characters.
func NewUID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// New constructs a validated instance of the type. For every declared
// property the provided value, or else the default, is normalized and
// validated. A missing uid is generated.
func (t *Type) New(values Values) (*Instance, error) {
	if t.Abstract {
		return nil, cypher.NewSchemaError(t.Name, "", "abstract schema cannot be instantiated")
	}
	for _, name := range sortedKeys(values) {
		if _, ok := t.byName[name]; !ok {
			return nil, cypher.NewSchemaError(t.Name, name, "unknown property")
		}
	}
	inst := &Instance{typ: t, values: make(Values, len(t.fields))}
	for _, d := range t.fields {
		name := t.names[d]
		v := values[name]
		if v == nil && name == mixin.UIDField {
			v = NewUID()
		}
		if v == nil {
			v = d.DefaultValue()
		}
		switch {
		case v != nil:
			v = d.Normalize(v)
			if err := d.Validate(v); err != nil {
				return nil, err
			}
			inst.values[name] = v
		case !d.Required:
			inst.values[name] = nil
		default:
			return nil, cypher.NewMissingPropertyError(t.Name, name)
		}
	}
	return inst, nil
}

// MustNew is like New but panics on error.
func (t *Type) MustNew(values Values) *Instance {
	inst, err := t.New(values)
	if err != nil {
		panic(err)
	}
	return inst
}

// Hydrate builds an instance from the properties returned by the backend,
// decoding each through the wire decoder of its descriptor. Properties the
// type does not declare are ignored, and missing ones are left unset.
func (t *Type) Hydrate(props map[string]any) (*Instance, error) {
	inst := &Instance{typ: t, values: make(Values, len(props))}
	for name, w := range props {
		d, ok := t.byName[name]
		if !ok {
			continue
		}
		v, err := d.FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("cypher: hydrate %s.%s: %w", t.Name, name, err)
		}
		inst.values[name] = v
	}
	return inst, nil
}

// Type returns the entity type of the instance.
func (i *Instance) Type() *Type { return i.typ }

// UID returns the unique identifier of the instance.
func (i *Instance) UID() string {
	uid, _ := i.values[mixin.UIDField].(string)
	return uid
}

// Get returns the value of the named property.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.values[name]
	return v, ok
}

// Has reports whether the named property holds a value, nil included.
func (i *Instance) Has(name string) bool {
	_, ok := i.values[name]
	return ok
}

// Set normalizes, validates and assigns a property value. It is used to
// change an instance before scheduling it for update.
func (i *Instance) Set(name string, v any) error {
	d, ok := i.typ.byName[name]
	if !ok {
		return cypher.NewSchemaError(i.typ.Name, name, "unknown property")
	}
	if v == nil {
		if d.Required {
			return cypher.NewMissingPropertyError(i.typ.Name, name)
		}
		i.values[name] = nil
		return nil
	}
	v = d.Normalize(v)
	if err := d.Validate(v); err != nil {
		return err
	}
	i.values[name] = v
	return nil
}

// Values returns a copy of the property values.
func (i *Instance) Values() Values {
	return maps.Clone(i.values)
}

// Keys returns the names of the properties the instance holds, in
// declaration order.
func (i *Instance) Keys() []string {
	keys := make([]string, 0, len(i.values))
	for _, name := range i.typ.Names() {
		if _, ok := i.values[name]; ok {
			keys = append(keys, name)
		}
	}
	return keys
}

// String implements the fmt.Stringer interface.
func (i *Instance) String() string {
	var b strings.Builder
	b.WriteString(i.typ.Name + "(")
	for j, name := range i.Keys() {
		if j > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", name, i.values[name])
	}
	b.WriteByte(')')
	return b.String()
}

var errDecodeTarget = errors.New("cypher: decode target must be a non-nil pointer to a struct")

// Decode copies the instance values into the struct pointed to by dst.
// A struct field binds to the property named by its `cypher` tag, or to
// the snake_case form of its name. Fields tagged "-" are skipped.
//
//	var p struct {
//	    Name      string
//	    Age       int64
//	    CreatedAt time.Time `cypher:"created_at"`
//	}
//	err := inst.Decode(&p)
func (i *Instance) Decode(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errDecodeTarget
	}
	rv = rv.Elem()
	rt := rv.Type()
	for j := range rt.NumField() {
		sf := rt.Field(j)
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get("cypher")
		if name == "-" {
			continue
		}
		if name == "" {
			name = inflect.Underscore(sf.Name)
		}
		v, ok := i.values[name]
		if !ok || v == nil {
			continue
		}
		fv := rv.Field(j)
		val := reflect.ValueOf(v)
		switch {
		case val.Type().AssignableTo(fv.Type()):
			fv.Set(val)
		case fv.Kind() == reflect.Pointer && val.Type().AssignableTo(fv.Type().Elem()):
			p := reflect.New(fv.Type().Elem())
			p.Elem().Set(val)
			fv.Set(p)
		case val.Type().ConvertibleTo(fv.Type()) && fv.Kind() != reflect.String:
			fv.Set(val.Convert(fv.Type()))
		default:
			return fmt.Errorf("cypher: cannot decode %s.%s of type %T into field %s of type %s",
				i.typ.Name, name, v, sf.Name, fv.Type())
		}
	}
	return nil
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m Values) []string {
	return slices.Sorted(maps.Keys(m))
}
