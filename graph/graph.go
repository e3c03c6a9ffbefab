package graph

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema/field"
	"github.com/syssam/cypher/schema/index"
	"github.com/syssam/cypher/schema/mixin"
)

// Type is the loaded, immutable registry of one entity schema: its label,
// kind and the ordered (name, descriptor) pairs of its properties.
type Type struct {
	// Name is the label of the entity in the graph.
	Name     string
	Kind     cypher.Kind
	Store    string
	Abstract bool

	fields     []*field.Descriptor
	byName     map[string]*field.Descriptor
	names      map[*field.Descriptor]string
	indexes    []*index.Descriptor
	validators []cypher.Validator
}

var registry = struct {
	sync.Mutex
	types map[reflect.Type]*Type
}{types: make(map[reflect.Type]*Type)}

// Load resolves the schema into a Type. The result is computed once per Go
// type and shared by every later call; Load is safe for concurrent use.
func Load(s cypher.Interface) (*Type, error) {
	rt := reflect.TypeOf(s)
	registry.Lock()
	defer registry.Unlock()
	if t, ok := registry.types[rt]; ok {
		return t, nil
	}
	t, err := build(s)
	if err != nil {
		return nil, err
	}
	registry.types[rt] = t
	return t, nil
}

// MustLoad is like Load but panics if the schema is invalid. It simplifies
// the initialization of package-level schema variables.
//
//	var PersonType = graph.MustLoad(Person{})
func MustLoad(s cypher.Interface) *Type {
	t, err := Load(s)
	if err != nil {
		panic(err)
	}
	return t
}

func build(s cypher.Interface) (*Type, error) {
	cfg := s.Config()
	t := &Type{
		Name:     cfg.Label,
		Kind:     s.Kind(),
		Store:    cfg.Store,
		Abstract: cfg.Abstract,
		byName:   make(map[string]*field.Descriptor),
		names:    make(map[*field.Descriptor]string),
	}
	if t.Name == "" {
		t.Name = labelOf(s)
	}
	if t.Kind != cypher.KindNode && t.Kind != cypher.KindEdge {
		return nil, cypher.NewSchemaError(t.Name, "", fmt.Sprintf("invalid kind %s", t.Kind))
	}
	var (
		fields  []cypher.Field
		indexes []cypher.Index
	)
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
		t.validators = append(t.validators, m.Validators()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)
	t.validators = append(t.validators, s.Validators()...)

	descs := make([]*field.Descriptor, 0, len(fields)+1)
	for _, f := range fields {
		descs = append(descs, f.Descriptor())
	}
	if !slices.ContainsFunc(descs, func(d *field.Descriptor) bool { return d.Name == mixin.UIDField }) {
		descs = append([]*field.Descriptor{mixin.UID{}.Fields()[0].Descriptor()}, descs...)
	}
	for _, d := range descs {
		if err := t.register(d); err != nil {
			return nil, err
		}
	}
	for _, idx := range indexes {
		d := idx.Descriptor()
		if len(d.Fields) == 0 {
			return nil, cypher.NewSchemaError(t.Name, "", "index without properties")
		}
		for _, name := range d.Fields {
			if _, ok := t.byName[name]; !ok {
				return nil, cypher.NewSchemaError(t.Name, name, "index references an unknown property")
			}
		}
		t.indexes = append(t.indexes, d)
	}
	return t, nil
}

// register adds the descriptor to the ordered list and to both lookup maps.
func (t *Type) register(d *field.Descriptor) error {
	switch {
	case d.Err != nil:
		return &cypher.SchemaError{Schema: t.Name, Property: d.Name, Msg: "invalid property", Err: d.Err}
	case !d.Type.Valid():
		return cypher.NewSchemaError(t.Name, d.Name, "invalid property type")
	case t.byName[d.Name] != nil:
		return cypher.NewSchemaError(t.Name, d.Name, "duplicate property")
	}
	if d.Default != nil {
		v := d.Normalize(d.Default)
		if err := d.Validate(v); err != nil {
			return &cypher.SchemaError{Schema: t.Name, Property: d.Name, Msg: "invalid default value", Err: err}
		}
		d.Default = v
	}
	t.fields = append(t.fields, d)
	t.byName[d.Name] = d
	t.names[d] = d.Name
	return nil
}

func labelOf(s cypher.Interface) string {
	rt := reflect.TypeOf(s)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt.Name()
}

// String returns the label of the type.
func (t *Type) String() string { return t.Name }

// IsNode reports whether the type describes graph nodes.
func (t *Type) IsNode() bool { return t.Kind == cypher.KindNode }

// IsEdge reports whether the type describes graph edges.
func (t *Type) IsEdge() bool { return t.Kind == cypher.KindEdge }

// Fields returns the property descriptors in declaration order, uid first.
func (t *Type) Fields() []*field.Descriptor {
	return slices.Clone(t.fields)
}

// Names returns the property names in declaration order.
func (t *Type) Names() []string {
	names := make([]string, len(t.fields))
	for i, d := range t.fields {
		names[i] = t.names[d]
	}
	return names
}

// Field returns the descriptor of the named property.
func (t *Type) Field(name string) (*field.Descriptor, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// NameOf returns the name a descriptor is registered under. The lookup is by
// descriptor identity, not by the Name it was declared with.
func (t *Type) NameOf(d *field.Descriptor) (string, bool) {
	name, ok := t.names[d]
	return name, ok
}

// Indexes returns the index declarations of the type.
func (t *Type) Indexes() []*index.Descriptor {
	return slices.Clone(t.indexes)
}

// UniqueTogether returns the property tuples declared unique together.
func (t *Type) UniqueTogether() [][]string {
	var unique [][]string
	for _, idx := range t.indexes {
		if idx.Unique {
			unique = append(unique, slices.Clone(idx.Fields))
		}
	}
	return unique
}

// Check runs the cross-field validators of the type against the instance.
func (t *Type) Check(inst *Instance) error {
	values := inst.Values()
	for _, v := range t.validators {
		if err := v(values); err != nil {
			return &cypher.RuleViolationError{Property: t.Name, Rule: "validation", Value: inst.UID(), Err: err}
		}
	}
	return nil
}
