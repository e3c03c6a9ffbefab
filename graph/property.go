package graph

import (
	"github.com/syssam/cypher"
	"github.com/syssam/cypher/schema/field"
)

// Property references one property of an entity type. It is the left-hand
// operand of predicates.
type Property struct {
	Type *Type
	Desc *field.Descriptor
	name string // requested name, kept for error reporting
}

// Prop returns the named property of the type. An unknown name yields a
// property whose Err is a SchemaError.
func (t *Type) Prop(name string) Property {
	return Property{Type: t, Desc: t.byName[name], name: name}
}

// PropOf returns the property registered with the given descriptor.
func (t *Type) PropOf(d *field.Descriptor) Property {
	return Property{Type: t, Desc: d}
}

// Name returns the registered name of the property, resolved through the
// descriptor reverse lookup of its type.
func (p Property) Name() string {
	if p.Type != nil && p.Desc != nil {
		if name, ok := p.Type.NameOf(p.Desc); ok {
			return name
		}
	}
	return p.name
}

// Err reports whether the property does not belong to its type.
func (p Property) Err() error {
	if p.Type == nil {
		return cypher.NewSchemaError("", p.name, "property without type")
	}
	if p.Desc == nil {
		return cypher.NewSchemaError(p.Type.Name, p.name, "unknown property")
	}
	if _, ok := p.Type.NameOf(p.Desc); !ok {
		return cypher.NewSchemaError(p.Type.Name, p.Desc.Name, "descriptor is not registered with the type")
	}
	return nil
}

// Wire encodes v as a literal of the property.
func (p Property) Wire(v any) (string, error) {
	if err := p.Err(); err != nil {
		return "", err
	}
	return p.Desc.ToWire(v)
}

// String returns the qualified name of the property, e.g. Person.age.
func (p Property) String() string {
	if p.Type == nil {
		return p.Name()
	}
	return p.Type.Name + "." + p.Name()
}
