// Package index declares the unique-together constraints of graph entities.
package index

import "slices"

// Descriptor describes one index declaration.
type Descriptor struct {
	Fields []string // Property names covered by the index.
	Unique bool     // Values of Fields are unique together.
}

// Builder for indexes on entity properties.
type Builder struct {
	desc *Descriptor
}

// Fields creates an index on the given properties.
//
//	index.Fields("first_name", "last_name").Unique()
func Fields(fields ...string) *Builder {
	return &Builder{desc: &Descriptor{Fields: fields}}
}

// Unique marks the properties as unique together.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// Descriptor implements the cypher.Index interface.
func (b *Builder) Descriptor() *Descriptor {
	d := *b.desc
	d.Fields = slices.Clone(b.desc.Fields)
	return &d
}
