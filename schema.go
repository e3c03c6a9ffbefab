package cypher

import (
	"github.com/syssam/cypher/schema/field"
	"github.com/syssam/cypher/schema/index"
)

// Kind is the graph-pattern role of a schema.
type Kind uint8

// Schema kinds.
const (
	KindNode Kind = iota + 1
	KindEdge
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	default:
		return "invalid"
	}
}

type (
	// Interface is the interface implemented by all entity schemas. Embed
	// Node or Edge to get the default implementation of every method except
	// those the schema overrides.
	Interface interface {
		// Kind reports whether the schema describes nodes or edges.
		Kind() Kind
		// Fields returns the properties of the entity.
		Fields() []Field
		// Indexes returns the unique-together declarations of the entity.
		Indexes() []Index
		// Mixin returns the shared base declarations the entity inherits.
		Mixin() []Mixin
		// Validators returns the cross-field validations of the entity.
		Validators() []Validator
		// Config returns the schema metadata.
		Config() Config
	}

	// Field is the interface implemented by property builders.
	Field interface {
		Descriptor() *field.Descriptor
	}

	// Index is the interface implemented by index builders.
	Index interface {
		Descriptor() *index.Descriptor
	}

	// Mixin is a reusable, never instantiated set of declarations.
	Mixin interface {
		Fields() []Field
		Indexes() []Index
		Validators() []Validator
	}

	// Validator checks an entity as a whole, after each property was
	// validated on its own.
	Validator func(values map[string]any) error

	// Config holds schema metadata.
	Config struct {
		// Label overrides the label of the entity, which defaults to the
		// name of the schema type.
		Label string
		// Store names the database the entity lives in. Empty selects the
		// default database of the driver.
		Store string
		// Abstract schemas are shared declarations and cannot be
		// instantiated or matched.
		Abstract bool
	}
)

// schema provides default implementations of Interface.
type schema struct{}

// Fields of the schema.
func (schema) Fields() []Field { return nil }

// Indexes of the schema.
func (schema) Indexes() []Index { return nil }

// Mixin of the schema.
func (schema) Mixin() []Mixin { return nil }

// Validators of the schema.
func (schema) Validators() []Validator { return nil }

// Config of the schema.
func (schema) Config() Config { return Config{} }

// Node is the default implementation of a node schema.
//
//	type Person struct {
//	    cypher.Node
//	}
type Node struct{ schema }

// Kind implements Interface.
func (Node) Kind() Kind { return KindNode }

// Edge is the default implementation of an edge schema.
type Edge struct{ schema }

// Kind implements Interface.
func (Edge) Kind() Kind { return KindEdge }

var (
	_ Interface = Node{}
	_ Interface = Edge{}
)
