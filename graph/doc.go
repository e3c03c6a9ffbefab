// Package graph holds the runtime registry of entity schemas and the
// instances built from them.
//
// # Types
//
// Load resolves a schema declaration into a Type once per Go type. A Type
// keeps the ordered (name, descriptor) pairs of the entity, with uid first,
// then mixin properties, then the schema's own properties. It also keeps a
// reverse map from descriptor to name:
//
//	var Person = graph.MustLoad(schema.Person{})
//
//	Person.Fields()               // ordered descriptors
//	Person.NameOf(desc)           // "age"
//	Person.Prop("age")            // left operand of predicates
//	Person.UniqueTogether()       // [][]string
//
// # Instances
//
// New validates the provided values against the declared properties:
//
//	p, err := Person.New(graph.Values{"name": "Ann", "age": 30})
//	if cypher.IsMissingProperty(err) {
//	    ...
//	}
//
// Instances are compared by identity. Hydrate builds an instance from
// backend properties, decoding each wire value. Decode copies an instance
// into a plain struct.
package graph
