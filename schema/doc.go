// Package schema groups the building blocks for defining entity schemas:
//
//   - [field]: typed property builders and wire encoding
//   - [index]: unique-together declarations
//   - [mixin]: reusable schema components
//
// # Quick Start
//
// Define a node schema by embedding cypher.Node and declaring its
// properties:
//
//	type Person struct{ cypher.Node }
//
//	func (Person) Fields() []cypher.Field {
//	    return []cypher.Field{
//	        field.String("name").NotEmpty().MaxLen(100),
//	        field.Int("age").NonNegative(),
//	        field.Date("born").Optional(),
//	    }
//	}
//
//	func (Person) Indexes() []cypher.Index {
//	    return []cypher.Index{
//	        index.Fields("name", "born").Unique(),
//	    }
//	}
//
// Edges are declared the same way by embedding cypher.Edge:
//
//	type Knows struct{ cypher.Edge }
//
//	func (Knows) Fields() []cypher.Field {
//	    return []cypher.Field{
//	        field.DateTime("since").DefaultFunc(time.Now),
//	    }
//	}
//
// # Property Types
//
//	field.Bool("active")      // Boolean
//	field.Int("count")        // Integer, signed 64-bit
//	field.Float("score")      // Float
//	field.String("name")      // String
//	field.Date("born")        // Date, encoded as a day ordinal
//	field.DateTime("at")      // DateTime, encoded as Unix microseconds
//
// For detailed documentation on each subpackage, see their respective package docs.
package schema
