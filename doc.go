// Package cypher declares strongly-typed graph entities and the errors
// shared by the schema registry and the query builder.
//
// Entity schemas are Go types embedding Node or Edge:
//
//	type Person struct{ cypher.Node }
//
//	func (Person) Fields() []cypher.Field {
//	    return []cypher.Field{
//	        field.String("name").NotEmpty(),
//	        field.Int("age").NonNegative(),
//	    }
//	}
//
//	func (Person) Indexes() []cypher.Index {
//	    return []cypher.Index{
//	        index.Fields("name", "age").Unique(),
//	    }
//	}
//
//	type Knows struct{ cypher.Edge }
//
//	func (Knows) Fields() []cypher.Field {
//	    return []cypher.Field{field.Date("since").Optional()}
//	}
//
// Schemas are loaded once into a registry with graph.Load and queried with
// the fluent builder of the query package:
//
//	people := graph.MustLoad(Person{})
//	rows, err := query.New(drv).
//	    Match(people, predicate.GT(people.Prop("age"), 18)).
//	    Result(ctx, "p")
package cypher
