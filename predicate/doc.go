// Package predicate provides the comparisons used to filter query patterns.
//
// Each operator has a named constructor taking the left-hand property and
// the right-hand operand:
//
//	predicate.GT(Person.Prop("age"), 18)                         // p.age > 18
//	predicate.In(Person.Prop("name"), "Ann", "Bob")              // p.name IN ["Ann", "Bob"]
//	predicate.IsNull(Person.Prop("born"))                        // p.born IS NULL
//	predicate.LT(Person.Prop("age"), predicate.Ref("b", Person.Prop("age")))
//
// Comparisons passed with a pattern element bind to its variable. Global
// conditions name their variable with On:
//
//	q.Where(predicate.HasPrefix(Person.Prop("name"), "A").On("p"))
package predicate
