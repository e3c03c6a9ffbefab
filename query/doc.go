// Package query provides the fluent builder that assembles graph patterns,
// predicates and write operations and compiles them to one Cypher
// statement.
//
// A Builder moves through a small state machine while the pattern is
// assembled. Nodes are bound with Match or MatchOrCreate, edges with
// ConnectedThrough, and the terminal node of an edge with To or By:
//
//	records, err := query.New(drv).
//	    Match(query.As(PersonType, "a")).
//	    ConnectedThrough(KnowsType).
//	    To(query.As(PersonType, "b")).
//	    Where(predicate.LT(age, predicate.Ref("b", age)).On("a")).
//	    OrderBy("a.name").
//	    Limit(10).
//	    Result(ctx, "a", "b")
//
// Values are embedded in the statement as literals of their wire encoding;
// only SKIP and LIMIT travel as parameters. Result executes the statement
// once through a dialect.Driver and hydrates the entity columns.
package query
