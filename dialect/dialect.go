package dialect

import (
	"context"
	"maps"
	"slices"
	"strings"
)

// Backend names.
const (
	AGE   = "age"   // Apache AGE on PostgreSQL
	Neo4j = "neo4j" // Neo4j and other Bolt servers
)

// Row is one result row keyed by column name. Node and edge columns hold
// the property map of the entity.
type Row = map[string]any

// Driver executes compiled statements against a graph backend. Errors
// returned by the backend are passed through untouched.
type Driver interface {
	// Execute runs the statement text with its parameters in one round trip
	// and returns every result row.
	Execute(ctx context.Context, query string, params map[string]any) ([]Row, error)
}

// DriverFunc is an adapter to allow the use of ordinary functions as
// drivers.
type DriverFunc func(ctx context.Context, query string, params map[string]any) ([]Row, error)

// Execute calls f(ctx, query, params).
func (f DriverFunc) Execute(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	return f(ctx, query, params)
}

// Op is the set of clause kinds a statement is made of.
type Op uint

// Statement operations.
const (
	OpMatch Op = 1 << iota
	OpMerge
	OpCreate
	OpUpdate
	OpDelete
)

var opNames = []string{"MATCH", "MERGE", "CREATE", "UPDATE", "DELETE"}

// Is reports whether o holds any of the operations of op.
func (o Op) Is(op Op) bool { return o&op != 0 }

// String returns the operation names joined by "|".
func (o Op) String() string {
	var names []string
	for i, name := range opNames {
		if o.Is(1 << i) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// Statement describes a compiled statement. The query builder attaches it to
// the context of Execute, so middleware and transports can act on more than
// the query text.
type Statement struct {
	// Text is the statement in the Cypher query language.
	Text string
	// Params are referenced from Text as $name.
	Params map[string]any
	// Columns are the projected variables, in RETURN order.
	Columns []string
	// ReadOnly reports that the statement has no write or delete clause.
	ReadOnly bool
	// Ops holds the kinds of clauses of the statement.
	Ops Op
	// Labels of every entity type the statement touches, sorted.
	Labels []string
	// Store is the database the entities live in, empty for the default.
	Store string
}

// Clone returns a deep copy of the statement.
func (s *Statement) Clone() *Statement {
	c := *s
	c.Params = maps.Clone(s.Params)
	c.Columns = slices.Clone(s.Columns)
	c.Labels = slices.Clone(s.Labels)
	return &c
}

// stmtKey is the context key of the statement.
type stmtKey struct{}

// NewContext returns a new context carrying the statement.
func NewContext(ctx context.Context, s *Statement) context.Context {
	return context.WithValue(ctx, stmtKey{}, s)
}

// FromContext returns the statement stored in the context, if any.
func FromContext(ctx context.Context) (*Statement, bool) {
	s, ok := ctx.Value(stmtKey{}).(*Statement)
	return s, ok && s != nil
}

// Chain wraps the driver with the given middleware. The first middleware is
// the outermost one.
//
//	drv := dialect.Chain(bolt,
//	    func(d dialect.Driver) dialect.Driver { return dialect.Debug(d, logger) },
//	    func(d dialect.Driver) dialect.Driver { return dialect.NewStatsDriver(d) },
//	)
func Chain(drv Driver, middleware ...func(Driver) Driver) Driver {
	for i := len(middleware) - 1; i >= 0; i-- {
		drv = middleware[i](drv)
	}
	return drv
}
