package query

import (
	"context"
	"fmt"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/graph"
)

// Record is one result row keyed by variable. Entity variables hold a
// *graph.Instance; other projections hold the value the backend returned.
type Record map[string]any

// Instance returns the entity bound to the variable in the record.
func (r Record) Instance(name string) (*graph.Instance, bool) {
	inst, ok := r[name].(*graph.Instance)
	return inst, ok && inst != nil
}

// Decode copies the entity bound to the variable into the struct pointed to
// by dst. See graph.Instance.Decode.
func (r Record) Decode(name string, dst any) error {
	inst, ok := r.Instance(name)
	if !ok {
		return fmt.Errorf("cypher: record has no entity %q", name)
	}
	return inst.Decode(dst)
}

// Result compiles the builder, executes the statement in one round trip
// and hydrates the entity columns of every row. It projects the given
// variables or var.prop terms, or every bound variable that is not
// deleted. Property terms are returned as the backend sent them.
//
// Result may be called once; the builder is marked executed once the
// statement compiles, before the round trip, and a later call returns an
// AlreadyExecutedError. A statement that does not compile leaves the
// builder unchanged. Driver errors are returned as is.
//
//	records, err := query.New(drv).
//	    Match(PersonType, predicate.GT(PersonType.Prop("age"), 18)).
//	    Result(ctx, "p")
func (b *Builder) Result(ctx context.Context, vars ...string) ([]Record, error) {
	if b.state == StateExecuted {
		return nil, &cypher.AlreadyExecutedError{}
	}
	if b.err != nil {
		return nil, b.err
	}
	stmt, err := b.compile(b.state, vars)
	if err != nil {
		return nil, err
	}
	b.state = StateExecuted
	b.logger.DebugContext(ctx, "cypher: compiled statement",
		"query", stmt.Text,
		"params", stmt.Params,
		"store", stmt.Store,
	)
	rows, err := b.driver.Execute(dialect.NewContext(ctx, stmt), stmt.Text, stmt.Params)
	if err != nil {
		return nil, err
	}
	return b.hydrate(stmt, rows)
}

// hydrate converts the property maps of entity columns into instances of
// the type bound to the column variable.
func (b *Builder) hydrate(stmt *dialect.Statement, rows []dialect.Row) ([]Record, error) {
	records := make([]Record, len(rows))
	for i, row := range rows {
		rec := make(Record, len(row))
		for k, v := range row {
			rec[k] = v
		}
		for _, c := range stmt.Columns {
			bnd, ok := b.vars[c]
			if !ok {
				continue
			}
			props, ok := rec[c].(map[string]any)
			if !ok {
				continue
			}
			inst, err := bnd.typ.Hydrate(props)
			if err != nil {
				return nil, err
			}
			rec[c] = inst
		}
		records[i] = rec
	}
	return records, nil
}
