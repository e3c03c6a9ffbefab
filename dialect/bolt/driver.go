package bolt

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/syssam/cypher/dialect"
)

// executeFunc runs one query through the neo4j driver.
type executeFunc func(ctx context.Context, query string, params map[string]any, opts ...neo4j.ExecuteQueryConfigurationOption) (*neo4j.EagerResult, error)

// Driver is a dialect.Driver running Cypher statements on a Bolt server.
type Driver struct {
	driver   neo4j.DriverWithContext
	database string
	execute  executeFunc
}

// Option configures the Driver.
type Option func(*Driver)

// WithDatabase sets the database of statements without a store. The
// server default database is used otherwise.
func WithDatabase(name string) Option {
	return func(d *Driver) {
		d.database = name
	}
}

// Open connects to the server at uri with basic authentication.
//
//	drv, err := bolt.Open(ctx, "neo4j://localhost:7687", "neo4j", "secret")
func Open(ctx context.Context, uri, username, password string, opts ...Option) (*Driver, error) {
	return open(ctx, uri, username, password, nil, opts...)
}

func open(ctx context.Context, uri, username, password string, configure func(*config.Config), opts ...Option) (*Driver, error) {
	var configurers []func(*config.Config)
	if configure != nil {
		configurers = append(configurers, configure)
	}
	drv, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), configurers...)
	if err != nil {
		return nil, fmt.Errorf("dialect/bolt: open: %w", err)
	}
	if err := drv.VerifyConnectivity(ctx); err != nil {
		_ = drv.Close(ctx)
		return nil, fmt.Errorf("dialect/bolt: verify connectivity: %w", err)
	}
	return NewDriver(drv, opts...), nil
}

// NewDriver wraps a neo4j driver.
func NewDriver(drv neo4j.DriverWithContext, opts ...Option) *Driver {
	d := &Driver{driver: drv}
	d.execute = func(ctx context.Context, query string, params map[string]any, opts ...neo4j.ExecuteQueryConfigurationOption) (*neo4j.EagerResult, error) {
		return neo4j.ExecuteQuery(ctx, d.driver, query, params, neo4j.EagerResultTransformer, opts...)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close closes the underlying driver and its connection pool.
func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// Execute implements dialect.Driver. The statement runs in the database
// named by its store, and read-only statements are routed to readers.
func (d *Driver) Execute(ctx context.Context, query string, params map[string]any) ([]dialect.Row, error) {
	database := d.database
	var opts []neo4j.ExecuteQueryConfigurationOption
	if s, ok := dialect.FromContext(ctx); ok {
		if s.Store != "" {
			database = s.Store
		}
		if s.ReadOnly {
			opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
		}
	}
	if database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(database))
	}
	if params == nil {
		params = map[string]any{}
	}
	res, err := d.execute(ctx, query, params, opts...)
	if err != nil {
		return nil, err
	}
	rows := make([]dialect.Row, 0, len(res.Records))
	for _, r := range res.Records {
		row := make(dialect.Row, len(r.Keys))
		for i, k := range r.Keys {
			row[k] = convert(r.Values[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// convert replaces graph entities by their property maps.
func convert(v any) any {
	switch v := v.(type) {
	case neo4j.Node:
		return convertMap(v.Props)
	case neo4j.Relationship:
		return convertMap(v.Props)
	case neo4j.Path:
		out := make([]any, 0, len(v.Nodes)+len(v.Relationships))
		for i, n := range v.Nodes {
			out = append(out, convertMap(n.Props))
			if i < len(v.Relationships) {
				out = append(out, convertMap(v.Relationships[i].Props))
			}
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = convert(e)
		}
		return out
	case map[string]any:
		return convertMap(v)
	default:
		return v
	}
}

func convertMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = convert(v)
	}
	return out
}

var _ dialect.Driver = (*Driver)(nil)
