package age

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/cypher/dialect"
)

var (
	// validIdentifierRe validates graph, column and session variable names.
	validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)
	// plainColumnRe matches column names PostgreSQL keeps as written.
	plainColumnRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	// searchPathRe validates a comma separated list of schema names.
	searchPathRe = regexp.MustCompile(`^("?\$?[a-zA-Z_][a-zA-Z0-9_]*"?)(\s*,\s*"?\$?[a-zA-Z_][a-zA-Z0-9_]*"?)*$`)
)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 63 && validIdentifierRe.MatchString(s)
}

// escapeStringValue doubles single quotes for use in a SET statement.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// Conn is the subset of *sql.Conn used to run one statement.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Close() error
}

// Driver is a dialect.Driver running Cypher statements on Apache AGE.
type Driver struct {
	db    *sql.DB
	graph string
	load  bool
	path  string
}

// Option configures the Driver.
type Option func(*Driver)

// WithLoad makes every connection run LOAD 'age' before the statement.
// Needed when the extension is not preloaded by the server.
func WithLoad() Option {
	return func(d *Driver) {
		d.load = true
	}
}

// WithSearchPath sets the search_path of every connection. AGE requires
// ag_catalog on it unless it is configured server side.
func WithSearchPath(path string) Option {
	return func(d *Driver) {
		d.path = path
	}
}

// Open opens a PostgreSQL connection pool with lib/pq and returns a Driver
// for the given graph.
func Open(graph, dsn string, opts ...Option) (*Driver, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/age: open: %w", err)
	}
	return OpenDB(graph, sql.OpenDB(connector), opts...)
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(graph string, db *sql.DB, opts ...Option) (*Driver, error) {
	if !isValidIdentifier(graph) {
		return nil, fmt.Errorf("dialect/age: invalid graph name: %q", graph)
	}
	d := &Driver{db: db, graph: graph}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB { return d.db }

// Graph returns the name of the graph statements run on.
func (d *Driver) Graph() string { return d.graph }

// Close closes the underlying connection pool.
func (d *Driver) Close() error { return d.db.Close() }

// Execute implements dialect.Driver. The statement runs on a dedicated
// connection so that the session setup applies to it.
func (d *Driver) Execute(ctx context.Context, query string, params map[string]any) (rows []dialect.Row, rerr error) {
	var columns []string
	if s, ok := dialect.FromContext(ctx); ok {
		columns = s.Columns
	}
	text, args, err := d.wrap(query, params, columns)
	if err != nil {
		return nil, err
	}
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/age: acquire connection: %w", err)
	}
	cf, err := d.setup(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("dialect/age: set session: %w", err)
	}
	defer func() {
		if err := cf(); err != nil {
			rerr = errors.Join(rerr, err)
		}
	}()
	rs, err := conn.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	return scan(rs)
}

// setup prepares the connection and returns the function releasing it.
func (d *Driver) setup(ctx context.Context, conn Conn) (func() error, error) {
	var (
		stmts []string
		reset []string
		seen  = make(map[string]struct{})
	)
	if d.load {
		stmts = append(stmts, "LOAD 'age'")
	}
	vars := sessionVarsFrom(ctx)
	if d.path != "" {
		vars = append([]sessionVar{{k: "search_path", v: d.path}}, vars...)
	}
	for _, s := range vars {
		if !isValidIdentifier(s.k) {
			return nil, errors.Join(fmt.Errorf("invalid session variable name: %q", s.k), conn.Close())
		}
		if _, ok := seen[s.k]; !ok {
			reset = append(reset, "RESET "+s.k)
			seen[s.k] = struct{}{}
		}
		if s.k == "search_path" {
			// search_path holds a list of identifiers, not a string literal.
			if !searchPathRe.MatchString(s.v) {
				return nil, errors.Join(fmt.Errorf("invalid search_path: %q", s.v), conn.Close())
			}
			stmts = append(stmts, fmt.Sprintf("SET %s = %s", s.k, s.v))
			continue
		}
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", s.k, escapeStringValue(s.v)))
	}
	for _, q := range stmts {
		if _, err := conn.ExecContext(ctx, q); err != nil {
			return nil, errors.Join(err, conn.Close())
		}
	}
	// The connection returns to the pool, so reset what was set even if
	// the statement context was canceled.
	return func() error {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, q := range reset {
			if _, err := conn.ExecContext(cleanupCtx, q); err != nil {
				return errors.Join(err, conn.Close())
			}
		}
		return conn.Close()
	}, nil
}

// wrap embeds the Cypher statement in the SQL call of the cypher function.
func (d *Driver) wrap(query string, params map[string]any, columns []string) (string, []any, error) {
	tag := "$$"
	for i := 0; strings.Contains(query, tag); i++ {
		tag = fmt.Sprintf("$q%d$", i)
	}
	if len(columns) == 0 {
		columns = []string{"result"}
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		if !isValidIdentifier(c) {
			return "", nil, fmt.Errorf("dialect/age: invalid column name: %q", c)
		}
		if !plainColumnRe.MatchString(c) {
			c = pq.QuoteIdentifier(c)
		}
		defs[i] = c + " agtype"
	}
	var (
		b    strings.Builder
		args []any
	)
	fmt.Fprintf(&b, "SELECT * FROM ag_catalog.cypher('%s', %s %s %s", d.graph, tag, query, tag)
	if len(params) > 0 {
		buf, err := json.Marshal(params)
		if err != nil {
			return "", nil, fmt.Errorf("dialect/age: encode params: %w", err)
		}
		b.WriteString(", $1")
		args = append(args, string(buf))
	}
	fmt.Fprintf(&b, ") AS (%s)", strings.Join(defs, ", "))
	return b.String(), args, nil
}

// scan reads every row, decoding each agtype column.
func scan(rs *sql.Rows) ([]dialect.Row, error) {
	columns, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var rows []dialect.Row
	for rs.Next() {
		raw := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(dialect.Row, len(columns))
		for i, c := range columns {
			if !raw[i].Valid {
				row[c] = nil
				continue
			}
			v, err := ParseAgtype(raw[i].String)
			if err != nil {
				return nil, fmt.Errorf("dialect/age: column %q: %w", c, err)
			}
			row[c] = v
		}
		rows = append(rows, row)
	}
	return rows, rs.Err()
}

// sessionVarsKey is the key used for attaching and reading the session variables.
type sessionVarsKey struct{}

type sessionVar struct{ k, v string }

// WithVar returns a new context that holds the session variable to be set
// before the statement.
func WithVar(ctx context.Context, name, value string) context.Context {
	vars := sessionVarsFrom(ctx)
	vars = append(vars[:len(vars):len(vars)], sessionVar{k: name, v: value})
	return context.WithValue(ctx, sessionVarsKey{}, vars)
}

// VarFromContext returns the session variable value from the context.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	for _, s := range sessionVarsFrom(ctx) {
		if s.k == name {
			return s.v, true
		}
	}
	return "", false
}

func sessionVarsFrom(ctx context.Context) []sessionVar {
	vars, _ := ctx.Value(sessionVarsKey{}).([]sessionVar)
	return vars
}

var _ dialect.Driver = (*Driver)(nil)
