package dialect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Driver returning canned rows and recording every call.
type recorder struct {
	rows  []Row
	err   error
	calls []string
	stmts []*Statement
}

func (r *recorder) Execute(ctx context.Context, query string, _ map[string]any) ([]Row, error) {
	r.calls = append(r.calls, query)
	s, _ := FromContext(ctx)
	r.stmts = append(r.stmts, s)
	if r.err != nil {
		return nil, r.err
	}
	return r.rows, nil
}

func readCtx(store string) context.Context {
	return NewContext(context.Background(), &Statement{Text: "MATCH (p:Person) RETURN p", ReadOnly: true, Ops: OpMatch, Labels: []string{"Person"}, Store: store})
}

func writeCtx(store string) context.Context {
	return NewContext(context.Background(), &Statement{Text: "CREATE (p:Person)", Ops: OpCreate, Labels: []string{"Person"}, Store: store})
}

func TestOp(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{0, "NONE"},
		{OpMatch, "MATCH"},
		{OpMatch | OpDelete, "MATCH|DELETE"},
		{OpMerge | OpCreate | OpUpdate, "MERGE|CREATE|UPDATE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
	assert.True(t, (OpMatch | OpDelete).Is(OpDelete|OpUpdate))
	assert.False(t, OpMatch.Is(OpCreate))
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &Statement{Text: "RETURN 1"}
	got, ok := FromContext(NewContext(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = FromContext(NewContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestStatementClone(t *testing.T) {
	s := &Statement{Text: "RETURN $x", Params: map[string]any{"x": 1}, Columns: []string{"x"}, Labels: []string{"A"}}
	c := s.Clone()
	c.Params["x"] = 2
	c.Columns[0] = "y"
	c.Labels[0] = "B"
	assert.Equal(t, 1, s.Params["x"])
	assert.Equal(t, []string{"x"}, s.Columns)
	assert.Equal(t, []string{"A"}, s.Labels)
}

func TestDriverFunc(t *testing.T) {
	errFailed := errors.New("failed")
	drv := DriverFunc(func(_ context.Context, query string, params map[string]any) ([]Row, error) {
		if query == "fail" {
			return nil, errFailed
		}
		return []Row{{"q": query, "n": len(params)}}, nil
	})
	rows, err := drv.Execute(context.Background(), "RETURN 1", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"q": "RETURN 1", "n": 1}}, rows)

	_, err = drv.Execute(context.Background(), "fail", nil)
	assert.ErrorIs(t, err, errFailed)
}

func TestChain(t *testing.T) {
	var order []string
	wrap := func(name string) func(Driver) Driver {
		return func(next Driver) Driver {
			return DriverFunc(func(ctx context.Context, query string, params map[string]any) ([]Row, error) {
				order = append(order, name)
				return next.Execute(ctx, query, params)
			})
		}
	}
	rec := &recorder{}
	drv := Chain(rec, wrap("outer"), wrap("inner"))
	_, err := drv.Execute(context.Background(), "RETURN 1", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, []string{"RETURN 1"}, rec.calls)
	assert.Same(t, Driver(rec), Chain(rec))
}
