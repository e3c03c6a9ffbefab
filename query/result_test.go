package query_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/predicate"
	"github.com/syssam/cypher/query"
)

func TestResult(t *testing.T) {
	drv := &fakeDriver{
		rows: []dialect.Row{
			{"p": map[string]any{"uid": "u1", "name": "Ann", "age": int64(31), "extra": true}},
			{"p": map[string]any{"uid": "u2", "name": "Bob", "age": float64(40)}},
		},
	}
	records, err := query.New(drv).Match(personType, predicate.GT(age, 18)).Result(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Len(t, drv.queries, 1)
	assert.Equal(t, "MATCH (p:Person) WHERE p.age > 18 RETURN p", drv.queries[0])
	assert.Empty(t, drv.params[0])
	require.NotNil(t, drv.stmts[0], "the statement travels in the context")
	assert.Equal(t, drv.queries[0], drv.stmts[0].Text)
	assert.True(t, drv.stmts[0].ReadOnly)
	assert.Equal(t, []string{"Person"}, drv.stmts[0].Labels)
	assert.Equal(t, []string{"p"}, drv.stmts[0].Columns)

	p, ok := records[0].Instance("p")
	require.True(t, ok)
	assert.Same(t, personType, p.Type())
	assert.Equal(t, "u1", p.UID())
	v, _ := p.Get("age")
	assert.Equal(t, int64(31), v)
	assert.False(t, p.Has("extra"), "undeclared properties are dropped")

	p, ok = records[1].Instance("p")
	require.True(t, ok)
	v, _ = p.Get("age")
	assert.Equal(t, int64(40), v, "integral floats decode as Int")
}

func TestResultProjection(t *testing.T) {
	drv := &fakeDriver{
		rows: []dialect.Row{
			{
				"a":      map[string]any{"uid": "u1", "name": "Ann", "age": int64(31)},
				"k":      map[string]any{"uid": "k1", "since": int64(738886)},
				"b.name": "Bob",
			},
		},
	}
	records, err := query.New(drv).
		Match(query.As(personType, "a")).ConnectedThrough(knowsType).To(query.As(personType, "b")).
		Result(context.Background(), "a", "k", "b.name")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "MATCH (a:Person)-[k:KNOWS]->(b:Person) RETURN a, k, b.name", drv.queries[0])
	assert.Equal(t, []string{"a", "k", "b.name"}, drv.stmts[0].Columns)

	rec := records[0]
	k, ok := rec.Instance("k")
	require.True(t, ok)
	since, _ := k.Get("since")
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), since)
	assert.Equal(t, "Bob", rec["b.name"], "property columns are kept as returned")
	_, ok = rec.Instance("b.name")
	assert.False(t, ok)

	var a struct {
		UID  string `cypher:"uid"`
		Name string
		Age  int
	}
	require.NoError(t, rec.Decode("a", &a))
	assert.Equal(t, "u1", a.UID)
	assert.Equal(t, "Ann", a.Name)
	assert.Equal(t, 31, a.Age)
	assert.Error(t, rec.Decode("b", &a), "b was not returned")
}

func TestResultPropertyProjection(t *testing.T) {
	drv := &fakeDriver{rows: []dialect.Row{{"p.name": "Ann", "p.age": int64(31)}}}
	records, err := query.New(drv).Match(personType, predicate.GT(age, 18)).Result(context.Background(), "p.name", "p.age")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (p:Person) WHERE p.age > 18 RETURN p.name, p.age", drv.queries[0])
	require.Len(t, records, 1)
	assert.Equal(t, query.Record{"p.name": "Ann", "p.age": int64(31)}, records[0])

	tests := []struct {
		name  string
		term  string
		check func(error) bool
	}{
		{"unbound variable", "q.name", cypher.IsUnboundVariable},
		{"unknown property", "p.height", cypher.IsSchemaError},
		{"plain unbound", "q", cypher.IsUnboundVariable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.New(&fakeDriver{}).Match(personType).Compile(tt.term)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestResultWrite(t *testing.T) {
	drv := &fakeDriver{}
	records, err := query.New(drv).Match(personType, predicate.EQ(name, "x")).Delete("p").Result(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.False(t, drv.stmts[0].ReadOnly)
	assert.Empty(t, drv.stmts[0].Columns)
}

func TestResultDriverError(t *testing.T) {
	want := errors.New("connection refused")
	drv := &fakeDriver{err: want}
	_, err := query.New(drv).Match(personType).Result(context.Background())
	assert.Same(t, want, err, "driver errors are returned unwrapped")
}

func TestResultHydrateError(t *testing.T) {
	drv := &fakeDriver{rows: []dialect.Row{{"p": map[string]any{"age": "old"}}}}
	_, err := query.New(drv).Match(personType).Result(context.Background())
	require.Error(t, err)
	assert.True(t, cypher.IsTypeMismatch(err), "got %v", err)
}

func TestResultCompileError(t *testing.T) {
	drv := &fakeDriver{rows: []dialect.Row{{"p": map[string]any{"uid": "u1", "name": "Ann", "age": int64(31)}}}}
	b := query.New(drv).Match(personType)
	_, err := b.Result(context.Background(), "q")
	assert.True(t, cypher.IsUnboundVariable(err))
	assert.Empty(t, drv.queries)
	assert.Equal(t, query.StateMatching, b.State(), "a rejected Result leaves the builder usable")

	records, err := b.Result(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, query.StateExecuted, b.State())

	_, err = b.Result(context.Background(), "p")
	assert.True(t, cypher.IsAlreadyExecuted(err))
	assert.Len(t, drv.queries, 1)
}

func TestResultLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := query.New(&fakeDriver{}, query.WithLogger(logger)).
		Match(personType).Limit(3).
		Result(context.Background())
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "cypher: compiled statement")
	assert.Contains(t, out, "MATCH (p:Person) RETURN p LIMIT $limit")
}
