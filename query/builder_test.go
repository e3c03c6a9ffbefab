package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/graph"
	"github.com/syssam/cypher/predicate"
	"github.com/syssam/cypher/query"
	"github.com/syssam/cypher/schema/field"
	"github.com/syssam/cypher/schema/index"
)

type Person struct{ cypher.Node }

func (Person) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("name"),
		field.Int("age"),
	}
}

func (Person) Validators() []cypher.Validator {
	return []cypher.Validator{
		func(v map[string]any) error {
			if v["name"] == "root" && v["age"].(int64) < 18 {
				return errors.New("root must be an adult")
			}
			return nil
		},
	}
}

type Knows struct{ cypher.Edge }

func (Knows) Fields() []cypher.Field {
	return []cypher.Field{field.Date("since").Optional()}
}

func (Knows) Config() cypher.Config { return cypher.Config{Label: "KNOWS"} }

type City struct{ cypher.Node }

func (City) Fields() []cypher.Field {
	return []cypher.Field{
		field.String("name"),
		field.String("country").Optional(),
		field.Int("population").NonNegative(),
	}
}

func (City) Indexes() []cypher.Index {
	return []cypher.Index{index.Fields("name", "country").Unique()}
}

type Tag struct{ cypher.Node }

func (Tag) Fields() []cypher.Field { return []cypher.Field{field.String("name")} }

func (Tag) Config() cypher.Config { return cypher.Config{Store: "tags"} }

type Animal struct{ cypher.Node }

func (Animal) Config() cypher.Config { return cypher.Config{Abstract: true} }

var (
	personType = graph.MustLoad(Person{})
	knowsType  = graph.MustLoad(Knows{})
	cityType   = graph.MustLoad(City{})
	tagType    = graph.MustLoad(Tag{})
	animalType = graph.MustLoad(Animal{})

	name = personType.Prop("name")
	age  = personType.Prop("age")
)

// fakeDriver records every execution and returns canned rows.
type fakeDriver struct {
	rows    []dialect.Row
	err     error
	queries []string
	params  []map[string]any
	stmts   []*dialect.Statement
}

func (d *fakeDriver) Execute(ctx context.Context, query string, params map[string]any) ([]dialect.Row, error) {
	d.queries = append(d.queries, query)
	d.params = append(d.params, params)
	s, _ := dialect.FromContext(ctx)
	d.stmts = append(d.stmts, s)
	if d.err != nil {
		return nil, d.err
	}
	return d.rows, nil
}

func person(uid, n string, a int64) *graph.Instance {
	return personType.MustNew(graph.Values{"uid": uid, "name": n, "age": a})
}

func compile(t *testing.T, b *query.Builder, vars ...string) string {
	t.Helper()
	stmt, err := b.Compile(vars...)
	require.NoError(t, err)
	return stmt.Text
}

func TestState(t *testing.T) {
	b := query.New(&fakeDriver{})
	assert.Equal(t, query.StateEmpty, b.State())
	b.Match(personType)
	assert.Equal(t, query.StateMatching, b.State())
	b.ConnectedThrough(knowsType)
	assert.Equal(t, query.StateHasEdge, b.State())
	b.To(personType)
	assert.Equal(t, query.StateExpectEdge, b.State())
	b.ConnectedThrough(knowsType).By(personType)
	assert.Equal(t, query.StateExpectEdge, b.State())
	b.Match(personType)
	assert.Equal(t, query.StateMatching, b.State())
	require.NoError(t, b.Err())

	_, err := b.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, query.StateExecuted, b.State())
	assert.Equal(t, "EXPECT_EDGE", query.StateExpectEdge.String())
	assert.Equal(t, "State(9)", query.State(9).String())
}

func TestPatternStateErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(*query.Builder) *query.Builder
		state query.State
	}{
		{
			name:  "consecutive edges",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).ConnectedThrough(knowsType).ConnectedThrough(knowsType) },
			state: query.StateHasEdge,
		},
		{
			name:  "edge first",
			build: func(b *query.Builder) *query.Builder { return b.ConnectedThrough(knowsType) },
			state: query.StateEmpty,
		},
		{
			name:  "to without edge",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).To(personType) },
			state: query.StateMatching,
		},
		{
			name:  "match with pending edge",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).ConnectedThrough(knowsType).Match(personType) },
			state: query.StateHasEdge,
		},
		{
			name:  "where on empty",
			build: func(b *query.Builder) *query.Builder { return b.Where(predicate.GT(age, 1).On("p")) },
			state: query.StateEmpty,
		},
		{
			name:  "where without variable",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).Where(predicate.GT(age, 1)) },
			state: query.StateMatching,
		},
		{
			name:  "edge as node",
			build: func(b *query.Builder) *query.Builder { return b.Match(knowsType) },
			state: query.StateEmpty,
		},
		{
			name:  "node as edge",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).ConnectedThrough(personType) },
			state: query.StateMatching,
		},
		{
			name:  "merge on inequality",
			build: func(b *query.Builder) *query.Builder { return b.MatchOrCreate(personType, predicate.GT(age, 1)) },
			state: query.StateEmpty,
		},
		{
			name:  "rebinding to another type",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "x")).Match(query.As(tagType, "x"))
			},
			state: query.StateMatching,
		},
		{
			name: "creating a bare edge",
			build: func(b *query.Builder) *query.Builder {
				return b.Create(knowsType.MustNew(nil))
			},
			state: query.StateEmpty,
		},
		{
			name: "matching a created variable",
			build: func(b *query.Builder) *query.Builder {
				return b.Create(query.As(person("u1", "Ann", 30), "a")).Match(query.As(personType, "a"))
			},
			state: query.StateEmpty,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeDriver{}
			b := tt.build(query.New(drv))
			err := b.Err()
			require.Error(t, err)
			assert.True(t, cypher.IsPatternState(err), "got %v", err)
			assert.Equal(t, tt.state, b.State(), "a rejected call leaves the state unchanged")

			// Later calls are no-ops reporting the first error.
			b.Match(personType).Limit(1)
			assert.Same(t, err, b.Err())
			_, cerr := b.Compile()
			assert.Same(t, err, cerr)
			_, rerr := b.Result(context.Background())
			assert.Same(t, err, rerr)
			assert.Empty(t, drv.queries)
		})
	}
}

func TestResultTwice(t *testing.T) {
	drv := &fakeDriver{}
	b := query.New(drv).Match(personType)
	_, err := b.Result(context.Background())
	require.NoError(t, err)

	_, err = b.Result(context.Background())
	require.Error(t, err)
	assert.True(t, cypher.IsAlreadyExecuted(err))
	assert.ErrorIs(t, err, cypher.ErrAlreadyExecuted)
	assert.Len(t, drv.queries, 1)

	b.Match(personType)
	assert.True(t, cypher.IsPatternState(b.Err()), "the builder is terminal after Result")
}

func TestUnboundVariables(t *testing.T) {
	tests := []struct {
		name  string
		build func(*query.Builder) *query.Builder
		vars  []string
	}{
		{
			name:  "delete",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).Delete("q") },
		},
		{
			name:  "where",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).Where(predicate.GT(age, 1).On("q")) },
		},
		{
			name: "reference",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(personType).Where(predicate.GT(age, predicate.Ref("q", age)).On("p"))
			},
		},
		{
			name:  "result",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType) },
			vars:  []string{"p", "q"},
		},
		{
			name:  "order",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).OrderBy("q.age") },
		},
		{
			name: "delete created",
			build: func(b *query.Builder) *query.Builder {
				return b.Create(query.As(person("u1", "Ann", 30), "q")).Delete("q")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build(query.New(&fakeDriver{}))
			require.NoError(t, b.Err(), "variables are checked when compiling")
			_, err := b.Compile(tt.vars...)
			require.Error(t, err)
			assert.True(t, cypher.IsUnboundVariable(err), "got %v", err)
			var uerr *cypher.UnboundVariableError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, "q", uerr.Variable)
		})
	}
}

func TestSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(*query.Builder) *query.Builder
	}{
		{
			name:  "abstract",
			build: func(b *query.Builder) *query.Builder { return b.Match(animalType) },
		},
		{
			name:  "foreign inline predicate",
			build: func(b *query.Builder) *query.Builder { return b.Match(tagType, predicate.EQ(name, "x")) },
		},
		{
			name:  "unknown property",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType, predicate.EQ(personType.Prop("nope"), 1)) },
		},
		{
			name: "store conflict",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(personType).Match(tagType)
			},
		},
		{
			name: "property of another variable",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(personType).Match(cityType).Where(predicate.EQ(name, "x").On("c"))
			},
		},
		{
			name:  "unknown order property",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType).OrderBy("p.nope") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build(query.New(&fakeDriver{}))
			err := b.Err()
			if err == nil {
				_, err = b.Compile()
			}
			require.Error(t, err)
			assert.True(t, cypher.IsSchemaError(err), "got %v", err)
		})
	}
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		build func(*query.Builder) *query.Builder
		msg   string
	}{
		{"unit", func(b *query.Builder) *query.Builder { return b.Match("Person") }, "unsupported unit string"},
		{"nil type", func(b *query.Builder) *query.Builder { return b.Match((*graph.Type)(nil)) }, "nil unit"},
		{"empty name", func(b *query.Builder) *query.Builder { return b.Match(query.As(personType, "")) }, "empty variable name"},
		{"nil predicate", func(b *query.Builder) *query.Builder { return b.Match(personType, nil) }, "nil predicate"},
		{"create type", func(b *query.Builder) *query.Builder { return b.Create(personType) }, "expects entity instances"},
		{"negative limit", func(b *query.Builder) *query.Builder { return b.Limit(-1) }, "negative value"},
		{"order direction", func(b *query.Builder) *query.Builder { return b.OrderBy("p.age SIDEWAYS") }, "invalid direction"},
		{"order term", func(b *query.Builder) *query.Builder { return b.OrderBy("") }, "invalid term"},
		{"delete empty", func(b *query.Builder) *query.Builder { return b.Delete("") }, "empty variable name"},
		{"text operator", func(b *query.Builder) *query.Builder { return b.Match(personType, predicate.Contains(age, "1")) }, "requires a String property"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build(query.New(&fakeDriver{}))
			assert.ErrorContains(t, b.Err(), tt.msg)
		})
	}
}

func TestScheduleValidation(t *testing.T) {
	b := query.New(&fakeDriver{}).Create(person("u1", "root", 3))
	require.Error(t, b.Err())
	assert.True(t, cypher.IsRuleViolation(b.Err()))

	ann := person("u1", "Ann", 30)
	b = query.New(&fakeDriver{}).Create(ann, ann)
	assert.True(t, cypher.IsPatternState(b.Err()), "an instance is created once")

	b = query.New(&fakeDriver{}).Create(ann).Create(ann)
	assert.True(t, cypher.IsPatternState(b.Err()))

	b = query.New(&fakeDriver{}).Match(query.As(personType, "p")).Update(query.As(knowsType.MustNew(nil), "p"))
	assert.True(t, cypher.IsPatternState(b.Err()), "update of a variable bound to another type")
}

func TestDateInlinePredicate(t *testing.T) {
	since := knowsType.Prop("since")
	day := time.Date(2024, 1, 1, 15, 4, 5, 0, time.UTC)
	b := query.New(&fakeDriver{}).
		Match(query.As(personType, "a")).
		ConnectedThrough(knowsType, predicate.GTE(since, day)).
		To(query.As(personType, "b"))
	assert.Equal(t, "MATCH (a:Person)-[k:KNOWS]->(b:Person) WHERE k.since >= 738886 RETURN a, k, b", compile(t, b))
}
