package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/graph"
	"github.com/syssam/cypher/predicate"
	"github.com/syssam/cypher/query"
)

func TestCompile(t *testing.T) {
	ann := person("u1", "Ann", 31)
	bob := person("u2", "Bob", 40)
	paris := cityType.MustNew(graph.Values{"uid": "c1", "name": "Paris", "country": "FR", "population": 2100000})
	knows := knowsType.MustNew(graph.Values{"uid": "k1", "since": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})

	tests := []struct {
		name  string
		build func(*query.Builder) *query.Builder
		vars  []string
		want  string
	}{
		{
			name:  "match with inline predicate",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType, predicate.GT(age, 18)) },
			want:  "MATCH (p:Person) WHERE p.age > 18 RETURN p",
		},
		{
			name: "explicit variable and where",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "x")).Where(predicate.HasPrefix(name, "A").On("x"), predicate.NotNull(age).On("x"))
			},
			want: `MATCH (x:Person) WHERE x.name STARTS WITH "A" AND x.age IS NOT NULL RETURN x`,
		},
		{
			name:  "in list",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType, predicate.In(name, "a", "b")) },
			want:  `MATCH (p:Person) WHERE p.name IN ["a", "b"] RETURN p`,
		},
		{
			name:  "quoted variable",
			build: func(b *query.Builder) *query.Builder { return b.Match(query.As(personType, "my var")) },
			want:  "MATCH (`my var`:Person) RETURN `my var`",
		},
		{
			name:  "create",
			build: func(b *query.Builder) *query.Builder { return b.Create(person("u1", "A", 20)) },
			want:  `CREATE (p:Person {uid: "u1", name: "A", age: 20}) RETURN p`,
		},
		{
			name:  "create many",
			build: func(b *query.Builder) *query.Builder { return b.Create(ann, bob) },
			want:  `CREATE (p:Person {uid: "u1", name: "Ann", age: 31}) CREATE (p1:Person {uid: "u2", name: "Bob", age: 40}) RETURN p, p1`,
		},
		{
			name:  "update matched instance",
			build: func(b *query.Builder) *query.Builder { return b.Match(ann).Update(ann) },
			want:  `MATCH (p:Person) WHERE p.uid = "u1" SET p.name = "Ann", p.age = 31 RETURN p`,
		},
		{
			name: "update named variable",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "x"), predicate.EQ(name, "Ann")).Update(query.As(ann, "x"))
			},
			want: `MATCH (x:Person) WHERE x.name = "Ann" SET x.name = "Ann", x.age = 31 RETURN x`,
		},
		{
			name: "create through update",
			build: func(b *query.Builder) *query.Builder {
				return b.Update(query.As(ann, "x"))
			},
			want: `CREATE (x:Person {uid: "u1", name: "Ann", age: 31}) RETURN x`,
		},
		{
			name: "outgoing edge",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "a")).ConnectedThrough(knowsType).To(query.As(personType, "b"))
			},
			want: "MATCH (a:Person)-[k:KNOWS]->(b:Person) RETURN a, k, b",
		},
		{
			name: "incoming edge",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "a")).ConnectedThrough(knowsType).By(query.As(personType, "b"))
			},
			want: "MATCH (a:Person)<-[k:KNOWS]-(b:Person) RETURN a, k, b",
		},
		{
			name: "reused variable closes a cycle",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "a")).
					ConnectedThrough(knowsType).To(personType).
					ConnectedThrough(knowsType).To(query.As(personType, "a"))
			},
			want: "MATCH (a:Person)-[k:KNOWS]->(p:Person)-[k1:KNOWS]->(a) RETURN a, k, p, k1",
		},
		{
			name: "reference predicate",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "a")).Match(query.As(personType, "b")).
					Where(predicate.LT(age, predicate.Ref("b", age)).On("a"))
			},
			vars: []string{"a"},
			want: "MATCH (a:Person), (b:Person) WHERE a.age < b.age RETURN a",
		},
		{
			name:  "merge on equality",
			build: func(b *query.Builder) *query.Builder { return b.MatchOrCreate(personType, predicate.EQ(name, "Ann")) },
			want:  `MERGE (p:Person {name: "Ann"}) RETURN p`,
		},
		{
			name:  "merge instance on unique tuple",
			build: func(b *query.Builder) *query.Builder { return b.MatchOrCreate(paris) },
			want:  `MERGE (c:City {name: "Paris", country: "FR"}) ON CREATE SET c.uid = "c1", c.population = 2100000 RETURN c`,
		},
		{
			name: "merge instance on uid",
			build: func(b *query.Builder) *query.Builder {
				return b.MatchOrCreate(cityType.MustNew(graph.Values{"uid": "c2", "name": "Nowhere", "population": 0}))
			},
			want: `MERGE (c:City {uid: "c2"}) ON CREATE SET c.name = "Nowhere", c.country = null, c.population = 0 RETURN c`,
		},
		{
			name: "merge edge between matched nodes",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(ann).Match(bob).MatchOrCreate(ann).ConnectedThrough(knows).To(bob)
			},
			want: `MATCH (p:Person), (p1:Person) WHERE p.uid = "u1" AND p1.uid = "u2" ` +
				`MERGE (p)-[k:KNOWS {uid: "k1"}]->(p1) ON CREATE SET k.since = 738886 RETURN p, p1, k`,
		},
		{
			name: "filter on merged variable",
			build: func(b *query.Builder) *query.Builder {
				return b.MatchOrCreate(personType, predicate.EQ(name, "Ann")).Where(predicate.GT(age, 18).On("p"))
			},
			want: `MERGE (p:Person {name: "Ann"}) WITH * WHERE p.age > 18 RETURN p`,
		},
		{
			name: "match after merge reuses the merged variable",
			build: func(b *query.Builder) *query.Builder {
				return b.MatchOrCreate(query.As(personType, "a"), predicate.EQ(name, "Ann")).
					Match(query.As(personType, "a")).ConnectedThrough(knowsType).To(query.As(personType, "b")).
					Where(predicate.GT(age, 18).On("b"))
			},
			want: `MERGE (a:Person {name: "Ann"}) WITH * MATCH (a)-[k:KNOWS]->(b:Person) WHERE b.age > 18 RETURN a, k, b`,
		},
		{
			name: "filters follow the clause binding their variables",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "a"), predicate.EQ(name, "Ann")).
					MatchOrCreate(query.As(cityType, "c"), predicate.EQ(cityType.Prop("name"), "Paris")).
					Match(query.As(personType, "b")).
					Where(predicate.LT(age, predicate.Ref("b", age)).On("a"), predicate.NotNull(cityType.Prop("country")).On("c"))
			},
			vars: []string{"a"},
			want: `MATCH (a:Person) WHERE a.name = "Ann" MERGE (c:City {name: "Paris"}) WITH * WHERE c.country IS NOT NULL ` +
				`WITH * MATCH (b:Person) WHERE a.age < b.age RETURN a`,
		},
		{
			name:  "property projection",
			build: func(b *query.Builder) *query.Builder { return b.Match(personType) },
			vars:  []string{"p", "p.name"},
			want:  "MATCH (p:Person) RETURN p, p.name",
		},
		{
			name:  "quoted property projection",
			build: func(b *query.Builder) *query.Builder { return b.Match(query.As(personType, "my var")) },
			vars:  []string{"my var.name"},
			want:  "MATCH (`my var`:Person) RETURN `my var`.name AS `my var.name`",
		},
		{
			name: "delete",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(query.As(personType, "a")).ConnectedThrough(query.As(knowsType, "r")).To(query.As(personType, "b")).
					Delete("a", "r", "a")
			},
			want: "MATCH (a:Person)-[r:KNOWS]->(b:Person) DELETE r DETACH DELETE a RETURN b",
		},
		{
			name: "delete everything",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(personType, predicate.EQ(name, "x")).Delete("p")
			},
			want: `MATCH (p:Person) WHERE p.name = "x" DETACH DELETE p`,
		},
		{
			name: "result modifiers",
			build: func(b *query.Builder) *query.Builder {
				return b.Match(personType).Distinct().OrderBy("p.age desc", "p.name").Skip(10).Limit(5)
			},
			want: "MATCH (p:Person) RETURN DISTINCT p ORDER BY p.age DESC, p.name SKIP $skip LIMIT $limit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.build(query.New(&fakeDriver{}))
			require.NoError(t, b.Err())
			assert.Equal(t, tt.want, compile(t, b, tt.vars...))
		})
	}
}

func TestCompileStatement(t *testing.T) {
	stmt, err := query.New(&fakeDriver{}).
		Match(query.As(personType, "a")).ConnectedThrough(knowsType).To(personType).
		Skip(10).Limit(5).
		Compile("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, stmt.Columns)
	assert.Equal(t, []string{"KNOWS", "Person"}, stmt.Labels)
	assert.True(t, stmt.ReadOnly)
	assert.Equal(t, dialect.OpMatch, stmt.Ops)
	assert.Empty(t, stmt.Store)
	assert.Equal(t, map[string]any{"skip": int64(10), "limit": int64(5)}, stmt.Params)

	stmt, err = query.New(&fakeDriver{}).MatchOrCreate(personType, predicate.EQ(name, "Ann")).Compile()
	require.NoError(t, err)
	assert.False(t, stmt.ReadOnly, "MERGE writes")
	assert.Equal(t, dialect.OpMerge, stmt.Ops)
	assert.Empty(t, stmt.Params)

	stmt, err = query.New(&fakeDriver{}).Match(tagType).Compile()
	require.NoError(t, err)
	assert.Equal(t, "tags", stmt.Store)
	assert.Equal(t, "MATCH (t:Tag) RETURN t", stmt.Text)

	ann := person("u1", "Ann", 31)
	stmt, err = query.New(&fakeDriver{}).
		Match(ann).Update(ann).
		Match(query.As(personType, "x")).Delete("x").
		Create(person("u2", "Bob", 40)).
		Compile()
	require.NoError(t, err)
	assert.Equal(t, dialect.OpMatch|dialect.OpCreate|dialect.OpUpdate|dialect.OpDelete, stmt.Ops)
	assert.Equal(t, "MATCH|CREATE|UPDATE|DELETE", stmt.Ops.String())
}

func TestCompileClauseOrder(t *testing.T) {
	lt := predicate.LT(age, predicate.Ref("q", age)).On("p")
	b1 := query.New(&fakeDriver{}).
		Match(query.As(personType, "p")).
		Match(query.As(personType, "q")).
		Where(lt).
		Delete("q").
		Limit(1)
	b2 := query.New(&fakeDriver{}).
		Match(query.As(personType, "p")).
		Limit(1).
		Delete("q").
		Match(query.As(personType, "q")).
		Where(lt)
	want := "MATCH (p:Person), (q:Person) WHERE p.age < q.age DETACH DELETE q RETURN p LIMIT $limit"
	assert.Equal(t, want, compile(t, b1))
	assert.Equal(t, want, compile(t, b2))
}

func TestCompileErrors(t *testing.T) {
	_, err := query.New(&fakeDriver{}).Compile()
	require.Error(t, err)
	assert.True(t, cypher.IsPatternState(err))
	assert.ErrorContains(t, err, "nothing to compile")

	_, err = query.New(&fakeDriver{}).Match(personType).ConnectedThrough(knowsType).Compile()
	require.Error(t, err)
	assert.True(t, cypher.IsPatternState(err), "a pending edge cannot compile")

	_, err = query.New(&fakeDriver{}).Match(personType).Delete("p").Limit(1).Compile()
	require.Error(t, err)
	assert.True(t, cypher.IsPatternState(err), "modifiers need a projection")

	_, err = query.New(&fakeDriver{}).Match(personType, predicate.EQ(age, "old")).Compile()
	require.Error(t, err)
	assert.True(t, cypher.IsTypeMismatch(err), "got %v", err)
}

func TestCompileIsRepeatable(t *testing.T) {
	b := query.New(&fakeDriver{}).Match(personType, predicate.GT(age, 18))
	first := compile(t, b)
	assert.Equal(t, first, compile(t, b))
	assert.Equal(t, query.StateMatching, b.State(), "Compile does not execute")
}
