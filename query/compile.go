package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/graph"
	"github.com/syssam/cypher/predicate"
	"github.com/syssam/cypher/schema/mixin"
)

// Compile returns the statement of the builder without executing it. The
// statement projects the given variables or, when none is given, every
// bound variable that is not deleted.
//
// Clauses are emitted in a fixed order, whatever the order of the builder
// calls: the pattern with its filters, then CREATE, SET, DELETE, RETURN.
// Pattern components keep their binding order; consecutive Match
// components share one MATCH clause, and a MATCH following a MERGE is
// introduced by WITH *.
func (b *Builder) Compile(vars ...string) (*dialect.Statement, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.compile(b.state, vars)
}

func (b *Builder) compile(state State, vars []string) (*dialect.Statement, error) {
	if state == StateHasEdge {
		return nil, cypher.NewPatternStateError("Compile", state.String(), "the pending edge has no terminal node")
	}
	columns, err := b.projection(vars)
	if err != nil {
		return nil, err
	}
	if err := b.check(); err != nil {
		return nil, err
	}
	stmt := &dialect.Statement{
		Columns:  columns,
		ReadOnly: len(b.writes) == 0 && len(b.deletes) == 0,
		Params:   make(map[string]any),
	}
	if stmt.Labels, stmt.Store, err = b.labels(); err != nil {
		return nil, err
	}
	clauses, err := b.patternClauses(stmt)
	if err != nil {
		return nil, err
	}
	for _, w := range b.writes {
		if w.op != opCreate {
			continue
		}
		props, err := entityMap(w.inst, w.inst.Keys())
		if err != nil {
			return nil, err
		}
		stmt.Ops |= dialect.OpCreate
		clauses = append(clauses, fmt.Sprintf("CREATE (%s:%s %s)", predicate.Ident(w.name), predicate.Ident(w.inst.Type().Name), props))
	}
	for _, w := range b.writes {
		if w.op != opUpdate {
			continue
		}
		names := slices.DeleteFunc(w.inst.Keys(), func(name string) bool { return name == mixin.UIDField })
		if len(names) == 0 {
			continue
		}
		set, err := assignments(w.name, w.inst, names)
		if err != nil {
			return nil, err
		}
		stmt.Ops |= dialect.OpUpdate
		clauses = append(clauses, "SET "+set)
	}
	if len(b.deletes) > 0 {
		stmt.Ops |= dialect.OpDelete
		clauses = append(clauses, b.deleteClauses()...)
	}
	ret, err := b.returnClause(state, columns, stmt.Params)
	if err != nil {
		return nil, err
	}
	if ret != "" {
		clauses = append(clauses, ret)
	}
	if len(clauses) == 0 {
		return nil, cypher.NewPatternStateError("Compile", state.String(), "nothing to compile")
	}
	stmt.Text = strings.Join(clauses, " ")
	return stmt, nil
}

// projection returns the projected columns: bound variables, or var.prop
// terms naming a property of the type bound to var.
func (b *Builder) projection(vars []string) ([]string, error) {
	if len(vars) == 0 {
		return slices.DeleteFunc(slices.Clone(b.order), func(v string) bool {
			return slices.Contains(b.deletes, v)
		}), nil
	}
	for _, v := range vars {
		if _, ok := b.vars[v]; ok {
			continue
		}
		name, prop, ok := strings.Cut(v, ".")
		bnd, bound := b.vars[name]
		if !ok || !bound {
			return nil, cypher.NewUnboundVariableError("Result", v)
		}
		if _, ok := bnd.typ.Field(prop); !ok {
			return nil, cypher.NewSchemaError(bnd.typ.Name, prop, "unknown property")
		}
	}
	return slices.Clone(vars), nil
}

// column renders a projected column. Property terms that need quoting are
// aliased to the term itself.
func (b *Builder) column(c string) string {
	if _, ok := b.vars[c]; ok {
		return predicate.Ident(c)
	}
	name, prop, _ := strings.Cut(c, ".")
	s := predicate.Ident(name) + "." + predicate.Ident(prop)
	if s != c {
		s += " AS " + predicate.Ident(c)
	}
	return s
}

// check verifies that filters, deletions and ordering reference variables
// bound by the pattern, with properties of their types.
func (b *Builder) check() error {
	for _, f := range b.filters {
		if err := b.checkRef("Where", f.Var, f.Prop); err != nil {
			return err
		}
		if ref, ok := f.Value.(*predicate.Reference); ok {
			if err := b.checkRef("Where", ref.Var, ref.Prop); err != nil {
				return err
			}
		}
	}
	for _, v := range b.deletes {
		if bnd, ok := b.vars[v]; !ok || !bnd.pattern {
			return cypher.NewUnboundVariableError("Delete", v)
		}
	}
	for _, term := range b.orderBy {
		v, prop, _, _ := parseOrder(term)
		bnd, ok := b.vars[v]
		if !ok {
			return cypher.NewUnboundVariableError("OrderBy", v)
		}
		if _, ok := bnd.typ.Field(prop); prop != "" && !ok {
			return cypher.NewSchemaError(bnd.typ.Name, prop, "unknown property")
		}
	}
	return nil
}

func (b *Builder) checkRef(op, v string, p graph.Property) error {
	bnd, ok := b.vars[v]
	if !ok || !bnd.pattern {
		return cypher.NewUnboundVariableError(op, v)
	}
	if p.Type != bnd.typ {
		return cypher.NewSchemaError(bnd.typ.Name, p.Name(), fmt.Sprintf("variable %q is bound to %s, not %s", v, bnd.typ, p.Type))
	}
	return nil
}

// patternClauses renders the pattern components in binding order. Each
// filter follows the first clause after which all its variables are bound:
// as WHERE of a MATCH, or as WITH * WHERE after a MERGE.
func (b *Builder) patternClauses(stmt *dialect.Statement) ([]string, error) {
	var (
		clauses []string
		matches []string
		merged  bool
		bound   = make(map[string]bool)
		placed  = make([]bool, len(b.filters))
	)
	where := func(prefix string) error {
		var ready []*predicate.Comparison
		for i, f := range b.filters {
			if !placed[i] && bound[f.Var] && refBound(f, bound) {
				placed[i] = true
				ready = append(ready, f)
			}
		}
		if len(ready) == 0 {
			return nil
		}
		w, err := conjunction(ready)
		if err != nil {
			return err
		}
		clauses = append(clauses, prefix+w)
		return nil
	}
	flush := func() error {
		if len(matches) == 0 {
			return nil
		}
		if merged {
			clauses = append(clauses, "WITH *")
		}
		stmt.Ops |= dialect.OpMatch
		clauses = append(clauses, "MATCH "+strings.Join(matches, ", "))
		matches = nil
		return where("WHERE ")
	}
	bind := func(c component) {
		for _, idx := range c.elems {
			if e := b.elems[idx]; !e.ref {
				bound[e.name] = true
			}
		}
	}
	for _, c := range b.comps {
		if !c.merge {
			p, err := b.pattern(c)
			if err != nil {
				return nil, err
			}
			bind(c)
			matches = append(matches, p)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		bind(c)
		stmt.ReadOnly = false
		stmt.Ops |= dialect.OpMerge
		m, err := b.merge(c)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, m)
		merged = true
		if err := where("WITH * WHERE "); err != nil {
			return nil, err
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return clauses, nil
}

// refBound reports whether the variable a reference operand points to is
// bound.
func refBound(c *predicate.Comparison, bound map[string]bool) bool {
	ref, ok := c.Value.(*predicate.Reference)
	return !ok || bound[ref.Var]
}

// labels returns the sorted labels the statement touches and their common
// store.
func (b *Builder) labels() ([]string, string, error) {
	var types []*graph.Type
	for _, e := range b.elems {
		types = append(types, e.typ)
	}
	for _, w := range b.writes {
		types = append(types, w.inst.Type())
	}
	var (
		labels []string
		store  string
		owner  *graph.Type
	)
	for _, t := range types {
		if !slices.Contains(labels, t.Name) {
			labels = append(labels, t.Name)
		}
		switch {
		case owner == nil:
			store, owner = t.Store, t
		case t.Store != store:
			return nil, "", cypher.NewSchemaError(t.Name, "",
				fmt.Sprintf("store %q conflicts with store %q of %s", t.Store, store, owner))
		}
	}
	slices.Sort(labels)
	return labels, store, nil
}

// pattern renders a component: (a:Person)-[k:KNOWS]->(b:Person).
func (b *Builder) pattern(c component) (string, error) {
	var sb strings.Builder
	for _, idx := range c.elems {
		e := b.elems[idx]
		s, err := entity(e)
		if err != nil {
			return "", err
		}
		if !e.typ.IsEdge() {
			sb.WriteString("(" + s + ")")
			continue
		}
		if e.rev {
			sb.WriteString("<-[" + s + "]-")
		} else {
			sb.WriteString("-[" + s + "]->")
		}
	}
	return sb.String(), nil
}

// merge renders a MERGE clause with the ON CREATE SET assignments of its
// merged instances.
func (b *Builder) merge(c component) (string, error) {
	p, err := b.pattern(c)
	if err != nil {
		return "", err
	}
	var sets []string
	for _, idx := range c.elems {
		e := b.elems[idx]
		if len(e.set) == 0 {
			continue
		}
		s, err := assignments(e.name, e.inst, e.set)
		if err != nil {
			return "", err
		}
		sets = append(sets, s)
	}
	if len(sets) == 0 {
		return "MERGE " + p, nil
	}
	return "MERGE " + p + " ON CREATE SET " + strings.Join(sets, ", "), nil
}

// entity renders the inside of a node or edge pattern.
func entity(e element) (string, error) {
	s := predicate.Ident(e.name)
	if e.ref {
		return s, nil
	}
	s += ":" + predicate.Ident(e.typ.Name)
	if len(e.props) == 0 {
		return s, nil
	}
	items := make([]string, len(e.props))
	for i, c := range e.props {
		v, err := c.Operand()
		if err != nil {
			return "", err
		}
		items[i] = predicate.Ident(c.Prop.Name()) + ": " + v
	}
	return s + " {" + strings.Join(items, ", ") + "}", nil
}

// entityMap renders the named properties of an instance as a map literal.
func entityMap(inst *graph.Instance, names []string) (string, error) {
	items := make([]string, len(names))
	for i, name := range names {
		v, err := wire(inst, name)
		if err != nil {
			return "", err
		}
		items[i] = predicate.Ident(name) + ": " + v
	}
	return "{" + strings.Join(items, ", ") + "}", nil
}

// assignments renders v.name = value for the named properties.
func assignments(variable string, inst *graph.Instance, names []string) (string, error) {
	items := make([]string, len(names))
	for i, name := range names {
		v, err := wire(inst, name)
		if err != nil {
			return "", err
		}
		items[i] = predicate.Ident(variable) + "." + predicate.Ident(name) + " = " + v
	}
	return strings.Join(items, ", "), nil
}

func wire(inst *graph.Instance, name string) (string, error) {
	v, _ := inst.Get(name)
	return inst.Type().Prop(name).Wire(v)
}

func conjunction(cs []*predicate.Comparison) (string, error) {
	parts := make([]string, len(cs))
	for i, c := range cs {
		s, err := c.Render()
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, " AND "), nil
}

// deleteClauses renders one clause per deleted variable: edges first, then
// nodes detached from their edges.
func (b *Builder) deleteClauses() []string {
	var edges, nodes []string
	seen := make(map[string]bool)
	for _, v := range b.deletes {
		if seen[v] {
			continue
		}
		seen[v] = true
		if b.vars[v].typ.IsEdge() {
			edges = append(edges, "DELETE "+predicate.Ident(v))
		} else {
			nodes = append(nodes, "DETACH DELETE "+predicate.Ident(v))
		}
	}
	return append(edges, nodes...)
}

// returnClause renders the projection and its modifiers. Skip and limit
// are passed as parameters.
func (b *Builder) returnClause(state State, columns []string, params map[string]any) (string, error) {
	if len(columns) == 0 {
		if b.distinct || b.skip != nil || b.limit != nil || len(b.orderBy) > 0 {
			return "", cypher.NewPatternStateError("Compile", state.String(), "result modifiers without variables to return")
		}
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString("RETURN ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(b.column(c))
	}
	if len(b.orderBy) > 0 {
		terms := make([]string, len(b.orderBy))
		for i, term := range b.orderBy {
			v, prop, dir, _ := parseOrder(term)
			terms[i] = predicate.Ident(v)
			if prop != "" {
				terms[i] += "." + predicate.Ident(prop)
			}
			if dir != "" {
				terms[i] += " " + dir
			}
		}
		sb.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if b.skip != nil {
		sb.WriteString(" SKIP $skip")
		params["skip"] = *b.skip
	}
	if b.limit != nil {
		sb.WriteString(" LIMIT $limit")
		params["limit"] = *b.limit
	}
	return sb.String(), nil
}
