package query

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/syssam/cypher"
	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/graph"
	"github.com/syssam/cypher/predicate"
	"github.com/syssam/cypher/schema/mixin"
)

// Named binds a unit to an explicit variable name.
type Named struct {
	Unit any
	Name string
}

// As returns the unit bound to the given variable name. The unit is a
// *graph.Type, to match any entity of the type, or a *graph.Instance.
//
//	query.New(drv).Match(query.As(PersonType, "a"))
func As(unit any, name string) Named {
	return Named{Unit: unit, Name: name}
}

type (
	// element is one node or edge of the pattern arena.
	element struct {
		typ  *graph.Type
		inst *graph.Instance
		name string
		ref  bool // reuses a variable bound earlier
		rev  bool // edge arrow points to the preceding node
		// props is the property map of a merged element, set its
		// ON CREATE SET properties.
		props []*predicate.Comparison
		set   []string
	}

	// component is one independently bound path of the pattern.
	component struct {
		merge bool
		elems []int
	}

	// binding describes what a variable denotes.
	binding struct {
		typ     *graph.Type
		inst    *graph.Instance
		pattern bool // bound by a pattern, not by a create
		merge   bool // first bound by a MERGE component
	}

	writeOp uint8

	write struct {
		op   writeOp
		name string
		inst *graph.Instance
	}
)

const (
	opCreate writeOp = iota
	opUpdate
)

// Builder assembles a graph pattern, predicates and write operations, and
// compiles them to one statement executed through a dialect.Driver.
//
// A Builder is single-use and not safe for concurrent use. Its methods
// return the builder for chaining; the first rejected call records its
// error, leaves the builder unchanged and turns every later call into a
// no-op. The error is reported by Err, Compile and Result.
type Builder struct {
	driver dialect.Driver
	logger *slog.Logger
	state  State
	err    error

	elems    []element
	comps    []component
	vars     map[string]binding
	order    []string // variables in binding order
	instVars map[*graph.Instance]string
	filters  []*predicate.Comparison
	writes   []write
	deletes  []string

	distinct bool
	skip     *int64
	limit    *int64
	orderBy  []string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger compiled statements are logged to at debug
// level. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns a Builder executing through the given driver.
func New(drv dialect.Driver, opts ...Option) *Builder {
	b := &Builder{
		driver:   drv,
		logger:   slog.Default(),
		vars:     make(map[string]binding),
		instVars: make(map[*graph.Instance]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state of the builder.
func (b *Builder) State() State { return b.state }

// Err returns the error recorded by the first rejected call, if any.
func (b *Builder) Err() error { return b.err }

// Match starts a new pattern component with the given node. Inline
// predicates without a variable bind to the node.
//
//	b.Match(PersonType, predicate.GT(PersonType.Prop("age"), 18))
func (b *Builder) Match(node any, where ...*predicate.Comparison) *Builder {
	return b.start("Match", node, where, false)
}

// MatchOrCreate starts a new pattern component that is created when it does
// not exist. Inline predicates must be equalities; they form the property
// map the node is merged on. An instance merges on its first complete
// unique-together tuple, or else on its uid, and sets its other properties
// when created.
func (b *Builder) MatchOrCreate(node any, where ...*predicate.Comparison) *Builder {
	return b.start("MatchOrCreate", node, where, true)
}

func (b *Builder) start(op string, unit any, where []*predicate.Comparison, merge bool) *Builder {
	next, ok := b.enter(op, actMatch)
	if !ok {
		return b
	}
	e, filters, err := b.element(op, unit, cypher.KindNode, where, merge)
	if err != nil {
		b.err = err
		return b
	}
	b.comps = append(b.comps, component{merge: merge})
	b.push(e, filters, merge)
	b.state = next
	return b
}

// ConnectedThrough binds an edge leaving the last bound node. Its terminal
// node is bound by the following To or By call.
func (b *Builder) ConnectedThrough(edge any, where ...*predicate.Comparison) *Builder {
	next, ok := b.enter("ConnectedThrough", actEdge)
	if !ok {
		return b
	}
	merge := b.comps[len(b.comps)-1].merge
	e, filters, err := b.element("ConnectedThrough", edge, cypher.KindEdge, where, merge)
	if err != nil {
		b.err = err
		return b
	}
	b.push(e, filters, merge)
	b.state = next
	return b
}

// To binds the terminal node of the pending edge: (a)-[r]->(node).
func (b *Builder) To(node any, where ...*predicate.Comparison) *Builder {
	return b.end("To", node, where, false)
}

// By binds the terminal node of the pending edge, pointing the edge at the
// preceding node: (a)<-[r]-(node).
func (b *Builder) By(node any, where ...*predicate.Comparison) *Builder {
	return b.end("By", node, where, true)
}

func (b *Builder) end(op string, unit any, where []*predicate.Comparison, rev bool) *Builder {
	next, ok := b.enter(op, actEnd)
	if !ok {
		return b
	}
	merge := b.comps[len(b.comps)-1].merge
	e, filters, err := b.element(op, unit, cypher.KindNode, where, merge)
	if err != nil {
		b.err = err
		return b
	}
	b.elems[len(b.elems)-1].rev = rev
	b.push(e, filters, merge)
	b.state = next
	return b
}

// Where adds predicates to the filter of the query. Every predicate must
// be bound to a variable with On, and its variables must be bound by the
// pattern when the builder is compiled.
//
//	b.Where(predicate.LT(PersonType.Prop("age"), predicate.Ref("b", PersonType.Prop("age"))).On("a"))
func (b *Builder) Where(conds ...*predicate.Comparison) *Builder {
	next, ok := b.enter("Where", actWhere)
	if !ok {
		return b
	}
	for _, c := range conds {
		if c == nil {
			b.err = fmt.Errorf("cypher: Where: nil predicate")
			return b
		}
		if c.Var == "" {
			b.err = cypher.NewPatternStateError("Where", b.state.String(),
				fmt.Sprintf("predicate on %s is not bound to a variable, use On", c.Prop))
			return b
		}
		if err := c.Err(); err != nil {
			b.err = err
			return b
		}
	}
	b.filters = append(b.filters, conds...)
	b.state = next
	return b
}

// Create schedules instances for writing. A bare instance is created under
// a fresh variable, unless the pattern already binds it, in which case its
// properties are updated. An instance wrapped with As is an update when
// the name is bound by the pattern, and a create bound to that name
// otherwise. Edges are created through a MatchOrCreate pattern.
func (b *Builder) Create(models ...any) *Builder {
	return b.schedule("Create", models)
}

// Update schedules instances for writing, with the same rules as Create.
// The uid of an entity is never rewritten.
//
//	b.Match(query.As(PersonType, "p"), predicate.EQ(PersonType.Prop("name"), "Ann")).
//	    Update(query.As(ann, "p"))
func (b *Builder) Update(models ...any) *Builder {
	return b.schedule("Update", models)
}

func (b *Builder) schedule(op string, models []any) *Builder {
	next, ok := b.enter(op, actSchedule)
	if !ok {
		return b
	}
	var (
		writes  []write
		pending = make(map[string]binding)
		order   []string
	)
	for _, m := range models {
		w, err := b.plan(op, m, pending)
		if err != nil {
			b.err = err
			return b
		}
		if w.op == opCreate {
			pending[w.name] = binding{typ: w.inst.Type(), inst: w.inst}
			order = append(order, w.name)
		}
		writes = append(writes, w)
	}
	for _, name := range order {
		b.vars[name] = pending[name]
		b.instVars[pending[name].inst] = name
		b.order = append(b.order, name)
	}
	b.writes = append(b.writes, writes...)
	b.state = next
	return b
}

// plan resolves one argument of Create or Update.
func (b *Builder) plan(op string, m any, pending map[string]binding) (write, error) {
	var name string
	if n, ok := m.(Named); ok {
		if n.Name == "" {
			return write{}, fmt.Errorf("cypher: %s: empty variable name", op)
		}
		m, name = n.Unit, n.Name
	}
	inst, ok := m.(*graph.Instance)
	if !ok || inst == nil {
		return write{}, fmt.Errorf("cypher: %s expects entity instances, got %T", op, m)
	}
	t := inst.Type()
	if err := t.Check(inst); err != nil {
		return write{}, err
	}
	lookup := func(name string) (binding, bool) {
		if bnd, ok := pending[name]; ok {
			return bnd, true
		}
		bnd, ok := b.vars[name]
		return bnd, ok
	}
	if name == "" {
		if v, ok := b.instVars[inst]; ok {
			name = v
		} else if slices.ContainsFunc(slices.Collect(maps.Values(pending)), func(bnd binding) bool { return bnd.inst == inst }) {
			return write{}, cypher.NewPatternStateError(op, b.state.String(), fmt.Sprintf("%s is scheduled twice", inst))
		}
	}
	if name == "" {
		if t.IsEdge() {
			return write{}, cypher.NewPatternStateError(op, b.state.String(),
				fmt.Sprintf("edge %s needs a pattern, bind it with MatchOrCreate", t))
		}
		return write{op: opCreate, name: b.autoName(t, pending), inst: inst}, nil
	}
	bnd, ok := lookup(name)
	switch {
	case !ok && t.IsEdge():
		return write{}, cypher.NewPatternStateError(op, b.state.String(),
			fmt.Sprintf("edge %s needs a pattern, bind it with MatchOrCreate", t))
	case !ok:
		return write{op: opCreate, name: name, inst: inst}, nil
	case !bnd.pattern:
		return write{}, cypher.NewPatternStateError(op, b.state.String(),
			fmt.Sprintf("variable %q is already scheduled for creation", name))
	case bnd.typ != t:
		return write{}, cypher.NewPatternStateError(op, b.state.String(),
			fmt.Sprintf("variable %q is bound to %s, not %s", name, bnd.typ, t))
	default:
		return write{op: opUpdate, name: name, inst: inst}, nil
	}
}

// Delete schedules the entities bound to the given variables for deletion.
// Nodes are detached from their edges first.
func (b *Builder) Delete(vars ...string) *Builder {
	next, ok := b.enter("Delete", actSchedule)
	if !ok {
		return b
	}
	if slices.Contains(vars, "") {
		b.err = fmt.Errorf("cypher: Delete: empty variable name")
		return b
	}
	b.deletes = append(b.deletes, vars...)
	b.state = next
	return b
}

// Distinct removes duplicate result rows.
func (b *Builder) Distinct() *Builder {
	next, ok := b.enter("Distinct", actSchedule)
	if ok {
		b.distinct = true
		b.state = next
	}
	return b
}

// Limit limits the number of result rows.
func (b *Builder) Limit(n int) *Builder {
	return b.page("Limit", n, &b.limit)
}

// Skip skips the given number of result rows.
func (b *Builder) Skip(n int) *Builder {
	return b.page("Skip", n, &b.skip)
}

func (b *Builder) page(op string, n int, dst **int64) *Builder {
	next, ok := b.enter(op, actSchedule)
	if !ok {
		return b
	}
	if n < 0 {
		b.err = fmt.Errorf("cypher: %s: negative value %d", op, n)
		return b
	}
	v := int64(n)
	*dst = &v
	b.state = next
	return b
}

// OrderBy orders the result rows. A term is a variable or a variable
// property, optionally followed by ASC or DESC.
//
//	b.OrderBy("p.age DESC", "p.name")
func (b *Builder) OrderBy(terms ...string) *Builder {
	next, ok := b.enter("OrderBy", actSchedule)
	if !ok {
		return b
	}
	for _, term := range terms {
		if _, _, _, err := parseOrder(term); err != nil {
			b.err = err
			return b
		}
	}
	b.orderBy = append(b.orderBy, terms...)
	b.state = next
	return b
}

// parseOrder splits an ORDER BY term into its variable, property and
// direction.
func parseOrder(term string) (variable, prop, dir string, err error) {
	parts := strings.Fields(term)
	if len(parts) == 0 || len(parts) > 2 {
		return "", "", "", fmt.Errorf("cypher: OrderBy: invalid term %q", term)
	}
	if len(parts) == 2 {
		dir = strings.ToUpper(parts[1])
		if dir != "ASC" && dir != "DESC" {
			return "", "", "", fmt.Errorf("cypher: OrderBy: invalid direction in %q", term)
		}
	}
	variable, prop, _ = strings.Cut(parts[0], ".")
	if variable == "" {
		return "", "", "", fmt.Errorf("cypher: OrderBy: invalid term %q", term)
	}
	return variable, prop, dir, nil
}

// enter checks that the action is legal and returns the next state.
func (b *Builder) enter(op string, a action) (State, bool) {
	if b.err != nil {
		return b.state, false
	}
	next, ok := b.state.next(a)
	if !ok {
		b.err = cypher.NewPatternStateError(op, b.state.String(), illegalReason(b.state, a))
		return b.state, false
	}
	return next, true
}

func illegalReason(s State, a action) string {
	switch {
	case s == StateExecuted:
		return "the builder was executed"
	case s == StateHasEdge && a == actEdge:
		return "the pending edge needs a terminal node, use To or By"
	case s == StateHasEdge:
		return "the pending edge has no terminal node"
	case a == actEdge:
		return "an edge must follow a node"
	case a == actEnd:
		return "no pending edge"
	case a == actWhere:
		return "nothing is bound"
	default:
		return ""
	}
}

// element resolves a pattern unit and its inline predicates.
func (b *Builder) element(op string, unit any, kind cypher.Kind, where []*predicate.Comparison, merge bool) (element, []*predicate.Comparison, error) {
	e, err := b.resolve(op, unit, kind)
	if err != nil {
		return element{}, nil, err
	}
	var filters []*predicate.Comparison
	for _, c := range where {
		if c == nil {
			return element{}, nil, fmt.Errorf("cypher: %s: nil predicate", op)
		}
		if c.Var == "" {
			if c.Prop.Type != e.typ {
				return element{}, nil, cypher.NewSchemaError(e.typ.Name, c.Prop.Name(),
					fmt.Sprintf("predicate on %s cannot filter %s", c.Prop, e.typ))
			}
			c = c.On(e.name)
		}
		if err := c.Err(); err != nil {
			return element{}, nil, err
		}
		if merge && !e.ref && c.Var == e.name {
			if c.Op != predicate.OpEQ {
				return element{}, nil, cypher.NewPatternStateError(op, b.state.String(),
					fmt.Sprintf("MatchOrCreate matches on equality, got %s", c.Op))
			}
			e.props = append(e.props, c)
			continue
		}
		filters = append(filters, c)
	}
	if e.inst == nil || e.ref {
		return e, filters, nil
	}
	if !merge {
		uid := predicate.EQ(e.typ.Prop(mixin.UIDField), e.inst.UID()).On(e.name)
		return e, append([]*predicate.Comparison{uid}, filters...), nil
	}
	if err := e.typ.Check(e.inst); err != nil {
		return element{}, nil, err
	}
	keys := mergeKeys(e.inst)
	var props []*predicate.Comparison
	for _, k := range keys {
		if !slices.ContainsFunc(e.props, func(c *predicate.Comparison) bool { return c.Prop.Name() == k }) {
			v, _ := e.inst.Get(k)
			props = append(props, predicate.EQ(e.typ.Prop(k), v).On(e.name))
		}
	}
	e.props = append(props, e.props...)
	for _, name := range e.inst.Keys() {
		if !slices.ContainsFunc(e.props, func(c *predicate.Comparison) bool { return c.Prop.Name() == name }) {
			e.set = append(e.set, name)
		}
	}
	return e, filters, nil
}

// mergeKeys returns the properties an instance is merged on.
func mergeKeys(inst *graph.Instance) []string {
	for _, tuple := range inst.Type().UniqueTogether() {
		complete := true
		for _, name := range tuple {
			if v, _ := inst.Get(name); v == nil {
				complete = false
				break
			}
		}
		if complete {
			return tuple
		}
	}
	return []string{mixin.UIDField}
}

// resolve returns the element a unit denotes, reusing the variable of a
// name or instance bound earlier.
func (b *Builder) resolve(op string, unit any, kind cypher.Kind) (element, error) {
	var name string
	if n, ok := unit.(Named); ok {
		if n.Name == "" {
			return element{}, fmt.Errorf("cypher: %s: empty variable name", op)
		}
		unit, name = n.Unit, n.Name
	}
	var e element
	switch u := unit.(type) {
	case *graph.Type:
		e.typ = u
	case *graph.Instance:
		if u != nil {
			e.typ, e.inst = u.Type(), u
		}
	default:
		return element{}, fmt.Errorf("cypher: %s: unsupported unit %T", op, unit)
	}
	if e.typ == nil {
		return element{}, fmt.Errorf("cypher: %s: nil unit", op)
	}
	if e.typ.Kind != kind {
		return element{}, cypher.NewPatternStateError(op, b.state.String(), fmt.Sprintf("%s is not a %s", e.typ, kind))
	}
	if e.typ.Abstract {
		return element{}, cypher.NewSchemaError(e.typ.Name, "", "abstract schema cannot be matched")
	}
	if name == "" && e.inst != nil {
		name = b.instVars[e.inst]
	}
	if name == "" {
		e.name = b.autoName(e.typ, nil)
		return e, nil
	}
	bnd, ok := b.vars[name]
	switch {
	case !ok:
		e.name = name
		return e, nil
	case !bnd.pattern:
		return element{}, cypher.NewPatternStateError(op, b.state.String(),
			fmt.Sprintf("variable %q is scheduled for creation", name))
	case bnd.typ != e.typ:
		return element{}, cypher.NewPatternStateError(op, b.state.String(),
			fmt.Sprintf("variable %q is bound to %s, not %s", name, bnd.typ, e.typ))
	case e.inst != nil && bnd.inst != nil && e.inst != bnd.inst:
		return element{}, cypher.NewPatternStateError(op, b.state.String(),
			fmt.Sprintf("variable %q is bound to another instance", name))
	}
	return element{typ: e.typ, name: name, ref: true}, nil
}

// push appends the element to the last component and binds its variable.
func (b *Builder) push(e element, filters []*predicate.Comparison, merge bool) {
	b.elems = append(b.elems, e)
	c := &b.comps[len(b.comps)-1]
	c.elems = append(c.elems, len(b.elems)-1)
	if !e.ref {
		b.vars[e.name] = binding{typ: e.typ, inst: e.inst, pattern: true, merge: merge}
		b.order = append(b.order, e.name)
		if e.inst != nil {
			b.instVars[e.inst] = e.name
		}
	}
	b.filters = append(b.filters, filters...)
}

// autoName returns a fresh variable for the type: the lowercase initial of
// its label, numbered when taken.
func (b *Builder) autoName(t *graph.Type, pending map[string]binding) string {
	base := "n"
	if t.IsEdge() {
		base = "r"
	}
	if r := []rune(t.Name); len(r) > 0 && unicode.IsLetter(r[0]) {
		base = string(unicode.ToLower(r[0]))
	}
	taken := func(name string) bool {
		_, ok := b.vars[name]
		_, pok := pending[name]
		return ok || pok
	}
	name := base
	for i := 1; taken(name); i++ {
		name = base + strconv.Itoa(i)
	}
	return name
}
