package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/cypher/dialect"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from policy rules to indicate
// how the policy evaluation should proceed. Use errors.Is() to check
// for these values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("cypher/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("cypher/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	Skip = errors.New("cypher/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a query/mutation rule from a context evaluation function.
// The provided function receives the context and should return Allow, Deny, Skip, or nil.
// Returning nil is equivalent to returning Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

type (
	// QueryRule defines the interface deciding whether a read-only
	// statement is allowed.
	QueryRule interface {
		EvalQuery(context.Context, *dialect.Statement) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// MutationRule defines the interface deciding whether a statement
	// that writes or deletes is allowed.
	MutationRule interface {
		EvalMutation(context.Context, *dialect.Statement) error
	}

	// MutationPolicy combines multiple mutation rules into a single policy.
	MutationPolicy []MutationRule

	// QueryMutationRule is an interface which groups query and mutation rules.
	QueryMutationRule interface {
		QueryRule
		MutationRule
	}
)

// QueryRuleFunc type is an adapter which allows the use of
// ordinary functions as query rules.
type QueryRuleFunc func(context.Context, *dialect.Statement) error

// EvalQuery returns f(ctx, s).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, s *dialect.Statement) error {
	return f(ctx, s)
}

// MutationRuleFunc type is an adapter which allows the use of
// ordinary functions as mutation rules.
type MutationRuleFunc func(context.Context, *dialect.Statement) error

// EvalMutation returns f(ctx, s).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, s *dialect.Statement) error {
	return f(ctx, s)
}

// OnMutationOperation evaluates the given rule only on statements holding
// one of the given operations.
func OnMutationOperation(rule MutationRule, op dialect.Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, s *dialect.Statement) error {
		if s.Ops.Is(op) {
			return rule.EvalMutation(ctx, s)
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying the specified operations.
//
//	privacy.DenyMutationOperationRule(dialect.OpDelete)
func DenyMutationOperationRule(op dialect.Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, s *dialect.Statement) error {
		return Denyf("cypher/privacy: operation %s is not allowed", s.Ops&op)
	})
	return OnMutationOperation(rule, op)
}

// Policy groups query and mutation policies. Read-only statements are
// evaluated by the query policy, and every other statement by the mutation
// policy.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// EvalQuery forwards evaluation to the query policy.
func (p Policy) EvalQuery(ctx context.Context, s *dialect.Statement) error {
	return p.Query.EvalQuery(ctx, s)
}

// EvalMutation forwards evaluation to the mutation policy.
func (p Policy) EvalMutation(ctx context.Context, s *dialect.Statement) error {
	return p.Mutation.EvalMutation(ctx, s)
}

// Eval evaluates the statement against the policy matching its kind. A
// decision stored in the context takes precedence over the rules. An Allow
// decision, or no decision at all, yields a nil error.
func (p Policy) Eval(ctx context.Context, s *dialect.Statement) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	var decision error
	if s.ReadOnly {
		decision = p.EvalQuery(ctx, s)
	} else {
		decision = p.EvalMutation(ctx, s)
	}
	if decision == nil || errors.Is(decision, Allow) || errors.Is(decision, Skip) {
		return nil
	}
	return decision
}

// EvalQuery evaluates a statement against a query policy.
func (policies QueryPolicy) EvalQuery(ctx context.Context, s *dialect.Statement) error {
	for _, policy := range policies {
		switch decision := policy.EvalQuery(ctx, s); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates a statement against a mutation policy.
func (policies MutationPolicy) EvalMutation(ctx context.Context, s *dialect.Statement) error {
	for _, policy := range policies {
		switch decision := policy.EvalMutation(ctx, s); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attach to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, *dialect.Statement) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, *dialect.Statement) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ *dialect.Statement) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ *dialect.Statement) error {
	return c.eval(ctx)
}

// Driver is a dialect.Driver that evaluates a policy on every statement
// before it reaches the wrapped driver. The statement is read from the
// context; raw executions without one are evaluated as mutations.
type Driver struct {
	dialect.Driver
	policy Policy
}

// NewDriver returns the driver guarded by the policy.
//
//	drv := privacy.NewDriver(bolt, privacy.Policy{
//	    Mutation: privacy.MutationPolicy{
//	        privacy.DenyIfNoViewer(),
//	        privacy.HasRole("editor"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	})
func NewDriver(drv dialect.Driver, policy Policy) *Driver {
	return &Driver{Driver: drv, policy: policy}
}

// Execute evaluates the policy and executes the statement when allowed.
func (d *Driver) Execute(ctx context.Context, query string, params map[string]any) ([]dialect.Row, error) {
	s, ok := dialect.FromContext(ctx)
	if !ok {
		s = &dialect.Statement{Text: query, Params: params}
	}
	if err := d.policy.Eval(ctx, s); err != nil {
		return nil, err
	}
	return d.Driver.Execute(ctx, query, params)
}

var (
	_ QueryMutationRule = Policy{}
	_ dialect.Driver    = (*Driver)(nil)
)
