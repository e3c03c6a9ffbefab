package privacy

import (
	"context"
	"slices"

	"github.com/syssam/cypher/dialect"
)

// Viewer represents the authenticated user making a request.
// This interface should be implemented by application-specific user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier for multi-tenancy.
	// Returns empty string if not applicable.
	GetTenantID() string
}

// viewerCtxKey is the context key for storing the viewer.
type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// DenyIfNoViewer returns a rule that denies access if no viewer is present in the context.
// This is typically used as the first rule in a policy to require authentication.
func DenyIfNoViewer() QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("cypher/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows access if the viewer has the specified role.
// Skips if the viewer doesn't have the role.
func HasRole(role string) QueryMutationRule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows access if the viewer has any of the specified roles.
//
//	privacy.MutationPolicy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.HasAnyRole("admin", "editor"),
//	    privacy.AlwaysDenyRule(),
//	}
func HasAnyRole(roles ...string) QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerRoles := viewer.GetRoles()
		for _, role := range roles {
			if slices.Contains(viewerRoles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// DenyLabelRule returns a rule denying statements that touch an entity
// with one of the given labels.
func DenyLabelRule(labels ...string) QueryMutationRule {
	return labelRule(func(label string) error {
		return Denyf("cypher/privacy: label %s is not allowed", label)
	}, labels)
}

// AllowLabelRule returns a rule allowing statements that only touch
// entities with the given labels, and skipping otherwise.
func AllowLabelRule(labels ...string) QueryMutationRule {
	eval := func(_ context.Context, s *dialect.Statement) error {
		if len(s.Labels) == 0 {
			return Skip
		}
		for _, l := range s.Labels {
			if !slices.Contains(labels, l) {
				return Skip
			}
		}
		return Allow
	}
	return ruleFunc{query: eval, mutation: eval}
}

func labelRule(decide func(string) error, labels []string) QueryMutationRule {
	eval := func(_ context.Context, s *dialect.Statement) error {
		for _, l := range s.Labels {
			if slices.Contains(labels, l) {
				return decide(l)
			}
		}
		return Skip
	}
	return ruleFunc{query: eval, mutation: eval}
}

// TenantStoreRule returns a rule denying statements whose store differs
// from the tenant of the viewer. Viewers without a tenant are skipped.
func TenantStoreRule() QueryMutationRule {
	eval := func(ctx context.Context, s *dialect.Statement) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		if s.Store != viewer.GetTenantID() {
			return Denyf("cypher/privacy: store %q is outside tenant %q", s.Store, viewer.GetTenantID())
		}
		return Skip
	}
	return ruleFunc{query: eval, mutation: eval}
}

// AllowMutationOperationRule returns a rule allowing the specified operations.
func AllowMutationOperationRule(op dialect.Op) MutationRule {
	rule := MutationRuleFunc(func(context.Context, *dialect.Statement) error {
		return Allow
	})
	return OnMutationOperation(rule, op)
}

// ruleFunc adapts a pair of functions to a QueryMutationRule.
type ruleFunc struct {
	query    QueryRuleFunc
	mutation MutationRuleFunc
}

func (f ruleFunc) EvalQuery(ctx context.Context, s *dialect.Statement) error {
	return f.query(ctx, s)
}

func (f ruleFunc) EvalMutation(ctx context.Context, s *dialect.Statement) error {
	return f.mutation(ctx, s)
}
