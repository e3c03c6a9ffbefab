// Package privacy provides the policy layer that authorizes compiled
// statements before they reach the graph backend.
//
// # Core Concepts
//
//   - Policy: query rules for read-only statements, mutation rules for the rest
//   - Rule: a function that returns Allow, Deny, or Skip decisions
//   - Viewer: an interface representing the current user
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: grants access and stops evaluation
//   - Deny: denies access and stops evaluation
//   - Skip: continues to the next rule
//
// A policy whose rules all skip allows the statement. End a policy with
// AlwaysDenyRule to deny by default.
//
// # Guarding a Driver
//
// Driver evaluates the policy on the statement the query builder attaches to
// the context, so rules can match on its operations, labels and store:
//
//	drv := privacy.NewDriver(bolt, privacy.Policy{
//	    Query: privacy.QueryPolicy{
//	        privacy.DenyLabelRule("Secret"),
//	    },
//	    Mutation: privacy.MutationPolicy{
//	        privacy.DenyIfNoViewer(),
//	        privacy.DenyMutationOperationRule(dialect.OpDelete),
//	        privacy.HasRole("editor"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	})
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "u1", Roles: []string{"editor"}})
//	records, err := query.New(drv).Create(ann).Result(ctx)
//
// A denied statement fails with an error wrapping Deny:
//
//	if errors.Is(err, privacy.Deny) { ... }
package privacy
