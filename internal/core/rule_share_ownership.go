package core

import (
	"context"
	"fmt"
	"reflect"

	"cradlecore/pkg/domain"
)

type actorKey struct{}

// WithActor tags a context with the identity-provider uid performing the
// mutation. Rules that enforce ownership consult this tag; an untagged
// context means a local, unauthenticated session.
func WithActor(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, actorKey{}, uid)
}

// ActorFromContext extracts the acting uid, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(actorKey{}).(string)
	return uid, ok && uid != ""
}

// ShareOwnershipRule blocks sharing-list changes made by anyone other than
// the baby's recorded owner. Babies without an owner (never pushed to the
// remote collection) can be shared freely once claimed.
type ShareOwnershipRule struct{}

// Name identifies the rule in violations.
func (ShareOwnershipRule) Name() string { return "share-ownership" }

// Evaluate inspects baby updates for sharing-list mutations.
func (r ShareOwnershipRule) Evaluate(ctx context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityBaby || change.Action != domain.ActionUpdate {
			continue
		}
		before, okB := change.Before.(domain.Baby)
		after, okA := change.After.(domain.Baby)
		if !okB || !okA {
			continue
		}
		if reflect.DeepEqual(before.SharedWith, after.SharedWith) {
			continue
		}
		if after.OwnerID == "" {
			continue
		}
		actor, ok := ActorFromContext(ctx)
		if !ok || actor != after.OwnerID {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("baby %s is owned by another user; only the owner may grant access", after.ID),
				Entity:   domain.EntityBaby,
				EntityID: after.ID,
			})
		}
	}
	return result, nil
}
