package approval

import (
	"context"
	"time"
)

// Service defines the approval registry. Create/Resolve/Annotate are the
// caller-facing mutations; ListDue/Escalate/Expire/DeleteResolvedBefore are
// the sweeper surface. Escalate and Expire are conditional: they apply only
// when the approval is still awaiting action and past its deadline, and
// report whether the transition was applied so that overlapping sweeps stay
// idempotent.
type Service interface {
	Create(ctx context.Context, request *Request) (*Approval, error)

	Resolve(ctx context.Context, id string, decision Decision, actorID, role string, metadata map[string]interface{}) (*Approval, error)

	Get(ctx context.Context, id string) (*Approval, error)

	List(ctx context.Context, statuses ...Status) ([]*Approval, error)

	// Annotate adds caller metadata; allowed in any state, terminal
	// records stay otherwise immutable.
	Annotate(ctx context.Context, id, key string, value interface{}) error

	ListDue(ctx context.Context, now time.Time) ([]*Approval, error)

	Escalate(ctx context.Context, id string, now time.Time) (bool, error)

	Expire(ctx context.Context, id string, now time.Time) (bool, error)

	// DeleteResolvedBefore removes terminal records whose last transition
	// predates cutoff, returning the number deleted. Pending and escalated
	// records are never touched regardless of age.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
