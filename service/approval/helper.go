package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/gatekeeper/service/event"
)

// Resolution is the outcome delivered by WaitForResolution.
type Resolution struct {
	ApprovalID string
	Decision   Decision
	ActorID    string
}

// WaitForResolution blocks until an approval.resolved event for the supplied
// id arrives on the bus, or the timeout elapses.
func WaitForResolution(ctx context.Context, bus *event.Service, id string, timeout time.Duration) (*Resolution, error) {
	done := make(chan *Resolution, 1)
	handler := func(_ context.Context, e *event.Event) {
		if e.Data["approvalId"] != id {
			return
		}
		decision, _ := e.Data["decision"].(string)
		actorID, _ := e.Data["actorId"].(string)
		select {
		case done <- &Resolution{ApprovalID: id, Decision: Decision(decision), ActorID: actorID}:
		default:
		}
	}
	bus.Subscribe(TopicResolved, handler)
	defer bus.Unsubscribe(TopicResolved, handler)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for resolution of %s", id)
	case resolution := <-done:
		return resolution, nil
	}
}

// ResolveFunc decides what to do with an awaiting approval.
// Return (DecisionApproved, "") to approve, (DecisionDenied, reason) to deny.
type ResolveFunc func(a *Approval) (decision Decision, reason string)

// AutoResolver starts a goroutine that polls awaiting approvals and resolves
// every one whose required role matches, acting as actorID. It returns
// stop() - call it (or cancel ctx) to exit.
func AutoResolver(ctx context.Context, svc Service, actorID, role string, fn ResolveFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				awaiting, _ := svc.List(ctx, StatusPending, StatusEscalated)
				for _, a := range awaiting {
					if a.RequiredRole() != role {
						continue
					}
					decision, reason := fn(a)
					var metadata map[string]interface{}
					if reason != "" {
						metadata = map[string]interface{}{"reason": reason}
					}
					_, _ = svc.Resolve(ctx, a.ID, decision, actorID, role, metadata)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves every approval resolvable by role.
func AutoApprove(ctx context.Context, svc Service, actorID, role string, interval time.Duration) func() {
	return AutoResolver(ctx, svc, actorID, role,
		func(*Approval) (Decision, string) { return DecisionApproved, "" }, interval)
}

// AutoDeny automatically denies every approval resolvable by role with the
// given reason.
func AutoDeny(ctx context.Context, svc Service, actorID, role, reason string, interval time.Duration) func() {
	return AutoResolver(ctx, svc, actorID, role,
		func(*Approval) (Decision, string) { return DecisionDenied, reason }, interval)
}
