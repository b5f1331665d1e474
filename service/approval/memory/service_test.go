package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/gatekeeper/internal/clock"
	"github.com/viant/gatekeeper/service/approval"
	"github.com/viant/gatekeeper/service/approval/memory"
	"github.com/viant/gatekeeper/service/event"
)

func newTestService() (approval.Service, *event.MemoryBackend) {
	backend := event.NewMemoryBackend()
	bus := event.New(backend)
	return memory.New(bus), backend
}

func stubClock(t *testing.T, at time.Time) func(time.Time) {
	t.Helper()
	current := at
	clock.NowFunc = func() time.Time { return current }
	t.Cleanup(func() { clock.NowFunc = time.Now })
	return func(next time.Time) { current = next }
}

func TestService_Create(t *testing.T) {
	testCases := []struct {
		name      string
		request   *approval.Request
		expectErr error
	}{
		{
			name: "valid request",
			request: &approval.Request{
				WorkflowRunID: "run-1",
				ActionRunID:   "act-1",
				ApproverRole:  "sales_manager",
				Timeout:       time.Hour,
			},
		},
		{
			name: "zero timeout",
			request: &approval.Request{
				WorkflowRunID: "run-1",
				ActionRunID:   "act-1",
				ApproverRole:  "sales_manager",
				Timeout:       0,
			},
			expectErr: approval.ErrInvalidTimeout,
		},
		{
			name: "negative timeout",
			request: &approval.Request{
				WorkflowRunID: "run-1",
				ActionRunID:   "act-1",
				ApproverRole:  "sales_manager",
				Timeout:       -time.Minute,
			},
			expectErr: approval.ErrInvalidTimeout,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, backend := newTestService()
			created, err := svc.Create(context.Background(), tc.request)
			if tc.expectErr != nil {
				assert.True(t, errors.Is(err, tc.expectErr), tc.name)
				assert.Empty(t, backend.Events(approval.TopicCreated))
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, approval.StatusPending, created.Status)
			assert.Nil(t, created.ResolvedAt)
			assert.Equal(t, created.CreatedAt.Add(tc.request.Timeout), created.ExpiresAt)
			assert.Len(t, backend.Events(approval.TopicCreated), 1)
		})
	}
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	svc, backend := newTestService()
	created, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1",
		ActionRunID:   "act-1",
		ApproverRole:  "sales_manager",
		Timeout:       time.Hour,
	})
	assert.NoError(t, err)

	// unknown id
	_, err = svc.Resolve(ctx, "no-such-id", approval.DecisionApproved, "u-1", "sales_manager", nil)
	assert.True(t, errors.Is(err, approval.ErrNotFound))

	// wrong role
	_, err = svc.Resolve(ctx, created.ID, approval.DecisionApproved, "u-1", "intern", nil)
	assert.True(t, errors.Is(err, approval.ErrForbidden))

	// matching role succeeds
	resolved, err := svc.Resolve(ctx, created.ID, approval.DecisionApproved, "u-1", "sales_manager",
		map[string]interface{}{"comment": "looks good"})
	assert.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "u-1", resolved.ActorID)
	assert.Equal(t, "looks good", resolved.Metadata["comment"])
	assert.Len(t, backend.Events(approval.TopicResolved), 1)

	// an approval can be resolved at most once
	_, err = svc.Resolve(ctx, created.ID, approval.DecisionDenied, "u-2", "sales_manager", nil)
	assert.True(t, errors.Is(err, approval.ErrInvalidTransition))
	assert.Len(t, backend.Events(approval.TopicResolved), 1)
}

func TestService_EscalateThenResolveByEscalateRole(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	advance := stubClock(t, base)

	ctx := context.Background()
	svc, backend := newTestService()
	created, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1",
		ActionRunID:   "act-1",
		ApproverRole:  "sales_manager",
		EscalateRole:  "director",
		Timeout:       5 * time.Minute,
	})
	assert.NoError(t, err)

	// not yet due
	applied, err := svc.Escalate(ctx, created.ID, base.Add(time.Minute))
	assert.NoError(t, err)
	assert.False(t, applied)

	due := base.Add(5 * time.Minute)
	advance(due)
	applied, err = svc.Escalate(ctx, created.ID, due)
	assert.NoError(t, err)
	assert.True(t, applied)

	escalated, err := svc.Get(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.StatusEscalated, escalated.Status)
	assert.Nil(t, escalated.ResolvedAt)
	assert.NotNil(t, escalated.EscalatedAt)
	// secondary deadline defaults to factor x timeout
	assert.Equal(t, due.Add(10*time.Minute), escalated.ExpiresAt)
	assert.Len(t, backend.Events(approval.TopicEscalated), 1)

	// escalating the same deadline crossing twice is a no-op
	applied, err = svc.Escalate(ctx, created.ID, due)
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Len(t, backend.Events(approval.TopicEscalated), 1)

	// the original approver lost authority
	_, err = svc.Resolve(ctx, created.ID, approval.DecisionApproved, "u-1", "sales_manager", nil)
	assert.True(t, errors.Is(err, approval.ErrForbidden))

	resolved, err := svc.Resolve(ctx, created.ID, approval.DecisionDenied, "u-9", "director", nil)
	assert.NoError(t, err)
	assert.Equal(t, approval.StatusDenied, resolved.Status)
}

func TestService_ExpireWithoutEscalationPath(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	stubClock(t, base)

	ctx := context.Background()
	svc, backend := newTestService()
	created, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1",
		ActionRunID:   "act-1",
		ApproverRole:  "sales_manager",
		Timeout:       5 * time.Minute,
	})
	assert.NoError(t, err)

	due := base.Add(5 * time.Minute)
	applied, err := svc.Expire(ctx, created.ID, due)
	assert.NoError(t, err)
	assert.True(t, applied)

	expired, err := svc.Get(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.StatusExpired, expired.Status)
	// auto transitions never set resolvedAt
	assert.Nil(t, expired.ResolvedAt)
	assert.Len(t, backend.Events(approval.TopicExpired), 1)

	// expiring again is a no-op
	applied, err = svc.Expire(ctx, created.ID, due.Add(time.Hour))
	assert.NoError(t, err)
	assert.False(t, applied)
	assert.Len(t, backend.Events(approval.TopicExpired), 1)
}

func TestService_ExpireRequiresEscalationFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	stubClock(t, base)

	ctx := context.Background()
	svc, _ := newTestService()
	created, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1",
		ActionRunID:   "act-1",
		ApproverRole:  "sales_manager",
		EscalateRole:  "director",
		Timeout:       5 * time.Minute,
	})
	assert.NoError(t, err)

	due := base.Add(5 * time.Minute)
	applied, err := svc.Expire(ctx, created.ID, due)
	assert.NoError(t, err)
	assert.False(t, applied, "a pending approval with an escalation path escalates before it can expire")

	applied, err = svc.Escalate(ctx, created.ID, due)
	assert.NoError(t, err)
	assert.True(t, applied)

	// past the secondary deadline the escalated approval expires
	secondary := due.Add(10 * time.Minute)
	applied, err = svc.Expire(ctx, created.ID, secondary)
	assert.NoError(t, err)
	assert.True(t, applied)
}

func TestService_AnnotateTerminalRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	created, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1",
		ActionRunID:   "act-1",
		ApproverRole:  "sales_manager",
		Timeout:       time.Hour,
	})
	assert.NoError(t, err)
	_, err = svc.Resolve(ctx, created.ID, approval.DecisionApproved, "u-1", "sales_manager", nil)
	assert.NoError(t, err)

	// metadata annotation is the only mutation allowed on terminal records
	assert.NoError(t, svc.Annotate(ctx, created.ID, "audit", "reviewed"))
	annotated, err := svc.Get(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, "reviewed", annotated.Metadata["audit"])
	assert.Equal(t, approval.StatusApproved, annotated.Status)
}

func TestService_DeleteResolvedBefore(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	advance := stubClock(t, base)

	ctx := context.Background()
	svc, _ := newTestService()

	resolved, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1", ActionRunID: "act-1",
		ApproverRole: "ops", Timeout: time.Minute,
	})
	assert.NoError(t, err)
	_, err = svc.Resolve(ctx, resolved.ID, approval.DecisionApproved, "u-1", "ops", nil)
	assert.NoError(t, err)

	pending, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-2", ActionRunID: "act-2",
		ApproverRole: "ops", Timeout: time.Minute,
	})
	assert.NoError(t, err)

	// both records are now far older than the retention window
	advance(base.Add(91 * 24 * time.Hour))
	deleted, err := svc.DeleteResolvedBefore(ctx, base.Add(90*24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = svc.Get(ctx, resolved.ID)
	assert.True(t, errors.Is(err, approval.ErrNotFound))

	// awaiting records survive regardless of age
	kept, err := svc.Get(ctx, pending.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.StatusPending, kept.Status)
}
