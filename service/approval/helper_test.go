package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/viant/gatekeeper/service/approval"
	"github.com/viant/gatekeeper/service/approval/memory"
	"github.com/viant/gatekeeper/service/event"
)

func TestWaitForResolution(t *testing.T) {
	testCases := []struct {
		name     string
		decision approval.Decision
		actorID  string
	}{
		{
			name:     "approved",
			decision: approval.DecisionApproved,
			actorID:  "u-1",
		},
		{
			name:     "denied",
			decision: approval.DecisionDenied,
			actorID:  "u-2",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := event.New(nil)
			svc := memory.New(bus)
			ctx := context.Background()

			created, err := svc.Create(ctx, &approval.Request{
				WorkflowRunID: "run-1",
				ActionRunID:   "act-1",
				ApproverRole:  "ops",
				Timeout:       time.Hour,
			})
			assert.NoError(t, err)

			go func() {
				time.Sleep(10 * time.Millisecond)
				_, _ = svc.Resolve(ctx, created.ID, tc.decision, tc.actorID, "ops", nil)
			}()

			resolution, err := approval.WaitForResolution(ctx, bus, created.ID, time.Second)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, created.ID, resolution.ApprovalID)
			assert.Equal(t, tc.decision, resolution.Decision)
			assert.Equal(t, tc.actorID, resolution.ActorID)
		})
	}
}

func TestWaitForResolution_Timeout(t *testing.T) {
	bus := event.New(nil)
	_, err := approval.WaitForResolution(context.Background(), bus, "never-resolved", 20*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitForResolution_IgnoresOtherApprovals(t *testing.T) {
	bus := event.New(nil)
	svc := memory.New(bus)
	ctx := context.Background()

	first, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1", ActionRunID: "act-1", ApproverRole: "ops", Timeout: time.Hour,
	})
	assert.NoError(t, err)
	second, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-2", ActionRunID: "act-2", ApproverRole: "ops", Timeout: time.Hour,
	})
	assert.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = svc.Resolve(ctx, second.ID, approval.DecisionDenied, "u-2", "ops", nil)
		_, _ = svc.Resolve(ctx, first.ID, approval.DecisionApproved, "u-1", "ops", nil)
	}()

	resolution, err := approval.WaitForResolution(ctx, bus, first.ID, time.Second)
	if assert.NoError(t, err) {
		assert.Equal(t, first.ID, resolution.ApprovalID)
		assert.Equal(t, approval.DecisionApproved, resolution.Decision)
	}
}

func TestAutoApprove(t *testing.T) {
	bus := event.New(nil)
	svc := memory.New(bus)
	ctx := context.Background()

	stop := approval.AutoApprove(ctx, svc, "bot", "ops", 5*time.Millisecond)
	defer stop()

	created, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1", ActionRunID: "act-1", ApproverRole: "ops", Timeout: time.Hour,
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		current, err := svc.Get(ctx, created.ID)
		return err == nil && current.Status == approval.StatusApproved
	}, time.Second, 5*time.Millisecond)

	approved, err := svc.Get(ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, "bot", approved.ActorID)
}

func TestAutoDeny_SkipsOtherRoles(t *testing.T) {
	bus := event.New(nil)
	svc := memory.New(bus)
	ctx := context.Background()

	stop := approval.AutoDeny(ctx, svc, "bot", "finance", "out of budget", 5*time.Millisecond)
	defer stop()

	ours, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-1", ActionRunID: "act-1", ApproverRole: "finance", Timeout: time.Hour,
	})
	assert.NoError(t, err)
	theirs, err := svc.Create(ctx, &approval.Request{
		WorkflowRunID: "run-2", ActionRunID: "act-2", ApproverRole: "ops", Timeout: time.Hour,
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		current, err := svc.Get(ctx, ours.ID)
		return err == nil && current.Status == approval.StatusDenied
	}, time.Second, 5*time.Millisecond)

	denied, err := svc.Get(ctx, ours.ID)
	assert.NoError(t, err)
	assert.Equal(t, "out of budget", denied.Metadata["reason"])

	untouched, err := svc.Get(ctx, theirs.ID)
	assert.NoError(t, err)
	assert.Equal(t, approval.StatusPending, untouched.Status)
}
