package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/gatekeeper/internal/clock"
	"github.com/viant/gatekeeper/internal/idgen"
	"github.com/viant/gatekeeper/service/approval"
	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/dao/store"
	"github.com/viant/gatekeeper/service/event"
)

// DefaultEscalationFactor scales the original timeout into the secondary
// deadline when the caller does not supply one.
const DefaultEscalationFactor = 2

func approvalKey(a *approval.Approval) string { return a.ID }

func approvalStatus(a *approval.Approval) string { return string(a.Status) }

type service struct {
	dao    dao.Service[string, approval.Approval]
	bus    *event.Service
	factor int

	// per-approval write serialization; the sweeper and a human resolution
	// may race on the same record.
	locks sync.Map
}

// New creates a DAO-backed approval registry publishing on the supplied bus.
// The default store is in-memory; inject a durable DAO via WithDAO.
func New(bus *event.Service, options ...Option) approval.Service {
	ret := &service{
		dao:    store.NewMemoryStoreWithStatus[string, approval.Approval](approvalKey, approvalStatus),
		bus:    bus,
		factor: DefaultEscalationFactor,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) lock(id string) func() {
	actual, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mutex := actual.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

func (s *service) Create(ctx context.Context, request *approval.Request) (*approval.Approval, error) {
	if request == nil {
		return nil, fmt.Errorf("invalid request")
	}
	if request.Timeout <= 0 {
		return nil, fmt.Errorf("%w: %v", approval.ErrInvalidTimeout, request.Timeout)
	}
	if request.ApproverRole == "" {
		return nil, fmt.Errorf("approver role cannot be empty")
	}
	escalationTimeout := request.EscalationTimeout
	if escalationTimeout <= 0 {
		escalationTimeout = time.Duration(s.factor) * request.Timeout
	}
	now := clock.Now()
	ret := &approval.Approval{
		ID:                idgen.New(),
		WorkflowRunID:     request.WorkflowRunID,
		ActionRunID:       request.ActionRunID,
		Status:            approval.StatusPending,
		ApproverRole:      request.ApproverRole,
		EscalateRole:      request.EscalateRole,
		Timeout:           request.Timeout,
		EscalationTimeout: escalationTimeout,
		CreatedAt:         now,
		ExpiresAt:         now.Add(request.Timeout),
		UpdatedAt:         now,
		Metadata:          copyMetadata(request.Metadata),
	}
	if err := s.dao.Save(ctx, ret); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, event.NewEvent(approval.TopicCreated, map[string]interface{}{
		"approvalId":    ret.ID,
		"workflowRunId": ret.WorkflowRunID,
		"actionRunId":   ret.ActionRunID,
		"approverRole":  ret.ApproverRole,
		"expiresAt":     ret.ExpiresAt.Format(time.RFC3339Nano),
	}), approval.TopicCreated)
	return ret, nil
}

func (s *service) Resolve(ctx context.Context, id string, decision approval.Decision, actorID, role string, metadata map[string]interface{}) (*approval.Approval, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: unsupported decision %q", approval.ErrInvalidTransition, decision)
	}
	defer s.lock(id)()
	ret, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ret.Status.Resolvable() {
		return nil, fmt.Errorf("%w: %s is %s", approval.ErrInvalidTransition, id, ret.Status)
	}
	if role != ret.RequiredRole() {
		return nil, fmt.Errorf("%w: role %q cannot resolve %s (requires %q)", approval.ErrForbidden, role, id, ret.RequiredRole())
	}
	now := clock.Now()
	ret.Status = decision.Status()
	ret.ResolvedAt = &now
	ret.UpdatedAt = now
	ret.ActorID = actorID
	for k, v := range metadata {
		if ret.Metadata == nil {
			ret.Metadata = make(map[string]interface{})
		}
		ret.Metadata[k] = v
	}
	if err = s.dao.Save(ctx, ret); err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, event.NewEvent(approval.TopicResolved, map[string]interface{}{
		"approvalId": ret.ID,
		"decision":   string(decision),
		"actorId":    actorID,
	}), approval.TopicResolved)
	return ret, nil
}

func (s *service) Get(ctx context.Context, id string) (*approval.Approval, error) {
	return s.load(ctx, id)
}

func (s *service) List(ctx context.Context, statuses ...approval.Status) ([]*approval.Approval, error) {
	var parameters []*dao.Parameter
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		parameters = append(parameters, dao.NewParameter("Status", values...))
	}
	return s.dao.List(ctx, parameters...)
}

func (s *service) Annotate(ctx context.Context, id, key string, value interface{}) error {
	defer s.lock(id)()
	ret, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if ret.Metadata == nil {
		ret.Metadata = make(map[string]interface{})
	}
	ret.Metadata[key] = value
	return s.dao.Save(ctx, ret)
}

func (s *service) ListDue(ctx context.Context, now time.Time) ([]*approval.Approval, error) {
	awaiting, err := s.List(ctx, approval.StatusPending, approval.StatusEscalated)
	if err != nil {
		return nil, err
	}
	due := make([]*approval.Approval, 0, len(awaiting))
	for _, candidate := range awaiting {
		if candidate.Due(now) {
			due = append(due, candidate)
		}
	}
	return due, nil
}

// Escalate conditionally moves a due pending approval with an escalation
// path into the escalated state and arms the secondary deadline. It reports
// false without error when the state already advanced, which makes
// overlapping sweeps produce exactly one transition per deadline crossing.
func (s *service) Escalate(ctx context.Context, id string, now time.Time) (bool, error) {
	defer s.lock(id)()
	ret, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if ret.Status != approval.StatusPending || ret.EscalateRole == "" || !ret.Due(now) {
		return false, nil
	}
	escalatedAt := now
	ret.Status = approval.StatusEscalated
	ret.EscalatedAt = &escalatedAt
	ret.ExpiresAt = now.Add(ret.EscalationTimeout)
	ret.UpdatedAt = now
	if err = s.dao.Save(ctx, ret); err != nil {
		return false, err
	}
	s.bus.Publish(ctx, event.NewEvent(approval.TopicEscalated, map[string]interface{}{
		"approvalId":   ret.ID,
		"escalateRole": ret.EscalateRole,
		"expiresAt":    ret.ExpiresAt.Format(time.RFC3339Nano),
	}), approval.TopicEscalated)
	return true, nil
}

// Expire conditionally moves a due approval into the terminal expired state:
// directly from pending when no escalation path exists, or from escalated
// when the secondary deadline passed as well.
func (s *service) Expire(ctx context.Context, id string, now time.Time) (bool, error) {
	defer s.lock(id)()
	ret, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if !ret.Due(now) {
		return false, nil
	}
	if ret.Status == approval.StatusPending && ret.EscalateRole != "" {
		// escalation has to happen first
		return false, nil
	}
	ret.Status = approval.StatusExpired
	ret.UpdatedAt = now
	if err = s.dao.Save(ctx, ret); err != nil {
		return false, err
	}
	s.bus.Publish(ctx, event.NewEvent(approval.TopicExpired, map[string]interface{}{
		"approvalId":    ret.ID,
		"workflowRunId": ret.WorkflowRunID,
	}), approval.TopicExpired)
	return true, nil
}

func (s *service) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	terminal, err := s.List(ctx, approval.StatusApproved, approval.StatusDenied, approval.StatusExpired)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, candidate := range terminal {
		if !candidate.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := s.dao.Delete(ctx, candidate.ID); err != nil {
			return deleted, err
		}
		s.locks.Delete(candidate.ID)
		deleted++
	}
	return deleted, nil
}

func (s *service) load(ctx context.Context, id string) (*approval.Approval, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", approval.ErrNotFound)
	}
	ret, err := s.dao.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrNotFound, id)
	}
	return ret, nil
}

func copyMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(metadata) == 0 {
		return nil
	}
	ret := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		ret[k] = v
	}
	return ret
}

var _ approval.Service = (*service)(nil)
