package breach

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/gatekeeper/internal/clock"
	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/dao/store"
	"github.com/viant/gatekeeper/service/event"
)

// Service records SLA violations and drives alert delivery.
type Service interface {
	// RecordOrUpdate creates a breach for (slaID, executionID) or updates
	// the existing one; severity only ever escalates and alerts fire only
	// on creation.
	RecordOrUpdate(ctx context.Context, slaID, executionID string, severity Severity, actual, target time.Duration, recipients []string) (*Breach, error)

	Acknowledge(ctx context.Context, breachID, actorID, notes string) (*Breach, error)

	Get(ctx context.Context, breachID string) (*Breach, error)

	List(ctx context.Context) ([]*Breach, error)
}

func breachKey(b *Breach) string { return b.ID }

type recorder struct {
	dao   dao.Service[string, Breach]
	bus   *event.Service
	locks sync.Map
}

// New creates a DAO-backed breach recorder publishing alerts on the bus.
func New(bus *event.Service, options ...Option) Service {
	ret := &recorder{
		dao: store.NewMemoryStore[string, Breach](breachKey),
		bus: bus,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

type Option func(*recorder)

// WithDAO replaces the default in-memory store.
func WithDAO(service dao.Service[string, Breach]) Option {
	return func(r *recorder) { r.dao = service }
}

func (r *recorder) lock(id string) func() {
	actual, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mutex := actual.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

func (r *recorder) RecordOrUpdate(ctx context.Context, slaID, executionID string, severity Severity, actual, target time.Duration, recipients []string) (*Breach, error) {
	if severity.rank() == 0 {
		return nil, fmt.Errorf("unsupported severity %q", severity)
	}
	id := ID(slaID, executionID)
	defer r.lock(id)()
	existing, err := r.dao.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := clock.Now()
	if existing != nil {
		// second report for the same execution updates, never duplicates
		if severity.AtLeast(existing.Severity) {
			existing.Severity = severity
		}
		existing.ActualDuration = actual
		existing.TargetDuration = target
		existing.Margin = actual - target
		existing.UpdatedAt = now
		if err = r.dao.Save(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	ret := &Breach{
		ID:              id,
		SLAID:           slaID,
		ExecutionID:     executionID,
		Severity:        severity,
		ActualDuration:  actual,
		TargetDuration:  target,
		Margin:          actual - target,
		AlertRecipients: append([]string(nil), recipients...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.bus.Publish(ctx, event.NewEvent(TopicBreach, map[string]interface{}{
		"breachId":    ret.ID,
		"slaId":       slaID,
		"executionId": executionID,
		"severity":    string(severity),
		"margin":      ret.Margin.String(),
		"recipients":  ret.AlertRecipients,
	}), TopicBreach)
	// the bus recovers delivery failures locally, so publication counts
	// as sent
	ret.AlertSent = true
	ret.AlertSentAt = &now
	if err = r.dao.Save(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *recorder) Acknowledge(ctx context.Context, breachID, actorID, notes string) (*Breach, error) {
	defer r.lock(breachID)()
	ret, err := r.dao.Load(ctx, breachID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, breachID)
	}
	if ret.Acknowledged {
		return ret, fmt.Errorf("%w: %s", ErrAlreadyAcknowledged, breachID)
	}
	now := clock.Now()
	ret.Acknowledged = true
	ret.AcknowledgedAt = &now
	ret.AcknowledgedBy = actorID
	ret.ResolutionNotes = notes
	ret.UpdatedAt = now
	if err = r.dao.Save(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *recorder) Get(ctx context.Context, breachID string) (*Breach, error) {
	ret, err := r.dao.Load(ctx, breachID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, breachID)
	}
	return ret, nil
}

func (r *recorder) List(ctx context.Context) ([]*Breach, error) {
	return r.dao.List(ctx)
}

var _ Service = (*recorder)(nil)
