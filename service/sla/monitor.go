package sla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/gatekeeper/internal/clock"
	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/dao/store"
	"github.com/viant/gatekeeper/service/sla/breach"
	"github.com/viant/gatekeeper/tracing"
)

func definitionKey(d *Definition) string { return d.ID }

// bucket accumulates executions for one UTC hour.
type bucket struct {
	total    int
	breached int
}

// window holds the rolling counters of one definition. Reports for the same
// definition serialize on its mutex; different definitions proceed
// independently.
type window struct {
	mu      sync.Mutex
	buckets map[int64]*bucket
}

// Monitor computes, for each reported workflow-run completion, whether the
// duration thresholds were met, and maintains rolling SLO statistics per
// SLA definition. Counters cover only the trailing WindowHours; stale hour
// buckets are pruned lazily on every report and read, so after a restart
// the window rebuilds from empty while definitions and breaches stay
// durable.
type Monitor struct {
	definitions dao.Service[string, Definition]
	recorder    breach.Service

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a monitor delegating violations to the supplied recorder.
func New(recorder breach.Service, options ...MonitorOption) *Monitor {
	ret := &Monitor{
		definitions: store.NewMemoryStore[string, Definition](definitionKey),
		recorder:    recorder,
		windows:     make(map[string]*window),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

type MonitorOption func(*Monitor)

// WithDefinitionDAO replaces the default in-memory definition store.
func WithDefinitionDAO(service dao.Service[string, Definition]) MonitorOption {
	return func(m *Monitor) { m.definitions = service }
}

// SaveDefinition validates and persists an SLA definition.
func (m *Monitor) SaveDefinition(ctx context.Context, definition *Definition) error {
	if definition == nil {
		return dao.ErrNilEntity
	}
	if err := definition.Validate(); err != nil {
		return err
	}
	return m.definitions.Save(ctx, definition)
}

// Definition returns a definition by id.
func (m *Monitor) Definition(ctx context.Context, slaID string) (*Definition, error) {
	ret, err := m.definitions.Load(ctx, slaID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slaID)
	}
	return ret, nil
}

// Definitions lists all definitions.
func (m *Monitor) Definitions(ctx context.Context) ([]*Definition, error) {
	return m.definitions.List(ctx)
}

// ReportExecution records one workflow-run completion against a definition,
// updating the rolling counters and delegating to the breach recorder when
// a threshold was violated.
func (m *Monitor) ReportExecution(ctx context.Context, slaID, executionID string, actual time.Duration) error {
	spanCtx, span := tracing.StartSpan(ctx, "sla.report", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	definition, err := m.Definition(spanCtx, slaID)
	if err != nil {
		return err
	}
	severity, breached := definition.Severity(actual)

	w := m.window(slaID)
	w.mu.Lock()
	now := clock.Now()
	w.prune(now, definition.WindowHours)
	b := w.bucket(now)
	b.total++
	if breached {
		b.breached++
	}
	w.mu.Unlock()

	if !breached {
		return nil
	}
	_, err = m.recorder.RecordOrUpdate(spanCtx, slaID, executionID, severity, actual, definition.TargetDuration, definition.AlertRecipients)
	return err
}

// Stats returns the current rolling-window snapshot for a definition.
func (m *Monitor) Stats(ctx context.Context, slaID string) (*Stats, error) {
	definition, err := m.Definition(ctx, slaID)
	if err != nil {
		return nil, err
	}
	w := m.window(slaID)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(clock.Now(), definition.WindowHours)
	total, breached := 0, 0
	for _, b := range w.buckets {
		total += b.total
		breached += b.breached
	}
	ret := &Stats{
		SLAID:              slaID,
		TotalExecutions:    total,
		BreachedExecutions: breached,
		CurrentPercentage:  percentage(total, breached),
	}
	ret.Healthy = ret.CurrentPercentage >= definition.TargetPercentage
	return ret, nil
}

func percentage(total, breached int) float64 {
	if total == 0 {
		return 100.0
	}
	return 100.0 * float64(total-breached) / float64(total)
}

func (m *Monitor) window(slaID string) *window {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret, ok := m.windows[slaID]
	if !ok {
		ret = &window{buckets: make(map[int64]*bucket)}
		m.windows[slaID] = ret
	}
	return ret
}

func hourOf(t time.Time) int64 {
	return t.UTC().Unix() / 3600
}

// bucket returns the counter bucket for the hour containing t; callers hold
// the window mutex.
func (w *window) bucket(t time.Time) *bucket {
	hour := hourOf(t)
	ret, ok := w.buckets[hour]
	if !ok {
		ret = &bucket{}
		w.buckets[hour] = ret
	}
	return ret
}

// prune drops buckets that aged out of the trailing window; callers hold
// the window mutex.
func (w *window) prune(now time.Time, windowHours int) {
	oldest := hourOf(now) - int64(windowHours) + 1
	for hour := range w.buckets {
		if hour < oldest {
			delete(w.buckets, hour)
		}
	}
}
