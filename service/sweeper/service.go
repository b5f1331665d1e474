package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/viant/gatekeeper/internal/clock"
	"github.com/viant/gatekeeper/service/approval"
	"github.com/viant/gatekeeper/tracing"
)

// Config represents sweeper service configuration
type Config struct {
	// Interval is how often the sweeper scans for due approvals
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Budget bounds a single sweep pass; remaining work defers to the
	// next scheduled run
	Budget time.Duration `json:"budget" yaml:"budget"`

	// CleanupInterval is how often the retention cleanup runs
	CleanupInterval time.Duration `json:"cleanupInterval" yaml:"cleanupInterval"`

	// CleanupBudget bounds a single cleanup pass
	CleanupBudget time.Duration `json:"cleanupBudget" yaml:"cleanupBudget"`

	// Retention is how long terminal approvals are kept
	Retention time.Duration `json:"retention" yaml:"retention"`
}

// DefaultConfig returns the default sweeper configuration
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Minute,
		Budget:          5 * time.Minute,
		CleanupInterval: 7 * 24 * time.Hour,
		CleanupBudget:   time.Hour,
		Retention:       90 * 24 * time.Hour,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("sweeper.interval must be > 0")
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("sweeper.cleanupInterval must be > 0")
	}
	if c.Retention <= 0 {
		return fmt.Errorf("sweeper.retention must be > 0")
	}
	return nil
}

// Service forces time-based approval transitions so that the registry never
// has to poll itself.
type Service struct {
	config     Config
	registry   approval.Service
	shutdownCh chan struct{}
}

// New creates a new sweeper service
func New(registry approval.Service, config Config) *Service {
	return &Service{
		config:     config,
		registry:   registry,
		shutdownCh: make(chan struct{}),
	}
}

// Start begins the sweep and cleanup loops; it blocks until ctx is cancelled
// or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	sweep := time.NewTicker(s.config.Interval)
	defer sweep.Stop()
	cleanup := time.NewTicker(s.config.CleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-sweep.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("error sweeping approvals: %v", err)
			}
		case <-cleanup.C:
			if _, err := s.Cleanup(ctx); err != nil {
				log.Printf("error cleaning up approvals: %v", err)
			}
		}
	}
}

// Shutdown stops the loops started by Start.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
}

// Sweep runs one pass over due approvals, escalating those with an
// escalation path and expiring the rest. A failure on one approval is
// logged and does not abort the pass; when the budget elapses the remaining
// approvals are deferred to the next run. It returns the number of applied
// transitions.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ctx, cancel := s.budgeted(ctx, s.config.Budget)
	defer cancel()
	spanCtx, span := tracing.StartSpan(ctx, "sweeper.sweep", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	now := clock.Now()
	due, err := s.registry.ListDue(spanCtx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due approvals: %w", err)
	}
	applied := 0
	for _, candidate := range due {
		if spanCtx.Err() != nil {
			log.Printf("sweep budget elapsed, deferring %d approvals", len(due)-applied)
			break
		}
		ok, sweepErr := s.transition(spanCtx, candidate, now)
		if sweepErr != nil {
			log.Printf("error sweeping approval %s: %v", candidate.ID, sweepErr)
			continue
		}
		if ok {
			applied++
		}
	}
	span.WithAttributes(map[string]string{"due": fmt.Sprintf("%d", len(due)), "applied": fmt.Sprintf("%d", applied)})
	return applied, nil
}

// transition escalates a due pending approval that has an escalation path
// and expires anything else due. The registry revalidates the condition so
// a concurrent resolution wins harmlessly.
func (s *Service) transition(ctx context.Context, candidate *approval.Approval, now time.Time) (bool, error) {
	if candidate.Status == approval.StatusPending && candidate.EscalateRole != "" {
		return s.registry.Escalate(ctx, candidate.ID, now)
	}
	return s.registry.Expire(ctx, candidate.ID, now)
}

// Cleanup deletes terminal approvals older than the retention window and
// returns the number removed. Awaiting records are never touched.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	ctx, cancel := s.budgeted(ctx, s.config.CleanupBudget)
	defer cancel()
	spanCtx, span := tracing.StartSpan(ctx, "sweeper.cleanup", "INTERNAL")
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	cutoff := clock.Now().Add(-s.config.Retention)
	deleted, err := s.registry.DeleteResolvedBefore(spanCtx, cutoff)
	if err != nil {
		return deleted, fmt.Errorf("failed to clean up approvals: %w", err)
	}
	span.WithAttributes(map[string]string{"deleted": fmt.Sprintf("%d", deleted)})
	return deleted, nil
}

func (s *Service) budgeted(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}
