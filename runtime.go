package gatekeeper

import (
	"context"

	"github.com/viant/gatekeeper/service/sweeper"
)

// Runtime drives the engine's background loops: the escalation sweep and the
// retention cleanup. Request-serving operations (create/resolve/report) do
// not depend on it being started.
type Runtime struct {
	sweeper *sweeper.Service
}

// Sweeper returns the escalation sweeper.
func (r *Runtime) Sweeper() *sweeper.Service {
	return r.sweeper
}

// Start starts the background loops; they stop when ctx is cancelled or
// Shutdown is called.
func (r *Runtime) Start(ctx context.Context) error {
	go r.sweeper.Start(ctx)
	return nil
}

// Shutdown stops the background loops.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.sweeper.Shutdown()
	return nil
}
