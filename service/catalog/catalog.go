package catalog

import (
	"sync"
	"time"
)

// LatencyClass is the expected latency class of a workflow action, used to
// suggest default approval timeouts.
type LatencyClass string

const (
	LatencyFast     LatencyClass = "fast"
	LatencyStandard LatencyClass = "standard"
	LatencySlow     LatencyClass = "slow"
	LatencyBatch    LatencyClass = "batch"
)

// SuggestedTimeout maps a latency class onto a default approval timeout.
func (c LatencyClass) SuggestedTimeout() time.Duration {
	switch c {
	case LatencyFast:
		return 15 * time.Minute
	case LatencySlow:
		return 4 * time.Hour
	case LatencyBatch:
		return 24 * time.Hour
	}
	return time.Hour
}

// Action is read-only metadata about a workflow action.
type Action struct {
	Name       string       `json:"name"`
	Idempotent bool         `json:"idempotent"`
	Latency    LatencyClass `json:"latency,omitempty"`
}

// Service is a registry of action metadata supplied by the surrounding
// system. The engine never resolves timeouts from it implicitly; callers
// consult SuggestTimeout before creating an approval.
type Service struct {
	mux     sync.RWMutex
	actions map[string]*Action
}

func New() *Service {
	return &Service{actions: make(map[string]*Action)}
}

// Register registers or replaces action metadata.
func (s *Service) Register(action *Action) {
	if action == nil || action.Name == "" {
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.actions[action.Name] = action
}

// Lookup returns action metadata by name.
func (s *Service) Lookup(name string) *Action {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.actions[name]
}

// SuggestTimeout returns the default approval timeout for a known action.
func (s *Service) SuggestTimeout(name string) (time.Duration, bool) {
	action := s.Lookup(name)
	if action == nil {
		return 0, false
	}
	return action.Latency.SuggestedTimeout(), true
}
