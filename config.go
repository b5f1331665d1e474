package gatekeeper

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/viant/gatekeeper/service/sweeper"
)

// Event backend kinds selectable at startup. The set is closed: a backend is
// picked once during construction and injected into the bus.
const (
	BackendNoop   = "noop"
	BackendLog    = "log"
	BackendMemory = "memory"
	BackendQueue  = "queue"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from JSON, YAML, environment loaders, etc. The zero-value
// is useful; all nested fields inherit their package defaults.
type Config struct {
	Sweeper sweeper.Config `json:"sweeper" yaml:"sweeper"`
	Events  EventsConfig   `json:"events" yaml:"events"`
	Store   StoreConfig    `json:"store" yaml:"store"`

	// EscalationFactor scales an approval's original timeout into the
	// secondary deadline when the caller supplies none.
	EscalationFactor int `json:"escalationFactor" yaml:"escalationFactor"`
}

// EventsConfig selects the bus delivery backend.
type EventsConfig struct {
	// Backend is one of noop, log, memory, queue.
	Backend string `json:"backend" yaml:"backend"`

	// QueueBaseURL makes the queue backend durable: events are written to
	// a filesystem queue under this afs URL. Empty means an in-process
	// memory queue.
	QueueBaseURL string `json:"queueBaseURL" yaml:"queueBaseURL"`
}

// StoreConfig selects entity persistence. An empty BaseURL keeps approvals,
// SLA definitions and breaches in memory; any afs-supported URL makes them
// durable across restarts.
type StoreConfig struct {
	BaseURL string `json:"baseURL" yaml:"baseURL"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Sweeper:          sweeper.DefaultConfig(),
		Events:           EventsConfig{Backend: BackendNoop},
		EscalationFactor: 2,
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Sweeper.Validate(); err != nil {
		return err
	}
	switch c.Events.Backend {
	case "", BackendNoop, BackendLog, BackendMemory, BackendQueue:
	default:
		return fmt.Errorf("events.backend must be one of noop, log, memory, queue; got %q", c.Events.Backend)
	}
	if c.EscalationFactor < 0 {
		return fmt.Errorf("escalationFactor must be >= 0")
	}
	return nil
}

// NewConfigFromURL loads a YAML configuration from any afs-supported URL and
// overlays it on the defaults.
func NewConfigFromURL(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
