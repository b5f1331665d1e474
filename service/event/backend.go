package event

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/viant/gatekeeper/service/messaging"
)

// ErrBackendUnavailable wraps delivery backend failures. It is logged by the
// bus and never surfaced to publishers.
var ErrBackendUnavailable = errors.New("event: backend unavailable")

// Backend delivers published events to an external transport before
// in-process subscribers are notified. Implementations are selected at
// startup from a closed set and injected into the bus.
type Backend interface {
	Publish(ctx context.Context, event *Event, topics []string) error
}

// NoopBackend is the default backend; it drops events.
type NoopBackend struct{}

func (NoopBackend) Publish(context.Context, *Event, []string) error { return nil }

// LogBackend writes every published event to the process log.
type LogBackend struct{}

func (LogBackend) Publish(_ context.Context, event *Event, topics []string) error {
	if len(topics) == 0 {
		log.Printf("event %s data=%v", event.Type, event.Data)
		return nil
	}
	log.Printf("event %s topics=%v data=%v", event.Type, topics, event.Data)
	return nil
}

// MemoryBackend records published events for verification in tests.
type MemoryBackend struct {
	mu     sync.RWMutex
	events []*Event
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Publish(_ context.Context, event *Event, _ []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

// Events returns recorded events of the supplied type in publish order; an
// empty type returns everything.
func (b *MemoryBackend) Events(eventType string) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ret := make([]*Event, 0, len(b.events))
	for _, candidate := range b.events {
		if eventType == "" || candidate.Type == eventType {
			ret = append(ret, candidate)
		}
	}
	return ret
}

// Clear discards all recorded events.
func (b *MemoryBackend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// QueueBackend forwards events onto a messaging queue; with a durable queue
// implementation this is the production transport.
type QueueBackend struct {
	queue messaging.Queue[Event]
}

func NewQueueBackend(queue messaging.Queue[Event]) *QueueBackend {
	return &QueueBackend{queue: queue}
}

func (b *QueueBackend) Publish(ctx context.Context, event *Event, _ []string) error {
	return b.queue.Publish(ctx, event)
}

var (
	_ Backend = NoopBackend{}
	_ Backend = LogBackend{}
	_ Backend = (*MemoryBackend)(nil)
	_ Backend = (*QueueBackend)(nil)
)
