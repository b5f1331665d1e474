package event

import (
	"context"
	"log"
	"reflect"
	"sort"
	"sync"
)

// Handler consumes events delivered by the bus.
type Handler func(ctx context.Context, event *Event)

type subscriber struct {
	id      uintptr
	handler Handler
}

// Service is the in-process publish/subscribe bus. One instance is
// constructed during startup and passed explicitly to all dependents.
// It is safe for concurrent publish and subscribe/unsubscribe.
type Service struct {
	backend Backend
	mux     sync.RWMutex
	topics  map[string][]*subscriber
}

// New creates a bus delivering through the supplied backend; a nil backend
// falls back to NoopBackend.
func New(backend Backend) *Service {
	if backend == nil {
		backend = NoopBackend{}
	}
	return &Service{
		backend: backend,
		topics:  make(map[string][]*subscriber),
	}
}

// Subscribe registers handler for a topic. Registration is idempotent -
// subscribing the same handler to the same topic twice has no additional
// effect. Notification follows insertion order within a topic.
func (s *Service) Subscribe(topic string, handler Handler) {
	if handler == nil {
		return
	}
	id := handlerID(handler)
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, existing := range s.topics[topic] {
		if existing.id == id {
			return
		}
	}
	s.topics[topic] = append(s.topics[topic], &subscriber{id: id, handler: handler})
}

// Unsubscribe removes a previously registered handler from a topic.
func (s *Service) Unsubscribe(topic string, handler Handler) {
	if handler == nil {
		return
	}
	id := handlerID(handler)
	s.mux.Lock()
	defer s.mux.Unlock()
	subscribers := s.topics[topic]
	for i, existing := range subscribers {
		if existing.id == id {
			s.topics[topic] = append(subscribers[:i:i], subscribers[i+1:]...)
			return
		}
	}
}

// Publish forwards the event to the delivery backend and then notifies
// in-process subscribers. When topics are omitted every registered
// subscriber is notified; otherwise only subscribers of the listed topics.
// Backend failures are logged and never surfaced; a panicking handler is
// recovered and does not stop notification of the remaining subscribers.
func (s *Service) Publish(ctx context.Context, event *Event, topics ...string) {
	if event == nil {
		return
	}
	event.ensureTimestamp()
	if err := s.backend.Publish(ctx, event, topics); err != nil {
		log.Printf("%v: %v (event %s)", ErrBackendUnavailable, err, event.Type)
	}
	for _, target := range s.subscribers(topics) {
		notify(ctx, target, event)
	}
}

// subscribers snapshots the handlers to notify, deduplicated by handler
// identity so that a handler registered on several matched topics runs once.
func (s *Service) subscribers(topics []string) []*subscriber {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if len(topics) == 0 {
		topics = make([]string, 0, len(s.topics))
		for topic := range s.topics {
			topics = append(topics, topic)
		}
		sort.Strings(topics)
	}
	var ret []*subscriber
	seen := make(map[uintptr]bool)
	for _, topic := range topics {
		for _, candidate := range s.topics[topic] {
			if seen[candidate.id] {
				continue
			}
			seen[candidate.id] = true
			ret = append(ret, candidate)
		}
	}
	return ret
}

// notify invokes a single handler in isolation.
func notify(ctx context.Context, target *subscriber, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("event handler panic on %s: %v", event.Type, r)
		}
	}()
	target.handler(ctx, event)
}

func handlerID(handler Handler) uintptr {
	return reflect.ValueOf(handler).Pointer()
}
