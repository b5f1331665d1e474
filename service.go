package gatekeeper

import (
	"context"
	"fmt"
	"log"
	"path"

	"github.com/viant/afs"
	"github.com/viant/x"

	"github.com/viant/gatekeeper/extension"
	"github.com/viant/gatekeeper/service/approval"
	amemory "github.com/viant/gatekeeper/service/approval/memory"
	"github.com/viant/gatekeeper/service/catalog"
	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/dao/store"
	"github.com/viant/gatekeeper/service/event"
	"github.com/viant/gatekeeper/service/messaging"
	qfs "github.com/viant/gatekeeper/service/messaging/fs"
	qmemory "github.com/viant/gatekeeper/service/messaging/memory"
	"github.com/viant/gatekeeper/service/sla"
	"github.com/viant/gatekeeper/service/sla/breach"
	"github.com/viant/gatekeeper/service/sweeper"
)

// Service is the engine façade: it wires the event bus, the approval
// registry, the SLA monitor, the breach recorder and the background runtime
// from a Config plus functional options.
type Service struct {
	config *Config

	backend    event.Backend
	eventQueue messaging.Queue[event.Event]
	bus        *event.Service

	approvalDAO   dao.Service[string, approval.Approval]
	definitionDAO dao.Service[string, sla.Definition]
	breachDAO     dao.Service[string, breach.Breach]

	approvals approval.Service
	recorder  breach.Service
	monitor   *sla.Monitor
	catalog   *catalog.Service

	extensionTypes []*x.Type
	notifiers      *extension.Notifiers

	runtime *Runtime
}

// New creates a service from the supplied options.
func New(options ...Option) (*Service, error) {
	ret := &Service{runtime: &Runtime{}}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}
	s.bus = event.New(s.backend)
	s.notifiers = extension.NewNotifiers(s.extensionTypes...)
	if s.catalog == nil {
		s.catalog = catalog.New()
	}
	s.approvals = amemory.New(s.bus,
		amemory.WithDAO(s.approvalDAO),
		amemory.WithEscalationFactor(s.config.EscalationFactor))
	s.recorder = breach.New(s.bus, breach.WithDAO(s.breachDAO))
	s.monitor = sla.New(s.recorder, sla.WithDefinitionDAO(s.definitionDAO))
	s.runtime.sweeper = sweeper.New(s.approvals, s.config.Sweeper)
	return nil
}

func (s *Service) ensureBaseSetup() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := s.ensureBackend(); err != nil {
		return err
	}
	return s.ensureStores()
}

func (s *Service) ensureBackend() error {
	if s.backend != nil {
		return nil
	}
	switch s.config.Events.Backend {
	case "", BackendNoop:
		s.backend = event.NoopBackend{}
	case BackendLog:
		s.backend = event.LogBackend{}
	case BackendMemory:
		s.backend = event.NewMemoryBackend()
	case BackendQueue:
		if s.eventQueue == nil {
			if baseURL := s.config.Events.QueueBaseURL; baseURL != "" {
				queue, err := qfs.NewQueue[event.Event](afs.New(), qfs.Config{BasePath: baseURL, MaxRetries: 3})
				if err != nil {
					return fmt.Errorf("failed to create event queue: %w", err)
				}
				s.eventQueue = queue
			} else {
				s.eventQueue = qmemory.NewQueue[event.Event](qmemory.DefaultConfig())
			}
		}
		s.backend = event.NewQueueBackend(s.eventQueue)
	}
	return nil
}

func (s *Service) ensureStores() error {
	baseURL := s.config.Store.BaseURL
	if s.approvalDAO == nil {
		if baseURL != "" {
			approvalStore, err := store.NewFsStoreWithStatus[approval.Approval](path.Join(baseURL, "approvals"),
				func(a *approval.Approval) string { return a.ID },
				func(a *approval.Approval) string { return string(a.Status) })
			if err != nil {
				return err
			}
			s.approvalDAO = approvalStore
		} else {
			s.approvalDAO = store.NewMemoryStoreWithStatus[string, approval.Approval](
				func(a *approval.Approval) string { return a.ID },
				func(a *approval.Approval) string { return string(a.Status) })
		}
	}
	if s.definitionDAO == nil {
		if baseURL != "" {
			definitionStore, err := store.NewFsStore[sla.Definition](path.Join(baseURL, "sla"),
				func(d *sla.Definition) string { return d.ID })
			if err != nil {
				return err
			}
			s.definitionDAO = definitionStore
		} else {
			s.definitionDAO = store.NewMemoryStore[string, sla.Definition](
				func(d *sla.Definition) string { return d.ID })
		}
	}
	if s.breachDAO == nil {
		if baseURL != "" {
			breachStore, err := store.NewFsStore[breach.Breach](path.Join(baseURL, "breaches"),
				func(b *breach.Breach) string { return b.ID })
			if err != nil {
				return err
			}
			s.breachDAO = breachStore
		} else {
			s.breachDAO = store.NewMemoryStore[string, breach.Breach](
				func(b *breach.Breach) string { return b.ID })
		}
	}
	return nil
}

// Approvals returns the approval registry.
func (s *Service) Approvals() approval.Service {
	return s.approvals
}

// SLA returns the SLA monitor.
func (s *Service) SLA() *sla.Monitor {
	return s.monitor
}

// Breaches returns the breach recorder.
func (s *Service) Breaches() breach.Service {
	return s.recorder
}

// Bus returns the event bus.
func (s *Service) Bus() *event.Service {
	return s.bus
}

// Catalog returns the action metadata catalog.
func (s *Service) Catalog() *catalog.Service {
	return s.catalog
}

// Notifiers returns the outbound channel registry.
func (s *Service) Notifiers() *extension.Notifiers {
	return s.notifiers
}

// Runtime returns the background runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// RegisterExtensionTypes registers payload types for notifier decoding.
func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.notifiers.Types().Register(types[i])
	}
}

// RegisterNotifier registers an outbound channel and subscribes it to the
// supplied bus topics (all topics when none given). Notifier failures are
// logged and never propagate to publishers.
func (s *Service) RegisterNotifier(notifier extension.Notifier, topics ...string) {
	s.notifiers.Register(notifier)
	handler := func(ctx context.Context, e *event.Event) {
		if err := notifier.Notify(ctx, e); err != nil {
			log.Printf("notifier %s failed on %s: %v", notifier.Name(), e.Type, err)
		}
	}
	if len(topics) == 0 {
		topics = []string{
			approval.TopicCreated,
			approval.TopicResolved,
			approval.TopicEscalated,
			approval.TopicExpired,
			breach.TopicBreach,
		}
	}
	for _, topic := range topics {
		s.bus.Subscribe(topic, handler)
	}
}
