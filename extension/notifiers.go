package extension

import (
	"context"
	"sync"

	"github.com/viant/gatekeeper/service/event"
	"github.com/viant/x"
)

// Notifier forwards bus events to an outbound channel (email, chat, paging
// system). Implementations are supplied by the embedding application.
type Notifier interface {
	Name() string

	Notify(ctx context.Context, event *event.Event) error
}

// DataTypeIniter lets a notifier register its payload types on registration.
type DataTypeIniter interface {
	InitTypes(types *Types)
}

// Notifiers holds registered outbound channels.
type Notifiers struct {
	types     *Types
	notifiers map[string]Notifier
	mux       sync.RWMutex
}

func (s *Notifiers) Types() *Types {
	return s.types
}

// Lookup returns a notifier by name
func (s *Notifiers) Lookup(name string) Notifier {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.notifiers[name]
}

// Register registers a notifier
func (s *Notifiers) Register(notifier Notifier) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if typer, ok := notifier.(DataTypeIniter); ok {
		typer.InitTypes(s.types)
	}
	s.notifiers[notifier.Name()] = notifier
}

// NewNotifiers creates a notifier registry
func NewNotifiers(goTypes ...*x.Type) *Notifiers {
	ret := &Notifiers{
		types:     NewTypes(),
		notifiers: make(map[string]Notifier),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
