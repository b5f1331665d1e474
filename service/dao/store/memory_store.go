package store

import (
	"context"
	"sync"

	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/dao/criteria"
)

// MemoryStore is a generic in-memory implementation of dao.Service.
// It keeps entities of type *T mapped by a comparable key K obtained from
// the supplied keySelector function.
//
// Concrete DAOs embed the store to avoid rewriting identical
// Save/Load/Delete/List logic for every entity type. An optional
// statusSelector enables status-based List filtering via dao.Parameter.
type MemoryStore[K comparable, T any] struct {
	mu             sync.RWMutex
	records        map[K]*T
	keySelector    func(*T) K
	statusSelector func(*T) string
}

// NewMemoryStore creates a new MemoryStore.
// keySelector extracts the entity key (usually the ID field) from a value.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
}

// NewMemoryStoreWithStatus creates a MemoryStore whose List honours
// dao.NewParameter("Status", ...) filters.
func NewMemoryStoreWithStatus[K comparable, T any](keySelector func(*T) K, statusSelector func(*T) string) *MemoryStore[K, T] {
	ret := NewMemoryStore[K, T](keySelector)
	ret.statusSelector = statusSelector
	return ret
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = v
	return nil
}

// Load returns a record by key, or (nil, nil) when absent.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return v, nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// List returns stored records matching the optional parameters.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if s.statusSelector != nil && !criteria.FilterByStatus(s.statusSelector(v), parameters) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
