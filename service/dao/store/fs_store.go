package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/dao/criteria"
)

// FsStore is a generic filesystem implementation of dao.Service keyed by
// string IDs. Every entity is serialised as a standalone JSON document under
// basePath so that records survive process restarts. The store accepts any
// URL scheme supported by afs (file, mem, s3, gs, ...).
type FsStore[T any] struct {
	basePath       string
	fs             afs.Service
	mu             sync.RWMutex
	keySelector    func(*T) string
	statusSelector func(*T) string
}

// NewFsStore creates a filesystem store rooted at basePath.
func NewFsStore[T any](basePath string, keySelector func(*T) string) (*FsStore[T], error) {
	return newFsStore[T](basePath, keySelector, nil)
}

// NewFsStoreWithStatus creates a filesystem store whose List honours
// dao.NewParameter("Status", ...) filters.
func NewFsStoreWithStatus[T any](basePath string, keySelector, statusSelector func(*T) string) (*FsStore[T], error) {
	return newFsStore[T](basePath, keySelector, statusSelector)
}

func newFsStore[T any](basePath string, keySelector, statusSelector func(*T) string) (*FsStore[T], error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if keySelector == nil {
		return nil, fmt.Errorf("key selector cannot be empty")
	}
	fsService := afs.New()
	ctx := context.Background()
	if exists, _ := fsService.Exists(ctx, basePath); !exists {
		if err := fsService.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return &FsStore[T]{
		basePath:       url.Normalize(basePath, file.Scheme),
		fs:             fsService,
		keySelector:    keySelector,
		statusSelector: statusSelector,
	}, nil
}

// Save persists an entity as a JSON document.
func (s *FsStore[T]) Save(ctx context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	id := s.keySelector(v)
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal entity %s: %w", id, err)
	}
	location := s.entityPath(id)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save entity to %s: %w", location, err)
	}
	return nil
}

// Load retrieves an entity by ID, returning (nil, nil) when absent.
func (s *FsStore[T]) Load(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	location := s.entityPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check entity %s: %w", id, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity file %s: %w", location, err)
	}
	var entity T
	if err = json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity %s: %w", id, err)
	}
	return &entity, nil
}

// Delete removes an entity; deleting an absent entity is a no-op.
func (s *FsStore[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.entityPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check entity %s: %w", id, err)
	}
	if !exists {
		return nil
	}
	if err = s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete entity file %s: %w", location, err)
	}
	return nil
}

// List returns all stored entities matching the optional parameters.
// Unreadable files are logged and skipped so that one corrupt record does
// not hide the rest.
func (s *FsStore[T]) List(ctx context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list entity files: %w", err)
	}
	var result []*T
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("error reading entity file %s: %v", object.URL(), err)
			continue
		}
		var entity T
		if err = json.Unmarshal(data, &entity); err != nil {
			log.Printf("error unmarshaling entity from %s: %v", object.URL(), err)
			continue
		}
		if s.statusSelector != nil && !criteria.FilterByStatus(s.statusSelector(&entity), parameters) {
			continue
		}
		result = append(result, &entity)
	}
	return result, nil
}

func (s *FsStore[T]) entityPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", sanitize(id)))
}

// sanitize keeps IDs usable as file names.
func sanitize(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(id)
}

var _ dao.Service[string, any] = (*FsStore[any])(nil)
