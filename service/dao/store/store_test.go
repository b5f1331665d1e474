package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/gatekeeper/service/dao"
	"github.com/viant/gatekeeper/service/dao/store"
)

type ticket struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Title  string `json:"title,omitempty"`
}

func ticketKey(t *ticket) string    { return t.ID }
func ticketStatus(t *ticket) string { return t.Status }

func TestMemoryStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore[string, ticket](ticketKey)

	assert.ErrorIs(t, s.Save(ctx, nil), dao.ErrNilEntity)

	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-1", Status: "open", Title: "first"}))
	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-2", Status: "closed"}))

	loaded, err := s.Load(ctx, "t-1")
	assert.NoError(t, err)
	if assert.NotNil(t, loaded) {
		assert.Equal(t, "first", loaded.Title)
	}

	// absent key yields (nil, nil)
	missing, err := s.Load(ctx, "t-9")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	listed, err := s.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, listed, 2)

	assert.NoError(t, s.Delete(ctx, "t-1"))
	gone, err := s.Load(ctx, "t-1")
	assert.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryStore_ListByStatus(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStoreWithStatus[string, ticket](ticketKey, ticketStatus)
	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-1", Status: "open"}))
	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-2", Status: "closed"}))
	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-3", Status: "open"}))

	open, err := s.List(ctx, dao.NewParameter("Status", "open"))
	assert.NoError(t, err)
	assert.Len(t, open, 2)

	either, err := s.List(ctx, dao.NewParameter("Status", "open", "closed"))
	assert.NoError(t, err)
	assert.Len(t, either, 3)

	all, err := s.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFsStore_CRUD(t *testing.T) {
	ctx := context.Background()
	baseDir := filepath.Join(t.TempDir(), "tickets")

	s, err := store.NewFsStore[ticket](baseDir, ticketKey)
	assert.NoError(t, err)

	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-1", Status: "open", Title: "first"}))
	assert.NoError(t, s.Save(ctx, &ticket{ID: "run/42", Status: "open"}))

	loaded, err := s.Load(ctx, "t-1")
	assert.NoError(t, err)
	if assert.NotNil(t, loaded) {
		assert.Equal(t, "first", loaded.Title)
	}

	// ids with path separators are usable
	slashed, err := s.Load(ctx, "run/42")
	assert.NoError(t, err)
	assert.NotNil(t, slashed)

	missing, err := s.Load(ctx, "t-9")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, dao.ErrInvalidID)

	listed, err := s.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, listed, 2)

	assert.NoError(t, s.Delete(ctx, "t-1"))
	assert.NoError(t, s.Delete(ctx, "t-1"), "deleting an absent record is a no-op")
	gone, err := s.Load(ctx, "t-1")
	assert.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFsStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	baseDir := filepath.Join(t.TempDir(), "tickets")

	first, err := store.NewFsStore[ticket](baseDir, ticketKey)
	assert.NoError(t, err)
	assert.NoError(t, first.Save(ctx, &ticket{ID: "t-1", Status: "open", Title: "persisted"}))

	// a second store over the same path sees the record
	second, err := store.NewFsStore[ticket](baseDir, ticketKey)
	assert.NoError(t, err)
	loaded, err := second.Load(ctx, "t-1")
	assert.NoError(t, err)
	if assert.NotNil(t, loaded) {
		assert.Equal(t, "persisted", loaded.Title)
	}
}

func TestFsStore_ListByStatus(t *testing.T) {
	ctx := context.Background()
	baseDir := filepath.Join(t.TempDir(), "tickets")

	s, err := store.NewFsStoreWithStatus[ticket](baseDir, ticketKey, ticketStatus)
	assert.NoError(t, err)
	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-1", Status: "open"}))
	assert.NoError(t, s.Save(ctx, &ticket{ID: "t-2", Status: "closed"}))

	open, err := s.List(ctx, dao.NewParameter("Status", "open"))
	assert.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestNewFsStore_Validation(t *testing.T) {
	_, err := store.NewFsStore[ticket]("", ticketKey)
	assert.Error(t, err)

	_, err = store.NewFsStore[ticket](filepath.Join(t.TempDir(), "x"), nil)
	assert.Error(t, err)
}
