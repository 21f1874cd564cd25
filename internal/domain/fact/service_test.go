package fact

import (
	"context"
	"io"
	"testing"
	"time"

	"memorizefacts/internal/infrastructure/storage/memory"
	"memorizefacts/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func setup(t *testing.T) (*Service, model.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New(log)
	for _, id := range []string{"t1", "t2"} {
		doc, err := model.NewDocument(model.CollectionTags, id, map[string]string{"name": "tag " + id})
		require.NoError(t, err)
		_, err = store.Insert(context.Background(), doc)
		require.NoError(t, err)
	}
	return NewService(store, log), store
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	deadline := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{
			name: "valid",
			req:  CreateRequest{Name: "Rome", Description: "Capital of Italy", Active: true, Tags: []string{"t1", "t1"}, Deadline: &deadline},
		},
		{
			name:    "duplicate name",
			req:     CreateRequest{Name: "Rome", Description: "again"},
			wantErr: ErrAlreadyExist,
		},
		{
			name:    "missing name",
			req:     CreateRequest{Name: " ", Description: "d"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "missing description",
			req:     CreateRequest{Name: "Paris"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown tag",
			req:     CreateRequest{Name: "Paris", Description: "d", Tags: []string{"nope"}},
			wantErr: ErrUnknownTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := s.Create(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"t1"}, f.Tags)
			assert.Empty(t, f.Schedules)
			require.NotNil(t, f.Deadline)
			assert.True(t, deadline.Equal(*f.Deadline))
		})
	}
}

func TestService_UpdateAndTags(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)

	f, err := s.Create(ctx, CreateRequest{Name: "Everest", Description: "8848 m"})
	require.NoError(t, err)

	active := true
	desc := "8849 m"
	f, err = s.Update(ctx, f.ID, UpdateRequest{Active: &active, Description: &desc})
	require.NoError(t, err)
	assert.True(t, f.Active)
	assert.Equal(t, "8849 m", f.Description)
	assert.Equal(t, "Everest", f.Name)

	f, err = s.AddTag(ctx, f.ID, "t2")
	require.NoError(t, err)
	f, err = s.AddTag(ctx, f.ID, "t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, f.Tags)

	_, err = s.AddTag(ctx, f.ID, "missing")
	assert.ErrorIs(t, err, ErrUnknownTag)

	byTag, err := s.List(ctx, ListFilter{TagID: "t2", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, byTag, 1)

	f, err = s.RemoveTag(ctx, f.ID, "t2")
	require.NoError(t, err)
	assert.Empty(t, f.Tags)

	byTag, err = s.List(ctx, ListFilter{TagID: "t2"})
	require.NoError(t, err)
	assert.Empty(t, byTag)
}

func TestService_DetachTag(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)

	a, err := s.Create(ctx, CreateRequest{Name: "a", Description: "d", Tags: []string{"t1", "t2"}})
	require.NoError(t, err)
	b, err := s.Create(ctx, CreateRequest{Name: "b", Description: "d", Tags: []string{"t1"}})
	require.NoError(t, err)

	require.NoError(t, s.DetachTag(ctx, "t1"))

	a, err = s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, a.Tags)
	b, err = s.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, b.Tags)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)

	f, err := s.Create(ctx, CreateRequest{Name: "gone", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, f.ID))
	assert.ErrorIs(t, s.Delete(ctx, f.ID), ErrNotFound)
	_, err = s.GetByName(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}
