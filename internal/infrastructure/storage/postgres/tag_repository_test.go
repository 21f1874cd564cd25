package postgres

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"memorizefacts/internal/app/server/config"
	"memorizefacts/internal/domain/tagfeed"
	"memorizefacts/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// newTestStorage подключается к базе из TEST_DATABASE_URI и применяет миграции
func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	uri := os.Getenv("TEST_DATABASE_URI")
	if uri == "" {
		t.Skip("TEST_DATABASE_URI не задан")
	}

	cfg := &config.Config{}
	cfg.DB.DatabaseURI = uri
	cfg.DB.Migrations = "../../../../migrations/postgres"

	s, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTagRepository_FeedOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	u, err := NewUserRepository(s, log).Create(ctx, uuid.NewString()+"@example.com", "hash")
	require.NoError(t, err)
	other, err := NewUserRepository(s, log).Create(ctx, uuid.NewString()+"@example.com", "hash")
	require.NoError(t, err)

	t0 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Millisecond)
	t2 := t0.Add(time.Second)
	repo := NewTagRepository(s, log)

	tags := []tagfeed.Tag{
		{UserID: u.ID, FrontendID: "a", Name: "alpha", UpdatedAt: t1},
		{UserID: u.ID, FrontendID: "B", Name: "beta", UpdatedAt: t1},
		{UserID: u.ID, FrontendID: "c", Name: "gamma", UpdatedAt: t0},
		{UserID: u.ID, FrontendID: "d", Name: "delta", UpdatedAt: t2, Deleted: true},
		{UserID: other.ID, FrontendID: "x", Name: "alpha", UpdatedAt: t0},
	}
	require.NoError(t, repo.WithinTx(ctx, func(tx tagfeed.Tx) error {
		for _, tag := range tags {
			if err := tx.Upsert(ctx, tag); err != nil {
				return err
			}
		}
		return nil
	}))

	ids := func(feed []tagfeed.Tag) []string {
		out := make([]string, len(feed))
		for i, tag := range feed {
			out[i] = tag.FrontendID
		}
		return out
	}

	tests := []struct {
		name  string
		after model.Cursor
		limit int
		want  []string
	}{
		{
			// Байтовый порядок id при равном времени: "B" раньше "a"
			name:  "from the beginning",
			after: model.InitialCursor(),
			limit: 10,
			want:  []string{"c", "B", "a", "d"},
		},
		{
			name:  "cursor document excluded",
			after: model.Cursor{LastID: "B", LastUpdatedAt: t1},
			limit: 10,
			want:  []string{"a", "d"},
		},
		{
			name:  "limit",
			after: model.InitialCursor(),
			limit: 2,
			want:  []string{"c", "B"},
		},
		{
			name:  "past the end",
			after: model.Cursor{LastID: "d", LastUpdatedAt: t2},
			limit: 10,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed, err := repo.Feed(ctx, u.ID, tt.after, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(feed))
		})
	}

	feed, err := repo.Feed(ctx, u.ID, model.InitialCursor(), 10)
	require.NoError(t, err)
	require.Len(t, feed, 4)
	assert.True(t, feed[3].Deleted, "надгробия входят в ленту")
}
