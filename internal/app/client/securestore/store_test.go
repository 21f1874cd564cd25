package securestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"memorizefacts/internal/domain/replication"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestStore_LoadMissing(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	sc, err := s.Load()
	require.NoError(t, err)
	assert.False(t, sc.Enabled)
	assert.Nil(t, sc.Credentials)
}

func TestStore_EnableDisable(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	creds := replication.Credentials{Login: "user@example.com", Password: "secret"}
	require.NoError(t, s.Enable(creds))

	raw, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	// Новый экземпляр читает тот же ключ устройства
	reopened, err := New(dir)
	require.NoError(t, err)
	sc, err := reopened.Load()
	require.NoError(t, err)
	assert.True(t, sc.Enabled)
	require.NotNil(t, sc.Credentials)
	assert.Equal(t, creds, *sc.Credentials)

	require.NoError(t, s.Disable(false))
	sc, err = s.Load()
	require.NoError(t, err)
	assert.False(t, sc.Enabled)
	assert.NotNil(t, sc.Credentials)

	require.NoError(t, s.Disable(true))
	sc, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, sc.Credentials)
}

func TestStore_EnableRequiresCredentials(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	err = s.Enable(replication.Credentials{Login: "user@example.com"})
	assert.ErrorIs(t, err, replication.ErrConfig)
}

func TestStore_Watch(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		seen []replication.SyncConfig
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), func(sc replication.SyncConfig) {
			mu.Lock()
			seen = append(seen, sc)
			mu.Unlock()
		})
	}()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	last := func() (replication.SyncConfig, bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(seen) == 0 {
			return replication.SyncConfig{}, false
		}
		return seen[len(seen)-1], true
	}

	// Первое значение приходит сразу после подписки
	require.Eventually(t, func() bool {
		_, ok := last()
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	first, _ := last()
	assert.False(t, first.Enabled)

	require.NoError(t, s.Enable(replication.Credentials{Login: "user@example.com", Password: "secret"}))
	require.Eventually(t, func() bool {
		sc, _ := last()
		return sc.Enabled
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Disable(false))
	assert.Eventually(t, func() bool {
		sc, _ := last()
		return !sc.Enabled && sc.Credentials != nil
	}, 5*time.Second, 20*time.Millisecond)
}
