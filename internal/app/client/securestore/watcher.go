package securestore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"memorizefacts/internal/domain/replication"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

// debounce склеивает серию событий от одной атомарной замены файла
const debounce = 100 * time.Millisecond

// Watch следит за файлом сигнала и вызывает onChange с новым значением после каждого изменения.
// Первый вызов onChange приходит сразу после подписки с текущим значением.
// Блокируется до отмены ctx. Следит за директорией, потому что файл заменяется переименованием.
func (s *Store) Watch(ctx context.Context, log *slog.Logger, onChange func(replication.SyncConfig)) error {
	log = log.With(slog.String("component", "sync_signal"))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Текущее значение читается уже после подписки, изменения между ними не теряются
	var (
		timer  = time.NewTimer(0)
		fire   = timer.C
		target = filepath.Clean(s.path)
	)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			sc, err := s.Load()
			if err != nil {
				log.Warn("sync signal unreadable", slog.String("error", err.Error()))
				continue
			}
			log.Debug("sync signal changed", slog.Bool("enabled", sc.Enabled))
			onChange(sc)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
