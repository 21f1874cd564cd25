// Package sqlite локальное хранилище документов на SQLite.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"memorizefacts/internal/infrastructure/migration"
	"memorizefacts/internal/infrastructure/storage/feed"
	"memorizefacts/internal/model"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Storage хранилище документов. Записи сериализуются через mu,
// события рассылаются после фиксации транзакции.
type Storage struct {
	db     *sql.DB
	mu     sync.Mutex
	feed   *feed.Feed
	log    *slog.Logger
	now    func() time.Time
	closed atomic.Bool
}

type Option func(*Storage)

// WithClock подменяет источник времени для меток updatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// New открывает базу по пути path и применяет встроенные миграции
func New(path string, log *slog.Logger, opts ...Option) (*Storage, error) {
	mg := migration.NewMigration("", "sqlite3://"+path, migration.EmbeddedEngine(migrations, "migrations"))
	if err := mg.Up(); err != nil {
		return nil, fmt.Errorf("migrate local database: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping local database: %w", err)
	}

	s := &Storage{
		db:   db,
		feed: feed.New(log, feed.DefaultBuffer),
		log:  log.With(slog.String("component", "sqlite")),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.Debug("local database opened", slog.String("path", path))
	return s, nil
}

// Subscribe подписывает на события коллекции
func (s *Storage) Subscribe(collection string) (<-chan model.ChangeEvent, func()) {
	return s.feed.Subscribe(collection)
}

func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed.Close()
	return s.db.Close()
}

func (s *Storage) checkOpen() error {
	if s.closed.Load() {
		return model.ErrClosed
	}
	return nil
}
var _ model.Store = (*Storage)(nil)
