package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"memorizefacts/internal/app/client/config"
	"memorizefacts/internal/app/client/gql"
	"memorizefacts/internal/app/client/securestore"
	"memorizefacts/internal/domain/cleanup"
	"memorizefacts/internal/domain/fact"
	"memorizefacts/internal/domain/notification"
	"memorizefacts/internal/domain/replication"
	"memorizefacts/internal/domain/schedule"
	"memorizefacts/internal/domain/tag"
	"memorizefacts/internal/infrastructure/storage/memory"
	"memorizefacts/internal/infrastructure/storage/sqlite"
	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

// SyncedCollections коллекции, которые сервер умеет синхронизировать
var SyncedCollections = []string{model.CollectionTags}

type App struct {
	cfg *config.Config
	log *slog.Logger

	store     model.Store
	signal    *securestore.Store
	connector replication.Connector
	scheduler notification.Scheduler
	sync      *replication.Manager
	cleaner   *cleanup.Cleaner

	Tags          *tag.Service
	Facts         *fact.Service
	Schedules     *schedule.Service
	Notifications *notification.Service

	closeOnce sync.Once
}

type Option func(*App)

// WithConnector подменяет подключение к серверу синхронизации
func WithConnector(c replication.Connector) Option {
	return func(a *App) {
		a.connector = c
	}
}

// WithScheduler подменяет планировщик системных уведомлений
func WithScheduler(s notification.Scheduler) Option {
	return func(a *App) {
		a.scheduler = s
	}
}

// WithStore подменяет локальное хранилище
func WithStore(s model.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(a)
	}

	signalStore, err := securestore.New(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища настроек синхронизации: %w", err)
	}
	a.signal = signalStore

	if a.store == nil {
		store, err := sqlite.New(cfg.DataPath, log)
		if err != nil {
			// Без базы клиент работает до выхода, синхронизация потом догонит
			log.Warn("Не удалось открыть SQLite, используем память", slog.String("error", err.Error()))
			a.store = memory.New(log)
		} else {
			a.store = store
		}
	}
	if a.connector == nil {
		a.connector = gql.NewConnector(cfg.SyncURL, log)
	}
	if a.scheduler == nil {
		a.scheduler = notification.NewLogScheduler(log)
	}

	a.Tags = tag.NewService(a.store, log)
	a.Facts = fact.NewService(a.store, log)
	a.Schedules = schedule.NewService(a.store, log)
	a.Notifications = notification.NewService(a.store, a.scheduler, log)
	a.cleaner = cleanup.New(a.Facts, a.Notifications, log)
	a.sync = replication.NewManager(a.store, a.connector, SyncedCollections, cfg.Sync, nil, log)

	return a, nil
}

// Run запускает фоновую синхронизацию и следит за сигналом включения до отмены ctx.
// SIGUSR1 запускает внеочередной цикл.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cleanupDone := a.cleaner.Start(ctx, a.store)

	errs, unsubscribe := a.sync.Subscribe()
	defer unsubscribe()
	go a.logSyncErrors(ctx, errs)

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- a.signal.Watch(ctx, a.log, func(sc replication.SyncConfig) {
			a.applySignal(ctx, sc)
		})
	}()

	trigger := make(chan os.Signal, 1)
	signal.Notify(trigger, syscall.SIGUSR1)
	defer signal.Stop(trigger)

	a.log.Info("Клиент запущен", slog.String("env", a.cfg.Env), slog.String("sync_url", a.cfg.SyncURL))

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-trigger:
			if err := a.sync.Trigger(); err != nil {
				a.log.Info("Синхронизация выключена, запуск пропущен")
			}
		case err := <-watchErr:
			if err != nil {
				runErr = fmt.Errorf("наблюдение за настройками синхронизации: %w", err)
			}
			break loop
		}
	}

	cancel()
	a.sync.Stop()
	<-cleanupDone
	a.log.Info("Клиент завершил работу")
	return runErr
}

func (a *App) applySignal(ctx context.Context, sc replication.SyncConfig) {
	if err := a.sync.Apply(ctx, sc); err != nil {
		a.log.Error("Не удалось применить настройки синхронизации", slog.String("error", err.Error()))
	}
}

func (a *App) logSyncErrors(ctx context.Context, errs <-chan *replication.Error) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-errs:
			if !ok {
				return
			}
			for _, inner := range e.Inner {
				a.log.Warn("Документ отклонен сервером",
					slog.String("collection", e.Collection),
					slog.String("id", inner.ID),
					slog.String("reason", inner.Reason),
					slog.Bool("permanent", inner.Permanent))
			}
		}
	}
}

// EnableSync сохраняет учетные данные и включает синхронизацию
func (a *App) EnableSync(creds replication.Credentials) error {
	return a.signal.Enable(creds)
}

// DisableSync выключает синхронизацию, forget стирает учетные данные
func (a *App) DisableSync(forget bool) error {
	return a.signal.Disable(forget)
}

// SyncNow выполняет один цикл синхронизации без фонового режима
func (a *App) SyncNow(ctx context.Context) ([]replication.Status, error) {
	sc, err := a.signal.Load()
	if err != nil {
		return nil, err
	}
	return a.sync.RunOnce(ctx, sc)
}

// Register создает пользователя на сервере синхронизации
func (a *App) Register(ctx context.Context, email, password string) error {
	client, err := gql.NewClient(a.cfg.SyncURL, a.log)
	if err != nil {
		return err
	}
	return client.Register(ctx, email, password)
}

// pendingHorizon учитывает и документы, ждущие повторной отправки
var pendingHorizon = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

// CollectionReport состояние синхронизации одной коллекции по локальным данным
type CollectionReport struct {
	Collection string       `json:"collection"`
	Cursor     model.Cursor `json:"cursor"`
	Pending    int          `json:"pending"`
}

type SyncReport struct {
	Enabled     bool               `json:"enabled"`
	Login       string             `json:"login,omitempty"`
	Collections []CollectionReport `json:"collections"`
}

// SyncReport собирает состояние синхронизации из сигнала и локального хранилища
func (a *App) SyncReport(ctx context.Context) (SyncReport, error) {
	sc, err := a.signal.Load()
	if err != nil {
		return SyncReport{}, err
	}

	report := SyncReport{Enabled: sc.Enabled}
	if sc.Credentials != nil {
		report.Login = sc.Credentials.Login
	}
	for _, c := range SyncedCollections {
		cursor, err := a.store.LoadCursor(ctx, c)
		if err != nil {
			return SyncReport{}, fmt.Errorf("load cursor %s: %w", c, err)
		}
		pending, err := a.store.Dirty(ctx, c, pendingHorizon, 0)
		if err != nil {
			return SyncReport{}, fmt.Errorf("load pending %s: %w", c, err)
		}
		report.Collections = append(report.Collections, CollectionReport{Collection: c, Cursor: cursor, Pending: len(pending)})
	}
	return report, nil
}

// DeleteTag удаляет тег и сразу убирает ссылки на него из фактов.
// В фоновом режиме то же делает обработчик событий удаления, повтор безопасен.
func (a *App) DeleteTag(ctx context.Context, id string) error {
	if err := a.Tags.Delete(ctx, id); err != nil {
		return err
	}
	return a.cleanupRemoved(ctx, model.CollectionTags, id)
}

// DeleteFact удаляет факт вместе с его уведомлениями
func (a *App) DeleteFact(ctx context.Context, id string) error {
	if err := a.Facts.Delete(ctx, id); err != nil {
		return err
	}
	return a.cleanupRemoved(ctx, model.CollectionFacts, id)
}

// DeleteSchedule удаляет расписание, его уведомления и ссылки из фактов
func (a *App) DeleteSchedule(ctx context.Context, id string) error {
	if err := a.Schedules.Delete(ctx, id); err != nil {
		return err
	}
	return a.cleanupRemoved(ctx, model.CollectionSchedules, id)
}

func (a *App) cleanupRemoved(ctx context.Context, collection, id string) error {
	return a.cleaner.Handle(ctx, model.ChangeEvent{
		Collection: collection,
		Type:       model.ChangeRemove,
		Doc:        model.Document{Collection: collection, ID: id, Deleted: true},
		Origin:     model.OriginLocal,
	})
}

func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.sync.Stop()
		err = a.store.Close()
	})
	return err
}
