package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slog"
)

// Manager запускает независимые циклы репликации по коллекциям и следит
// за переходами сигнала включения синхронизации.
type Manager struct {
	store       LocalStore
	connector   Connector
	collections []string
	cfg         Config
	bus         *Bus
	metrics     *Metrics
	log         *slog.Logger
	loopOpts    []LoopOption

	mu      sync.Mutex
	loops   map[string]*Loop
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	current SyncConfig
	// session номер текущего запуска
	session int
	// epoch растет при каждом Stop
	epoch int
}

func NewManager(store LocalStore, connector Connector, collections []string, cfg Config, metrics *Metrics, log *slog.Logger, opts ...LoopOption) *Manager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	log = log.With(slog.String("component", "replication"))
	return &Manager{
		store:       store,
		connector:   connector,
		collections: collections,
		cfg:         cfg.withDefaults(),
		bus:         NewBus(log),
		metrics:     metrics,
		log:         log,
		loopOpts:    opts,
		loops:       make(map[string]*Loop),
	}
}

// Subscribe подписывает на канал ошибок репликации
func (m *Manager) Subscribe() (<-chan *Error, func()) {
	return m.bus.Subscribe()
}

// Start проверяет конфигурацию, выполняет вход и запускает по циклу на коллекцию.
// Ошибки конфигурации и отказ во входе возвращаются сразу и не повторяются. Если сервер
// недоступен, циклы все равно запускаются и входят при следующей попытке.
// Циклы живут до Stop или отмены ctx.
func (m *Manager) Start(ctx context.Context, sc SyncConfig) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return ErrRunning
	}
	epoch := m.epoch
	m.mu.Unlock()

	// Вход идет без блокировки: Status и Trigger не ждут сеть
	remote, err := m.connector.Connect(ctx, *sc.Credentials)
	switch {
	case err == nil:
	case isConfigError(err):
		return fmt.Errorf("%w: %v", ErrConfig, err)
	case ctx.Err() != nil:
		return ErrCancelled
	default:
		m.log.Warn("login failed, will retry on next cycle", slog.String("error", err.Error()))
		remote = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return ErrRunning
	}
	// Stop во время входа отменяет этот запуск
	if m.epoch != epoch {
		return ErrCancelled
	}

	session := newSessionRemote(m.connector, *sc.Credentials, remote)
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.current = sc
	m.session++
	id := m.session
	m.loops = make(map[string]*Loop, len(m.collections))

	for _, collection := range m.collections {
		loop := NewLoop(collection, m.store, session, m.cfg, m.bus, m.metrics, m.log, m.loopOpts...)
		m.loops[collection] = loop
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			loop.Run(loopCtx)
		}()
	}

	m.log.Info("sync enabled", slog.Int("collections", len(m.collections)), slog.Bool("connected", remote != nil))
	go func() {
		select {
		case <-ctx.Done():
			m.stopSession(id)
		case <-loopCtx.Done():
		}
	}()
	return nil
}

// Stop отменяет все циклы и ждет их завершения. Запросы в полете дорабатывают, их результат отбрасывается.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.current = SyncConfig{}
	m.epoch++
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	m.log.Info("sync disabled")
}

func (m *Manager) stopSession(session int) {
	m.mu.Lock()
	current := m.session == session && m.cancel != nil
	m.mu.Unlock()
	if current {
		m.Stop()
	}
}

// Apply реагирует на новое значение сигнала включения
func (m *Manager) Apply(ctx context.Context, sc SyncConfig) error {
	m.mu.Lock()
	running := m.cancel != nil
	same := running && m.current.sameCredentials(sc)
	m.mu.Unlock()

	switch {
	case !sc.Enabled && running:
		m.Stop()
		return nil
	case !sc.Enabled:
		return nil
	case running && same:
		return nil
	case running:
		m.log.Info("credentials changed, restarting sync")
		m.Stop()
	}
	return m.Start(ctx, sc)
}

// Trigger запрашивает внеочередной цикл во всех коллекциях
func (m *Manager) Trigger() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return ErrNotRunning
	}
	for _, loop := range m.loops {
		loop.Trigger()
	}
	return nil
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Status состояния циклов в порядке регистрации коллекций
func (m *Manager) Status() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.collections))
	for _, c := range m.collections {
		if loop, ok := m.loops[c]; ok {
			out = append(out, loop.Status())
			continue
		}
		out = append(out, Status{Collection: c, State: StateCancelled})
	}
	return out
}

// RunOnce выполняет один цикл по всем коллекциям без запуска фоновых циклов
func (m *Manager) RunOnce(ctx context.Context, sc SyncConfig) ([]Status, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	remote, err := m.connector.Connect(ctx, *sc.Credentials)
	if err != nil {
		if isConfigError(err) {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		return nil, fmt.Errorf("connect: %w", err)
	}

	var (
		errs     []error
		statuses = make([]Status, 0, len(m.collections))
	)
	for _, collection := range m.collections {
		loop := NewLoop(collection, m.store, remote, m.cfg, m.bus, m.metrics, m.log, m.loopOpts...)
		if err := loop.Cycle(ctx); err != nil {
			errs = append(errs, err)
		}
		statuses = append(statuses, loop.Status())
	}
	return statuses, errors.Join(errs...)
}
