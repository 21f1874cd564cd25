package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"memorizefacts/internal/domain/conflict"
	"memorizefacts/internal/model"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/exp/slog"
)

// Loop цикл репликации одной коллекции: pull страницами, затем push грязного снимка.
// Фазы строго последовательны, курсор принадлежит только этому циклу.
type Loop struct {
	collection string
	store      LocalStore
	remote     Remote
	cfg        Config
	bus        *Bus
	metrics    *Metrics
	log        *slog.Logger
	now        func() time.Time

	trigger chan struct{}
	retry   backoff.BackOff

	mu     sync.Mutex
	status Status
}

type LoopOption func(*Loop)

// WithClock подменяет часы цикла
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		l.now = now
	}
}

func NewLoop(collection string, store LocalStore, remote Remote, cfg Config, bus *Bus, metrics *Metrics, log *slog.Logger, opts ...LoopOption) *Loop {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if bus == nil {
		bus = NewBus(log)
	}
	l := &Loop{
		collection: collection,
		store:      store,
		remote:     remote,
		cfg:        cfg,
		bus:        bus,
		metrics:    metrics,
		log:        log.With(slog.String("component", "replication"), slog.String("collection", collection)),
		now:        time.Now,
		trigger:    make(chan struct{}, 1),
		retry:      backoff.NewConstantBackOff(cfg.RetryInterval),
		status:     Status{Collection: collection, State: StateIdle},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Trigger запрашивает внеочередной цикл. Повторные запросы до начала цикла схлопываются.
func (l *Loop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status.State == StateCancelled {
		return
	}
	l.status.State = s
}

// Run выполняет циклы до отмены ctx. Первый цикл начинается сразу.
func (l *Loop) Run(ctx context.Context) {
	var events <-chan model.ChangeEvent
	if l.cfg.Live {
		ch, cancel := l.store.Subscribe(l.collection)
		defer cancel()
		events = ch
	}

	defer l.cancelled()

	l.log.Info("replication started")
	for {
		if ctx.Err() != nil {
			return
		}

		if err := l.Cycle(ctx); err != nil && errors.Is(err, ErrCancelled) {
			return
		}

		var ok bool
		if events, ok = l.wait(ctx, events); !ok {
			return
		}
	}
}

// wait блокируется до следующего повода для цикла: таймер, ручной запуск или локальная правка.
// Собственные записи репликации цикл не будят. false - цикл остановлен.
func (l *Loop) wait(ctx context.Context, events <-chan model.ChangeEvent) (<-chan model.ChangeEvent, bool) {
	timer := time.NewTimer(l.retry.NextBackOff())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return events, false
		case <-timer.C:
			return events, true
		case <-l.trigger:
			return events, true
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if evt.Origin == model.OriginLocal {
				return drain(events), true
			}
		}
	}
}

// drain выбирает накопившиеся события: один цикл покрывает их все
func drain(events <-chan model.ChangeEvent) <-chan model.ChangeEvent {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return nil
			}
		default:
			return events
		}
	}
}

func (l *Loop) cancelled() {
	l.mu.Lock()
	l.status.State = StateCancelled
	l.mu.Unlock()
	l.log.Info("replication stopped")
}

// Cycle выполняет одну фазу pull и одну фазу push
func (l *Loop) Cycle(ctx context.Context) error {
	started := l.now()
	defer func() {
		l.metrics.cycle.WithLabelValues(l.collection).Observe(l.now().Sub(started).Seconds())
	}()

	if err := l.pull(ctx); err != nil {
		return l.fail(err)
	}
	if err := l.push(ctx); err != nil {
		return l.fail(err)
	}

	l.mu.Lock()
	l.status.LastError = ""
	l.status.LastSyncAt = l.now()
	l.mu.Unlock()
	l.setState(StateIdle)
	return nil
}

func (l *Loop) fail(err error) error {
	if errors.Is(err, ErrCancelled) {
		return err
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		rerr = newError(KindGeneral, l.collection, err)
	}

	l.metrics.errors.WithLabelValues(l.collection, string(rerr.Kind)).Inc()
	l.log.Warn("replication cycle failed", slog.String("kind", string(rerr.Kind)), slog.String("error", rerr.Error()))
	l.mu.Lock()
	l.status.LastError = rerr.Error()
	l.mu.Unlock()
	l.setState(StateIdle)
	l.bus.Publish(rerr)
	return rerr
}

func (l *Loop) pull(ctx context.Context) error {
	l.setState(StatePulling)

	cursor, err := l.store.LoadCursor(ctx, l.collection)
	if err != nil {
		return newError(KindGeneral, l.collection, fmt.Errorf("load cursor: %w", err))
	}

	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		docs, err := l.remote.Pull(ctx, l.collection, cursor, l.cfg.PullBatchSize)
		// Ответ, пришедший после остановки, отбрасывается
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if err != nil {
			var rerr *Error
			if errors.As(err, &rerr) {
				return rerr
			}
			return newError(KindPull, l.collection, err)
		}

		next, halted := l.applyPage(ctx, cursor, docs)
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if next != cursor {
			if err := l.store.SaveCursor(ctx, l.collection, next); err != nil {
				return newError(KindGeneral, l.collection, fmt.Errorf("save cursor: %w", err))
			}
			l.mu.Lock()
			l.status.Cursor = next
			l.mu.Unlock()
		}
		if halted || len(docs) < l.cfg.PullBatchSize {
			return nil
		}
		// Полная страница без единого документа после курсора: повторный запрос вернет ее же
		if next == cursor {
			return newError(KindPull, l.collection, ErrNoProgress)
		}
		cursor = next
	}
}

func (l *Loop) accept(local *model.Document, remote model.Document) bool {
	return conflict.Resolve(local, remote) == conflict.TakeRemote
}

// applyPage применяет страницу и возвращает новый курсор. halted - документ не удалось
// применить: курсор остановлен перед ним до следующего цикла.
func (l *Loop) applyPage(ctx context.Context, cursor model.Cursor, docs []model.Document) (model.Cursor, bool) {
	next := cursor
	for _, doc := range docs {
		if ctx.Err() != nil {
			return next, true
		}
		doc.Collection = l.collection
		if !next.Before(doc) {
			continue
		}

		applied, err := l.store.ApplyRemote(ctx, doc, l.accept)
		if err != nil {
			if ctx.Err() != nil {
				return next, true
			}
			// Счетчик в хранилище: новый цикл и новый процесс продолжают счет
			attempts, cerr := l.store.RecordApplyFailure(ctx, l.collection, doc.ID, doc.UpdatedAt)
			if cerr != nil {
				l.log.Warn("record apply failure", slog.String("id", doc.ID), slog.String("error", cerr.Error()))
				return next, true
			}
			if attempts < l.cfg.MaxApplyAttempts {
				l.log.Warn("pulled document skipped, will retry",
					slog.String("id", doc.ID),
					slog.Int("attempt", attempts),
					slog.String("error", err.Error()))
				return next, true
			}
			l.log.Error("pulled document is permanently invalid, skipping",
				slog.String("id", doc.ID),
				slog.Int("attempts", attempts),
				slog.String("error", err.Error()))
			l.clearFailure(ctx, doc.ID)
			next = next.Advance(doc)
			continue
		}

		if applied {
			l.metrics.pulled.WithLabelValues(l.collection).Inc()
			l.mu.Lock()
			l.status.Pulled++
			l.mu.Unlock()
		}
		l.clearFailure(ctx, doc.ID)
		next = next.Advance(doc)
	}
	return next, false
}

func (l *Loop) clearFailure(ctx context.Context, id string) {
	if err := l.store.ClearApplyFailure(ctx, l.collection, id); err != nil {
		l.log.Warn("clear apply failure", slog.String("id", id), slog.String("error", err.Error()))
	}
}

func (l *Loop) push(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	l.setState(StatePushing)

	pending, err := l.store.Dirty(ctx, l.collection, l.now(), 0)
	if err != nil {
		return newError(KindGeneral, l.collection, fmt.Errorf("load dirty documents: %w", err))
	}
	if len(pending) == 0 {
		return nil
	}

	var inner []DocumentError
	for _, chunk := range chunks(pending, l.cfg.PushBatchSize) {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		docs := make([]model.Document, len(chunk))
		for i, p := range chunk {
			docs[i] = p.Document
		}

		rejections, err := l.remote.Push(ctx, l.collection, docs)
		if ctx.Err() != nil {
			return ErrCancelled
		}
		if err != nil {
			var rerr *Error
			if errors.As(err, &rerr) {
				rerr.Inner = append(inner, rerr.Inner...)
				return rerr
			}
			return newError(KindPush, l.collection, err, inner...)
		}

		rejected := make(map[string]string, len(rejections))
		for _, r := range rejections {
			rejected[r.ID] = r.Reason
		}

		for _, p := range chunk {
			reason, isRejected := rejected[p.ID]
			if !isRejected {
				if _, err := l.store.MarkClean(ctx, l.collection, p.ID, p.UpdatedAt); err != nil {
					return newError(KindGeneral, l.collection, fmt.Errorf("mark clean %s: %w", p.ID, err), inner...)
				}
				l.metrics.pushed.WithLabelValues(l.collection).Inc()
				l.mu.Lock()
				l.status.Pushed++
				l.mu.Unlock()
				continue
			}

			attempts := p.PushAttempts + 1
			permanent := attempts >= l.cfg.MaxPushAttempts
			nextAt := l.now().Add(l.pushDelay(attempts))
			if _, err := l.store.MarkRejected(ctx, l.collection, p.ID, p.UpdatedAt, nextAt, permanent); err != nil {
				return newError(KindGeneral, l.collection, fmt.Errorf("mark rejected %s: %w", p.ID, err), inner...)
			}
			l.metrics.rejected.WithLabelValues(l.collection).Inc()
			inner = append(inner, DocumentError{ID: p.ID, Reason: reason, Attempts: attempts, Permanent: permanent})
		}
	}

	if len(inner) > 0 {
		return newError(KindPush, l.collection, errors.New("remote rejected documents"), inner...)
	}
	return nil
}

// pushDelay пауза перед повторной отправкой после attempts отказов
func (l *Loop) pushDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.PushBackoffInitial
	b.MaxInterval = l.cfg.PushBackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		d = b.NextBackOff()
	}
	return d
}

func chunks(pending []model.Pending, size int) [][]model.Pending {
	if size <= 0 || len(pending) <= size {
		return [][]model.Pending{pending}
	}
	var out [][]model.Pending
	for len(pending) > 0 {
		n := min(size, len(pending))
		out = append(out, pending[:n])
		pending = pending[n:]
	}
	return out
}
