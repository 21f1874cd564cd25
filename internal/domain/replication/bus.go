package replication

import (
	"sync"

	"golang.org/x/exp/slog"
)

const busBuffer = 32

// Bus канал ошибок репликации с несколькими подписчиками. Публикация не блокируется.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan *Error
	nextID int
	log    *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]chan *Error),
		log:  log,
	}
}

func (b *Bus) Subscribe() (<-chan *Error, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan *Error, busBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *Bus) Publish(err *Error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- err:
		default:
			b.log.Warn("replication error dropped, subscriber is too slow",
				slog.String("kind", string(err.Kind)),
				slog.String("collection", err.Collection))
		}
	}
}
