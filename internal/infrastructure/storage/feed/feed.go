// Package feed рассылает события изменений документов подписчикам коллекций.
package feed

import (
	"sync"

	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

// DefaultBuffer размер буфера канала подписчика
const DefaultBuffer = 64

// Feed неблокирующая шина событий. Медленный подписчик теряет события, писатель не ждет.
type Feed struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan model.ChangeEvent
	nextID int
	buffer int
	closed bool
	log    *slog.Logger
}

func New(log *slog.Logger, buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{
		subs:   make(map[string]map[int]chan model.ChangeEvent),
		buffer: buffer,
		log:    log.With(slog.String("component", "feed")),
	}
}

// Subscribe подписывает на изменения коллекции. Пустая коллекция означает все коллекции.
// Возвращаемая функция отменяет подписку и закрывает канал.
func (f *Feed) Subscribe(collection string) (<-chan model.ChangeEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan model.ChangeEvent, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	if f.subs[collection] == nil {
		f.subs[collection] = make(map[int]chan model.ChangeEvent)
	}
	f.subs[collection][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[collection][id]; ok {
				delete(f.subs[collection], id)
				close(c)
			}
		})
	}
}

// Publish отправляет событие подписчикам коллекции и подписчикам всех коллекций
func (f *Feed) Publish(evt model.ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}
	f.deliver(f.subs[evt.Collection], evt)
	if evt.Collection != "" {
		f.deliver(f.subs[""], evt)
	}
}

func (f *Feed) deliver(subs map[int]chan model.ChangeEvent, evt model.ChangeEvent) {
	for id, ch := range subs {
		select {
		case ch <- evt:
		default:
			f.log.Warn("subscriber is too slow, event dropped",
				slog.Int("subscriber", id),
				slog.String("collection", evt.Collection),
				slog.String("id", evt.Doc.ID),
				slog.String("type", string(evt.Type)))
		}
	}
}

// Close закрывает все каналы подписчиков
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for _, subs := range f.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
	}
}
