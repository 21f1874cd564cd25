// Package memory временное in-memory хранилище документов с тем же контрактом, что и sqlite.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"memorizefacts/internal/infrastructure/storage/feed"
	"memorizefacts/internal/model"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

type entry struct {
	doc          model.Document
	dirty        bool
	pushAttempts int
	nextPushAt   time.Time
	pushFailed   bool
}

type applyFailure struct {
	updatedAt time.Time
	attempts  int
}

type key struct {
	collection string
	id         string
}

// Storage хранит документы в картах под одним мьютексом
type Storage struct {
	mu      sync.Mutex
	docs    map[key]*entry
	cursors map[string]model.Cursor
	// failures счетчики неудачных применений удаленных версий
	failures map[key]applyFailure
	feed     *feed.Feed
	now     func() time.Time
	closed  bool
}

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func New(log *slog.Logger, opts ...Option) *Storage {
	s := &Storage{
		docs:    make(map[key]*entry),
		cursors:  make(map[string]model.Cursor),
		failures: make(map[key]applyFailure),
		feed:     feed.New(log, feed.DefaultBuffer),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func clone(d model.Document) model.Document {
	d.Data = append([]byte(nil), d.Data...)
	return d
}

// nameTaken проверяет уникальность имени среди живых документов коллекции
func (s *Storage) nameTaken(doc model.Document) bool {
	if doc.Deleted {
		return false
	}
	name := doc.Name()
	if name == "" {
		return false
	}
	for k, e := range s.docs {
		if k.collection != doc.Collection || k.id == doc.ID || e.doc.Deleted {
			continue
		}
		if e.doc.Name() == name {
			return true
		}
	}
	return false
}

func (s *Storage) Insert(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.Collection == "" {
		return model.Document{}, fmt.Errorf("%w: collection is required", model.ErrInvalidDocument)
	}
	data, err := model.NormalizeData(doc.Data)
	if err != nil {
		return model.Document{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Document{}, model.ErrClosed
	}

	k := key{doc.Collection, doc.ID}
	if _, exists := s.docs[k]; exists {
		return model.Document{}, fmt.Errorf("insert document: %w", model.ErrAlreadyExists)
	}

	doc.Data = data
	doc.Deleted = false
	doc.UpdatedAt = model.NextUpdatedAt(s.now(), time.Time{})
	if s.nameTaken(doc) {
		return model.Document{}, fmt.Errorf("insert document: %w", model.ErrDuplicateName)
	}

	s.docs[k] = &entry{doc: clone(doc), dirty: true}
	s.feed.Publish(model.ChangeEvent{Collection: doc.Collection, Type: model.ChangeInsert, Doc: doc, Origin: model.OriginLocal})
	return doc, nil
}

func (s *Storage) Update(ctx context.Context, collection, id string, delta map[string]any) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Document{}, model.ErrClosed
	}

	e, ok := s.docs[key{collection, id}]
	if !ok || e.doc.Deleted {
		return model.Document{}, model.ErrNotFound
	}

	data, err := model.MergeData(e.doc.Data, delta)
	if err != nil {
		return model.Document{}, err
	}
	doc := clone(e.doc)
	doc.Data = data
	doc.UpdatedAt = model.NextUpdatedAt(s.now(), e.doc.UpdatedAt)
	if s.nameTaken(doc) {
		return model.Document{}, fmt.Errorf("update document: %w", model.ErrDuplicateName)
	}

	s.writeLocal(e, doc)
	s.feed.Publish(model.ChangeEvent{Collection: collection, Type: model.ChangeUpdate, Doc: doc, Origin: model.OriginLocal})
	return doc, nil
}

func (s *Storage) Remove(ctx context.Context, collection, id string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Document{}, model.ErrClosed
	}

	e, ok := s.docs[key{collection, id}]
	if !ok {
		return model.Document{}, model.ErrNotFound
	}
	if e.doc.Deleted {
		return clone(e.doc), nil
	}

	doc := clone(e.doc)
	doc.Deleted = true
	doc.UpdatedAt = model.NextUpdatedAt(s.now(), e.doc.UpdatedAt)

	s.writeLocal(e, doc)
	s.feed.Publish(model.ChangeEvent{Collection: collection, Type: model.ChangeRemove, Doc: doc, Origin: model.OriginLocal})
	return doc, nil
}

func (s *Storage) writeLocal(e *entry, doc model.Document) {
	e.doc = clone(doc)
	e.dirty = true
	e.pushAttempts = 0
	e.nextPushAt = time.Time{}
	e.pushFailed = false
}

func (s *Storage) Get(ctx context.Context, collection, id string) (model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Document{}, model.ErrClosed
	}

	e, ok := s.docs[key{collection, id}]
	if !ok {
		return model.Document{}, model.ErrNotFound
	}
	return clone(e.doc), nil
}

func (s *Storage) Find(ctx context.Context, collection string, filter model.Filter) ([]model.Document, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, model.ErrClosed
	}

	docs := make([]model.Document, 0)
	for k, e := range s.docs {
		if k.collection == collection && filter.Match(e.doc) {
			docs = append(docs, clone(e.doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	if filter.Limit > 0 && len(docs) > filter.Limit {
		docs = docs[:filter.Limit]
	}
	return docs, nil
}

func (s *Storage) FindSince(ctx context.Context, collection string, cursor model.Cursor, limit int) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, model.ErrClosed
	}

	docs := make([]model.Document, 0)
	for k, e := range s.docs {
		if k.collection == collection && cursor.Before(e.doc) {
			docs = append(docs, clone(e.doc))
		}
	}
	sortAscending(docs)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func sortAscending(docs []model.Document) {
	sort.Slice(docs, func(i, j int) bool {
		return model.Compare(docs[i].UpdatedAt, docs[i].ID, docs[j].UpdatedAt, docs[j].ID) < 0
	})
}

func (s *Storage) Dirty(ctx context.Context, collection string, now time.Time, limit int) ([]model.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, model.ErrClosed
	}

	docs := make([]model.Document, 0)
	attempts := make(map[string]int)
	for k, e := range s.docs {
		if k.collection != collection || !e.dirty || e.pushFailed {
			continue
		}
		if !e.nextPushAt.IsZero() && e.nextPushAt.After(now) {
			continue
		}
		docs = append(docs, clone(e.doc))
		attempts[k.id] = e.pushAttempts
	}
	sortAscending(docs)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	pending := make([]model.Pending, 0, len(docs))
	for _, d := range docs {
		pending = append(pending, model.Pending{Document: d, PushAttempts: attempts[d.ID]})
	}
	return pending, nil
}

func (s *Storage) IsDirty(ctx context.Context, collection, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, model.ErrClosed
	}

	e, ok := s.docs[key{collection, id}]
	if !ok {
		return false, model.ErrNotFound
	}
	return e.dirty, nil
}

func (s *Storage) MarkClean(ctx context.Context, collection, id string, updatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, model.ErrClosed
	}

	e, ok := s.docs[key{collection, id}]
	if !ok || !e.doc.UpdatedAt.Equal(model.Truncate(updatedAt)) {
		return false, nil
	}
	e.dirty = false
	e.pushAttempts = 0
	e.nextPushAt = time.Time{}
	e.pushFailed = false
	return true, nil
}

func (s *Storage) MarkRejected(ctx context.Context, collection, id string, updatedAt, nextAttempt time.Time, permanent bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, model.ErrClosed
	}

	e, ok := s.docs[key{collection, id}]
	if !ok || !e.dirty || !e.doc.UpdatedAt.Equal(model.Truncate(updatedAt)) {
		return false, nil
	}
	e.pushAttempts++
	e.nextPushAt = model.Truncate(nextAttempt)
	e.pushFailed = permanent
	return true, nil
}

func (s *Storage) ApplyRemote(ctx context.Context, doc model.Document, accept model.Resolver) (bool, error) {
	data, err := model.NormalizeData(doc.Data)
	if err != nil {
		return false, err
	}
	doc.Data = data
	doc.UpdatedAt = model.Truncate(doc.UpdatedAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, model.ErrClosed
	}

	k := key{doc.Collection, doc.ID}
	var local *model.Document
	if e, ok := s.docs[k]; ok {
		d := clone(e.doc)
		local = &d
	}
	if !accept(local, doc) {
		return false, nil
	}
	if s.nameTaken(doc) {
		return false, fmt.Errorf("apply remote document: %w", model.ErrDuplicateName)
	}

	s.docs[k] = &entry{doc: clone(doc)}
	s.feed.Publish(model.ChangeEvent{
		Collection: doc.Collection,
		Type:       model.RemoteChangeType(local, doc),
		Doc:        doc,
		Origin:     model.OriginRemote,
	})
	return true, nil
}

func (s *Storage) LoadCursor(ctx context.Context, collection string) (model.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Cursor{}, model.ErrClosed
	}

	c, ok := s.cursors[collection]
	if !ok {
		return model.InitialCursor(), nil
	}
	return c, nil
}

func (s *Storage) SaveCursor(ctx context.Context, collection string, cursor model.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ErrClosed
	}
	s.cursors[collection] = cursor
	return nil
}

func (s *Storage) Subscribe(collection string) (<-chan model.ChangeEvent, func()) {
	return s.feed.Subscribe(collection)
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.feed.Close()
	return nil
}

var _ model.Store = (*Storage)(nil)

func (s *Storage) RecordApplyFailure(ctx context.Context, collection, id string, updatedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, model.ErrClosed
	}

	k := key{collection: collection, id: id}
	updatedAt = model.Truncate(updatedAt)
	f := s.failures[k]
	if !f.updatedAt.Equal(updatedAt) {
		f = applyFailure{updatedAt: updatedAt}
	}
	f.attempts++
	s.failures[k] = f
	return f.attempts, nil
}

func (s *Storage) ClearApplyFailure(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ErrClosed
	}
	delete(s.failures, key{collection: collection, id: id})
	return nil
}
