// Package storetest общий набор проверок контракта model.Store для всех реализаций.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"memorizefacts/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clock управляемые часы для меток updatedAt
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Factory создает пустое хранилище с заданными часами
type Factory func(t *testing.T, clock *Clock) model.Store

var start = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func tagDoc(id, name string) model.Document {
	doc, _ := model.NewDocument(model.CollectionTags, id, map[string]string{"name": name})
	return doc
}

func acceptAll(*model.Document, model.Document) bool { return true }

// Run прогоняет все проверки контракта
func Run(t *testing.T, factory Factory) {
	t.Run("insert", func(t *testing.T) { testInsert(t, factory) })
	t.Run("unique live name", func(t *testing.T) { testUniqueName(t, factory) })
	t.Run("update", func(t *testing.T) { testUpdate(t, factory) })
	t.Run("remove", func(t *testing.T) { testRemove(t, factory) })
	t.Run("find", func(t *testing.T) { testFind(t, factory) })
	t.Run("find since", func(t *testing.T) { testFindSince(t, factory) })
	t.Run("dirty tracking", func(t *testing.T) { testDirty(t, factory) })
	t.Run("push rejection", func(t *testing.T) { testRejected(t, factory) })
	t.Run("apply remote", func(t *testing.T) { testApplyRemote(t, factory) })
	t.Run("cursor", func(t *testing.T) { testCursor(t, factory) })
	t.Run("apply failures", func(t *testing.T) { testApplyFailures(t, factory) })
	t.Run("close", func(t *testing.T) { testClose(t, factory) })
}

func testInsert(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	events, cancel := s.Subscribe(model.CollectionTags)
	defer cancel()

	doc, err := s.Insert(ctx, tagDoc("", "history"))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.True(t, start.Equal(doc.UpdatedAt))
	assert.False(t, doc.Deleted)

	got, err := s.Get(ctx, model.CollectionTags, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "history", got.Name())

	dirty, err := s.IsDirty(ctx, model.CollectionTags, doc.ID)
	require.NoError(t, err)
	assert.True(t, dirty)

	evt := <-events
	assert.Equal(t, model.ChangeInsert, evt.Type)
	assert.Equal(t, model.OriginLocal, evt.Origin)
	assert.Equal(t, doc.ID, evt.Doc.ID)

	_, err = s.Insert(ctx, tagDoc(doc.ID, "other"))
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	_, err = s.Get(ctx, model.CollectionTags, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Insert(ctx, model.Document{Collection: model.CollectionTags, Data: []byte(`[1,2]`)})
	assert.ErrorIs(t, err, model.ErrInvalidDocument)
}

func testUniqueName(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock(start))

	first, err := s.Insert(ctx, tagDoc("a", "physics"))
	require.NoError(t, err)

	_, err = s.Insert(ctx, tagDoc("b", "physics"))
	assert.ErrorIs(t, err, model.ErrDuplicateName)

	// Имя уникально только внутри коллекции
	other, _ := model.NewDocument(model.CollectionFacts, "b", map[string]any{"name": "physics", "description": "d"})
	_, err = s.Insert(ctx, other)
	assert.NoError(t, err)

	second, err := s.Insert(ctx, tagDoc("c", "chemistry"))
	require.NoError(t, err)
	_, err = s.Update(ctx, model.CollectionTags, second.ID, map[string]any{"name": "physics"})
	assert.ErrorIs(t, err, model.ErrDuplicateName)

	// Надгробие освобождает имя
	_, err = s.Remove(ctx, model.CollectionTags, first.ID)
	require.NoError(t, err)
	_, err = s.Insert(ctx, tagDoc("d", "physics"))
	assert.NoError(t, err)
}

func testUpdate(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	doc, err := s.Insert(ctx, model.Document{
		Collection: model.CollectionFacts,
		ID:         "f1",
		Data:       []byte(`{"name":"Rome","description":"capital","active":true}`),
	})
	require.NoError(t, err)

	events, cancel := s.Subscribe(model.CollectionFacts)
	defer cancel()

	// Часы стоят: метка все равно растет
	updated, err := s.Update(ctx, model.CollectionFacts, doc.ID, map[string]any{"active": false})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(doc.UpdatedAt))
	assert.JSONEq(t, `{"name":"Rome","description":"capital","active":false}`, string(updated.Data))

	clock.Advance(time.Minute)
	again, err := s.Update(ctx, model.CollectionFacts, doc.ID, map[string]any{"description": "city"})
	require.NoError(t, err)
	assert.True(t, start.Add(time.Minute).Equal(again.UpdatedAt))

	evt := <-events
	assert.Equal(t, model.ChangeUpdate, evt.Type)

	_, err = s.Update(ctx, model.CollectionFacts, "missing", map[string]any{"a": 1})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.Remove(ctx, model.CollectionFacts, doc.ID)
	require.NoError(t, err)
	_, err = s.Update(ctx, model.CollectionFacts, doc.ID, map[string]any{"a": 1})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testRemove(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	doc, err := s.Insert(ctx, tagDoc("t1", "art"))
	require.NoError(t, err)
	require.True(t, mustClean(t, s, doc))

	events, cancel := s.Subscribe(model.CollectionTags)
	defer cancel()

	clock.Advance(time.Second)
	tomb, err := s.Remove(ctx, model.CollectionTags, doc.ID)
	require.NoError(t, err)
	assert.True(t, tomb.Deleted)
	assert.True(t, tomb.UpdatedAt.After(doc.UpdatedAt))
	assert.Equal(t, "art", tomb.Name())

	evt := <-events
	assert.Equal(t, model.ChangeRemove, evt.Type)
	assert.True(t, evt.Doc.Deleted)

	dirty, err := s.IsDirty(ctx, model.CollectionTags, doc.ID)
	require.NoError(t, err)
	assert.True(t, dirty)

	found, err := s.Find(ctx, model.CollectionTags, model.Filter{})
	require.NoError(t, err)
	assert.Empty(t, found)

	got, err := s.Get(ctx, model.CollectionTags, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	again, err := s.Remove(ctx, model.CollectionTags, doc.ID)
	require.NoError(t, err)
	assert.True(t, tomb.UpdatedAt.Equal(again.UpdatedAt))

	_, err = s.Remove(ctx, model.CollectionTags, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testFind(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	insertFact := func(id, name string, active bool, tags ...string) {
		if tags == nil {
			tags = []string{}
		}
		doc, err := model.NewDocument(model.CollectionFacts, id, map[string]any{
			"name": name, "description": "d", "active": active, "tags": tags,
		})
		require.NoError(t, err)
		_, err = s.Insert(ctx, doc)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	insertFact("f1", "one", true, "t1")
	insertFact("f2", "two", false, "t1", "t2")
	insertFact("f3", "three", true)

	all, err := s.Find(ctx, model.CollectionFacts, model.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"f3", "f2", "f1"}, ids(all))

	active, err := s.Find(ctx, model.CollectionFacts, model.Filter{Where: map[string]any{"active": true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"f3", "f1"}, ids(active))

	byName, err := s.Find(ctx, model.CollectionFacts, model.Filter{Where: map[string]any{"name": "two"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"f2"}, ids(byName))

	tagged, err := s.Find(ctx, model.CollectionFacts, model.Filter{Contains: map[string]string{"tags": "t1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"f2", "f1"}, ids(tagged))

	limited, err := s.Find(ctx, model.CollectionFacts, model.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"f3"}, ids(limited))

	_, err = s.Remove(ctx, model.CollectionFacts, "f3")
	require.NoError(t, err)
	withDeleted, err := s.Find(ctx, model.CollectionFacts, model.Filter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, withDeleted, 3)

	_, err = s.Find(ctx, model.CollectionFacts, model.Filter{Where: map[string]any{"bad field": 1}})
	assert.ErrorIs(t, err, model.ErrInvalidDocument)
}

func testFindSince(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	// Три документа с одинаковым временем и один позже
	for _, id := range []string{"c", "a", "b"} {
		_, err := s.ApplyRemote(ctx, withTime(tagDoc(id, "tag-"+id), start), acceptAll)
		require.NoError(t, err)
	}
	_, err := s.ApplyRemote(ctx, withTime(tagDoc("0", "tag-0"), start.Add(time.Second)), acceptAll)
	require.NoError(t, err)

	page, err := s.FindSince(ctx, model.CollectionTags, model.InitialCursor(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(page))

	next, err := s.FindSince(ctx, model.CollectionTags, model.CursorOf(page[1]), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "0"}, ids(next))

	rest, err := s.FindSince(ctx, model.CollectionTags, model.CursorOf(next[1]), 2)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func testDirty(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	a, err := s.Insert(ctx, tagDoc("a", "a"))
	require.NoError(t, err)
	b, err := s.Insert(ctx, tagDoc("b", "b"))
	require.NoError(t, err)

	pending, err := s.Dirty(ctx, model.CollectionTags, clock.Now(), 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := s.Dirty(ctx, model.CollectionTags, clock.Now(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Правка во время отправки: подтверждение старого снимка не очищает документ
	_, err = s.Update(ctx, model.CollectionTags, b.ID, map[string]any{"name": "b2"})
	require.NoError(t, err)

	ok, err := s.MarkClean(ctx, model.CollectionTags, a.ID, a.UpdatedAt)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.MarkClean(ctx, model.CollectionTags, b.ID, b.UpdatedAt)
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err = s.Dirty(ctx, model.CollectionTags, clock.Now(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
	assert.Equal(t, "b2", pending[0].Name())
}

func testRejected(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	doc, err := s.Insert(ctx, tagDoc("a", "a"))
	require.NoError(t, err)

	ok, err := s.MarkRejected(ctx, model.CollectionTags, doc.ID, doc.UpdatedAt, start.Add(time.Minute), false)
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err := s.Dirty(ctx, model.CollectionTags, start.Add(30*time.Second), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	pending, err = s.Dirty(ctx, model.CollectionTags, start.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].PushAttempts)

	ok, err = s.MarkRejected(ctx, model.CollectionTags, doc.ID, doc.UpdatedAt, start.Add(time.Hour), true)
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err = s.Dirty(ctx, model.CollectionTags, start.Add(48*time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Следующая локальная правка снимает окончательный отказ
	clock.Advance(time.Second)
	_, err = s.Update(ctx, model.CollectionTags, doc.ID, map[string]any{"name": "a2"})
	require.NoError(t, err)

	pending, err = s.Dirty(ctx, model.CollectionTags, clock.Now(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].PushAttempts)

	// Отказ по устаревшему снимку игнорируется
	ok, err = s.MarkRejected(ctx, model.CollectionTags, doc.ID, doc.UpdatedAt, start.Add(time.Hour), true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testApplyRemote(t *testing.T, factory Factory) {
	ctx := context.Background()
	clock := NewClock(start)
	s := factory(t, clock)

	events, cancel := s.Subscribe(model.CollectionTags)
	defer cancel()

	remoteAt := start.Add(-time.Hour).Add(123 * time.Millisecond)
	applied, err := s.ApplyRemote(ctx, withTime(tagDoc("r1", "remote"), remoteAt), acceptAll)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.Get(ctx, model.CollectionTags, "r1")
	require.NoError(t, err)
	assert.True(t, remoteAt.Equal(got.UpdatedAt))

	dirty, err := s.IsDirty(ctx, model.CollectionTags, "r1")
	require.NoError(t, err)
	assert.False(t, dirty)

	evt := <-events
	assert.Equal(t, model.ChangeInsert, evt.Type)
	assert.Equal(t, model.OriginRemote, evt.Origin)

	// Отклоненная версия ничего не меняет
	applied, err = s.ApplyRemote(ctx, withTime(tagDoc("r1", "ignored"), remoteAt.Add(time.Hour)),
		func(*model.Document, model.Document) bool { return false })
	require.NoError(t, err)
	assert.False(t, applied)
	got, err = s.Get(ctx, model.CollectionTags, "r1")
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Name())

	// Надгробие порождает событие remove
	tomb := withTime(tagDoc("r1", "remote"), remoteAt.Add(time.Second))
	tomb.Deleted = true
	applied, err = s.ApplyRemote(ctx, tomb, func(local *model.Document, _ model.Document) bool {
		return local != nil && !local.Deleted
	})
	require.NoError(t, err)
	assert.True(t, applied)
	evt = <-events
	assert.Equal(t, model.ChangeRemove, evt.Type)
	assert.True(t, evt.Doc.Deleted)

	// Удаленная версия, затирающая грязную локальную, делает документ чистым
	local, err := s.Insert(ctx, tagDoc("l1", "local"))
	require.NoError(t, err)
	applied, err = s.ApplyRemote(ctx, withTime(tagDoc("l1", "from server"), local.UpdatedAt.Add(time.Second)), acceptAll)
	require.NoError(t, err)
	assert.True(t, applied)
	dirty, err = s.IsDirty(ctx, model.CollectionTags, "l1")
	require.NoError(t, err)
	assert.False(t, dirty)

	// Конфликт имен с другим живым документом
	_, err = s.ApplyRemote(ctx, withTime(tagDoc("r2", "from server"), start), acceptAll)
	assert.ErrorIs(t, err, model.ErrDuplicateName)
	_, err = s.Get(ctx, model.CollectionTags, "r2")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testCursor(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock(start))

	c, err := s.LoadCursor(ctx, model.CollectionTags)
	require.NoError(t, err)
	assert.True(t, c.IsInitial())

	want := model.Cursor{LastID: "x", LastUpdatedAt: start.Add(5 * time.Millisecond)}
	require.NoError(t, s.SaveCursor(ctx, model.CollectionTags, want))

	got, err := s.LoadCursor(ctx, model.CollectionTags)
	require.NoError(t, err)
	assert.Equal(t, want.LastID, got.LastID)
	assert.True(t, want.LastUpdatedAt.Equal(got.LastUpdatedAt))

	other, err := s.LoadCursor(ctx, model.CollectionFacts)
	require.NoError(t, err)
	assert.True(t, other.IsInitial())
}

func testApplyFailures(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock(start))
	v1 := start.Add(time.Second)
	v2 := start.Add(2 * time.Second)

	for want := 1; want <= 3; want++ {
		n, err := s.RecordApplyFailure(ctx, model.CollectionTags, "a", v1)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// новая версия документа начинает счет заново
	n, err := s.RecordApplyFailure(ctx, model.CollectionTags, "a", v2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.RecordApplyFailure(ctx, model.CollectionFacts, "a", v2)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "счетчики коллекций независимы")

	require.NoError(t, s.ClearApplyFailure(ctx, model.CollectionTags, "a"))
	require.NoError(t, s.ClearApplyFailure(ctx, model.CollectionTags, "missing"))
	n, err = s.RecordApplyFailure(ctx, model.CollectionTags, "a", v2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testClose(t *testing.T, factory Factory) {
	ctx := context.Background()
	s := factory(t, NewClock(start))

	events, _ := s.Subscribe(model.CollectionTags)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, ok := <-events
	assert.False(t, ok)

	_, err := s.Insert(ctx, tagDoc("a", "a"))
	assert.ErrorIs(t, err, model.ErrClosed)
	_, err = s.Get(ctx, model.CollectionTags, "a")
	assert.ErrorIs(t, err, model.ErrClosed)
}

func mustClean(t *testing.T, s model.Store, doc model.Document) bool {
	t.Helper()
	ok, err := s.MarkClean(context.Background(), doc.Collection, doc.ID, doc.UpdatedAt)
	require.NoError(t, err)
	return ok
}

func withTime(doc model.Document, at time.Time) model.Document {
	doc.UpdatedAt = at
	return doc
}

func ids(docs []model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
