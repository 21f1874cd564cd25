package replication

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"memorizefacts/internal/domain/conflict"
	"memorizefacts/internal/infrastructure/storage/memory"
	"memorizefacts/internal/infrastructure/storage/storetest"
	"memorizefacts/internal/model"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote сервер в памяти с политикой upsert как у настоящего
type fakeRemote struct {
	mu        sync.Mutex
	docs      map[string]model.Document
	reject    map[string]string
	pullCalls int
	pushCalls int
	pushSizes []int
	pullErr   error
	pushErr   error
	onPull    func()
	onPush    func(docs []model.Document)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:   make(map[string]model.Document),
		reject: make(map[string]string),
	}
}

func (f *fakeRemote) put(docs ...model.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		f.docs[d.ID] = d
	}
}

func (f *fakeRemote) get(id string) (model.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	return d, ok
}

func (f *fakeRemote) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pullCalls, f.pushCalls
}

func (f *fakeRemote) Pull(ctx context.Context, collection string, cursor model.Cursor, limit int) ([]model.Document, error) {
	f.mu.Lock()
	f.pullCalls++
	hook := f.onPull
	err := f.pullErr
	var out []model.Document
	for _, d := range f.docs {
		if cursor.Before(d) {
			out = append(out, d)
		}
	}
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return model.Compare(out[i].UpdatedAt, out[i].ID, out[j].UpdatedAt, out[j].ID) < 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRemote) Push(ctx context.Context, collection string, docs []model.Document) ([]Rejection, error) {
	f.mu.Lock()
	f.pushCalls++
	f.pushSizes = append(f.pushSizes, len(docs))
	hook := f.onPush
	err := f.pushErr
	f.mu.Unlock()

	if hook != nil {
		hook(docs)
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var rejected []Rejection
	for _, d := range docs {
		if reason, ok := f.reject[d.ID]; ok {
			rejected = append(rejected, Rejection{ID: d.ID, Reason: reason})
			continue
		}
		var stored *model.Document
		if s, ok := f.docs[d.ID]; ok {
			stored = &s
		}
		if !conflict.Accepts(stored, d) {
			rejected = append(rejected, Rejection{ID: d.ID, Reason: "STALE_WRITE"})
			continue
		}
		f.docs[d.ID] = d
	}
	return rejected, nil
}

type connectorFunc func(ctx context.Context, creds Credentials) (Remote, error)

func (f connectorFunc) Connect(ctx context.Context, creds Credentials) (Remote, error) {
	return f(ctx, creds)
}

func remoteTag(id, name string, at time.Time, deleted bool) model.Document {
	doc, _ := model.NewDocument(model.CollectionTags, id, map[string]string{"name": name})
	doc.UpdatedAt = at
	doc.Deleted = deleted
	return doc
}

type harness struct {
	store  *memory.Storage
	clock  *storetest.Clock
	remote *fakeRemote
	bus    *Bus
	loop   *Loop
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	clock := storetest.NewClock(t0)
	store := memory.New(discard(), memory.WithClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })

	remote := newFakeRemote()
	bus := NewBus(discard())
	loop := NewLoop(model.CollectionTags, store, remote, cfg, bus, nil, discard(), WithClock(clock.Now))
	return &harness{store: store, clock: clock, remote: remote, bus: bus, loop: loop}
}

func (h *harness) insert(t *testing.T, id, name string) model.Document {
	t.Helper()
	doc, err := h.store.Insert(context.Background(), remoteTag(id, name, time.Time{}, false))
	require.NoError(t, err)
	return doc
}
