package feed

import (
	"io"
	"testing"

	"memorizefacts/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newFeed(buffer int) *Feed {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), buffer)
}

func TestFeed_PublishToCollection(t *testing.T) {
	f := newFeed(4)
	tags, cancelTags := f.Subscribe(model.CollectionTags)
	defer cancelTags()
	facts, cancelFacts := f.Subscribe(model.CollectionFacts)
	defer cancelFacts()
	all, cancelAll := f.Subscribe("")
	defer cancelAll()

	evt := model.ChangeEvent{Collection: model.CollectionTags, Type: model.ChangeInsert, Doc: model.Document{ID: "1"}}
	f.Publish(evt)

	require.Len(t, tags, 1)
	assert.Equal(t, evt, <-tags)
	assert.Len(t, facts, 0)
	require.Len(t, all, 1)
	assert.Equal(t, evt, <-all)
}

func TestFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	f := newFeed(1)
	ch, cancel := f.Subscribe(model.CollectionTags)
	defer cancel()

	for i := 0; i < 10; i++ {
		f.Publish(model.ChangeEvent{Collection: model.CollectionTags, Type: model.ChangeUpdate})
	}

	assert.Len(t, ch, 1)
}

func TestFeed_Cancel(t *testing.T) {
	f := newFeed(1)
	ch, cancel := f.Subscribe(model.CollectionTags)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	f.Publish(model.ChangeEvent{Collection: model.CollectionTags})
}

func TestFeed_Close(t *testing.T) {
	f := newFeed(1)
	ch, cancel := f.Subscribe(model.CollectionTags)
	f.Close()

	_, ok := <-ch
	assert.False(t, ok)
	cancel()

	late, _ := f.Subscribe(model.CollectionTags)
	_, ok = <-late
	assert.False(t, ok)
}
