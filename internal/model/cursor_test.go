package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCursor_Advance(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second)

	tests := []struct {
		name   string
		cursor Cursor
		doc    Document
		want   Cursor
	}{
		{
			name:   "initial cursor moves to first document",
			cursor: InitialCursor(),
			doc:    Document{ID: "a", UpdatedAt: t0},
			want:   Cursor{LastID: "a", LastUpdatedAt: t0},
		},
		{
			name:   "newer timestamp wins",
			cursor: Cursor{LastID: "z", LastUpdatedAt: t0},
			doc:    Document{ID: "a", UpdatedAt: t1},
			want:   Cursor{LastID: "a", LastUpdatedAt: t1},
		},
		{
			name:   "equal timestamp greater id moves",
			cursor: Cursor{LastID: "a", LastUpdatedAt: t0},
			doc:    Document{ID: "b", UpdatedAt: t0},
			want:   Cursor{LastID: "b", LastUpdatedAt: t0},
		},
		{
			name:   "equal timestamp smaller id stays",
			cursor: Cursor{LastID: "b", LastUpdatedAt: t0},
			doc:    Document{ID: "a", UpdatedAt: t0},
			want:   Cursor{LastID: "b", LastUpdatedAt: t0},
		},
		{
			name:   "older document never moves cursor back",
			cursor: Cursor{LastID: "a", LastUpdatedAt: t1},
			doc:    Document{ID: "z", UpdatedAt: t0},
			want:   Cursor{LastID: "a", LastUpdatedAt: t1},
		},
		{
			name:   "same document is excluded",
			cursor: Cursor{LastID: "a", LastUpdatedAt: t0},
			doc:    Document{ID: "a", UpdatedAt: t0},
			want:   Cursor{LastID: "a", LastUpdatedAt: t0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cursor.Advance(tt.doc)
			assert.Equal(t, tt.want.LastID, got.LastID)
			assert.True(t, tt.want.LastUpdatedAt.Equal(got.LastUpdatedAt))
		})
	}
}

func TestInitialCursor(t *testing.T) {
	c := InitialCursor()
	assert.True(t, c.IsInitial())
	assert.Equal(t, "1970-01-01T00:00:00.000Z", FormatTime(c.LastUpdatedAt))

	moved := c.Advance(Document{ID: "x", UpdatedAt: time.Now()})
	assert.False(t, moved.IsInitial())
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2024-03-05T10:11:12.345Z")
	assert.NoError(t, err)
	assert.Equal(t, "2024-03-05T10:11:12.345Z", FormatTime(got))

	got, err = ParseTime("2024-03-05T12:11:12.345678+02:00")
	assert.NoError(t, err)
	assert.Equal(t, "2024-03-05T10:11:12.345Z", FormatTime(got))

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}

func TestDocument_Name(t *testing.T) {
	doc, err := NewDocument(CollectionTags, "1", map[string]string{"name": "history"})
	assert.NoError(t, err)
	assert.Equal(t, "history", doc.Name())

	assert.Equal(t, "", Document{}.Name())
	assert.Equal(t, "", Document{Data: []byte("not json")}.Name())
}
