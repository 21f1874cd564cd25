package conflict

import (
	"testing"
	"time"

	"memorizefacts/internal/model"

	"github.com/stretchr/testify/assert"
)

func tag(id, name string, at time.Time, deleted bool) model.Document {
	doc, _ := model.NewDocument(model.CollectionTags, id, map[string]string{"name": name})
	doc.UpdatedAt = at
	doc.Deleted = deleted
	return doc
}

func TestResolve(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	tests := []struct {
		name   string
		local  *model.Document
		remote model.Document
		want   Outcome
	}{
		{
			name:   "missing locally",
			local:  nil,
			remote: tag("x", "a", t1, false),
			want:   TakeRemote,
		},
		{
			name:   "remote newer",
			local:  ptr(tag("x", "a", t1, false)),
			remote: tag("x", "b", t2, false),
			want:   TakeRemote,
		},
		{
			name:   "local newer",
			local:  ptr(tag("x", "a", t2, false)),
			remote: tag("x", "b", t1, false),
			want:   KeepLocal,
		},
		{
			name:   "local newer beats remote tombstone",
			local:  ptr(tag("x", "a", t2, false)),
			remote: tag("x", "a", t1, true),
			want:   KeepLocal,
		},
		{
			name:   "equal time remote tombstone wins",
			local:  ptr(tag("x", "a", t1, false)),
			remote: tag("x", "a", t1, true),
			want:   TakeRemote,
		},
		{
			name:   "equal time local tombstone is sticky",
			local:  ptr(tag("x", "a", t1, true)),
			remote: tag("x", "b", t1, false),
			want:   KeepLocal,
		},
		{
			name:   "equal time both tombstones",
			local:  ptr(tag("x", "a", t1, true)),
			remote: tag("x", "a", t1, true),
			want:   Same,
		},
		{
			name:   "equal time remote wins tie",
			local:  ptr(tag("x", "a", t1, false)),
			remote: tag("x", "b", t1, false),
			want:   TakeRemote,
		},
		{
			name:   "identical versions",
			local:  ptr(tag("x", "a", t1, false)),
			remote: tag("x", "a", t1, false),
			want:   Same,
		},
		{
			name:   "sub-millisecond difference is a tie",
			local:  ptr(tag("x", "a", t1.Add(300*time.Microsecond), false)),
			remote: tag("x", "b", t1, false),
			want:   TakeRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.local, tt.remote))
		})
	}
}

func TestAccepts(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	assert.True(t, Accepts(nil, tag("x", "a", t1, false)))
	assert.True(t, Accepts(ptr(tag("x", "a", t1, false)), tag("x", "b", t2, false)))
	assert.False(t, Accepts(ptr(tag("x", "a", t2, false)), tag("x", "b", t1, false)))
	assert.True(t, Accepts(ptr(tag("x", "a", t1, false)), tag("x", "a", t1, true)))
	assert.False(t, Accepts(ptr(tag("x", "a", t1, true)), tag("x", "a", t1, false)))
	assert.True(t, Accepts(ptr(tag("x", "a", t1, false)), tag("x", "b", t1, false)))
}

func ptr(d model.Document) *model.Document { return &d }
