package gql

import (
	"encoding/json"
	"testing"
	"time"

	"memorizefacts/internal/model"

	"github.com/graphql-go/graphql/language/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTagPull(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 30, 0, 250_000_000, time.UTC)

	tests := []struct {
		name     string
		cursor   model.Cursor
		limit    int
		wantVars map[string]any
		wantErr  bool
	}{
		{
			name:   "initial cursor",
			cursor: model.InitialCursor(),
			limit:  5,
			wantVars: map[string]any{
				"lastId":       "",
				"minUpdatedAt": "1970-01-01T00:00:00.000Z",
				"limit":        5,
			},
		},
		{
			name:   "resumed cursor",
			cursor: model.Cursor{LastID: "tag-1", LastUpdatedAt: at},
			limit:  10,
			wantVars: map[string]any{
				"lastId":       "tag-1",
				"minUpdatedAt": "2024-03-10T12:30:00.250Z",
				"limit":        10,
			},
		},
		{
			name:    "zero limit",
			cursor:  model.InitialCursor(),
			limit:   0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildTagPull(tt.cursor, tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "FeedTags", req.OperationName)
			assert.Equal(t, tt.wantVars, req.Variables)
			assert.Contains(t, req.Query, "feedForRxDBReplicationTag")
			assert.Contains(t, req.Query, "$lastId")
			assert.NotContains(t, req.Query, tt.cursor.LastID+"\"")

			_, err = parser.Parse(parser.ParseParams{Source: req.Query})
			assert.NoError(t, err)
		})
	}
}

func TestBuildTagPush(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	live, err := model.NewDocument(model.CollectionTags, "a", map[string]string{"name": "physics"})
	require.NoError(t, err)
	live.UpdatedAt = at
	gone, err := model.NewDocument(model.CollectionTags, "b", map[string]string{"name": "history"})
	require.NoError(t, err)
	gone.UpdatedAt = at.Add(time.Millisecond)
	gone.Deleted = true

	req, err := BuildTagPush([]model.Document{live, gone})
	require.NoError(t, err)

	assert.Equal(t, "CreateTags", req.OperationName)
	assert.Contains(t, req.Query, "setRxDBReplicationTags")
	assert.Equal(t, []TagCreateInput{
		{FrontendID: "a", Name: "physics", UpdatedAt: "2024-03-10T12:30:00.000Z"},
		{FrontendID: "b", Name: "history", UpdatedAt: "2024-03-10T12:30:00.001Z", Deleted: true},
	}, req.Variables["tags"])

	_, err = parser.Parse(parser.ParseParams{Source: req.Query})
	assert.NoError(t, err)
}

func TestBuildTagPush_InvalidDocument(t *testing.T) {
	_, err := BuildTagPush([]model.Document{{Collection: model.CollectionTags, ID: "a", Data: json.RawMessage(`[1]`)}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestDecodeTagFeed(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{
			name: "page with tombstone",
			data: `{"feedForRxDBReplicationTag":[
				{"id":"a","name":"physics","updatedAt":"2024-03-10T12:30:00.000Z","deleted":false},
				{"id":"b","name":"history","updatedAt":"2024-03-10T12:30:00.000Z","deleted":true}]}`,
			want: 2,
		},
		{name: "empty page", data: `{"feedForRxDBReplicationTag":[]}`, want: 0},
		{name: "missing field", data: `{}`, wantErr: true},
		{name: "bad time", data: `{"feedForRxDBReplicationTag":[{"id":"a","name":"x","updatedAt":"yesterday"}]}`, wantErr: true},
		{name: "no id", data: `{"feedForRxDBReplicationTag":[{"name":"x","updatedAt":"2024-03-10T12:30:00.000Z"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := DecodeTagFeed(json.RawMessage(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			assert.Len(t, docs, tt.want)
		})
	}

	docs, err := DecodeTagFeed(json.RawMessage(`{"feedForRxDBReplicationTag":[{"id":"b","name":"history","updatedAt":"2024-03-10T12:30:00.123Z","deleted":true}]}`))
	require.NoError(t, err)
	assert.Equal(t, model.CollectionTags, docs[0].Collection)
	assert.Equal(t, "history", docs[0].Name())
	assert.True(t, docs[0].Deleted)
	assert.True(t, time.Date(2024, 3, 10, 12, 30, 0, 123_000_000, time.UTC).Equal(docs[0].UpdatedAt))
}

func TestDecodeLogin(t *testing.T) {
	token, err := DecodeLogin(json.RawMessage(`{"authenticateUserWithPassword":{"__typename":"UserAuthenticationWithPasswordSuccess","sessionToken":"tok"}}`))
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = DecodeLogin(json.RawMessage(`{"authenticateUserWithPassword":{"__typename":"UserAuthenticationWithPasswordFailure","message":"Authentication failed."}}`))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorContains(t, err, "Authentication failed.")

	_, err = DecodeLogin(json.RawMessage(`{"authenticateUserWithPassword":null}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
