package schema

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"memorizefacts/internal/app/server/api/http/middleware/auth"
	"memorizefacts/internal/domain/tagfeed"
	"memorizefacts/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockUsers struct{ mock.Mock }

func (m *MockUsers) Register(ctx context.Context, email, password string) (user.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *MockUsers) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(user.User), args.Error(1)
}

type MockSessions struct{ mock.Mock }

func (m *MockSessions) Create(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSessions) Validate(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

type MockTags struct{ mock.Mock }

func (m *MockTags) Feed(ctx context.Context, userID int64, lastFrontendID, minUpdatedAt string, limit int) ([]tagfeed.Tag, error) {
	args := m.Called(ctx, userID, lastFrontendID, minUpdatedAt, limit)
	tags, _ := args.Get(0).([]tagfeed.Tag)
	return tags, args.Error(1)
}

func (m *MockTags) Set(ctx context.Context, userID int64, inputs []tagfeed.Input) ([]tagfeed.Rejection, error) {
	args := m.Called(ctx, userID, inputs)
	rejected, _ := args.Get(0).([]tagfeed.Rejection)
	return rejected, args.Error(1)
}

type fixture struct {
	schema   *Schema
	users    *MockUsers
	sessions *MockSessions
	tags     *MockTags
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{users: new(MockUsers), sessions: new(MockSessions), tags: new(MockTags)}
	s, err := New(f.users, f.sessions, f.tags, slog.Default())
	require.NoError(t, err)
	f.schema = s
	return f
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func (f *fixture) run(t *testing.T, ctx context.Context, query string, vars map[string]any) gqlResponse {
	t.Helper()
	raw, err := json.Marshal(f.schema.Execute(ctx, Request{Query: query, Variables: vars}))
	require.NoError(t, err)

	var resp gqlResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

const feedQuery = `query FeedTags($lastId: String!, $minUpdatedAt: String!, $limit: Int!) {
	feedForRxDBReplicationTag(lastFrontendId: $lastId, minUpdatedAt: $minUpdatedAt, limit: $limit) {
		id: frontendId
		name
		updatedAt
		deleted
	}
}`

const pushQuery = `mutation CreateTags($tags: [TagCreateInput!]) {
	setRxDBReplicationTags(tags: $tags) {
		id
		rejected { frontendId reason }
	}
}`

const loginQuery = `mutation authenticateUserWithPassword($email: String!, $password: String!) {
	authenticateUserWithPassword(email: $email, password: $password) {
		__typename
		... on UserAuthenticationWithPasswordSuccess { sessionToken item { id email } }
		... on UserAuthenticationWithPasswordFailure { message }
	}
}`

const registerQuery = `mutation createUser($email: String!, $password: String!) {
	createUser(email: $email, password: $password) { id email }
}`

func TestSchema_FeedRequiresSession(t *testing.T) {
	f := newFixture(t)

	resp := f.run(t, context.Background(), feedQuery, map[string]any{
		"lastId": "", "minUpdatedAt": "1970-01-01T00:00:00.000Z", "limit": 5,
	})

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeUnauthenticated, resp.Errors[0].Extensions["code"])
	f.tags.AssertNotCalled(t, "Feed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSchema_Feed(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)
	f.tags.On("Feed", mock.Anything, int64(7), "a", "2024-05-01T09:00:00.000Z", 5).
		Return([]tagfeed.Tag{{UserID: 7, FrontendID: "b", Name: "go", UpdatedAt: at}}, nil)

	ctx := auth.WithUserID(context.Background(), 7)
	resp := f.run(t, ctx, feedQuery, map[string]any{
		"lastId": "a", "minUpdatedAt": "2024-05-01T09:00:00.000Z", "limit": 5,
	})
	require.Empty(t, resp.Errors)

	var feed []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data["feedForRxDBReplicationTag"], &feed))
	assert.Equal(t, []map[string]any{{
		"id":        "b",
		"name":      "go",
		"updatedAt": "2024-05-01T10:00:00.123Z",
		"deleted":   false,
	}}, feed)
	f.tags.AssertExpectations(t)
}

func TestSchema_FeedInvalidInput(t *testing.T) {
	f := newFixture(t)
	f.tags.On("Feed", mock.Anything, int64(7), "", "1970-01-01T00:00:00.000Z", 0).
		Return(nil, tagfeed.ErrInvalidInput)

	ctx := auth.WithUserID(context.Background(), 7)
	resp := f.run(t, ctx, feedQuery, map[string]any{
		"lastId": "", "minUpdatedAt": "1970-01-01T00:00:00.000Z", "limit": 0,
	})

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeBadUserInput, resp.Errors[0].Extensions["code"])
}

func TestSchema_SetTags(t *testing.T) {
	f := newFixture(t)
	f.tags.On("Set", mock.Anything, int64(7), []tagfeed.Input{
		{FrontendID: "a", Name: "go", UpdatedAt: "2024-05-01T10:00:00.000Z"},
		{FrontendID: "b", Name: "old", UpdatedAt: "2024-05-01T09:00:00.000Z", Deleted: true},
	}).Return([]tagfeed.Rejection{{FrontendID: "b", Reason: tagfeed.ReasonStaleWrite}}, nil)

	ctx := auth.WithUserID(context.Background(), 7)
	resp := f.run(t, ctx, pushQuery, map[string]any{
		"tags": []any{
			map[string]any{"frontendId": "a", "name": "go", "updatedAt": "2024-05-01T10:00:00.000Z", "deleted": false},
			map[string]any{"frontendId": "b", "name": "old", "updatedAt": "2024-05-01T09:00:00.000Z", "deleted": true},
		},
	})
	require.Empty(t, resp.Errors)

	var result struct {
		ID       string               `json:"id"`
		Rejected []tagfeed.Rejection `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["setRxDBReplicationTags"], &result))
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, []tagfeed.Rejection{{FrontendID: "b", Reason: "STALE_WRITE"}}, result.Rejected)
	f.tags.AssertExpectations(t)
}

func TestSchema_SetTagsStorageError(t *testing.T) {
	f := newFixture(t)
	f.tags.On("Set", mock.Anything, int64(7), mock.Anything).Return(nil, errors.New("pool closed"))

	ctx := auth.WithUserID(context.Background(), 7)
	resp := f.run(t, ctx, pushQuery, map[string]any{"tags": []any{}})

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeInternal, resp.Errors[0].Extensions["code"])
	assert.NotContains(t, resp.Errors[0].Message, "pool closed")
}

func TestSchema_Authenticate(t *testing.T) {
	tests := []struct {
		name     string
		authErr  error
		wantType string
		wantKey  string
		wantVal  string
	}{
		{
			name:     "success",
			wantType: "UserAuthenticationWithPasswordSuccess",
			wantKey:  "sessionToken",
			wantVal:  "token-1",
		},
		{
			name:     "failure",
			authErr:  user.ErrInvalidAuth,
			wantType: "UserAuthenticationWithPasswordFailure",
			wantKey:  "message",
			wantVal:  authFailedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.users.On("Authenticate", mock.Anything, "user@example.com", "password123").
				Return(user.User{ID: 7, Email: "user@example.com"}, tt.authErr)
			if tt.authErr == nil {
				f.sessions.On("Create", mock.Anything, int64(7)).Return("token-1", nil)
			}

			resp := f.run(t, context.Background(), loginQuery, map[string]any{
				"email": "user@example.com", "password": "password123",
			})
			require.Empty(t, resp.Errors)

			var result map[string]any
			require.NoError(t, json.Unmarshal(resp.Data["authenticateUserWithPassword"], &result))
			assert.Equal(t, tt.wantType, result["__typename"])
			assert.Equal(t, tt.wantVal, result[tt.wantKey])
			f.sessions.AssertExpectations(t)
		})
	}
}

func TestSchema_CreateUser(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "registered"},
		{name: "invalid input", err: user.ErrInvalidInput, wantCode: CodeBadUserInput},
		{name: "duplicate", err: user.ErrAlreadyExist, wantCode: CodeBadUserInput},
		{name: "storage error", err: errors.New("boom"), wantCode: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.users.On("Register", mock.Anything, "user@example.com", "password123").
				Return(user.User{ID: 42, Email: "user@example.com"}, tt.err)

			resp := f.run(t, context.Background(), registerQuery, map[string]any{
				"email": "user@example.com", "password": "password123",
			})

			if tt.wantCode != "" {
				require.Len(t, resp.Errors, 1)
				assert.Equal(t, tt.wantCode, resp.Errors[0].Extensions["code"])
				return
			}
			require.Empty(t, resp.Errors)
			var u map[string]any
			require.NoError(t, json.Unmarshal(resp.Data["createUser"], &u))
			assert.Equal(t, map[string]any{"id": "42", "email": "user@example.com"}, u)
		})
	}
}
