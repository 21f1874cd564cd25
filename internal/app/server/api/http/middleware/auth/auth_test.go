package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"memorizefacts/internal/domain/session"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Create(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSession) Validate(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func TestAuth_Middleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validate   bool
		userID     int64
		err        error
		wantUserID bool
	}{
		{name: "no header"},
		{name: "not bearer", header: "Basic abc"},
		{name: "empty token", header: "Bearer   "},
		{name: "valid token", header: "Bearer tok", validate: true, userID: 7, wantUserID: true},
		{name: "invalid token", header: "Bearer tok", validate: true, err: session.ErrInvalidSession},
		{name: "storage error", header: "Bearer tok", validate: true, err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			sessions := new(MockSession)
			if tt.validate {
				sessions.On("Validate", mock.Anything, "tok").Return(tt.userID, tt.err)
			}
			mw := New(sessions, slog.Default()).Middleware()

			r := httptest.NewRequest(http.MethodPost, "/api/graphql", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			hctx := humatest.NewContext(&huma.Operation{OperationID: "graphql"}, r, httptest.NewRecorder())

			var (
				called bool
				gotID  int64
				gotOK  bool
			)

			// Act
			mw(hctx, func(next huma.Context) {
				called = true
				gotID, gotOK = GetUserID(next.Context())
			})

			// Assert
			assert.True(t, called, "запрос всегда идет дальше")
			assert.Equal(t, tt.wantUserID, gotOK)
			if tt.wantUserID {
				assert.Equal(t, tt.userID, gotID)
			}
			sessions.AssertExpectations(t)
		})
	}
}

func TestBearer(t *testing.T) {
	token, ok := bearer("Bearer abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearer("bearer abc")
	assert.False(t, ok)
}
