package user

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"memorizefacts/internal/domain/user"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, email, password string) (user.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *MockService) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(user.User), args.Error(1)
}

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

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	return se.GetStatus()
}

func TestHandler_register(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "created"},
		{name: "invalid input", serviceErr: user.ErrInvalidInput, wantStatus: http.StatusUnprocessableEntity},
		{name: "duplicate", serviceErr: user.ErrAlreadyExist, wantStatus: http.StatusConflict},
		{name: "storage error", serviceErr: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			service := new(MockService)
			handler := NewHandler(service, new(MockSession), slog.Default(), huma.Middlewares{})
			service.On("Register", mock.Anything, "user@example.com", "password123").
				Return(user.User{ID: 3, Email: "user@example.com"}, tt.serviceErr)
			input := &registerInput{Body: Credentials{Email: "user@example.com", Password: "password123"}}

			// Act
			output, err := handler.register(context.Background(), input)

			// Assert
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, RegisterResponse{ID: "3", Email: "user@example.com"}, output.Body)
		})
	}
}

func TestHandler_login(t *testing.T) {
	// Arrange
	service := new(MockService)
	sessions := new(MockSession)
	handler := NewHandler(service, sessions, slog.Default(), huma.Middlewares{})
	service.On("Authenticate", mock.Anything, "user@example.com", "password123").
		Return(user.User{ID: 3}, nil)
	sessions.On("Create", mock.Anything, int64(3)).Return("token-1", nil)

	// Act
	output, err := handler.login(context.Background(), &loginInput{
		Body: Credentials{Email: "user@example.com", Password: "password123"},
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "token-1", output.Body.Token)
	sessions.AssertExpectations(t)
}

func TestHandler_login_InvalidCredentials(t *testing.T) {
	// Arrange
	service := new(MockService)
	sessions := new(MockSession)
	handler := NewHandler(service, sessions, slog.Default(), huma.Middlewares{})
	service.On("Authenticate", mock.Anything, "user@example.com", "wrong-pass1").
		Return(user.User{}, user.ErrInvalidAuth)

	// Act
	_, err := handler.login(context.Background(), &loginInput{
		Body: Credentials{Email: "user@example.com", Password: "wrong-pass1"},
	})

	// Assert
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
