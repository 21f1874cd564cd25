package session

import (
	"context"
	"time"
)

// Repository хранит хэши токенов, сами токены не сохраняются
type Repository interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	// Validate возвращает ErrInvalidSession, если сессии нет или она истекла
	Validate(ctx context.Context, tokenHash string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
