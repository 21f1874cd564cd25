package user

import (
	"context"
)

// Repository хранилище пользователей. Email уже нормализован сервисом.
type Repository interface {
	Create(ctx context.Context, email, passwordHash string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}
