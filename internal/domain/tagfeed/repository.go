package tagfeed

import (
	"context"

	"memorizefacts/internal/model"
)

type Repository interface {
	// Feed теги пользователя строго после курсора в порядке (updatedAt, frontendId)
	Feed(ctx context.Context, userID int64, after model.Cursor, limit int) ([]Tag, error)
	// WithinTx выполняет fn в одной транзакции, ошибка fn откатывает все
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	// Get блокирует строку тега до конца транзакции, nil если тега нет
	Get(ctx context.Context, userID int64, frontendID string) (*Tag, error)
	// NameTaken сообщает, занято ли имя другим живым тегом пользователя
	NameTaken(ctx context.Context, userID int64, name, exceptFrontendID string) (bool, error)
	Upsert(ctx context.Context, t Tag) error
}
