package replication

import (
	"context"
	"time"

	"memorizefacts/internal/model"
)

// Rejection отказ сервера принять документ
type Rejection struct {
	ID     string
	Reason string
}

// Remote удаленная точка синхронизации
type Remote interface {
	// Pull возвращает до limit документов строго после курсора в порядке (updatedAt, id)
	Pull(ctx context.Context, collection string, cursor model.Cursor, limit int) ([]model.Document, error)
	// Push сохраняет документы по id и возвращает отказы по отдельным документам
	Push(ctx context.Context, collection string, docs []model.Document) ([]Rejection, error)
}

// Connector выполняет вход и возвращает Remote, привязанный к сессии
type Connector interface {
	Connect(ctx context.Context, creds Credentials) (Remote, error)
}

// LocalStore часть хранилища, которой пользуется цикл репликации
type LocalStore interface {
	ApplyRemote(ctx context.Context, doc model.Document, accept model.Resolver) (bool, error)
	Dirty(ctx context.Context, collection string, now time.Time, limit int) ([]model.Pending, error)
	MarkClean(ctx context.Context, collection, id string, updatedAt time.Time) (bool, error)
	MarkRejected(ctx context.Context, collection, id string, updatedAt, nextAttempt time.Time, permanent bool) (bool, error)
	LoadCursor(ctx context.Context, collection string) (model.Cursor, error)
	SaveCursor(ctx context.Context, collection string, cursor model.Cursor) error
	RecordApplyFailure(ctx context.Context, collection, id string, updatedAt time.Time) (int, error)
	ClearApplyFailure(ctx context.Context, collection, id string) error
	Subscribe(collection string) (<-chan model.ChangeEvent, func())
}
