package model

import (
	"context"
	"time"
)

// Filter условия выборки документов коллекции.
// Where - равенство полей верхнего уровня, Contains - поле-массив содержит значение.
type Filter struct {
	Where          map[string]any
	Contains       map[string]string
	IncludeDeleted bool
	Limit          int
}

// Pending грязный документ, ожидающий отправки, вместе с числом неудачных попыток
type Pending struct {
	Document
	PushAttempts int
}

// Resolver решает, заменяет ли удаленная версия локальную (local == nil, если документа нет)
type Resolver func(local *Document, remote Document) bool

// Store общий контракт локального хранилища документов
type Store interface {
	Insert(ctx context.Context, doc Document) (Document, error)
	Update(ctx context.Context, collection, id string, delta map[string]any) (Document, error)
	Remove(ctx context.Context, collection, id string) (Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)
	FindSince(ctx context.Context, collection string, cursor Cursor, limit int) ([]Document, error)

	// Dirty возвращает документы, которые пора отправить: грязные, не помеченные как
	// окончательно отклоненные и с истекшей паузой после отказа
	Dirty(ctx context.Context, collection string, now time.Time, limit int) ([]Pending, error)
	IsDirty(ctx context.Context, collection, id string) (bool, error)
	// MarkClean снимает флаг, только если документ не менялся после снимка updatedAt
	MarkClean(ctx context.Context, collection, id string, updatedAt time.Time) (bool, error)
	MarkRejected(ctx context.Context, collection, id string, updatedAt, nextAttempt time.Time, permanent bool) (bool, error)
	// ApplyRemote атомарно сравнивает версии через accept и записывает удаленную версию как есть
	ApplyRemote(ctx context.Context, doc Document, accept Resolver) (bool, error)

	LoadCursor(ctx context.Context, collection string) (Cursor, error)
	SaveCursor(ctx context.Context, collection string, cursor Cursor) error

	// RecordApplyFailure увеличивает счетчик неудачных применений версии updatedAt документа
	// и возвращает его. Другая версия того же документа начинает счет заново.
	RecordApplyFailure(ctx context.Context, collection, id string, updatedAt time.Time) (int, error)
	ClearApplyFailure(ctx context.Context, collection, id string) error

	Subscribe(collection string) (<-chan ChangeEvent, func())
	Close() error
}
