// Package tagfeed серверная сторона репликации тегов: лента изменений и прием записей клиентов.
package tagfeed

import (
	"time"

	"memorizefacts/internal/domain/tag"
	"memorizefacts/internal/model"
)

// Причины отказа в записи тега
const (
	ReasonStaleWrite    = "STALE_WRITE"
	ReasonDuplicateName = "DUPLICATE_NAME"
	ReasonInvalid       = "INVALID"
)

// Tag тег пользователя на сервере, frontendId назначен клиентом
type Tag struct {
	UserID     int64
	FrontendID string
	Name       string
	UpdatedAt  time.Time
	Deleted    bool
}

// Input запись тега от клиента в проводном виде
type Input struct {
	FrontendID string
	Name       string
	UpdatedAt  string
	Deleted    bool
}

type Rejection struct {
	FrontendID string `json:"frontendId"`
	Reason     string `json:"reason"`
}

// document нужен для сравнения версий общей политикой конфликтов
func (t Tag) document() (model.Document, error) {
	return tag.Tag{
		ID:        t.FrontendID,
		Name:      t.Name,
		UpdatedAt: t.UpdatedAt,
		Deleted:   t.Deleted,
	}.Document()
}
