package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Коллекции локального хранилища
const (
	CollectionTags          = "tags"
	CollectionFacts         = "facts"
	CollectionSchedules     = "schedules"
	CollectionNotifications = "notifications"
)

// TimeLayout формат updatedAt на проводе (как Date.toISOString)
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Document - документ локального хранилища.
// Data содержит полезную нагрузку коллекции, для тегов это {"name": "..."}.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Deleted    bool            `json:"deleted"`
}

// Name возвращает поле name из полезной нагрузки, если оно есть
func (d Document) Name() string {
	if len(d.Data) == 0 {
		return ""
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(d.Data, &payload); err != nil {
		return ""
	}
	return payload.Name
}

// Decode разбирает полезную нагрузку в v
func (d Document) Decode(v any) error {
	if len(d.Data) == 0 {
		return fmt.Errorf("%w: empty data", ErrInvalidDocument)
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// NewDocument собирает документ из произвольной полезной нагрузки
func NewDocument(collection, id string, payload any) (Document, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Document{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Document{
		Collection: collection,
		ID:         id,
		Data:       data,
	}, nil
}

// FormatTime приводит время к формату провода в UTC
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime разбирает ISO-8601 время и приводит его к точности хранилища
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return Truncate(t), nil
}

// Truncate приводит время к UTC с точностью до миллисекунд
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
