package model

import (
	"strings"
	"time"
)

// Cursor отмечает прогресс инкрементального pull для одной коллекции
type Cursor struct {
	LastID        string    `json:"lastId"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// InitialCursor - курсор "с начала времен": пустой id и эпоха
func InitialCursor() Cursor {
	return Cursor{LastUpdatedAt: time.Unix(0, 0).UTC()}
}

// CursorOf возвращает курсор, указывающий на документ
func CursorOf(d Document) Cursor {
	return Cursor{LastID: d.ID, LastUpdatedAt: Truncate(d.UpdatedAt)}
}

// Compare упорядочивает пары (updatedAt, id): сначала по времени, затем по id
func Compare(aAt time.Time, aID string, bAt time.Time, bID string) int {
	switch {
	case aAt.Before(bAt):
		return -1
	case aAt.After(bAt):
		return 1
	}
	return strings.Compare(aID, bID)
}

// Before сообщает, лежит ли документ строго после курсора
func (c Cursor) Before(d Document) bool {
	return Compare(c.LastUpdatedAt, c.LastID, Truncate(d.UpdatedAt), d.ID) < 0
}

// Advance двигает курсор к документу. Курсор никогда не отступает назад.
func (c Cursor) Advance(d Document) Cursor {
	if c.Before(d) {
		return CursorOf(d)
	}
	return c
}

// IsInitial сообщает, что курсор еще ни разу не двигался
func (c Cursor) IsInitial() bool {
	return c.LastID == "" && !c.LastUpdatedAt.After(time.Unix(0, 0).UTC())
}
