package schedule

import (
	"time"

	"memorizefacts/internal/model"
)

type Type string

const (
	TypeNotifyEvery Type = "NOTIFY_EVERY"
	TypeNotifyAt    Type = "NOTIFY_AT"
)

// Schedule расписание напоминаний. DayOfWeek: 0 - понедельник, 6 - воскресенье.
type Schedule struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Interval    int       `json:"interval,omitempty"`
	NotifyTimes []string  `json:"notifyTimes,omitempty"`
	DayOfWeek   []bool    `json:"dayOfWeek,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Spec параметры расписания без идентификатора и имени
type Spec struct {
	Type        Type     `json:"type"`
	Interval    int      `json:"interval,omitempty"`
	NotifyTimes []string `json:"notifyTimes,omitempty"`
	DayOfWeek   []bool   `json:"dayOfWeek,omitempty"`
}

type payload struct {
	Name string `json:"name"`
	Spec
}

func FromDocument(doc model.Document) (Schedule, error) {
	var p payload
	if err := doc.Decode(&p); err != nil {
		return Schedule{}, err
	}
	return Schedule{
		ID:          doc.ID,
		Name:        p.Name,
		Type:        p.Type,
		Interval:    p.Interval,
		NotifyTimes: p.NotifyTimes,
		DayOfWeek:   p.DayOfWeek,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func (s Schedule) Spec() Spec {
	return Spec{
		Type:        s.Type,
		Interval:    s.Interval,
		NotifyTimes: s.NotifyTimes,
		DayOfWeek:   s.DayOfWeek,
	}
}
