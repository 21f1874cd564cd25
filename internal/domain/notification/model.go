package notification

import (
	"time"

	"memorizefacts/internal/model"
)

type Notification struct {
	ID             string    `json:"id"`
	Fact           string    `json:"fact"`
	Schedule       string    `json:"schedule"`
	IDNotification string    `json:"idNotification,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type payload struct {
	Fact           string `json:"fact"`
	Schedule       string `json:"schedule"`
	IDNotification string `json:"idNotification,omitempty"`
}

func FromDocument(doc model.Document) (Notification, error) {
	var p payload
	if err := doc.Decode(&p); err != nil {
		return Notification{}, err
	}
	return Notification{
		ID:             doc.ID,
		Fact:           p.Fact,
		Schedule:       p.Schedule,
		IDNotification: p.IDNotification,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}
