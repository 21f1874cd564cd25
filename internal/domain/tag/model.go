package tag

import (
	"time"

	"memorizefacts/internal/model"
)

const MaxNameLen = 50

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	Deleted   bool      `json:"deleted"`
}

type payload struct {
	Name string `json:"name"`
}

// FromDocument собирает тег из документа коллекции tags
func FromDocument(doc model.Document) (Tag, error) {
	var p payload
	if err := doc.Decode(&p); err != nil {
		return Tag{}, err
	}
	return Tag{
		ID:        doc.ID,
		Name:      p.Name,
		UpdatedAt: doc.UpdatedAt,
		Deleted:   doc.Deleted,
	}, nil
}

// Document превращает тег в документ хранилища
func (t Tag) Document() (model.Document, error) {
	doc, err := model.NewDocument(model.CollectionTags, t.ID, payload{Name: t.Name})
	if err != nil {
		return model.Document{}, err
	}
	doc.UpdatedAt = t.UpdatedAt
	doc.Deleted = t.Deleted
	return doc, nil
}
