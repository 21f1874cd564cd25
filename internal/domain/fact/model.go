package fact

import (
	"time"

	"memorizefacts/internal/model"
)

const MaxNameLen = 100

type Fact struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Active      bool       `json:"active"`
	Tags        []string   `json:"tags"`
	Schedules   []string   `json:"schedules"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type payload struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Active      bool       `json:"active"`
	Tags        []string   `json:"tags"`
	Schedules   []string   `json:"schedules"`
}

func FromDocument(doc model.Document) (Fact, error) {
	var p payload
	if err := doc.Decode(&p); err != nil {
		return Fact{}, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Schedules == nil {
		p.Schedules = []string{}
	}
	return Fact{
		ID:          doc.ID,
		Name:        p.Name,
		Description: p.Description,
		Deadline:    p.Deadline,
		Active:      p.Active,
		Tags:        p.Tags,
		Schedules:   p.Schedules,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func (f Fact) payload() payload {
	tags, schedules := f.Tags, f.Schedules
	if tags == nil {
		tags = []string{}
	}
	if schedules == nil {
		schedules = []string{}
	}
	return payload{
		Name:        f.Name,
		Description: f.Description,
		Deadline:    f.Deadline,
		Active:      f.Active,
		Tags:        tags,
		Schedules:   schedules,
	}
}
