package schedule

import (
	"context"
	"errors"
	"fmt"

	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, spec Spec) (Schedule, error)
	Update(ctx context.Context, id string, spec Spec) (Schedule, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Schedule, error)
	GetByName(ctx context.Context, name string) (Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
}

type Service struct {
	store model.Store
	log   *slog.Logger
}

func NewService(store model.Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With(slog.String("component", "schedule")),
	}
}

func (s *Service) Create(ctx context.Context, spec Spec) (Schedule, error) {
	name, err := spec.GenerateName()
	if err != nil {
		return Schedule{}, err
	}

	doc, err := model.NewDocument(model.CollectionSchedules, "", payload{Name: name, Spec: spec})
	if err != nil {
		return Schedule{}, err
	}
	created, err := s.store.Insert(ctx, doc)
	if err != nil {
		return Schedule{}, mapStoreError(err)
	}

	s.log.Debug("schedule created", slog.String("id", created.ID), slog.String("name", name))
	return FromDocument(created)
}

// Update заменяет параметры расписания целиком и пересчитывает имя
func (s *Service) Update(ctx context.Context, id string, spec Spec) (Schedule, error) {
	name, err := spec.GenerateName()
	if err != nil {
		return Schedule{}, err
	}

	delta := map[string]any{
		"name":        name,
		"type":        spec.Type,
		"interval":    nil,
		"notifyTimes": nil,
		"dayOfWeek":   nil,
	}
	if spec.Type == TypeNotifyEvery {
		delta["interval"] = spec.Interval
	} else {
		delta["notifyTimes"] = spec.NotifyTimes
		delta["dayOfWeek"] = spec.DayOfWeek
	}

	doc, err := s.store.Update(ctx, model.CollectionSchedules, id, delta)
	if err != nil {
		return Schedule{}, mapStoreError(err)
	}
	return FromDocument(doc)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := s.store.Remove(ctx, model.CollectionSchedules, id); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Schedule, error) {
	doc, err := s.store.Get(ctx, model.CollectionSchedules, id)
	if err != nil {
		return Schedule{}, mapStoreError(err)
	}
	if doc.Deleted {
		return Schedule{}, ErrNotFound
	}
	return FromDocument(doc)
}

func (s *Service) GetByName(ctx context.Context, name string) (Schedule, error) {
	docs, err := s.store.Find(ctx, model.CollectionSchedules, model.Filter{
		Where: map[string]any{"name": name},
		Limit: 1,
	})
	if err != nil {
		return Schedule{}, fmt.Errorf("find schedule: %w", err)
	}
	if len(docs) == 0 {
		return Schedule{}, ErrNotFound
	}
	return FromDocument(docs[0])
}

func (s *Service) List(ctx context.Context) ([]Schedule, error) {
	docs, err := s.store.Find(ctx, model.CollectionSchedules, model.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	out := make([]Schedule, 0, len(docs))
	for _, doc := range docs {
		sc, err := FromDocument(doc)
		if err != nil {
			s.log.Warn("skip broken schedule", slog.String("id", doc.ID), slog.String("error", err.Error()))
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, model.ErrDuplicateName):
		return ErrAlreadyExist
	}
	return err
}
