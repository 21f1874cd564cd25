package fact

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, req CreateRequest) (Fact, error)
	Update(ctx context.Context, id string, req UpdateRequest) (Fact, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Fact, error)
	GetByName(ctx context.Context, name string) (Fact, error)
	List(ctx context.Context, filter ListFilter) ([]Fact, error)
	AddTag(ctx context.Context, id, tagID string) (Fact, error)
	RemoveTag(ctx context.Context, id, tagID string) (Fact, error)
	AddSchedule(ctx context.Context, id, scheduleID string) (Fact, error)
	RemoveSchedule(ctx context.Context, id, scheduleID string) (Fact, error)
}

type Service struct {
	store model.Store
	log   *slog.Logger
}

func NewService(store model.Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With(slog.String("component", "fact")),
	}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name must be set", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, MaxNameLen)
	}
	return name, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Fact, error) {
	name, err := validateName(req.Name)
	if err != nil {
		return Fact{}, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return Fact{}, fmt.Errorf("%w: description must be set", ErrInvalidInput)
	}
	for _, tagID := range req.Tags {
		if err := s.requireLive(ctx, model.CollectionTags, tagID, ErrUnknownTag); err != nil {
			return Fact{}, err
		}
	}

	f := Fact{
		Name:        name,
		Description: req.Description,
		Deadline:    req.Deadline,
		Active:      req.Active,
		Tags:        dedupe(req.Tags),
	}
	doc, err := model.NewDocument(model.CollectionFacts, "", f.payload())
	if err != nil {
		return Fact{}, err
	}

	created, err := s.store.Insert(ctx, doc)
	if err != nil {
		return Fact{}, mapStoreError(err)
	}
	s.log.Debug("fact created", slog.String("id", created.ID))
	return FromDocument(created)
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Fact, error) {
	delta := map[string]any{}
	if req.Name != nil {
		name, err := validateName(*req.Name)
		if err != nil {
			return Fact{}, err
		}
		delta["name"] = name
	}
	if req.Description != nil {
		if strings.TrimSpace(*req.Description) == "" {
			return Fact{}, fmt.Errorf("%w: description must be set", ErrInvalidInput)
		}
		delta["description"] = *req.Description
	}
	if req.Deadline != nil {
		delta["deadline"] = req.Deadline.UTC()
	}
	if req.ClearDeadline {
		delta["deadline"] = nil
	}
	if req.Active != nil {
		delta["active"] = *req.Active
	}
	if len(delta) == 0 {
		return s.Get(ctx, id)
	}

	doc, err := s.store.Update(ctx, model.CollectionFacts, id, delta)
	if err != nil {
		return Fact{}, mapStoreError(err)
	}
	return FromDocument(doc)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := s.store.Remove(ctx, model.CollectionFacts, id); err != nil {
		return mapStoreError(err)
	}
	s.log.Debug("fact deleted", slog.String("id", id))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Fact, error) {
	doc, err := s.store.Get(ctx, model.CollectionFacts, id)
	if err != nil {
		return Fact{}, mapStoreError(err)
	}
	if doc.Deleted {
		return Fact{}, ErrNotFound
	}
	return FromDocument(doc)
}

func (s *Service) GetByName(ctx context.Context, name string) (Fact, error) {
	docs, err := s.store.Find(ctx, model.CollectionFacts, model.Filter{
		Where: map[string]any{"name": strings.TrimSpace(name)},
		Limit: 1,
	})
	if err != nil {
		return Fact{}, fmt.Errorf("find fact: %w", err)
	}
	if len(docs) == 0 {
		return Fact{}, ErrNotFound
	}
	return FromDocument(docs[0])
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Fact, error) {
	f := model.Filter{Contains: map[string]string{}, Where: map[string]any{}}
	if filter.TagID != "" {
		f.Contains["tags"] = filter.TagID
	}
	if filter.ScheduleID != "" {
		f.Contains["schedules"] = filter.ScheduleID
	}
	if filter.ActiveOnly {
		f.Where["active"] = true
	}

	docs, err := s.store.Find(ctx, model.CollectionFacts, f)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}

	facts := make([]Fact, 0, len(docs))
	for _, doc := range docs {
		item, err := FromDocument(doc)
		if err != nil {
			s.log.Warn("skip broken fact", slog.String("id", doc.ID), slog.String("error", err.Error()))
			continue
		}
		facts = append(facts, item)
	}
	return facts, nil
}

func (s *Service) AddTag(ctx context.Context, id, tagID string) (Fact, error) {
	if err := s.requireLive(ctx, model.CollectionTags, tagID, ErrUnknownTag); err != nil {
		return Fact{}, err
	}
	return s.editList(ctx, id, "tags", func(f Fact) []string { return f.Tags }, func(ids []string) []string {
		return dedupe(append(ids, tagID))
	})
}

func (s *Service) RemoveTag(ctx context.Context, id, tagID string) (Fact, error) {
	return s.editList(ctx, id, "tags", func(f Fact) []string { return f.Tags }, func(ids []string) []string {
		return without(ids, tagID)
	})
}

func (s *Service) AddSchedule(ctx context.Context, id, scheduleID string) (Fact, error) {
	if err := s.requireLive(ctx, model.CollectionSchedules, scheduleID, ErrUnknownSchedule); err != nil {
		return Fact{}, err
	}
	return s.editList(ctx, id, "schedules", func(f Fact) []string { return f.Schedules }, func(ids []string) []string {
		return dedupe(append(ids, scheduleID))
	})
}

func (s *Service) RemoveSchedule(ctx context.Context, id, scheduleID string) (Fact, error) {
	return s.editList(ctx, id, "schedules", func(f Fact) []string { return f.Schedules }, func(ids []string) []string {
		return without(ids, scheduleID)
	})
}

// editList меняет поле-массив факта; если список не изменился, запись не выполняется
func (s *Service) editList(ctx context.Context, id, field string, get func(Fact) []string, edit func([]string) []string) (Fact, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return Fact{}, err
	}
	current := get(f)
	next := edit(slices.Clone(current))
	if slices.Equal(current, next) {
		return f, nil
	}

	doc, err := s.store.Update(ctx, model.CollectionFacts, id, map[string]any{field: next})
	if err != nil {
		return Fact{}, mapStoreError(err)
	}
	return FromDocument(doc)
}

func (s *Service) requireLive(ctx context.Context, collection, id string, missing error) error {
	doc, err := s.store.Get(ctx, collection, id)
	if errors.Is(err, model.ErrNotFound) || (err == nil && doc.Deleted) {
		return fmt.Errorf("%w: %s", missing, id)
	}
	return err
}

// DetachTag убирает тег из всех фактов
func (s *Service) DetachTag(ctx context.Context, tagID string) error {
	return s.detach(ctx, "tags", tagID)
}

// DetachSchedule убирает расписание из всех фактов
func (s *Service) DetachSchedule(ctx context.Context, scheduleID string) error {
	return s.detach(ctx, "schedules", scheduleID)
}

func (s *Service) detach(ctx context.Context, field, id string) error {
	docs, err := s.store.Find(ctx, model.CollectionFacts, model.Filter{Contains: map[string]string{field: id}})
	if err != nil {
		return fmt.Errorf("find facts with %s %s: %w", field, id, err)
	}

	var errs []error
	for _, doc := range docs {
		f, err := FromDocument(doc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		list := f.Tags
		if field == "schedules" {
			list = f.Schedules
		}
		if _, err := s.store.Update(ctx, model.CollectionFacts, doc.ID, map[string]any{field: without(list, id)}); err != nil {
			errs = append(errs, fmt.Errorf("detach from fact %s: %w", doc.ID, err))
		}
	}
	return errors.Join(errs...)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
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
