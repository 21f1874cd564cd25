package tag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, name string) (Tag, error)
	Rename(ctx context.Context, id, name string) (Tag, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Tag, error)
	GetByName(ctx context.Context, name string) (Tag, error)
	List(ctx context.Context) ([]Tag, error)
}

type Service struct {
	store model.Store
	log   *slog.Logger
}

func NewService(store model.Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With(slog.String("component", "tag")),
	}
}

// ValidateName нормализует и проверяет имя тега
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name must be set", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrInvalidName, MaxNameLen)
	}
	return name, nil
}

func (s *Service) Create(ctx context.Context, name string) (Tag, error) {
	name, err := ValidateName(name)
	if err != nil {
		return Tag{}, err
	}

	doc, err := Tag{Name: name}.Document()
	if err != nil {
		return Tag{}, err
	}

	created, err := s.store.Insert(ctx, doc)
	if err != nil {
		return Tag{}, mapStoreError(err)
	}

	s.log.Debug("tag created", slog.String("id", created.ID), slog.String("name", name))
	return FromDocument(created)
}

func (s *Service) Rename(ctx context.Context, id, name string) (Tag, error) {
	name, err := ValidateName(name)
	if err != nil {
		return Tag{}, err
	}

	updated, err := s.store.Update(ctx, model.CollectionTags, id, map[string]any{"name": name})
	if err != nil {
		return Tag{}, mapStoreError(err)
	}
	return FromDocument(updated)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := s.store.Remove(ctx, model.CollectionTags, id); err != nil {
		return mapStoreError(err)
	}
	s.log.Debug("tag deleted", slog.String("id", id))
	return nil
}

// Get возвращает живой тег
func (s *Service) Get(ctx context.Context, id string) (Tag, error) {
	doc, err := s.store.Get(ctx, model.CollectionTags, id)
	if err != nil {
		return Tag{}, mapStoreError(err)
	}
	if doc.Deleted {
		return Tag{}, ErrNotFound
	}
	return FromDocument(doc)
}

func (s *Service) GetByName(ctx context.Context, name string) (Tag, error) {
	docs, err := s.store.Find(ctx, model.CollectionTags, model.Filter{
		Where: map[string]any{"name": strings.TrimSpace(name)},
		Limit: 1,
	})
	if err != nil {
		return Tag{}, fmt.Errorf("find tag: %w", err)
	}
	if len(docs) == 0 {
		return Tag{}, ErrNotFound
	}
	return FromDocument(docs[0])
}

func (s *Service) List(ctx context.Context) ([]Tag, error) {
	docs, err := s.store.Find(ctx, model.CollectionTags, model.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	tags := make([]Tag, 0, len(docs))
	for _, doc := range docs {
		t, err := FromDocument(doc)
		if err != nil {
			s.log.Warn("skip broken tag", slog.String("id", doc.ID), slog.String("error", err.Error()))
			continue
		}
		tags = append(tags, t)
	}
	return tags, nil
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
