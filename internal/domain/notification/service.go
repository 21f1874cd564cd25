package notification

import (
	"context"
	"errors"
	"fmt"

	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

type Servicer interface {
	Create(ctx context.Context, factID, scheduleID string) (Notification, error)
	Delete(ctx context.Context, id string) error
	DeleteByFact(ctx context.Context, factID string) error
	DeleteBySchedule(ctx context.Context, scheduleID string) error
	Get(ctx context.Context, id string) (Notification, error)
	GetByFactAndSchedule(ctx context.Context, factID, scheduleID string) (Notification, error)
	ListByFact(ctx context.Context, factID string) ([]Notification, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]Notification, error)
	CancelScheduled(ctx context.Context, n Notification) error
}

type Service struct {
	store     model.Store
	scheduler Scheduler
	log       *slog.Logger
}

func NewService(store model.Store, scheduler Scheduler, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		scheduler: scheduler,
		log:       log.With(slog.String("component", "notification")),
	}
}

// Create связывает факт с расписанием и регистрирует напоминание у планировщика
func (s *Service) Create(ctx context.Context, factID, scheduleID string) (Notification, error) {
	if err := s.requireLive(ctx, model.CollectionFacts, factID, ErrUnknownFact); err != nil {
		return Notification{}, err
	}
	if err := s.requireLive(ctx, model.CollectionSchedules, scheduleID, ErrUnknownSchedule); err != nil {
		return Notification{}, err
	}

	if _, err := s.GetByFactAndSchedule(ctx, factID, scheduleID); err == nil {
		return Notification{}, ErrAlreadyExist
	} else if !errors.Is(err, ErrNotFound) {
		return Notification{}, err
	}

	doc, err := model.NewDocument(model.CollectionNotifications, "", payload{Fact: factID, Schedule: scheduleID})
	if err != nil {
		return Notification{}, err
	}
	created, err := s.store.Insert(ctx, doc)
	if err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	n, err := FromDocument(created)
	if err != nil {
		return Notification{}, err
	}

	idNotification, err := s.scheduler.Schedule(ctx, n)
	if err != nil {
		s.log.Warn("schedule notification", slog.String("id", n.ID), slog.String("error", err.Error()))
		return n, nil
	}

	updated, err := s.store.Update(ctx, model.CollectionNotifications, n.ID, map[string]any{"idNotification": idNotification})
	if err != nil {
		return n, fmt.Errorf("save notification id: %w", err)
	}
	return FromDocument(updated)
}

// Delete отменяет напоминание у планировщика и удаляет запись
func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.CancelScheduled(ctx, n); err != nil {
		return err
	}
	if _, err := s.store.Remove(ctx, model.CollectionNotifications, id); err != nil {
		return fmt.Errorf("remove notification: %w", err)
	}
	return nil
}

// CancelScheduled отменяет напоминание, если оно было зарегистрировано
func (s *Service) CancelScheduled(ctx context.Context, n Notification) error {
	if n.IDNotification == "" {
		return nil
	}
	if err := s.scheduler.Cancel(ctx, n.IDNotification); err != nil {
		return fmt.Errorf("cancel notification schedule %s: %w", n.IDNotification, err)
	}
	return nil
}

func (s *Service) DeleteByFact(ctx context.Context, factID string) error {
	list, err := s.ListByFact(ctx, factID)
	if err != nil {
		return err
	}
	return s.deleteAll(ctx, list)
}

func (s *Service) DeleteBySchedule(ctx context.Context, scheduleID string) error {
	list, err := s.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	return s.deleteAll(ctx, list)
}

func (s *Service) deleteAll(ctx context.Context, list []Notification) error {
	var errs []error
	for _, n := range list {
		if err := s.Delete(ctx, n.ID); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) Get(ctx context.Context, id string) (Notification, error) {
	doc, err := s.store.Get(ctx, model.CollectionNotifications, id)
	if errors.Is(err, model.ErrNotFound) {
		return Notification{}, ErrNotFound
	}
	if err != nil {
		return Notification{}, err
	}
	if doc.Deleted {
		return Notification{}, ErrNotFound
	}
	return FromDocument(doc)
}

func (s *Service) GetByFactAndSchedule(ctx context.Context, factID, scheduleID string) (Notification, error) {
	list, err := s.find(ctx, map[string]any{"fact": factID, "schedule": scheduleID})
	if err != nil {
		return Notification{}, err
	}
	if len(list) == 0 {
		return Notification{}, ErrNotFound
	}
	return list[0], nil
}

func (s *Service) ListByFact(ctx context.Context, factID string) ([]Notification, error) {
	return s.find(ctx, map[string]any{"fact": factID})
}

func (s *Service) ListBySchedule(ctx context.Context, scheduleID string) ([]Notification, error) {
	return s.find(ctx, map[string]any{"schedule": scheduleID})
}

func (s *Service) find(ctx context.Context, where map[string]any) ([]Notification, error) {
	docs, err := s.store.Find(ctx, model.CollectionNotifications, model.Filter{Where: where})
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	out := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		n, err := FromDocument(doc)
		if err != nil {
			s.log.Warn("skip broken notification", slog.String("id", doc.ID), slog.String("error", err.Error()))
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Service) requireLive(ctx context.Context, collection, id string, missing error) error {
	doc, err := s.store.Get(ctx, collection, id)
	if errors.Is(err, model.ErrNotFound) || (err == nil && doc.Deleted) {
		return fmt.Errorf("%w: %s", missing, id)
	}
	return err
}
