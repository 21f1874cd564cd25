package notification

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Scheduler планировщик напоминаний платформы
type Scheduler interface {
	// Schedule регистрирует напоминание и возвращает его идентификатор у планировщика
	Schedule(ctx context.Context, n Notification) (string, error)
	Cancel(ctx context.Context, idNotification string) error
}

// LogScheduler планировщик без платформы: только пишет в лог
type LogScheduler struct {
	log *slog.Logger
}

func NewLogScheduler(log *slog.Logger) *LogScheduler {
	return &LogScheduler{log: log.With(slog.String("component", "scheduler"))}
}

func (s *LogScheduler) Schedule(ctx context.Context, n Notification) (string, error) {
	id := uuid.NewString()
	s.log.Info("notification scheduled",
		slog.String("id", id),
		slog.String("fact", n.Fact),
		slog.String("schedule", n.Schedule))
	return id, nil
}

func (s *LogScheduler) Cancel(ctx context.Context, idNotification string) error {
	s.log.Info("notification schedule cancelled", slog.String("id", idNotification))
	return nil
}
