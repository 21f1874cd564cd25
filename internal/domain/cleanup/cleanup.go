// Package cleanup убирает зависимые данные после удаления документа,
// локального или пришедшего надгробием с сервера.
package cleanup

import (
	"context"

	"memorizefacts/internal/domain/notification"
	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

type FactDetacher interface {
	DetachTag(ctx context.Context, tagID string) error
	DetachSchedule(ctx context.Context, scheduleID string) error
}

type NotificationRemover interface {
	DeleteByFact(ctx context.Context, factID string) error
	DeleteBySchedule(ctx context.Context, scheduleID string) error
	CancelScheduled(ctx context.Context, n notification.Notification) error
}

type Subscriber interface {
	Subscribe(collection string) (<-chan model.ChangeEvent, func())
}

type Cleaner struct {
	facts         FactDetacher
	notifications NotificationRemover
	log           *slog.Logger
}

func New(facts FactDetacher, notifications NotificationRemover, log *slog.Logger) *Cleaner {
	return &Cleaner{
		facts:         facts,
		notifications: notifications,
		log:           log.With(slog.String("component", "cleanup")),
	}
}

// Start подписывается на все коллекции и обрабатывает события remove в фоне,
// пока не отменен ctx или не закрыт поток событий. Возвращаемый канал закрывается по выходу.
func (c *Cleaner) Start(ctx context.Context, sub Subscriber) <-chan struct{} {
	events, cancel := sub.Subscribe("")
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer cancel()
		c.run(ctx, events)
	}()
	return done
}

func (c *Cleaner) run(ctx context.Context, events <-chan model.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Type != model.ChangeRemove {
				continue
			}
			if err := c.Handle(ctx, evt); err != nil {
				c.log.Error("cleanup failed",
					slog.String("collection", evt.Collection),
					slog.String("id", evt.Doc.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Handle выполняет очистку для одного удаленного документа
func (c *Cleaner) Handle(ctx context.Context, evt model.ChangeEvent) error {
	id := evt.Doc.ID
	switch evt.Collection {
	case model.CollectionTags:
		return c.facts.DetachTag(ctx, id)
	case model.CollectionFacts:
		return c.notifications.DeleteByFact(ctx, id)
	case model.CollectionSchedules:
		if err := c.notifications.DeleteBySchedule(ctx, id); err != nil {
			return err
		}
		return c.facts.DetachSchedule(ctx, id)
	case model.CollectionNotifications:
		// Локальное удаление уже отменило напоминание
		if evt.Origin != model.OriginRemote {
			return nil
		}
		n, err := notification.FromDocument(evt.Doc)
		if err != nil {
			return err
		}
		return c.notifications.CancelScheduled(ctx, n)
	}
	return nil
}
