package tagfeed

import (
	"context"
	"fmt"

	"memorizefacts/internal/domain/conflict"
	"memorizefacts/internal/domain/tag"
	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

const MaxFeedLimit = 1000

type Servicer interface {
	Feed(ctx context.Context, userID int64, lastFrontendID, minUpdatedAt string, limit int) ([]Tag, error)
	Set(ctx context.Context, userID int64, inputs []Input) ([]Rejection, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "tagfeed")),
	}
}

// Feed отдает страницу ленты после курсора (minUpdatedAt, lastFrontendID).
// Документ курсора в страницу не входит.
func (s *Service) Feed(ctx context.Context, userID int64, lastFrontendID, minUpdatedAt string, limit int) ([]Tag, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, limit)
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	at, err := model.ParseTime(minUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: minUpdatedAt: %v", ErrInvalidInput, err)
	}

	tags, err := s.repo.Feed(ctx, userID, model.Cursor{LastID: lastFrontendID, LastUpdatedAt: at}, limit)
	if err != nil {
		return nil, fmt.Errorf("feed tags: %w", err)
	}
	return tags, nil
}

// Set применяет записи клиента одной транзакцией. Отклоненные записи не мешают остальным.
func (s *Service) Set(ctx context.Context, userID int64, inputs []Input) ([]Rejection, error) {
	rejected := make([]Rejection, 0)
	if len(inputs) == 0 {
		return rejected, nil
	}

	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		rejected = rejected[:0]
		for _, in := range inputs {
			incoming, err := parseInput(userID, in)
			if err != nil {
				s.log.Debug("reject invalid tag", slog.String("frontend_id", in.FrontendID), slog.String("error", err.Error()))
				rejected = append(rejected, Rejection{FrontendID: in.FrontendID, Reason: ReasonInvalid})
				continue
			}

			reason, err := s.apply(ctx, tx, incoming)
			if err != nil {
				return err
			}
			if reason != "" {
				rejected = append(rejected, Rejection{FrontendID: in.FrontendID, Reason: reason})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set tags: %w", err)
	}

	s.log.Debug("tags applied",
		slog.Int64("user_id", userID),
		slog.Int("received", len(inputs)),
		slog.Int("rejected", len(rejected)),
	)
	return rejected, nil
}

// apply возвращает причину отказа или пустую строку, если запись принята
func (s *Service) apply(ctx context.Context, tx Tx, incoming Tag) (string, error) {
	stored, err := tx.Get(ctx, incoming.UserID, incoming.FrontendID)
	if err != nil {
		return "", fmt.Errorf("get tag %s: %w", incoming.FrontendID, err)
	}

	incomingDoc, err := incoming.document()
	if err != nil {
		return "", err
	}
	var storedDoc *model.Document
	if stored != nil {
		doc, err := stored.document()
		if err != nil {
			return "", err
		}
		storedDoc = &doc
	}
	if !conflict.Accepts(storedDoc, incomingDoc) {
		return ReasonStaleWrite, nil
	}

	if !incoming.Deleted {
		taken, err := tx.NameTaken(ctx, incoming.UserID, incoming.Name, incoming.FrontendID)
		if err != nil {
			return "", fmt.Errorf("check tag name: %w", err)
		}
		if taken {
			return ReasonDuplicateName, nil
		}
	}

	if err := tx.Upsert(ctx, incoming); err != nil {
		return "", fmt.Errorf("upsert tag %s: %w", incoming.FrontendID, err)
	}
	return "", nil
}

func parseInput(userID int64, in Input) (Tag, error) {
	if in.FrontendID == "" {
		return Tag{}, fmt.Errorf("%w: frontendId must be set", ErrInvalidInput)
	}
	at, err := model.ParseTime(in.UpdatedAt)
	if err != nil {
		return Tag{}, fmt.Errorf("%w: updatedAt: %v", ErrInvalidInput, err)
	}

	name := in.Name
	if !in.Deleted {
		if name, err = tag.ValidateName(in.Name); err != nil {
			return Tag{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	return Tag{
		UserID:     userID,
		FrontendID: in.FrontendID,
		Name:       name,
		UpdatedAt:  at,
		Deleted:    in.Deleted,
	}, nil
}
