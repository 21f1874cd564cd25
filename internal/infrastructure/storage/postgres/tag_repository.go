package postgres

import (
	"context"
	"errors"
	"fmt"

	"memorizefacts/internal/domain/tagfeed"
	"memorizefacts/internal/model"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"
)

const (
	tagColumns = `user_id, frontend_id, name, updated_at, deleted`

	feedQuery = `SELECT ` + tagColumns + ` FROM tags
        WHERE user_id = $1
          AND (updated_at > $2 OR (updated_at = $2 AND frontend_id COLLATE "C" > $3))
        ORDER BY updated_at, frontend_id COLLATE "C"
        LIMIT $4`
)

type TagRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewTagRepository(db *Storage, log *slog.Logger) *TagRepository {
	return &TagRepository{
		db:  db,
		log: log,
	}
}

func (r *TagRepository) Feed(ctx context.Context, userID int64, after model.Cursor, limit int) ([]tagfeed.Tag, error) {
	rows, err := r.db.Pool().Query(ctx, feedQuery, userID, after.LastUpdatedAt, after.LastID, limit)
	if err != nil {
		return nil, fmt.Errorf("select feed: %w", err)
	}
	tags, err := pgx.CollectRows(rows, scanTag)
	if err != nil {
		return nil, fmt.Errorf("scan feed: %w", err)
	}
	return tags, nil
}

func (r *TagRepository) WithinTx(ctx context.Context, fn func(tx tagfeed.Tx) error) error {
	return pgx.BeginFunc(ctx, r.db.Pool(), func(tx pgx.Tx) error {
		return fn(&tagTx{tx: tx})
	})
}

type tagTx struct {
	tx pgx.Tx
}

func (t *tagTx) Get(ctx context.Context, userID int64, frontendID string) (*tagfeed.Tag, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = $1 AND frontend_id = $2 FOR UPDATE`,
		userID, frontendID)
	if err != nil {
		return nil, err
	}
	tag, err := pgx.CollectExactlyOneRow(rows, scanTag)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (t *tagTx) NameTaken(ctx context.Context, userID int64, name, exceptFrontendID string) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (
            SELECT 1 FROM tags
            WHERE user_id = $1 AND name = $2 AND NOT deleted AND frontend_id <> $3
        )`,
		userID, name, exceptFrontendID).Scan(&taken)
	return taken, err
}

func (t *tagTx) Upsert(ctx context.Context, tag tagfeed.Tag) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO tags (`+tagColumns+`) VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (user_id, frontend_id) DO UPDATE
         SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at, deleted = EXCLUDED.deleted`,
		tag.UserID, tag.FrontendID, tag.Name, tag.UpdatedAt, tag.Deleted)
	return err
}

func scanTag(row pgx.CollectableRow) (tagfeed.Tag, error) {
	var t tagfeed.Tag
	if err := row.Scan(&t.UserID, &t.FrontendID, &t.Name, &t.UpdatedAt, &t.Deleted); err != nil {
		return tagfeed.Tag{}, err
	}
	t.UpdatedAt = model.Truncate(t.UpdatedAt)
	return t, nil
}
