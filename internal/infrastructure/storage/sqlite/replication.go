package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"memorizefacts/internal/model"
)

// Dirty возвращает документы, готовые к отправке на момент now
func (s *Storage) Dirty(ctx context.Context, collection string, now time.Time, limit int) ([]model.Pending, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + documentColumns + `, push_attempts FROM documents
		WHERE collection = ? AND dirty = 1 AND push_failed = 0
		  AND (next_push_at = '' OR next_push_at <= ?)
		ORDER BY updated_at, id`
	args := []any{collection, model.FormatTime(now)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dirty documents: %w", err)
	}
	defer rows.Close()

	pending := make([]model.Pending, 0)
	for rows.Next() {
		var (
			p         model.Pending
			data      string
			updatedAt string
		)
		if err := rows.Scan(&p.Collection, &p.ID, &data, &updatedAt, &p.Deleted, &p.PushAttempts); err != nil {
			return nil, fmt.Errorf("scan dirty document: %w", err)
		}
		if p.UpdatedAt, err = model.ParseTime(updatedAt); err != nil {
			return nil, err
		}
		p.Data = []byte(data)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *Storage) IsDirty(ctx context.Context, collection, id string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	var dirty bool
	err := s.db.QueryRowContext(ctx,
		`SELECT dirty FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return false, model.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check dirty: %w", err)
	}
	return dirty, nil
}

func (s *Storage) MarkClean(ctx context.Context, collection, id string, updatedAt time.Time) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET dirty = 0, push_attempts = 0, next_push_at = '', push_failed = 0
		WHERE collection = ? AND id = ? AND updated_at = ?
	`, collection, id, model.FormatTime(updatedAt))
	if err != nil {
		return false, fmt.Errorf("mark clean: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark clean: %w", err)
	}
	return n > 0, nil
}

func (s *Storage) MarkRejected(ctx context.Context, collection, id string, updatedAt, nextAttempt time.Time, permanent bool) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET push_attempts = push_attempts + 1, next_push_at = ?, push_failed = ?
		WHERE collection = ? AND id = ? AND updated_at = ? AND dirty = 1
	`, model.FormatTime(nextAttempt), permanent, collection, id, model.FormatTime(updatedAt))
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	return n > 0, nil
}

// ApplyRemote записывает удаленную версию с ее updatedAt, если accept ее принимает.
// Результат чистый: отправлять его обратно не нужно.
func (s *Storage) ApplyRemote(ctx context.Context, doc model.Document, accept model.Resolver) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	data, err := model.NormalizeData(doc.Data)
	if err != nil {
		return false, err
	}
	doc.Data = data
	doc.UpdatedAt = model.Truncate(doc.UpdatedAt)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var local *model.Document
	existing, err := getDocument(ctx, tx, doc.Collection, doc.ID)
	switch {
	case err == nil:
		local = &existing
	case !errors.Is(err, model.ErrNotFound):
		return false, err
	}

	if !accept(local, doc) {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at, deleted, dirty)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted,
			dirty = 0,
			push_attempts = 0,
			next_push_at = '',
			push_failed = 0
	`, doc.Collection, doc.ID, string(doc.Data), model.FormatTime(doc.UpdatedAt), doc.Deleted)
	if err != nil {
		return false, fmt.Errorf("apply remote document: %w", mapError(err))
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", mapError(err))
	}

	s.feed.Publish(model.ChangeEvent{
		Collection: doc.Collection,
		Type:       model.RemoteChangeType(local, doc),
		Doc:        doc,
		Origin:     model.OriginRemote,
	})
	return true, nil
}

func (s *Storage) LoadCursor(ctx context.Context, collection string) (model.Cursor, error) {
	if err := s.checkOpen(); err != nil {
		return model.Cursor{}, err
	}
	var (
		c         model.Cursor
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT last_id, last_updated_at FROM replication_cursors WHERE collection = ?`, collection).
		Scan(&c.LastID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.InitialCursor(), nil
	}
	if err != nil {
		return model.Cursor{}, fmt.Errorf("load cursor: %w", err)
	}
	if c.LastUpdatedAt, err = model.ParseTime(updatedAt); err != nil {
		return model.Cursor{}, err
	}
	return c, nil
}

func (s *Storage) SaveCursor(ctx context.Context, collection string, cursor model.Cursor) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replication_cursors (collection, last_id, last_updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (collection) DO UPDATE SET
			last_id = excluded.last_id,
			last_updated_at = excluded.last_updated_at
	`, collection, cursor.LastID, model.FormatTime(cursor.LastUpdatedAt))
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// RecordApplyFailure счетчик переживает перезапуск процесса: каждый "sync now" новый процесс
func (s *Storage) RecordApplyFailure(ctx context.Context, collection, id string, updatedAt time.Time) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var attempts int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO apply_failures (collection, id, updated_at, attempts)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (collection, id) DO UPDATE SET
			attempts = CASE WHEN apply_failures.updated_at = excluded.updated_at
				THEN apply_failures.attempts + 1 ELSE 1 END,
			updated_at = excluded.updated_at
		RETURNING attempts
	`, collection, id, model.FormatTime(updatedAt)).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("record apply failure: %w", err)
	}
	return attempts, nil
}

func (s *Storage) ClearApplyFailure(ctx context.Context, collection, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM apply_failures WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("clear apply failure: %w", err)
	}
	return nil
}
