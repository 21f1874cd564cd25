package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"memorizefacts/internal/model"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const documentColumns = `collection, id, data, updated_at, deleted`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.Document, error) {
	var (
		doc       model.Document
		data      string
		updatedAt string
	)
	if err := row.Scan(&doc.Collection, &doc.ID, &data, &updatedAt, &doc.Deleted); err != nil {
		return model.Document{}, err
	}
	t, err := model.ParseTime(updatedAt)
	if err != nil {
		return model.Document{}, err
	}
	doc.Data = []byte(data)
	doc.UpdatedAt = t
	return doc, nil
}

func getDocument(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, collection, id string) (model.Document, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, model.ErrNotFound
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Insert добавляет новый документ. Пустой id заменяется на UUID.
func (s *Storage) Insert(ctx context.Context, doc model.Document) (model.Document, error) {
	if err := s.checkOpen(); err != nil {
		return model.Document{}, err
	}
	if doc.Collection == "" {
		return model.Document{}, fmt.Errorf("%w: collection is required", model.ErrInvalidDocument)
	}
	data, err := model.NormalizeData(doc.Data)
	if err != nil {
		return model.Document{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc.Data = data
	doc.Deleted = false
	doc.UpdatedAt = model.NextUpdatedAt(s.now(), time.Time{})

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at, deleted, dirty)
		VALUES (?, ?, ?, ?, 0, 1)
	`, doc.Collection, doc.ID, string(doc.Data), model.FormatTime(doc.UpdatedAt))
	if err != nil {
		return model.Document{}, fmt.Errorf("insert document: %w", mapError(err))
	}

	s.feed.Publish(model.ChangeEvent{Collection: doc.Collection, Type: model.ChangeInsert, Doc: doc, Origin: model.OriginLocal})
	return doc, nil
}

// Update сливает delta с полезной нагрузкой живого документа
func (s *Storage) Update(ctx context.Context, collection, id string, delta map[string]any) (model.Document, error) {
	if err := s.checkOpen(); err != nil {
		return model.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	doc, err := getDocument(ctx, tx, collection, id)
	if err != nil {
		return model.Document{}, err
	}
	if doc.Deleted {
		return model.Document{}, model.ErrNotFound
	}

	doc.Data, err = model.MergeData(doc.Data, delta)
	if err != nil {
		return model.Document{}, err
	}
	doc.UpdatedAt = model.NextUpdatedAt(s.now(), doc.UpdatedAt)

	if err := s.writeLocal(ctx, tx, doc); err != nil {
		return model.Document{}, fmt.Errorf("update document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Document{}, fmt.Errorf("commit: %w", mapError(err))
	}

	s.feed.Publish(model.ChangeEvent{Collection: collection, Type: model.ChangeUpdate, Doc: doc, Origin: model.OriginLocal})
	return doc, nil
}

// Remove превращает документ в надгробие. Повторное удаление возвращает существующее надгробие.
func (s *Storage) Remove(ctx context.Context, collection, id string) (model.Document, error) {
	if err := s.checkOpen(); err != nil {
		return model.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	doc, err := getDocument(ctx, tx, collection, id)
	if err != nil {
		return model.Document{}, err
	}
	if doc.Deleted {
		return doc, nil
	}

	doc.Deleted = true
	doc.UpdatedAt = model.NextUpdatedAt(s.now(), doc.UpdatedAt)

	if err := s.writeLocal(ctx, tx, doc); err != nil {
		return model.Document{}, fmt.Errorf("remove document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Document{}, fmt.Errorf("commit: %w", err)
	}

	s.feed.Publish(model.ChangeEvent{Collection: collection, Type: model.ChangeRemove, Doc: doc, Origin: model.OriginLocal})
	return doc, nil
}

// writeLocal сохраняет локальную правку: документ снова грязный, счетчики отказов сброшены
func (s *Storage) writeLocal(ctx context.Context, tx *sql.Tx, doc model.Document) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET data = ?, updated_at = ?, deleted = ?, dirty = 1,
		    push_attempts = 0, next_push_at = '', push_failed = 0
		WHERE collection = ? AND id = ?
	`, string(doc.Data), model.FormatTime(doc.UpdatedAt), doc.Deleted, doc.Collection, doc.ID)
	return mapError(err)
}

// Get возвращает документ, включая надгробия
func (s *Storage) Get(ctx context.Context, collection, id string) (model.Document, error) {
	if err := s.checkOpen(); err != nil {
		return model.Document{}, err
	}
	return getDocument(ctx, s.db, collection, id)
}

// Find выбирает документы коллекции, новые сначала
func (s *Storage) Find(ctx context.Context, collection string, filter model.Filter) ([]model.Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var (
		where = []string{"collection = ?"}
		args  = []any{collection}
	)
	if !filter.IncludeDeleted {
		where = append(where, "deleted = 0")
	}
	for field, value := range filter.Where {
		where = append(where, fmt.Sprintf("json_extract(data, '$.%s') = ?", field))
		args = append(args, value)
	}
	for field, value := range filter.Contains {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM json_each(documents.data, '$.%s') WHERE json_each.value = ?)", field))
		args = append(args, value)
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY updated_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return s.queryDocuments(ctx, query, args...)
}

// FindSince возвращает документы строго после курсора в порядке (updatedAt, id), включая надгробия
func (s *Storage) FindSince(ctx context.Context, collection string, cursor model.Cursor, limit int) ([]model.Document, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	at := model.FormatTime(cursor.LastUpdatedAt)
	query := `
		SELECT ` + documentColumns + ` FROM documents
		WHERE collection = ? AND (updated_at > ? OR (updated_at = ? AND id > ?))
		ORDER BY updated_at, id`
	args := []any{collection, at, at, cursor.LastID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryDocuments(ctx, query, args...)
}

func (s *Storage) queryDocuments(ctx context.Context, query string, args ...any) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		s.log.Error("iterate documents", slog.String("error", err.Error()))
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}
