package gql

import (
	"encoding/json"
	"fmt"

	"memorizefacts/internal/domain/tag"
	"memorizefacts/internal/model"
)

var (
	tagPull = mustDocument(`
		query FeedTags($lastId: String!, $minUpdatedAt: String!, $limit: Int!) {
			feedForRxDBReplicationTag(lastFrontendId: $lastId, minUpdatedAt: $minUpdatedAt, limit: $limit) {
				id: frontendId
				name
				updatedAt
				deleted
			}
		}`)

	tagPush = mustDocument(`
		mutation CreateTags($tags: [TagCreateInput!]) {
			setRxDBReplicationTags(tags: $tags) {
				id
				rejected {
					frontendId
					reason
				}
			}
		}`)
)

// TagCreateInput тег в формате мутации setRxDBReplicationTags
type TagCreateInput struct {
	FrontendID string `json:"frontendId"`
	Name       string `json:"name"`
	UpdatedAt  string `json:"updatedAt"`
	Deleted    bool   `json:"deleted"`
}

type feedTag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
	Deleted   bool   `json:"deleted"`
}

type RejectedTag struct {
	FrontendID string `json:"frontendId"`
	Reason     string `json:"reason"`
}

// BuildTagPull запрос страницы ленты тегов после курсора.
// Начальный курсор дает пустой id и эпоху.
func BuildTagPull(cursor model.Cursor, limit int) (Request, error) {
	if limit <= 0 {
		return Request{}, fmt.Errorf("%w: pull limit must be positive, got %d", ErrInvalidRequest, limit)
	}
	return tagPull.request(map[string]any{
		"lastId":       cursor.LastID,
		"minUpdatedAt": model.FormatTime(cursor.LastUpdatedAt),
		"limit":        limit,
	}), nil
}

// BuildTagPush мутация upsert для грязных тегов. Флаг удаления и время передаются как есть.
func BuildTagPush(docs []model.Document) (Request, error) {
	tags := make([]TagCreateInput, 0, len(docs))
	for _, doc := range docs {
		t, err := tag.FromDocument(doc)
		if err != nil {
			return Request{}, fmt.Errorf("%w: tag %s: %v", ErrInvalidRequest, doc.ID, err)
		}
		tags = append(tags, TagCreateInput{
			FrontendID: t.ID,
			Name:       t.Name,
			UpdatedAt:  model.FormatTime(t.UpdatedAt),
			Deleted:    t.Deleted,
		})
	}
	return tagPush.request(map[string]any{"tags": tags}), nil
}

// DecodeTagFeed разбирает ответ ленты в документы коллекции tags
func DecodeTagFeed(data json.RawMessage) ([]model.Document, error) {
	var resp struct {
		Feed *[]feedTag `json:"feedForRxDBReplicationTag"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Feed == nil {
		return nil, fmt.Errorf("%w: missing feedForRxDBReplicationTag", ErrMalformedResponse)
	}

	docs := make([]model.Document, 0, len(*resp.Feed))
	for _, ft := range *resp.Feed {
		if ft.ID == "" {
			return nil, fmt.Errorf("%w: tag without id", ErrMalformedResponse)
		}
		updatedAt, err := model.ParseTime(ft.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: tag %s: %v", ErrMalformedResponse, ft.ID, err)
		}
		doc, err := tag.Tag{ID: ft.ID, Name: ft.Name, UpdatedAt: updatedAt, Deleted: ft.Deleted}.Document()
		if err != nil {
			return nil, fmt.Errorf("%w: tag %s: %v", ErrMalformedResponse, ft.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DecodeTagPush разбирает ответ мутации и возвращает отклоненные теги
func DecodeTagPush(data json.RawMessage) ([]RejectedTag, error) {
	var resp struct {
		Result *struct {
			ID       *string       `json:"id"`
			Rejected []RejectedTag `json:"rejected"`
		} `json:"setRxDBReplicationTags"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("%w: missing setRxDBReplicationTags", ErrMalformedResponse)
	}
	return resp.Result.Rejected, nil
}
