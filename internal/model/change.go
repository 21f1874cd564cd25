package model

// ChangeType тип изменения документа
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeRemove ChangeType = "remove"
)

// Origin источник записи: пользователь или репликация
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// ChangeEvent событие потока изменений хранилища
type ChangeEvent struct {
	Collection string     `json:"collection"`
	Type       ChangeType `json:"type"`
	Doc        Document   `json:"doc"`
	Origin     Origin     `json:"origin"`
}

// RemoteChangeType определяет тип события для примененной удаленной версии
func RemoteChangeType(local *Document, remote Document) ChangeType {
	switch {
	case remote.Deleted && (local == nil || !local.Deleted):
		return ChangeRemove
	case local == nil:
		return ChangeInsert
	}
	return ChangeUpdate
}
