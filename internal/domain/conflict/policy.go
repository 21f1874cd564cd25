// Package conflict реализует политику слияния last-writer-wins с приоритетом удаления.
package conflict

import (
	"memorizefacts/internal/model"
)

// Outcome результат сравнения локальной и удаленной версий
type Outcome int

const (
	// KeepLocal локальная версия новее, удаленную игнорируем
	KeepLocal Outcome = iota
	// TakeRemote удаленная версия заменяет локальную
	TakeRemote
	// Same версии совпадают, записывать нечего
	Same
)

func (o Outcome) String() string {
	switch o {
	case KeepLocal:
		return "keep_local"
	case TakeRemote:
		return "take_remote"
	case Same:
		return "same"
	}
	return "unknown"
}

// Resolve решает, какая версия документа побеждает.
// local == nil означает, что документа локально нет.
func Resolve(local *model.Document, remote model.Document) Outcome {
	if local == nil {
		return TakeRemote
	}

	lt := model.Truncate(local.UpdatedAt)
	rt := model.Truncate(remote.UpdatedAt)

	switch {
	case rt.After(lt):
		return TakeRemote
	case lt.After(rt):
		return KeepLocal
	}

	// Равные метки времени: удаление липкое
	if local.Deleted && !remote.Deleted {
		return KeepLocal
	}
	if local.Deleted && remote.Deleted {
		return Same
	}
	if !remote.Deleted && equalData(local, &remote) {
		return Same
	}

	// Удаленная сторона уже разрешила конкурирующих писателей
	return TakeRemote
}

// Accepts сообщает, принимает ли хранилище с версией stored входящую запись incoming.
// Используется сервером при upsert: устаревшая запись отклоняется.
func Accepts(stored *model.Document, incoming model.Document) bool {
	if stored == nil {
		return true
	}

	st := model.Truncate(stored.UpdatedAt)
	it := model.Truncate(incoming.UpdatedAt)

	switch {
	case it.After(st):
		return true
	case st.After(it):
		return false
	}

	// При равенстве времени входящая версия не может воскресить надгробие
	return !stored.Deleted || incoming.Deleted
}

func equalData(a, b *model.Document) bool {
	return string(a.Data) == string(b.Data) && a.Deleted == b.Deleted
}
