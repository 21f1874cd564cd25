package replication

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig нет учетных данных, неверный адрес сервера или вход отклонен
	ErrConfig = errors.New("replication configuration error")
	// ErrCancelled цикл остановлен, результат запроса отброшен
	ErrCancelled = errors.New("replication cancelled")
	// ErrUnauthorized сервер не принял учетные данные или сессию
	ErrUnauthorized = errors.New("unauthorized")
	ErrRunning      = errors.New("replication is already running")
	ErrNotRunning   = errors.New("replication is not running")
	// ErrNoProgress полная страница pull не сдвинула курсор
	ErrNoProgress = errors.New("remote returned no progress")
	// ErrUnsupportedCollection удаленная сторона не умеет синхронизировать коллекцию
	ErrUnsupportedCollection = errors.New("collection is not supported by remote")
)

type Kind string

const (
	KindPull    Kind = "pull"
	KindPush    Kind = "push"
	KindGeneral Kind = "general"
)

// DocumentError отказ по отдельному документу пакета
type DocumentError struct {
	ID        string `json:"id"`
	Reason    string `json:"reason"`
	Attempts  int    `json:"attempts"`
	Permanent bool   `json:"permanent"`
}

func (e DocumentError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("document %s rejected permanently after %d attempts: %s", e.ID, e.Attempts, e.Reason)
	}
	return fmt.Sprintf("document %s rejected: %s", e.ID, e.Reason)
}

// Error событие канала ошибок репликации
type Error struct {
	Kind       Kind
	Collection string
	Err        error
	Inner      []DocumentError
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error in %s", e.Kind, e.Collection)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Inner) > 0 {
		fmt.Fprintf(&b, " (%d documents rejected)", len(e.Inner))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, collection string, err error, inner ...DocumentError) *Error {
	return &Error{Kind: kind, Collection: collection, Err: err, Inner: inner}
}
