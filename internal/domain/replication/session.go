package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"memorizefacts/internal/model"
)

// sessionRemote Remote, который входит на сервер при первом запросе, если вход при
// старте не удался из-за сети. Ошибка входа уходит в канал как general и
// повторяется по таймеру цикла.
type sessionRemote struct {
	connector Connector
	creds     Credentials

	mu     sync.Mutex
	remote Remote
}

func newSessionRemote(connector Connector, creds Credentials, remote Remote) *sessionRemote {
	return &sessionRemote{connector: connector, creds: creds, remote: remote}
}

func (r *sessionRemote) get(ctx context.Context, collection string) (Remote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.remote != nil {
		return r.remote, nil
	}
	remote, err := r.connector.Connect(ctx, r.creds)
	if err != nil {
		return nil, newError(KindGeneral, collection, fmt.Errorf("connect: %w", err))
	}
	r.remote = remote
	return remote, nil
}

func (r *sessionRemote) Pull(ctx context.Context, collection string, cursor model.Cursor, limit int) ([]model.Document, error) {
	remote, err := r.get(ctx, collection)
	if err != nil {
		return nil, err
	}
	return remote.Pull(ctx, collection, cursor, limit)
}

func (r *sessionRemote) Push(ctx context.Context, collection string, docs []model.Document) ([]Rejection, error) {
	remote, err := r.get(ctx, collection)
	if err != nil {
		return nil, err
	}
	return remote.Push(ctx, collection, docs)
}

// isConfigError отказ, который повтором не исправить
func isConfigError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrConfig)
}
