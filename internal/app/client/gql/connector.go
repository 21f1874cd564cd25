package gql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"memorizefacts/internal/domain/replication"
	"memorizefacts/internal/model"

	"golang.org/x/exp/slog"
)

// Connector выполняет вход в точку синхронизации и отдает Remote для репликации
type Connector struct {
	url  string
	log  *slog.Logger
	opts []Option
}

func NewConnector(url string, log *slog.Logger, opts ...Option) *Connector {
	return &Connector{url: url, log: log, opts: opts}
}

func (c *Connector) Connect(ctx context.Context, creds replication.Credentials) (replication.Remote, error) {
	client, err := NewClient(c.url, c.log, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", replication.ErrConfig, err)
	}
	if _, err := client.Login(ctx, creds.Login, creds.Password); err != nil {
		return nil, err
	}
	return &Remote{client: client, creds: creds, log: c.log.With(slog.String("component", "gql_remote"))}, nil
}

var _ replication.Connector = (*Connector)(nil)

// Remote точка синхронизации поверх GraphQL. При истекшей сессии выполняет повторный вход один раз.
type Remote struct {
	client *Client
	creds  replication.Credentials
	log    *slog.Logger

	// relogin не дает параллельным циклам входить одновременно
	relogin sync.Mutex
}

func NewRemote(client *Client, creds replication.Credentials, log *slog.Logger) *Remote {
	return &Remote{client: client, creds: creds, log: log}
}

var _ replication.Remote = (*Remote)(nil)

func (r *Remote) Pull(ctx context.Context, collection string, cursor model.Cursor, limit int) ([]model.Document, error) {
	if collection != model.CollectionTags {
		return nil, fmt.Errorf("%w: %s", replication.ErrUnsupportedCollection, collection)
	}
	req, err := BuildTagPull(cursor, limit)
	if err != nil {
		return nil, err
	}
	data, err := r.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return DecodeTagFeed(data)
}

func (r *Remote) Push(ctx context.Context, collection string, docs []model.Document) ([]replication.Rejection, error) {
	if collection != model.CollectionTags {
		return nil, fmt.Errorf("%w: %s", replication.ErrUnsupportedCollection, collection)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	req, err := BuildTagPush(docs)
	if err != nil {
		return nil, err
	}
	data, err := r.do(ctx, req)
	if err != nil {
		return nil, err
	}
	rejected, err := DecodeTagPush(data)
	if err != nil {
		return nil, err
	}

	out := make([]replication.Rejection, 0, len(rejected))
	for _, rj := range rejected {
		out = append(out, replication.Rejection{ID: rj.FrontendID, Reason: rj.Reason})
	}
	return out, nil
}

func (r *Remote) do(ctx context.Context, req Request) (json.RawMessage, error) {
	token := r.client.getToken()
	data, err := r.client.Do(ctx, req)
	if err == nil || !errors.Is(err, ErrUnauthorized) {
		return data, err
	}

	r.relogin.Lock()
	// Другой цикл уже обновил сессию
	if r.client.getToken() == token {
		r.log.Info("session expired, logging in again")
		if _, lerr := r.client.Login(ctx, r.creds.Login, r.creds.Password); lerr != nil {
			r.relogin.Unlock()
			return nil, lerr
		}
	}
	r.relogin.Unlock()

	return r.client.Do(ctx, req)
}
