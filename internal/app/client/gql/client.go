package gql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "MemorizeFacts-Client/1.0"
)

// Client клиент GraphQL-точки синхронизации
type Client struct {
	client    *http.Client
	log       *slog.Logger
	url       string
	userAgent string

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient подменяет транспорт, например в тестах
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

func NewClient(url string, log *slog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: empty sync url", ErrInvalidRequest)
	}

	c := &Client{
		client: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:       log.With(slog.String("component", "gql_client")),
		url:       url,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken устанавливает токен сессии
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login выполняет вход и запоминает токен сессии
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	data, err := c.Do(ctx, BuildLogin(email, password))
	if err != nil {
		return "", err
	}
	token, err := DecodeLogin(data)
	if err != nil {
		return "", err
	}
	c.SetToken(token)
	return token, nil
}

// Register создает пользователя на сервере
func (c *Client) Register(ctx context.Context, email, password string) error {
	_, err := c.Do(ctx, BuildRegister(email, password))
	return err
}

// Do отправляет операцию и возвращает поле data ответа.
// Ошибки GraphQL без данных превращаются в ошибку, UNAUTHENTICATED и 401 дают ErrUnauthorized.
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if token := c.getToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("graphql request", slog.String("operation", r.OperationName))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("graphql response",
		slog.String("operation", r.OperationName),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	}

	var gr Response
	if err := json.Unmarshal(raw, &gr); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(gr.Errors) > 0 {
		return nil, responseErrors(gr.Errors)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return nil, fmt.Errorf("%w: empty data", ErrMalformedResponse)
	}
	return gr.Data, nil
}

func responseErrors(list []ResponseError) error {
	errs := make([]error, 0, len(list))
	for _, e := range list {
		errs = append(errs, e)
	}
	joined := errors.Join(errs...)
	for _, e := range list {
		if e.Code() == codeUnauthenticated {
			return fmt.Errorf("%w: %w", ErrUnauthorized, joined)
		}
	}
	return fmt.Errorf("%w: %w", ErrServer, joined)
}
