package replication

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPullBatchSize      = 5
	DefaultPushBatchSize      = 0 // без ограничения
	DefaultRetryInterval      = 5 * time.Minute
	DefaultMaxPushAttempts    = 5
	DefaultMaxApplyAttempts   = 3
	DefaultPushBackoffInitial = 30 * time.Second
	DefaultPushBackoffMax     = time.Hour
)

// Config параметры цикла репликации одной коллекции
type Config struct {
	PullBatchSize int
	// PushBatchSize 0 - весь снимок грязных документов одним запросом
	PushBatchSize int
	RetryInterval time.Duration
	// Live - реагировать на локальные изменения сразу, а не только по таймеру
	Live bool
	// MaxPushAttempts после стольких отказов сервера документ помечается окончательно отклоненным
	MaxPushAttempts    int
	PushBackoffInitial time.Duration
	PushBackoffMax     time.Duration
	// MaxApplyAttempts после стольких неудачных применений документ пропускается насовсем
	MaxApplyAttempts int
}

func DefaultConfig() Config {
	return Config{
		PullBatchSize:      DefaultPullBatchSize,
		PushBatchSize:      DefaultPushBatchSize,
		RetryInterval:      DefaultRetryInterval,
		Live:               true,
		MaxPushAttempts:    DefaultMaxPushAttempts,
		PushBackoffInitial: DefaultPushBackoffInitial,
		PushBackoffMax:     DefaultPushBackoffMax,
		MaxApplyAttempts:   DefaultMaxApplyAttempts,
	}
}

// withDefaults подставляет значения по умолчанию вместо нулевых
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PullBatchSize <= 0 {
		c.PullBatchSize = d.PullBatchSize
	}
	if c.PushBatchSize < 0 {
		c.PushBatchSize = d.PushBatchSize
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = d.RetryInterval
	}
	if c.MaxPushAttempts <= 0 {
		c.MaxPushAttempts = d.MaxPushAttempts
	}
	if c.PushBackoffInitial <= 0 {
		c.PushBackoffInitial = d.PushBackoffInitial
	}
	if c.PushBackoffMax <= 0 {
		c.PushBackoffMax = d.PushBackoffMax
	}
	if c.PushBackoffMax < c.PushBackoffInitial {
		c.PushBackoffMax = c.PushBackoffInitial
	}
	if c.MaxApplyAttempts <= 0 {
		c.MaxApplyAttempts = d.MaxApplyAttempts
	}
	return c
}

type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SyncConfig сигнал включения синхронизации вместе с учетными данными
type SyncConfig struct {
	Enabled     bool         `json:"enabled"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

// Validate проверяет, что с такой конфигурацией можно запустить репликацию
func (c SyncConfig) Validate() error {
	if !c.Enabled {
		return fmt.Errorf("%w: sync is disabled", ErrConfig)
	}
	if c.Credentials == nil {
		return fmt.Errorf("%w: missing credentials", ErrConfig)
	}
	if strings.TrimSpace(c.Credentials.Login) == "" {
		return fmt.Errorf("%w: missing login", ErrConfig)
	}
	if c.Credentials.Password == "" {
		return fmt.Errorf("%w: missing password", ErrConfig)
	}
	return nil
}

func (c SyncConfig) sameCredentials(o SyncConfig) bool {
	if c.Credentials == nil || o.Credentials == nil {
		return c.Credentials == o.Credentials
	}
	return *c.Credentials == *o.Credentials
}
