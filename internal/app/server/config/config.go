package config

import (
	"errors"
	"fmt"
	"time"

	"memorizefacts/internal/config"

	"github.com/spf13/viper"
)

const (
	defaultRunAddress = ":8080"
	defaultMigrations = "migrations/postgres"
	defaultLogLevel   = "info"
	defaultSessionTTL = 24 * time.Hour
)

type Config struct {
	Env    string
	DB     db
	Server server
	Logger logger
}

type db struct {
	DatabaseURI string
	Migrations  string
}

type server struct {
	RunAddress string
	SessionTTL time.Duration
}

type logger struct {
	LogLevel string
}

// Load читает .env и переменные окружения
func Load() (*Config, error) {
	if _, err := config.LoadEnvFile(".env", "../../.env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", config.EnvLocal)
	v.SetDefault("run_address", defaultRunAddress)
	v.SetDefault("migrations_path", defaultMigrations)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("session_ttl", defaultSessionTTL)

	cfg := &Config{
		Env: v.GetString("app_env"),
		DB: db{
			DatabaseURI: v.GetString("database_uri"),
			Migrations:  v.GetString("migrations_path"),
		},
		Server: server{
			RunAddress: v.GetString("run_address"),
			SessionTTL: v.GetDuration("session_ttl"),
		},
		Logger: logger{LogLevel: v.GetString("log_level")},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	return cfg, nil
}

// MustLoad как Load, но падает при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	var errs []error
	if !config.ValidEnv(c.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV: неизвестное окружение %q", c.Env))
	}
	if c.DB.DatabaseURI == "" {
		errs = append(errs, errors.New("DATABASE_URI не задан"))
	}
	if c.Server.RunAddress == "" {
		errs = append(errs, errors.New("RUN_ADDRESS не задан"))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL должен быть положительным"))
	}
	return errors.Join(errs...)
}
