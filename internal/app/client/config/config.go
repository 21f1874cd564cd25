package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"memorizefacts/internal/config"
	"memorizefacts/internal/domain/replication"

	"github.com/spf13/viper"
)

const (
	defaultEnv       = config.EnvLocal
	defaultLogLevel  = "info"
	defaultConfigDir = ".memorize"
	defaultSyncURL   = "http://localhost:8080/api/graphql"
	dataFileName     = "memorize.db"
)

type Config struct {
	Env       string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFile   string `mapstructure:"log_file"`
	ConfigDir string `mapstructure:"config_dir"`
	DataPath  string `mapstructure:"data_path"`
	SyncURL   string `mapstructure:"sync_url"`
	Sync      replication.Config
}

// Load собирает конфигурацию из .env, переменных окружения и необязательного yaml-файла.
// Переменные окружения важнее файла.
func Load(cfgFile string) (*Config, error) {
	if _, err := config.LoadEnvFile(".env", "../.env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	def := replication.DefaultConfig()
	v.SetDefault("app_env", defaultEnv)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("config_dir", defaultConfigDir)
	v.SetDefault("sync_url", defaultSyncURL)
	v.SetDefault("sync_pull_batch_size", def.PullBatchSize)
	v.SetDefault("sync_push_batch_size", def.PushBatchSize)
	v.SetDefault("sync_retry_interval", def.RetryInterval)
	v.SetDefault("sync_live", def.Live)
	v.SetDefault("sync_max_push_attempts", def.MaxPushAttempts)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	configDir := v.GetString("config_dir")
	if configDir == defaultConfigDir {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		configDir = filepath.Join(home, configDir)
	}

	dataPath := v.GetString("data_path")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, dataFileName)
	}

	cfg := &Config{
		Env:       v.GetString("app_env"),
		LogLevel:  v.GetString("log_level"),
		LogFile:   v.GetString("log_file"),
		ConfigDir: configDir,
		DataPath:  dataPath,
		SyncURL:   v.GetString("sync_url"),
		Sync: replication.Config{
			PullBatchSize:      v.GetInt("sync_pull_batch_size"),
			PushBatchSize:      v.GetInt("sync_push_batch_size"),
			RetryInterval:      v.GetDuration("sync_retry_interval"),
			Live:               v.GetBool("sync_live"),
			MaxPushAttempts:    v.GetInt("sync_max_push_attempts"),
			PushBackoffInitial: def.PushBackoffInitial,
			PushBackoffMax:     def.PushBackoffMax,
			MaxApplyAttempts:   def.MaxApplyAttempts,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}
	return cfg, nil
}

// MustLoad как Load, но падает при ошибке
func MustLoad(cfgFile string) *Config {
	cfg, err := Load(cfgFile)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	var errs []error
	if !config.ValidEnv(c.Env) {
		errs = append(errs, fmt.Errorf("app_env: неизвестное окружение %q", c.Env))
	}
	if c.ConfigDir == "" {
		errs = append(errs, errors.New("config_dir не может быть пустым"))
	}
	if c.Sync.PullBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("sync_pull_batch_size должен быть положительным, получено %d", c.Sync.PullBatchSize))
	}
	if c.Sync.PushBatchSize < 0 {
		errs = append(errs, fmt.Errorf("sync_push_batch_size не может быть отрицательным, получено %d", c.Sync.PushBatchSize))
	}
	if c.Sync.RetryInterval <= 0 {
		errs = append(errs, errors.New("sync_retry_interval должен быть положительным"))
	}
	return errors.Join(errs...)
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == config.EnvProd
}
