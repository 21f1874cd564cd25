package logger

import (
	"io"
	"os"
	"strings"

	"memorizefacts/internal/config"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type options struct {
	level  string
	output io.Writer
	file   string
}

type Option func(*options)

// WithLevel переопределяет уровень окружения: debug, info, warn, error
func WithLevel(level string) Option {
	return func(o *options) {
		o.level = level
	}
}

func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithFile дублирует вывод в файл с ротацией
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// New логгер для окружения: local - цветной вывод, dev - JSON debug, prod - JSON info
func New(env string, opts ...Option) *slog.Logger {
	o := options{output: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	out := o.output
	if o.file != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28,
		})
	}

	var (
		log   *slog.Logger
		level slog.Level
	)
	switch env {
	case config.EnvProd:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	if o.level != "" {
		level = parseLevel(o.level, level)
	}

	switch env {
	case config.EnvLocal:
		log = slog.New(newPrettyHandler(out, &slog.HandlerOptions{Level: level}))
	default:
		log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	}
	return log
}

func setupPrettySlog() *slog.Logger {
	return slog.New(newPrettyHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return fallback
	}
	return level
}
