package logger

import (
	"net/http"
	"time"

	"memorizefacts/internal/app/server/api/http/middleware/auth"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Logger пишет строку журнала на каждый запрос
type Logger struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Logger {
	return &Logger{
		log: log.With(slog.String("component", "http_logger")),
	}
}

// Middleware логирует ответ после обработки. Ошибки сервера идут уровнем warn,
// проверки здоровья уровнем debug.
func (l *Logger) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		method := ctx.Method()
		path := ctx.URL().Path
		remoteAddr := ctx.RemoteAddr()

		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []any{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", remoteAddr),
		}
		if op := ctx.Operation(); op != nil {
			attrs = append(attrs, slog.String("operation", op.OperationID))
		}
		if userID, ok := auth.GetUserID(ctx.Context()); ok {
			attrs = append(attrs, slog.Int64("user_id", userID))
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.log.Warn("HTTP request", attrs...)
		case ctx.Operation() != nil && ctx.Operation().OperationID == "health-check":
			l.log.Debug("HTTP request", attrs...)
		default:
			l.log.Info("HTTP request", attrs...)
		}
	}
}
