// Сервер синхронизации:
//
//	GET  /api/v1/health          # Проверка доступности (публичный)
//	POST /api/v1/user/register   # Регистрация (публичный)
//	POST /api/v1/user/login      # Логин (публичный)
//	POST /api/graphql            # Репликация тегов и аутентификация
//	GET  /metrics                # Метрики prometheus
package api

import (
	"fmt"
	"net/http"
	"time"

	"memorizefacts/internal/app/server/api/http/graphql"
	healthAPI "memorizefacts/internal/app/server/api/http/health"
	"memorizefacts/internal/app/server/api/http/middleware"
	"memorizefacts/internal/app/server/api/http/middleware/auth"
	"memorizefacts/internal/app/server/api/http/middleware/logger"
	"memorizefacts/internal/app/server/api/http/middleware/metrics"
	userAPI "memorizefacts/internal/app/server/api/http/user"
	"memorizefacts/internal/app/server/schema"
	"memorizefacts/internal/domain/session"
	"memorizefacts/internal/domain/tagfeed"
	"memorizefacts/internal/domain/user"
	"memorizefacts/internal/infrastructure/storage/postgres"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health  *healthAPI.Handler
	User    *userAPI.Handler
	GraphQL *graphql.Handler
}

// Services доменные сервисы сервера
type Services struct {
	Users    *user.Service
	Sessions *session.Service
	Tags     *tagfeed.Service
}

func NewServices(storage *postgres.Storage, sessionTTL time.Duration, log *slog.Logger) *Services {
	return &Services{
		Users:    user.NewService(postgres.NewUserRepository(storage, log), user.NewPasswordValidator(), log),
		Sessions: session.NewService(postgres.NewSessionRepository(storage, log), sessionTTL, log),
		Tags:     tagfeed.NewService(postgres.NewTagRepository(storage, log), log),
	}
}

// New создает *chi.Mux со всеми операциями huma и эндпоинтом метрик
func New(storage *postgres.Storage, services *Services, log *slog.Logger) (*chi.Mux, error) {
	mux := chi.NewMux()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	config := huma.DefaultConfig("Memorize Facts Sync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h, err := handlers(storage, services, registry, log)
	if err != nil {
		return nil, err
	}
	h.Health.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.GraphQL.SetupRoutes(API)

	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return mux, nil
}

func handlers(storage *postgres.Storage, services *Services, reg prometheus.Registerer, log *slog.Logger) (*Handlers, error) {
	loggerMW := logger.New(log)
	metricsMW := metrics.New(reg)
	authMW := auth.New(services.Sessions, log)

	public := middleware.NewChain(loggerMW.Middleware(), metricsMW.Middleware())
	// auth снаружи, чтобы в журнал попал user_id
	private := middleware.NewChain(authMW.Middleware()).With(loggerMW.Middleware(), metricsMW.Middleware())

	sch, err := schema.New(services.Users, services.Sessions, services.Tags, log)
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}

	return &Handlers{
		Health:  healthAPI.NewHandler(storage, log, public.Middlewares()),
		User:    userAPI.NewHandler(services.Users, services.Sessions, log, public.Middlewares()),
		GraphQL: graphql.NewHandler(sch, log, private.Middlewares()),
	}, nil
}
