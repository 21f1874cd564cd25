package graphql

import (
	"context"

	"memorizefacts/internal/app/server/schema"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Executor выполняет операции GraphQL
type Executor interface {
	Execute(ctx context.Context, req schema.Request) *schema.Response
}

type Handler struct {
	executor   Executor
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(executor Executor, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		executor:   executor,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.executeOp(), h.execute)
}

// execute ошибки GraphQL отдаются телом ответа со статусом 200
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	resp := h.executor.Execute(ctx, schema.Request{
		Query:         input.Body.Query,
		OperationName: input.Body.OperationName,
		Variables:     input.Body.Variables,
	})
	if len(resp.Errors) > 0 {
		h.log.Debug("graphql errors",
			slog.String("operation", input.Body.OperationName),
			slog.String("first", resp.Errors[0].Message),
		)
	}
	return &Output{Body: resp}, nil
}
