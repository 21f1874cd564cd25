package user

import (
	"context"
	"errors"
	"strconv"

	"memorizefacts/internal/domain/session"
	"memorizefacts/internal/domain/user"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Handler REST-вариант входа и регистрации для клиентов без GraphQL
type Handler struct {
	service    user.Servicer
	session    session.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service user.Servicer, session session.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		session:    session,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.registerOp(), h.register)
	huma.Register(api, h.loginOp(), h.login)
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	u, err := h.service.Register(ctx, input.Body.Email, input.Body.Password)
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		return nil, huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, user.ErrAlreadyExist):
		return nil, huma.Error409Conflict("user already exists")
	case err != nil:
		h.log.Error("register", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("internal error")
	}

	return &registerOutput{
		Body: RegisterResponse{ID: strconv.FormatInt(u.ID, 10), Email: u.Email},
	}, nil
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	u, err := h.service.Authenticate(ctx, input.Body.Email, input.Body.Password)
	if errors.Is(err, user.ErrInvalidAuth) {
		return nil, huma.Error401Unauthorized("invalid credentials")
	}
	if err != nil {
		h.log.Error("authenticate", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("internal error")
	}

	token, err := h.session.Create(ctx, u.ID)
	if err != nil {
		h.log.Error("create session", slog.String("error", err.Error()))
		return nil, huma.Error500InternalServerError("internal error")
	}

	return &loginOutput{Body: LoginResponse{Token: token}}, nil
}
