package graphql

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) executeOp() huma.Operation {
	return huma.Operation{
		OperationID: "graphql",
		Method:      http.MethodPost,
		Path:        "/api/graphql",
		Summary:     "Выполнить операцию GraphQL",
		Description: "Лента и прием тегов требуют заголовок Authorization: Bearer <sessionToken>",
		Tags:        []string{"graphql"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
