package schema

import "fmt"

// Коды ошибок в extensions.code
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// codedError ошибка резолвера с кодом, graphql-go переносит его в extensions
type codedError struct {
	code    string
	message string
}

func (e *codedError) Error() string {
	return e.message
}

func (e *codedError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func unauthenticated() error {
	return &codedError{code: CodeUnauthenticated, message: "authentication required"}
}

func badInput(format string, args ...any) error {
	return &codedError{code: CodeBadUserInput, message: fmt.Sprintf(format, args...)}
}

func internal() error {
	return &codedError{code: CodeInternal, message: "internal server error"}
}
