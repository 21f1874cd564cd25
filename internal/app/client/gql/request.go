package gql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/printer"
)

// Request тело POST-запроса к GraphQL
type Request struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

// Response ответ GraphQL: данные и/или ошибки
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e ResponseError) Error() string {
	return e.Message
}

// Code код ошибки из extensions, если сервер его прислал
func (e ResponseError) Code() string {
	code, _ := e.Extensions["code"].(string)
	return code
}

// document разобранный и распечатанный заново текст операции
type document struct {
	name  string
	query string
}

// mustDocument разбирает текст операции и печатает его в каноническом виде.
// Падает на этапе инициализации пакета, если текст не разбирается.
func mustDocument(source string) document {
	doc, err := normalize(source)
	if err != nil {
		panic(err)
	}
	return doc
}

func normalize(source string) (document, error) {
	parsed, err := parser.Parse(parser.ParseParams{Source: source})
	if err != nil {
		return document{}, fmt.Errorf("parse graphql operation: %w", err)
	}

	var name string
	for _, def := range parsed.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok && op.Name != nil {
			name = op.Name.Value
			break
		}
	}

	printed, ok := printer.Print(parsed).(string)
	if !ok {
		return document{}, fmt.Errorf("print graphql operation %q", name)
	}
	return document{name: name, query: strings.TrimSpace(printed)}, nil
}

func (d document) request(variables map[string]any) Request {
	if variables == nil {
		variables = map[string]any{}
	}
	return Request{OperationName: d.name, Query: d.query, Variables: variables}
}
