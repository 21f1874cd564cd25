package graphql

import "memorizefacts/internal/app/server/schema"

type Input struct {
	Body Request
}

type Request struct {
	Query         string         `json:"query" minLength:"1" doc:"Текст операции GraphQL"`
	OperationName string         `json:"operationName,omitempty" required:"false"`
	Variables     map[string]any `json:"variables,omitempty" required:"false"`
}

type Output struct {
	Body *schema.Response
}
