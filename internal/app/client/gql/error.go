package gql

import (
	"errors"

	"memorizefacts/internal/domain/replication"
)

var (
	ErrInvalidRequest    = errors.New("invalid graphql request")
	ErrMalformedResponse = errors.New("malformed graphql response")
	// ErrUnauthorized совпадает с ошибкой репликации, чтобы менеджер распознал отказ во входе
	ErrUnauthorized = replication.ErrUnauthorized
	ErrServer       = errors.New("graphql server error")
)

// codeUnauthenticated код ошибки GraphQL для просроченной или чужой сессии
const codeUnauthenticated = "UNAUTHENTICATED"
