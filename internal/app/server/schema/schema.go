// Package schema GraphQL-схема сервера синхронизации: лента тегов, прием тегов, вход и регистрация.
package schema

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"memorizefacts/internal/app/server/api/http/middleware/auth"
	"memorizefacts/internal/domain/session"
	"memorizefacts/internal/domain/tagfeed"
	"memorizefacts/internal/domain/user"
	"memorizefacts/internal/model"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"golang.org/x/exp/slog"
)

const authFailedMessage = "Authentication failed."

// Request тело запроса GraphQL
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
}

// Response ответ GraphQL в проводном виде
type Response struct {
	Data   any             `json:"data"`
	Errors []ResponseError `json:"errors,omitempty"`
}

type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type Schema struct {
	schema   graphql.Schema
	users    user.Servicer
	sessions session.Servicer
	tags     tagfeed.Servicer
	log      *slog.Logger
}

func New(users user.Servicer, sessions session.Servicer, tags tagfeed.Servicer, log *slog.Logger) (*Schema, error) {
	s := &Schema{
		users:    users,
		sessions: sessions,
		tags:     tags,
		log:      log.With(slog.String("component", "graphql")),
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"feedForRxDBReplicationTag": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(tagType))),
				Args: graphql.FieldConfigArgument{
					"lastFrontendId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"minUpdatedAt":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: s.feedTags,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setRxDBReplicationTags": &graphql.Field{
				Type: setTagsResultType,
				Args: graphql.FieldConfigArgument{
					"tags": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(tagCreateInput))},
				},
				Resolve: s.setTags,
			},
			"authenticateUserWithPassword": &graphql.Field{
				Type: authResultType,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: s.authenticate,
			},
			"createUser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: s.createUser,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// Execute выполняет операцию. Ошибки резолверов возвращаются в Result.Errors.
func (s *Schema) Execute(ctx context.Context, req Request) *Response {
	result := graphql.Do(graphql.Params{
		Schema:         s.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx,
	})

	resp := &Response{Data: result.Data}
	for _, e := range result.Errors {
		resp.Errors = append(resp.Errors, ResponseError{
			Message:    e.Message,
			Path:       e.Path,
			Extensions: e.Extensions,
		})
	}
	return resp
}

func (s *Schema) feedTags(p graphql.ResolveParams) (interface{}, error) {
	userID, ok := auth.GetUserID(p.Context)
	if !ok {
		return nil, unauthenticated()
	}
	lastID, _ := p.Args["lastFrontendId"].(string)
	minUpdatedAt, _ := p.Args["minUpdatedAt"].(string)
	limit, _ := p.Args["limit"].(int)

	tags, err := s.tags.Feed(p.Context, userID, lastID, minUpdatedAt, limit)
	if errors.Is(err, tagfeed.ErrInvalidInput) {
		return nil, badInput("%v", err)
	}
	if err != nil {
		return nil, s.internal("feed tags", err)
	}

	out := make([]tagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagView{
			FrontendID: t.FrontendID,
			Name:       t.Name,
			UpdatedAt:  model.FormatTime(t.UpdatedAt),
			Deleted:    t.Deleted,
		})
	}
	return out, nil
}

func (s *Schema) setTags(p graphql.ResolveParams) (interface{}, error) {
	userID, ok := auth.GetUserID(p.Context)
	if !ok {
		return nil, unauthenticated()
	}

	raw, _ := p.Args["tags"].([]interface{})
	inputs := make([]tagfeed.Input, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, badInput("tags: unexpected item %T", item)
		}
		in := tagfeed.Input{}
		in.FrontendID, _ = m["frontendId"].(string)
		in.Name, _ = m["name"].(string)
		in.UpdatedAt, _ = m["updatedAt"].(string)
		in.Deleted, _ = m["deleted"].(bool)
		inputs = append(inputs, in)
	}

	rejected, err := s.tags.Set(p.Context, userID, inputs)
	if err != nil {
		return nil, s.internal("set tags", err)
	}

	result := &setTagsResult{ID: uuid.NewString(), Rejected: make([]rejectionView, 0, len(rejected))}
	for _, r := range rejected {
		result.Rejected = append(result.Rejected, rejectionView{FrontendID: r.FrontendID, Reason: r.Reason})
	}
	return result, nil
}

// authenticate отказ во входе возвращается значением Failure, а не ошибкой
func (s *Schema) authenticate(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)

	u, err := s.users.Authenticate(p.Context, email, password)
	if errors.Is(err, user.ErrInvalidAuth) {
		s.log.Debug("authentication failed", slog.String("email", email))
		return &authFailure{Message: authFailedMessage}, nil
	}
	if err != nil {
		return nil, s.internal("authenticate", err)
	}

	token, err := s.sessions.Create(p.Context, u.ID)
	if err != nil {
		return nil, s.internal("create session", err)
	}
	return &authSuccess{SessionToken: token, Item: viewUser(u)}, nil
}

func (s *Schema) createUser(p graphql.ResolveParams) (interface{}, error) {
	email, _ := p.Args["email"].(string)
	password, _ := p.Args["password"].(string)

	u, err := s.users.Register(p.Context, email, password)
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		return nil, badInput("%v", err)
	case errors.Is(err, user.ErrAlreadyExist):
		return nil, badInput("user with this email already exists")
	case err != nil:
		return nil, s.internal("register", err)
	}
	return viewUser(u), nil
}

// internal скрывает детали ошибки от клиента и пишет их в журнал
func (s *Schema) internal(op string, err error) error {
	s.log.Error(op, slog.String("error", err.Error()))
	return internal()
}

func viewUser(u user.User) *userView {
	return &userView{ID: strconv.FormatInt(u.ID, 10), Email: u.Email}
}
