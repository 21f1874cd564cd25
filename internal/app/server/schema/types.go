package schema

import (
	"github.com/graphql-go/graphql"
)

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tagView struct {
	FrontendID string `json:"frontendId"`
	Name       string `json:"name"`
	UpdatedAt  string `json:"updatedAt"`
	Deleted    bool   `json:"deleted"`
}

type rejectionView struct {
	FrontendID string `json:"frontendId"`
	Reason     string `json:"reason"`
}

type setTagsResult struct {
	ID       string          `json:"id"`
	Rejected []rejectionView `json:"rejected"`
}

type authSuccess struct {
	SessionToken string    `json:"sessionToken"`
	Item         *userView `json:"item"`
}

type authFailure struct {
	Message string `json:"message"`
}

var (
	userType = graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"email": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	tagType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Tag",
		Fields: graphql.Fields{
			"frontendId": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"name":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"updatedAt":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"deleted":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	tagCreateInput = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "TagCreateInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"frontendId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"name":       &graphql.InputObjectFieldConfig{Type: graphql.String},
			"updatedAt":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"deleted":    &graphql.InputObjectFieldConfig{Type: graphql.Boolean, DefaultValue: false},
		},
	})

	rejectionType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Rejection",
		Fields: graphql.Fields{
			"frontendId": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"reason":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	setTagsResultType = graphql.NewObject(graphql.ObjectConfig{
		Name: "SetTagsResult",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"rejected": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(rejectionType)))},
		},
	})

	authSuccessType = graphql.NewObject(graphql.ObjectConfig{
		Name: "UserAuthenticationWithPasswordSuccess",
		Fields: graphql.Fields{
			"sessionToken": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"item":         &graphql.Field{Type: graphql.NewNonNull(userType)},
		},
	})

	authFailureType = graphql.NewObject(graphql.ObjectConfig{
		Name: "UserAuthenticationWithPasswordFailure",
		Fields: graphql.Fields{
			"message": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	authResultType = graphql.NewUnion(graphql.UnionConfig{
		Name:  "UserAuthenticationWithPasswordResult",
		Types: []*graphql.Object{authSuccessType, authFailureType},
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			switch p.Value.(type) {
			case *authSuccess:
				return authSuccessType
			case *authFailure:
				return authFailureType
			}
			return nil
		},
	})
)
