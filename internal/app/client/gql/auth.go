package gql

import (
	"encoding/json"
	"fmt"
)

const (
	typeAuthSuccess = "UserAuthenticationWithPasswordSuccess"
	typeAuthFailure = "UserAuthenticationWithPasswordFailure"
)

var (
	login = mustDocument(`
		mutation authenticateUserWithPassword($email: String!, $password: String!) {
			authenticateUserWithPassword(email: $email, password: $password) {
				__typename
				... on UserAuthenticationWithPasswordSuccess {
					sessionToken
				}
				... on UserAuthenticationWithPasswordFailure {
					message
				}
			}
		}`)

	register = mustDocument(`
		mutation createUser($email: String!, $password: String!) {
			createUser(email: $email, password: $password) {
				id
				email
			}
		}`)
)

func BuildLogin(email, password string) Request {
	return login.request(map[string]any{"email": email, "password": password})
}

func BuildRegister(email, password string) Request {
	return register.request(map[string]any{"email": email, "password": password})
}

// DecodeLogin возвращает токен сессии. Отказ во входе дает ErrUnauthorized с сообщением сервера.
func DecodeLogin(data json.RawMessage) (string, error) {
	var resp struct {
		Result *struct {
			Typename     string `json:"__typename"`
			SessionToken string `json:"sessionToken"`
			Message      string `json:"message"`
		} `json:"authenticateUserWithPassword"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Result == nil {
		return "", fmt.Errorf("%w: missing authenticateUserWithPassword", ErrMalformedResponse)
	}

	switch resp.Result.Typename {
	case typeAuthSuccess:
		if resp.Result.SessionToken == "" {
			return "", fmt.Errorf("%w: empty session token", ErrMalformedResponse)
		}
		return resp.Result.SessionToken, nil
	case typeAuthFailure:
		return "", fmt.Errorf("%w: %s", ErrUnauthorized, resp.Result.Message)
	default:
		return "", fmt.Errorf("%w: unexpected result type %q", ErrMalformedResponse, resp.Result.Typename)
	}
}
