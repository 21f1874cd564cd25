package user

type Credentials struct {
	Email    string `json:"email" format:"email" maxLength:"254" doc:"Email пользователя"`
	Password string `json:"password" minLength:"8" maxLength:"72" doc:"Пароль"`
}

type registerInput struct {
	Body Credentials
}

type registerOutput struct {
	Body RegisterResponse
}

type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginInput struct {
	Body Credentials
}

type loginOutput struct {
	Body LoginResponse
}

type LoginResponse struct {
	Token string `json:"token"`
}
