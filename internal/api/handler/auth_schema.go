package handler

import "time"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Username   string    `json:"username"`
	Token      string    `json:"token"`
	Roles      []string  `json:"roles"`
	Expiration time.Time `json:"expiration"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type forgotPasswordResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ResetLink string `json:"resetLink,omitempty"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// statusResponse is the {status, message} envelope used by register and reset.
type statusResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// messageResponse is the 400 body of the password recovery endpoints.
type messageResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type meResponse struct {
	Username   string    `json:"username"`
	Roles      []string  `json:"roles"`
	Expiration time.Time `json:"expiration"`
}

type rolesResponse struct {
	Roles []string `json:"roles"`
}

const (
	statusSuccess = "Success"
	statusError   = "Error"
)
