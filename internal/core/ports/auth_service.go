package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RegisterInput is the DTO passed from the transport layer to AuthService.Register.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// ForgotPasswordInput carries the forgot-password request. BaseURL is the
// origin the reset link is built against.
type ForgotPasswordInput struct {
	Email   string
	BaseURL string
}

// ResetPasswordInput carries the reset-password request. Token is URL-encoded.
type ResetPasswordInput struct {
	Email       string
	Token       string
	NewPassword string
}

// AuthService sequences the user-facing authentication flows.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*domain.AccessToken, error)
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	ForgotPassword(ctx context.Context, in ForgotPasswordInput) (*domain.ResetGrant, error)
	ResetPassword(ctx context.Context, in ResetPasswordInput) error
}
