package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Issue(identity *domain.Identity, roles []string) (*domain.AccessToken, error)
	Verify(token string) (*domain.AccessClaims, error)
}

// ResetTokenService creates and checks password reset tokens.
type ResetTokenService interface {
	Generate(ctx context.Context, identity *domain.Identity) (*domain.ResetToken, error)
	// Verify checks the token against the identity's current state and
	// returns the parsed token on success.
	Verify(ctx context.Context, identity *domain.Identity, token string) (*domain.ResetToken, error)
	// MarkConsumed records a successfully used token.
	MarkConsumed(ctx context.Context, token *domain.ResetToken) error
}

// ResetLedger remembers consumed reset token IDs until they expire.
type ResetLedger interface {
	IsConsumed(ctx context.Context, tokenID string) (bool, error)
	MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) error
}

// LinkBuilder renders the URL a user follows to reset their password.
type LinkBuilder interface {
	ResetLink(baseURL, email, encodedToken string) (string, error)
}

// ResetNotifier delivers reset links out of band.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, link string) error
}
