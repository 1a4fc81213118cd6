package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// CredentialStore owns identities, their password hashes and role membership.
// Hashing and security-stamp handling stay behind this interface.
type CredentialStore interface {
	FindByName(ctx context.Context, username string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)

	// Create hashes the password and persists the identity. Policy violations
	// come back as a *domain.ReasonError wrapping domain.ErrPasswordPolicy.
	Create(ctx context.Context, in domain.NewIdentity) (*domain.Identity, error)

	// VerifyPassword returns domain.ErrInvalidCredentials on mismatch.
	VerifyPassword(ctx context.Context, identity *domain.Identity, password string) error

	// ResetPassword replaces the password hash and rotates the security stamp,
	// but only while the stored stamp still equals expectedStamp.
	ResetPassword(ctx context.Context, identityID, expectedStamp, newPassword string) error

	RolesOf(ctx context.Context, identity *domain.Identity) ([]string, error)
	AddToRole(ctx context.Context, identity *domain.Identity, role string) error
}
