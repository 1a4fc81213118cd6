package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/pkg/logger"
)

// AuthService implements login, registration and password recovery.
type AuthService struct {
	store    ports.CredentialStore
	roles    ports.RoleRegistry
	tokens   ports.TokenIssuer
	resets   ports.ResetTokenService
	links    ports.LinkBuilder
	notifier ports.ResetNotifier
	log      zerolog.Logger
}

func NewAuthService(
	store ports.CredentialStore,
	roles ports.RoleRegistry,
	tokens ports.TokenIssuer,
	resets ports.ResetTokenService,
	links ports.LinkBuilder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		store:  store,
		roles:  roles,
		tokens: tokens,
		resets: resets,
		links:  links,
		log:    log,
	}
}

// WithNotifier hands every generated reset link to n for out-of-band delivery.
func (s *AuthService) WithNotifier(n ports.ResetNotifier) *AuthService {
	s.notifier = n
	return s
}

// logFor prefers the request-scoped logger carried by ctx.
func (s *AuthService) logFor(ctx context.Context) *zerolog.Logger {
	l := logger.FromContext(ctx, s.log)
	return &l
}

// Login verifies credentials and issues an access token. Unknown users and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.AccessToken, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.store.FindByName(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Burn a hash comparison so a miss costs the same as a bad password.
			_ = s.store.VerifyPassword(ctx, nil, password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.store.VerifyPassword(ctx, identity, password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	roles, err := s.store.RolesOf(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("login: roles: %w", err)
	}

	token, err := s.tokens.Issue(identity, roles)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.logFor(ctx).Info().Str("username", identity.Username).Strs("roles", roles).Msg("login succeeded")
	return token, nil
}

// Register creates an identity and, for the known role literals, assigns a
// role. Role assignment is best effort and never fails the registration.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	if in.Username == "" || in.Password == "" {
		return nil, domain.ErrInvalidRequest
	}

	_, err := s.store.FindByName(ctx, in.Username)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	identity, err := s.store.Create(ctx, domain.NewIdentity{
		Username:      in.Username,
		Email:         in.Email,
		Password:      in.Password,
		SecurityStamp: uuid.NewString(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		s.logFor(ctx).Warn().Err(err).Str("username", in.Username).Msg("identity creation failed")
		return nil, domain.NewReasonError(domain.ErrCreationFailed, domain.Reasons(err)...)
	}

	if role := s.assignRole(ctx, identity, in.Role); role != "" {
		identity.Roles = append(identity.Roles, role)
	}

	s.logFor(ctx).Info().Str("username", identity.Username).Msg("user registered")
	return identity, nil
}

// assignRole returns the role name that was assigned, or "".
func (s *AuthService) assignRole(ctx context.Context, identity *domain.Identity, requested string) string {
	role := domain.RoleForRequest(requested)
	if role == "" {
		if requested != "" {
			s.logFor(ctx).Debug().Str("username", identity.Username).Str("role", requested).Msg("unrecognised role ignored")
		}
		return ""
	}

	log := s.logFor(ctx).With().Str("username", identity.Username).Str("role", role).Logger()

	exists, err := s.roles.Exists(ctx, role)
	if err != nil {
		log.Warn().Err(err).Msg("role lookup failed, skipping assignment")
		return ""
	}
	if !exists {
		if err := s.roles.Create(ctx, role); err != nil {
			log.Warn().Err(err).Msg("role creation failed")
		}
		if exists, err = s.roles.Exists(ctx, role); err != nil || !exists {
			log.Warn().Err(err).Msg("role still missing, skipping assignment")
			return ""
		}
	}

	if err := s.store.AddToRole(ctx, identity, role); err != nil {
		log.Warn().Err(err).Msg("role assignment failed")
		return ""
	}
	return role
}

// ForgotPassword generates a reset token for the account behind email and
// returns a link that carries it.
func (s *AuthService) ForgotPassword(ctx context.Context, in ports.ForgotPasswordInput) (*domain.ResetGrant, error) {
	if in.Email == "" {
		return nil, domain.ErrInvalidRequest
	}

	identity, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidEmail
		}
		return nil, fmt.Errorf("forgot password: %w", err)
	}

	token, err := s.resets.Generate(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("forgot password: %w", err)
	}

	encoded := EncodeResetToken(token.Value)
	link, err := s.links.ResetLink(in.BaseURL, in.Email, encoded)
	if err != nil {
		return nil, fmt.Errorf("forgot password: reset link: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyPasswordReset(ctx, in.Email, link); err != nil {
			s.logFor(ctx).Warn().Err(err).Str("username", identity.Username).Msg("reset notification not queued")
		}
	}

	s.logFor(ctx).Info().Str("username", identity.Username).Str("token_id", token.TokenID).Msg("password reset token issued")
	return &domain.ResetGrant{
		Email:        in.Email,
		EncodedToken: encoded,
		Link:         link,
		ExpiresAt:    token.ExpiresAt,
	}, nil
}

// ResetPassword consumes a reset token and replaces the password. A token
// succeeds at most once: the store rotates the security stamp on success.
func (s *AuthService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) error {
	if in.Email == "" || in.Token == "" || in.NewPassword == "" {
		return domain.ErrInvalidRequest
	}

	identity, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("reset password: %w", err)
	}

	raw, err := DecodeResetToken(in.Token)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrResetFailed,
			domain.NewReasonError(domain.ErrResetTokenInvalid, ReasonInvalidToken))
	}

	token, err := s.resets.Verify(ctx, identity, raw)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrResetFailed, err)
	}

	err = s.store.ResetPassword(ctx, identity.ID, identity.SecurityStamp, in.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStaleStamp):
		return fmt.Errorf("%w: %w", domain.ErrResetFailed,
			domain.NewReasonError(domain.ErrResetTokenInvalid, ReasonInvalidToken))
	case errors.Is(err, domain.ErrPasswordPolicy):
		return fmt.Errorf("%w: %w", domain.ErrResetFailed, err)
	default:
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.resets.MarkConsumed(ctx, token); err != nil {
		s.logFor(ctx).Warn().Err(err).Str("token_id", token.TokenID).Msg("failed to record consumed reset token")
	}

	s.logFor(ctx).Info().Str("username", identity.Username).Msg("password reset")
	return nil
}
