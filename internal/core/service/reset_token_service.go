package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/pkg/logger"
)

// DefaultResetTokenTTL is the lifetime of a password reset token.
const DefaultResetTokenTTL = 24 * time.Hour

const (
	resetPurpose  = "password_reset"
	resetKeyLabel = "auth-service/password-reset/v1"
)

// Reason strings returned to the caller when a reset token is rejected.
const (
	ReasonInvalidToken = "Invalid token."
	ReasonExpiredToken = "Token has expired."
)

// ResetTokenConfig configures reset token signing.
type ResetTokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type resetClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
	Stamp   string `json:"stamp"`
}

// ResetTokenService issues reset tokens bound to an identity's security stamp.
// Rotating the stamp invalidates every token issued before the rotation.
type ResetTokenService struct {
	key    []byte
	issuer string
	ttl    time.Duration
	ledger ports.ResetLedger
	log    zerolog.Logger
	now    func() time.Time
}

// NewResetTokenService returns a ResetTokenService. ledger may be nil, in which
// case single use relies on stamp rotation alone.
func NewResetTokenService(cfg ResetTokenConfig, ledger ports.ResetLedger, log zerolog.Logger) (*ResetTokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("reset tokens: signing secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenService{
		key:    deriveKey([]byte(cfg.Secret), resetKeyLabel),
		issuer: cfg.Issuer,
		ttl:    ttl,
		ledger: ledger,
		log:    log,
		now:    time.Now,
	}, nil
}

// Generate creates a reset token for identity.
func (s *ResetTokenService) Generate(_ context.Context, identity *domain.Identity) (*domain.ResetToken, error) {
	if identity == nil || identity.ID == "" || identity.SecurityStamp == "" {
		return nil, errors.New("generate reset token: identity has no id or security stamp")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: resetPurpose,
		Stamp:   s.fingerprint(identity.SecurityStamp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	return &domain.ResetToken{Value: signed, TokenID: claims.ID, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, expiry, binding to identity and the current
// security stamp, then consults the ledger for prior use.
func (s *ResetTokenService) Verify(ctx context.Context, identity *domain.Identity, token string) (*domain.ResetToken, error) {
	invalid := domain.NewReasonError(domain.ErrResetTokenInvalid, ReasonInvalidToken)
	if identity == nil || token == "" {
		return nil, invalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims resetClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.NewReasonError(domain.ErrResetTokenExpired, ReasonExpiredToken)
		}
		return nil, invalid
	}
	if !parsed.Valid || claims.Purpose != resetPurpose || claims.Subject != identity.ID {
		return nil, invalid
	}
	if !hmac.Equal([]byte(claims.Stamp), []byte(s.fingerprint(identity.SecurityStamp))) {
		return nil, invalid
	}

	if s.ledger != nil && claims.ID != "" {
		used, err := s.ledger.IsConsumed(ctx, claims.ID)
		if err != nil {
			log := logger.FromContext(ctx, s.log)
			log.Warn().Err(err).Msg("reset ledger lookup failed, relying on security stamp")
		} else if used {
			return nil, invalid
		}
	}

	return &domain.ResetToken{
		Value:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// MarkConsumed records the token in the ledger until it would have expired anyway.
func (s *ResetTokenService) MarkConsumed(ctx context.Context, token *domain.ResetToken) error {
	if s.ledger == nil || token == nil || token.TokenID == "" {
		return nil
	}
	ttl := token.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.ledger.MarkConsumed(ctx, token.TokenID, ttl)
}

func (s *ResetTokenService) fingerprint(stamp string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(stamp))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func deriveKey(secret []byte, label string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(label))
	return mac.Sum(nil)
}

// EncodeResetToken makes a reset token safe to embed in a query string.
func EncodeResetToken(token string) string {
	return url.QueryEscape(token)
}

// DecodeResetToken reverses EncodeResetToken.
func DecodeResetToken(encoded string) (string, error) {
	return url.QueryUnescape(encoded)
}
