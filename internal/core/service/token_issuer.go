package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// DefaultAccessTokenTTL is how long an issued access token stays valid.
const DefaultAccessTokenTTL = 30 * time.Minute

// TokenConfig is the startup-loaded signing configuration.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// accessClaims is the wire shape of an access token.
type accessClaims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Roles []string `json:"role,omitempty"`
}

// TokenIssuer signs HS256 access tokens. It holds no mutable state.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token issuer: signing secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	return &TokenIssuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue builds and signs a token for an identity whose password was already verified.
func (s *TokenIssuer) Issue(identity *domain.Identity, roles []string) (*domain.AccessToken, error) {
	if identity == nil || identity.Username == "" {
		return nil, errors.New("issue token: identity is required")
	}

	// NumericDate has second precision; truncate so the returned expiry matches the claim.
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username,
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:  identity.Username,
		Roles: append([]string(nil), roles...),
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &domain.AccessToken{
		Token:     signed,
		Username:  identity.Username,
		Roles:     claims.Roles,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses a bearer token and checks signature, algorithm, issuer, audience and expiry.
func (s *TokenIssuer) Verify(token string) (*domain.AccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidCredentials
	}

	out := &domain.AccessClaims{
		Username: claims.Subject,
		TokenID:  claims.ID,
		Roles:    claims.Roles,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
