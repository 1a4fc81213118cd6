package domain

import "time"

// AccessToken is the result of a successful login. It is never persisted.
type AccessToken struct {
	Token     string
	Username  string
	Roles     []string
	ExpiresAt time.Time
}

// AccessClaims is the verified content of a bearer token.
type AccessClaims struct {
	Username  string
	TokenID   string
	Roles     []string
	ExpiresAt time.Time
}

// HasRole reports whether the claims carry the given role.
func (c *AccessClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ResetToken is a signed, single-use password reset token bound to one identity.
type ResetToken struct {
	Value     string
	TokenID   string
	ExpiresAt time.Time
}

// ResetGrant is the outcome of the forgot-password flow.
type ResetGrant struct {
	Email        string
	EncodedToken string
	Link         string
	ExpiresAt    time.Time
}
