package domain

import "time"

// Role names as stored in the role registry and emitted as token claims.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Role request literals accepted at registration. Matching is case-sensitive.
const (
	RequestedRoleAdmin = "admin"
	RequestedRoleUser  = "user"
)

// Identity models a user account held by the credential store.
type Identity struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	PasswordHash  string    `json:"-"`
	SecurityStamp string    `json:"-"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewIdentity is the input for creating an identity. Password is plaintext
// and is hashed by the store before anything is persisted.
type NewIdentity struct {
	Username      string
	Email         string
	Password      string
	SecurityStamp string
}

// RoleForRequest maps a registration role literal to its role name.
// Unknown literals map to "" and grant no role.
func RoleForRequest(requested string) string {
	switch requested {
	case RequestedRoleAdmin:
		return RoleAdmin
	case RequestedRoleUser:
		return RoleUser
	default:
		return ""
	}
}
