package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrCreationFailed     = errors.New("user creation failed")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrResetTokenInvalid  = errors.New("invalid token")
	ErrResetTokenExpired  = errors.New("token has expired")
	ErrResetFailed        = errors.New("password reset failed")
	ErrPasswordPolicy     = errors.New("password does not satisfy policy")
	ErrStaleStamp         = errors.New("security stamp changed")
)

// ReasonError attaches human-readable reasons to a sentinel error.
// errors.Is matches the wrapped sentinel.
type ReasonError struct {
	Err     error
	Reasons []string
}

// NewReasonError wraps err with the given reasons.
func NewReasonError(err error, reasons ...string) *ReasonError {
	return &ReasonError{Err: err, Reasons: reasons}
}

func (e *ReasonError) Error() string {
	if len(e.Reasons) == 0 {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + strings.Join(e.Reasons, "; ")
}

func (e *ReasonError) Unwrap() error { return e.Err }

// Reasons returns the reasons carried by err, or nil when err holds none.
func Reasons(err error) []string {
	var re *ReasonError
	if errors.As(err, &re) {
		return re.Reasons
	}
	return nil
}
