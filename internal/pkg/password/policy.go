package password

import (
	"fmt"
	"unicode"
)

// MaxBytes is the longest password bcrypt can hash.
const MaxBytes = 72

// Policy describes the complexity a new password must satisfy.
// A zero MaxBytes means no upper bound.
type Policy struct {
	MinLength       int
	MaxBytes        int
	RequireDigit    bool
	RequireLower    bool
	RequireUpper    bool
	RequireNonAlnum bool
}

// DefaultMinLength is the shortest password DefaultPolicy accepts.
const DefaultMinLength = 5

// DefaultPolicy requires five characters with a digit, a lowercase and an
// uppercase letter and one symbol, and no more than MaxBytes bytes.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:       DefaultMinLength,
		MaxBytes:        MaxBytes,
		RequireDigit:    true,
		RequireLower:    true,
		RequireUpper:    true,
		RequireNonAlnum: true,
	}
}

// Check returns one message per violated rule, or nil.
func (p Policy) Check(password string) []string {
	var hasDigit, hasLower, hasUpper, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case !unicode.IsLetter(r):
			hasOther = true
		}
	}

	var reasons []string
	if len([]rune(password)) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("Passwords must be at least %d characters.", p.MinLength))
	}
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		reasons = append(reasons, fmt.Sprintf("Passwords must be at most %d bytes.", p.MaxBytes))
	}
	if p.RequireNonAlnum && !hasOther {
		reasons = append(reasons, "Passwords must have at least one non alphanumeric character.")
	}
	if p.RequireDigit && !hasDigit {
		reasons = append(reasons, "Passwords must have at least one digit ('0'-'9').")
	}
	if p.RequireLower && !hasLower {
		reasons = append(reasons, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if p.RequireUpper && !hasUpper {
		reasons = append(reasons, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	return reasons
}
