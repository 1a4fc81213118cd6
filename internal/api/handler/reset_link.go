package handler

import (
	"errors"
	"net/url"
	"path"
)

// ResetPasswordPath is the route a reset link points at.
const ResetPasswordPath = "/auth/reset-password"

// ResetLinkBuilder renders reset links of the form
// <base>/auth/reset-password?email=<email>&token=<encoded token>.
type ResetLinkBuilder struct{}

func NewResetLinkBuilder() ResetLinkBuilder { return ResetLinkBuilder{} }

// ResetLink expects encodedToken to be query-escaped already and does not escape it again.
func (ResetLinkBuilder) ResetLink(baseURL, email, encodedToken string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("reset link: base url must be absolute")
	}

	u.Path = path.Join("/", u.Path, ResetPasswordPath)
	u.RawQuery = "email=" + url.QueryEscape(email) + "&token=" + encodedToken
	u.Fragment = ""
	return u.String(), nil
}
