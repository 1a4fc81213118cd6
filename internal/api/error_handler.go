package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/pkg/logger"
)

// errorResponse is the body written for errors a handler returned instead of rendering.
type errorResponse struct {
	Error string `json:"error"`
}

// domainStatus maps domain sentinels to the status and message sent to clients.
// The first match wins.
var domainStatus = []struct {
	err  error
	code int
	msg  string
}{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, ""},
	{domain.ErrInvalidRequest, http.StatusBadRequest, "invalid request"},
	{domain.ErrInvalidEmail, http.StatusBadRequest, "Invalid Email Address"},
	{domain.ErrUserNotFound, http.StatusBadRequest, "User not found."},
	{domain.ErrResetFailed, http.StatusBadRequest, "Password reset failed"},
	{domain.ErrUserExists, http.StatusInternalServerError, "User already exists"},
}

// NewHTTPErrorHandler renders errors that escaped the handlers. Echo errors keep
// their code, domain sentinels follow domainStatus, and anything else is logged
// and answered with a generic 500. A failed login answers 401 with no body.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if msg == "" {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	for _, m := range domainStatus {
		if errors.Is(err, m.err) {
			return m.code, m.msg
		}
	}

	reqLog := logger.FromContext(c.Request().Context(), log)
	reqLog.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
