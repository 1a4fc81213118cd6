package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// errorResponse documents the envelope written by the central error handler.
type errorResponse struct {
	Error string `json:"error"`
}

// ctxClaims extracts the claims injected by the Auth middleware. Their
// absence means the route was mounted without the middleware.
func ctxClaims(c echo.Context) (*domain.AccessClaims, error) {
	claims, _ := c.Get(middleware.ClaimsKey).(*domain.AccessClaims)
	if claims == nil || claims.Username == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
