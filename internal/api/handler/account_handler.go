package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/ports"
)

// AccountHandler serves the endpoints that require a bearer token.
type AccountHandler struct {
	roles ports.RoleRegistry
}

func NewAccountHandler(roles ports.RoleRegistry) *AccountHandler {
	return &AccountHandler{roles: roles}
}

// Me echoes the identity carried by the caller's token.
//
// @Summary      Current user
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{
		Username:   claims.Username,
		Roles:      nonNil(claims.Roles),
		Expiration: claims.ExpiresAt,
	})
}

// Roles lists every role known to the registry.
//
// @Summary      List roles
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  rolesResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /auth/roles [get]
func (h *AccountHandler) Roles(c echo.Context) error {
	roles, err := h.roles.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rolesResponse{Roles: nonNil(roles)})
}
