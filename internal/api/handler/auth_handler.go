package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService    ports.AuthService
	publicBaseURL  string
	linkInResponse bool
}

// NewAuthHandler builds the handler for the /auth routes. When publicBaseURL is
// empty, reset links are built against the scheme and host of the request.
func NewAuthHandler(authService ports.AuthService, publicBaseURL string, linkInResponse bool) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		publicBaseURL:  publicBaseURL,
		linkInResponse: linkInResponse,
	}
}

// Login authenticates a user and returns a signed access token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   "Invalid credentials (empty body)"
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validationBody(err))
	}

	token, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("unauthorized").Inc()
			return c.NoContent(http.StatusUnauthorized)
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		Username:   token.Username,
		Token:      token.Token,
		Roles:      nonNil(token.Roles),
		Expiration: token.ExpiresAt,
	})
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  statusResponse
// @Failure      500   {object}  statusResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{Status: statusError, Message: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		body := validationBody(err)
		return c.JSON(http.StatusBadRequest, statusResponse{Status: statusError, Message: body.Message, Errors: body.Errors})
	}

	_, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserExists):
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return c.JSON(http.StatusInternalServerError, statusResponse{Status: statusError, Message: "User already exists"})
		case errors.Is(err, domain.ErrCreationFailed):
			metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
			return c.JSON(http.StatusInternalServerError, statusResponse{
				Status:  statusError,
				Message: "User creation failed",
				Errors:  domain.Reasons(err),
			})
		case errors.Is(err, domain.ErrInvalidRequest):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			return c.JSON(http.StatusBadRequest, statusResponse{Status: statusError, Message: "invalid payload"})
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, statusResponse{Status: statusSuccess, Message: "User created successfully"})
}

// ForgotPassword issues a password reset token and returns the reset link.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  forgotPasswordResponse
// @Failure      400   {object}  messageResponse
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validationBody(err))
	}

	grant, err := h.authService.ForgotPassword(c.Request().Context(), ports.ForgotPasswordInput{
		Email:   req.Email,
		BaseURL: h.baseURL(c),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEmail) || errors.Is(err, domain.ErrInvalidRequest) {
			metrics.PasswordResetsTotal.WithLabelValues("requested", "rejected").Inc()
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid Email Address"})
		}
		metrics.PasswordResetsTotal.WithLabelValues("requested", "error").Inc()
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested", "success").Inc()
	resp := forgotPasswordResponse{
		Status:  statusSuccess,
		Message: "Password reset token generated successfully.",
	}
	if h.linkInResponse {
		resp.ResetLink = grant.Link
	}
	return c.JSON(http.StatusOK, resp)
}

// ResetPassword consumes a reset token and sets a new password.
//
// @Summary      Reset a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Email, URL-encoded token and new password"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  messageResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validationBody(err))
	}

	err := h.authService.ResetPassword(c.Request().Context(), ports.ResetPasswordInput{
		Email:       req.Email,
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			metrics.PasswordResetsTotal.WithLabelValues("completed", "rejected").Inc()
			return c.JSON(http.StatusBadRequest, messageResponse{Message: "User not found."})
		case errors.Is(err, domain.ErrResetFailed), errors.Is(err, domain.ErrInvalidRequest):
			metrics.PasswordResetsTotal.WithLabelValues("completed", "rejected").Inc()
			return c.JSON(http.StatusBadRequest, messageResponse{
				Message: "Password reset failed",
				Errors:  nonNil(domain.Reasons(err)),
			})
		}
		metrics.PasswordResetsTotal.WithLabelValues("completed", "error").Inc()
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed", "success").Inc()
	return c.JSON(http.StatusOK, statusResponse{Status: statusSuccess, Message: "Password has been reset successfully"})
}

func (h *AuthHandler) baseURL(c echo.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	return c.Scheme() + "://" + c.Request().Host
}

func validationBody(err error) messageResponse {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return messageResponse{Message: "Validation failed", Errors: ve}
	}
	return messageResponse{Message: "Validation failed", Errors: []string{err.Error()}}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
