package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth  *service.AuthService
	users service.UserFinder
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, users service.UserFinder) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	user, err := h.users.FindByID(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, user)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh generates a new token pair from a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var body refreshRequest
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}

	tokens, err := h.auth.RefreshAccessToken(body.RefreshToken)
	if err != nil {
		return domain.ErrUnauthorized
	}

	return JSON(c, http.StatusOK, tokens)
}
