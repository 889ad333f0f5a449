package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/factory-report-service/internal/api/dto"
	"github.com/spec-kit/factory-report-service/internal/auth"
	"github.com/spec-kit/factory-report-service/internal/service"
	apperrors "github.com/spec-kit/factory-report-service/pkg/util/errorutil"
)

// AuthHandler exposes login, logout and the current user.
type AuthHandler struct {
	service  *service.AuthService
	validate *validator.Validate
}

// NewAuthHandler creates handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService, validate: newValidator()}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}
	result, err := h.service.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{User: result.User, Token: result.Token, ExpiresAt: result.ExpiresAt})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Logout(c.UserContext(), principal.SessionID); err != nil {
		return err
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
