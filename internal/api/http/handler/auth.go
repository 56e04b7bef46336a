package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/service/auth"
	pasetotoken "github.com/arcmed/arcmed_backend/pkg/paseto"
)

type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return badRequest(c, "email and password are required")
	}

	result, err := h.svc.Login(c.Context(), body.Email, body.Password)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, result)
}

// POST /api/v1/auth/logout  (requires AuthRequired middleware)
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid || claims.SessionID == nil {
		return unauthorized(c)
	}

	if err := h.svc.Logout(c.Context(), *claims.SessionID); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// POST /api/v1/auth/change-password  (requires AuthRequired middleware)
func (h *AuthHandler) ChangePassword(c fiber.Ctx) error {
	claims, valid := pasetotoken.ClaimsFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.CurrentPassword == "" || body.NewPassword == "" {
		return badRequest(c, "current_password and new_password are required")
	}

	if err := h.svc.ChangePassword(c.Context(), claims.UserID, body.CurrentPassword, body.NewPassword); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}
