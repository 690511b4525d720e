package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventrack-api/internal/application/auth"
	"github.com/jhoicas/inventrack-api/internal/application/dto"
)

// AuthHandler maneja login, logout y recuperación de contraseña.
type AuthHandler struct {
	uc *auth.AuthUseCase
}

// NewAuthHandler construye el handler de auth.
func NewAuthHandler(uc *auth.AuthUseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, password"
// @Success      200   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if e := decodeBody(c, &in); e != nil {
		return invalid(c, e)
	}
	out, err := h.uc.Login(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Logout godoc
// @Summary      Cerrar sesión
// @Description  JWT sin estado: el cliente descarta el token.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.MessageResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return c.JSON(h.uc.Logout())
}

// RecoverPassword godoc
// @Summary      Recuperar contraseña
// @Description  Respuesta genérica; no revela si el email existe.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecoverPasswordRequest  true  "email"
// @Success      200   {object}  dto.MessageResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/recover-password [post]
func (h *AuthHandler) RecoverPassword(c *fiber.Ctx) error {
	var in dto.RecoverPasswordRequest
	if e := decodeBody(c, &in); e != nil {
		return invalid(c, e)
	}
	out, err := h.uc.RecoverPassword(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
