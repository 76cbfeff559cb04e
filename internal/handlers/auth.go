package handlers

import (
	"github.com/gofiber/fiber/v2"

	"retail-erp-backend/internal/models"
)

// Login handles user login
func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.svc.Auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

// GetProfile returns the current user's profile
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	user, err := h.svc.Auth.GetUser(c.UserContext(), currentUser(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}
