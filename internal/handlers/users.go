package handlers

import (
	"github.com/gofiber/fiber/v2"

	"retail-erp-backend/internal/service"
)

// GetUsers handles fetching all users; password hashes never leave the model.
func (h *Handler) GetUsers(c *fiber.Ctx) error {
	users, err := h.svc.Auth.ListUsers(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// RegisterUser creates an operator account (admin only).
func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var req service.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.svc.Auth.RegisterUser(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// UpdateUser handles updating a user's details
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}

	var req service.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.svc.Auth.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User updated successfully", "data": user})
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	if id == currentUser(c) {
		return badRequest(c, "You cannot delete your own account")
	}

	if err := h.svc.Auth.DeleteUser(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
