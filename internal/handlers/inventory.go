package handlers

import (
	"github.com/gofiber/fiber/v2"

	"retail-erp-backend/internal/service"
)

// SetStockRequest overwrites a variant's stock with a counted value.
type SetStockRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) GetInventory(c *fiber.Ctx) error {
	var (
		variants interface{}
		err      error
	)
	if c.QueryBool("in_stock") {
		variants, err = h.svc.Inventory.ListInStock(c.UserContext())
	} else {
		variants, err = h.svc.Inventory.ListVariants(c.UserContext())
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(variants)
}

// GetGroupedInventory returns one row per product with its size grade.
func (h *Handler) GetGroupedInventory(c *fiber.Ctx) error {
	groups, err := h.svc.Inventory.GroupedStock(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(groups)
}

func (h *Handler) GetVariant(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	variant, err := h.svc.Inventory.GetVariant(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(variant)
}

// CreateVariant registers a single (name, size) variant.
func (h *Handler) CreateVariant(c *fiber.Ctx) error {
	var req service.VariantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	variant, err := h.svc.Inventory.RegisterVariant(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(variant)
}

// CreateGrade registers one product across several sizes.
func (h *Handler) CreateGrade(c *fiber.Ctx) error {
	var req service.GradeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	variants, err := h.svc.Inventory.RegisterGrade(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(variants)
}

func (h *Handler) SetStock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}

	var req SetStockRequest
	if err := c.BodyParser(&req); err != nil || req.Quantity == nil {
		return badRequest(c, "Invalid request body")
	}

	variant, err := h.svc.Inventory.SetStock(c.UserContext(), id, *req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(variant)
}
