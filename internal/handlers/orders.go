package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetOrders(c *fiber.Ctx) error {
	orders, err := h.svc.Sales.ListOrders(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) GetOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	order, err := h.svc.Sales.GetOrder(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

// CancelOrder restocks the order's items and removes it with its ledger entry.
func (h *Handler) CancelOrder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	order, err := h.svc.Sales.CancelOrder(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order cancelled successfully", "data": order})
}
