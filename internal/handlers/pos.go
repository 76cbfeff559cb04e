package handlers

import (
	"github.com/gofiber/fiber/v2"

	"retail-erp-backend/internal/models"
	"retail-erp-backend/internal/service"
)

type AddToCartRequest struct {
	VariantID uint `json:"variant_id"`
	Quantity  int  `json:"quantity"`
}

type cartResponse struct {
	service.Cart
	Total string `json:"total"`
}

func newCartResponse(cart service.Cart) cartResponse {
	if cart.Lines == nil {
		cart.Lines = []service.CartLine{}
	}
	return cartResponse{Cart: cart, Total: cart.Total().StringFixed(2)}
}

// GetCart returns the current operator's cart.
func (h *Handler) GetCart(c *fiber.Ctx) error {
	return c.JSON(newCartResponse(h.svc.Carts.Get(currentUser(c))))
}

func (h *Handler) AddToCart(c *fiber.Ctx) error {
	var req AddToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	cart, err := h.svc.Carts.Update(currentUser(c), func(cart *service.Cart) error {
		_, err := h.svc.Inventory.AddToCart(c.UserContext(), cart, req.VariantID, req.Quantity)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newCartResponse(cart))
}

func (h *Handler) RemoveCartLine(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return badRequest(c, "Invalid line index")
	}

	cart, err := h.svc.Carts.Update(currentUser(c), func(cart *service.Cart) error {
		return cart.RemoveLine(index)
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(newCartResponse(cart))
}

func (h *Handler) ClearCart(c *fiber.Ctx) error {
	h.svc.Carts.Clear(currentUser(c))
	return c.JSON(newCartResponse(service.Cart{}))
}

// Checkout sells the operator's cart. On failure the cart is kept as it was.
func (h *Handler) Checkout(c *fiber.Ctx) error {
	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	var order *models.Order
	_, err := h.svc.Carts.Update(currentUser(c), func(cart *service.Cart) error {
		var err error
		order, err = h.svc.Sales.Checkout(c.UserContext(), cart, req)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}
