package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"retail-erp-backend/internal/middleware"
	"retail-erp-backend/internal/models"
	"retail-erp-backend/internal/service"
)

const adminLayout = "layouts/admin"

// render fills the fields every admin page reads from the layout.
func (h *Handler) render(c *fiber.Ctx, view, title, description string, data fiber.Map) error {
	_, role, _ := middleware.GetUserFromContext(c)
	bind := fiber.Map{
		"Title":           title + " | Retail ERP",
		"PageTitle":       title,
		"PageDescription": description,
		"Role":            role,
		"IsAdmin":         role == models.RoleAdmin,
		"Notice":          c.Query("notice"),
		"Error":           c.Query("error"),
	}
	for k, v := range data {
		bind[k] = v
	}
	return c.Render(view, bind, adminLayout)
}

func formDecimal(c *fiber.Ctx, key string) (decimal.Decimal, error) {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", "."))
	if err != nil {
		return decimal.Zero, errors.Wrapf(service.ErrValidation, "%s must be a number", key)
	}
	return d, nil
}

func formDate(c *fiber.Ctx, key string) (time.Time, error) {
	return parseDate(strings.TrimSpace(c.FormValue(key)), key)
}

// ==========================================
// LOGIN
// ==========================================

func (h *Handler) LoginPage(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{
		"Title": "Sign in | Retail ERP",
		"Error": c.Query("error"),
	})
}

func (h *Handler) LoginSubmit(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return redirectWith(c, "/login", service.ErrInvalidCredentials, "")
	}

	resp, err := h.svc.Auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return redirectWith(c, "/login", err, "")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    resp.Token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return c.Redirect("/admin")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(middleware.TokenCookie)
	return c.Redirect("/login")
}

// ==========================================
// DASHBOARD
// ==========================================

func (h *Handler) DashboardPage(c *fiber.Ctx) error {
	summary, err := h.svc.Dashboard.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return h.render(c, "admin/dashboard", "Dashboard", "Cash, sales and stock at a glance", fiber.Map{
		"Summary": summary,
	})
}

// ==========================================
// INVENTORY
// ==========================================

func (h *Handler) InventoryPage(c *fiber.Ctx) error {
	groups, err := h.svc.Inventory.GroupedStock(c.UserContext())
	if err != nil {
		return err
	}
	variants, err := h.svc.Inventory.ListVariants(c.UserContext())
	if err != nil {
		return err
	}
	return h.render(c, "admin/inventory", "Inventory", "Register products by size grade and count stock", fiber.Map{
		"Groups":     groups,
		"Variants":   variants,
		"Categories": models.Categories,
		"Sizes":      models.Sizes,
	})
}

// InventoryCreate registers a product grade from the qty_<size> fields.
func (h *Handler) InventoryCreate(c *fiber.Ctx) error {
	req := service.GradeRequest{
		Name:       c.FormValue("name"),
		Category:   c.FormValue("category"),
		Quantities: map[string]int{},
	}
	var err error
	if req.Cost, err = formDecimal(c, "cost"); err != nil {
		return redirectWith(c, "/admin/inventory", err, "")
	}
	if req.Price, err = formDecimal(c, "price"); err != nil {
		return redirectWith(c, "/admin/inventory", err, "")
	}
	for _, size := range models.Sizes {
		qty, err := formInt(c, "qty_"+size)
		if err != nil {
			return redirectWith(c, "/admin/inventory", err, "")
		}
		if qty != 0 {
			req.Quantities[size] = qty
		}
	}

	variants, err := h.svc.Inventory.RegisterGrade(c.UserContext(), req)
	if err != nil {
		return redirectWith(c, "/admin/inventory", err, "")
	}
	return redirectWith(c, "/admin/inventory", nil, req.Name+" registered in "+pluralSizes(len(variants)))
}

func pluralSizes(n int) string {
	if n == 1 {
		return "1 size"
	}
	return fmt.Sprintf("%d sizes", n)
}

func (h *Handler) InventorySetStock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return redirectWith(c, "/admin/inventory", err, "")
	}
	qty, err := formInt(c, "quantity")
	if err != nil {
		return redirectWith(c, "/admin/inventory", err, "")
	}

	variant, err := h.svc.Inventory.SetStock(c.UserContext(), id, qty)
	if err != nil {
		return redirectWith(c, "/admin/inventory", err, "")
	}
	return redirectWith(c, "/admin/inventory", nil, "Stock of "+variant.Name+" ("+variant.Size+") updated")
}

// ==========================================
// POINT OF SALE
// ==========================================

func (h *Handler) POSPage(c *fiber.Ctx) error {
	variants, err := h.svc.Inventory.ListInStock(c.UserContext())
	if err != nil {
		return err
	}
	cart := h.svc.Carts.Get(currentUser(c))
	return h.render(c, "admin/pos", "Point of Sale", "Build the cart and close the sale", fiber.Map{
		"Variants":       variants,
		"Cart":           cart,
		"CartTotal":      cart.Total(),
		"Channels":       models.Channels,
		"PaymentMethods": models.PaymentMethods,
		"Today":          time.Now().Format(dateLayout),
	})
}

func (h *Handler) POSAddToCart(c *fiber.Ctx) error {
	variantID, err := formInt(c, "variant_id")
	if err != nil {
		return redirectWith(c, "/admin/pos", err, "")
	}
	qty, err := formInt(c, "quantity")
	if err != nil {
		return redirectWith(c, "/admin/pos", err, "")
	}
	if variantID <= 0 {
		return redirectWith(c, "/admin/pos", errors.Wrap(service.ErrValidation, "choose a product"), "")
	}

	_, err = h.svc.Carts.Update(currentUser(c), func(cart *service.Cart) error {
		_, err := h.svc.Inventory.AddToCart(c.UserContext(), cart, uint(variantID), qty)
		return err
	})
	if err != nil {
		return redirectWith(c, "/admin/pos", err, "")
	}
	return c.Redirect("/admin/pos")
}

func (h *Handler) POSRemoveLine(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return redirectWith(c, "/admin/pos", errors.Wrap(service.ErrValidation, "invalid line"), "")
	}
	_, err = h.svc.Carts.Update(currentUser(c), func(cart *service.Cart) error {
		return cart.RemoveLine(index)
	})
	if err != nil {
		return redirectWith(c, "/admin/pos", err, "")
	}
	return c.Redirect("/admin/pos")
}

func (h *Handler) POSClearCart(c *fiber.Ctx) error {
	h.svc.Carts.Clear(currentUser(c))
	return c.Redirect("/admin/pos")
}

func (h *Handler) POSCheckout(c *fiber.Ctx) error {
	date, err := formDate(c, "date")
	if err != nil {
		return redirectWith(c, "/admin/pos", err, "")
	}
	// A sale dated today keeps the clock time.
	if date.Format(dateLayout) == time.Now().Format(dateLayout) {
		date = time.Time{}
	}
	req := service.CheckoutRequest{
		Customer:      c.FormValue("customer"),
		Channel:       c.FormValue("channel"),
		PaymentMethod: c.FormValue("payment_method"),
		Date:          date,
	}

	var order *models.Order
	_, err = h.svc.Carts.Update(currentUser(c), func(cart *service.Cart) error {
		var err error
		order, err = h.svc.Sales.Checkout(c.UserContext(), cart, req)
		return err
	})
	if err != nil {
		return redirectWith(c, "/admin/pos", err, "")
	}
	return redirectWith(c, "/admin/pos", nil,
		fmt.Sprintf("Sale #%d completed: %s", order.ID, order.TotalSaleAmount.StringFixed(2)))
}

// ==========================================
// ORDERS
// ==========================================

func (h *Handler) OrdersPage(c *fiber.Ctx) error {
	orders, err := h.svc.Sales.ListOrders(c.UserContext())
	if err != nil {
		return err
	}
	return h.render(c, "admin/orders", "Orders", "Completed sales, newest first", fiber.Map{
		"Orders": orders,
	})
}

func (h *Handler) OrdersCancel(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return redirectWith(c, "/admin/orders", err, "")
	}
	order, err := h.svc.Sales.CancelOrder(c.UserContext(), id)
	if err != nil {
		return redirectWith(c, "/admin/orders", err, "")
	}
	return redirectWith(c, "/admin/orders", nil,
		fmt.Sprintf("Order #%d cancelled and items returned to stock", order.ID))
}

// ==========================================
// CASH LEDGER
// ==========================================

func (h *Handler) LedgerPage(c *fiber.Ctx) error {
	entries, err := h.svc.Ledger.ListEntries(c.UserContext())
	if err != nil {
		return err
	}
	balance, err := h.svc.Ledger.Balance(c.UserContext())
	if err != nil {
		return err
	}
	return h.render(c, "admin/ledger", "Cash Ledger", "Sales and manual cash movements", fiber.Map{
		"Entries": entries,
		"Balance": balance,
		"Today":   time.Now().Format(dateLayout),
	})
}

func (h *Handler) LedgerCreate(c *fiber.Ctx) error {
	amount, err := formDecimal(c, "amount")
	if err != nil {
		return redirectWith(c, "/admin/ledger", err, "")
	}
	date, err := formDate(c, "date")
	if err != nil {
		return redirectWith(c, "/admin/ledger", err, "")
	}

	entry, err := h.svc.Ledger.RecordManualEntry(c.UserContext(), service.ManualEntryRequest{
		Amount:    amount,
		Reason:    c.FormValue("reason"),
		Direction: service.Direction(c.FormValue("direction")),
		Date:      date,
	})
	if err != nil {
		return redirectWith(c, "/admin/ledger", err, "")
	}
	return redirectWith(c, "/admin/ledger", nil, "Recorded "+entry.Amount.StringFixed(2))
}
