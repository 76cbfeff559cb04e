package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"retail-erp-backend/internal/config"
	"retail-erp-backend/internal/database"
	"retail-erp-backend/internal/handlers"
	"retail-erp-backend/internal/middleware"
	"retail-erp-backend/internal/models"
	"retail-erp-backend/internal/service"
	"retail-erp-backend/views"
)

// New builds the Fiber app: middleware, template engine, pages and the JSON API.
func New(cfg *config.AppConfig, svc *service.Services) *fiber.App {
	engine := newEngine(!cfg.IsProduction())

	app := fiber.New(fiber.Config{
		Views:                 engine,
		AppName:               "Retail ERP",
		DisableStartupMessage: cfg.IsProduction(),
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: !cfg.IsProduction(),
	}))
	app.Use(middleware.RequestID())
	if cfg.IsProduction() {
		app.Use(middleware.RequestLogger())
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path} ${error}\n",
		}))
	}
	app.Use(cors.New())
	app.Use(middleware.SQLDebug(database.SQLRecorder))

	setupRoutes(app, handlers.New(svc), svc.Auth)
	return app
}

func newEngine(reload bool) *html.Engine {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	engine.Reload(reload)

	engine.AddFunc("default", func(d interface{}, s string) interface{} {
		if s != "" {
			return s
		}
		return d
	})
	// Highlights the sidebar entry of the current page.
	engine.AddFunc("activeClass", func(currentTitle, menuTitle string) string {
		if currentTitle == menuTitle {
			return "active"
		}
		return ""
	})
	engine.AddFunc("formatCurrency", formatCurrency)
	engine.AddFunc("formatDate", func(t time.Time) string {
		return t.Local().Format("02/01/2006 15:04")
	})
	engine.AddFunc("formatDateYMD", func(t time.Time) string {
		return t.Local().Format("2006-01-02")
	})
	engine.AddFunc("formatDuration", func(d time.Duration) string {
		if d < time.Millisecond {
			return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000)
		}
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1000000)
	})
	engine.AddFunc("isNegative", func(d decimal.Decimal) bool {
		return d.IsNegative()
	})
	engine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	engine.AddFunc("json", func(v interface{}) string {
		b, err := json.Marshal(v)
		if err != nil {
			return "{}"
		}
		return string(b)
	})
	return engine
}

func formatCurrency(d decimal.Decimal) string {
	return "$ " + d.StringFixed(2)
}

// errorHandler answers API paths with JSON and everything else with the error page.
func errorHandler(c *fiber.Ctx, err error) error {
	code := handlers.StatusOf(err)

	log.WithFields(log.Fields{
		"request_id": c.Locals("requestid"),
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     code,
	}).WithError(err).Error("unhandled error")

	msg := err.Error()
	if code >= fiber.StatusInternalServerError {
		msg = http.StatusText(code)
	}

	if strings.HasPrefix(c.Path(), "/api/") || c.Get(fiber.HeaderContentType) == fiber.MIMEApplicationJSON {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Title":           "Error",
		"Error":           msg,
		"Code":            code,
		"SQLQueries":      c.Locals("SQLQueries"),
		"TotalSQLQueries": c.Locals("TotalSQLQueries"),
	})
}

func setupRoutes(app *fiber.App, h *handlers.Handler, auth *service.AuthService) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/admin")
	})
	app.Get("/login", h.LoginPage)
	app.Post("/login", h.LoginSubmit)
	app.Post("/logout", h.Logout)

	// ---------------------------------------------------------
	// PAGES
	// ---------------------------------------------------------
	pages := app.Group("/admin", middleware.PageProtected(auth))
	pages.Get("", h.DashboardPage)
	pages.Get("/pos", h.POSPage)
	pages.Post("/pos/cart", h.POSAddToCart)
	pages.Post("/pos/cart/clear", h.POSClearCart)
	pages.Post("/pos/cart/:index/remove", h.POSRemoveLine)
	pages.Post("/pos/checkout", h.POSCheckout)
	pages.Get("/orders", h.OrdersPage)
	pages.Get("/inventory", h.InventoryPage)

	adminPages := pages.Group("", middleware.RoleProtected(models.RoleAdmin))
	adminPages.Post("/inventory", h.InventoryCreate)
	adminPages.Post("/inventory/:id/stock", h.InventorySetStock)
	adminPages.Post("/orders/:id/cancel", h.OrdersCancel)
	adminPages.Get("/ledger", h.LedgerPage)
	adminPages.Post("/ledger", h.LedgerCreate)

	// ---------------------------------------------------------
	// API
	// ---------------------------------------------------------
	api := app.Group("/api/v1")

	// === PUBLIC ROUTES ===
	api.Get("/health", h.Health)
	api.Post("/login", h.Login)

	// === PROTECTED ROUTES (JWT) ===
	api.Use(middleware.JWTProtected(auth))
	api.Get("/me", h.GetProfile)

	inventory := api.Group("/inventory")
	inventory.Get("", h.GetInventory)
	inventory.Get("/grouped", h.GetGroupedInventory)
	inventory.Get("/:id", h.GetVariant)
	inventory.Post("", middleware.RoleProtected(models.RoleAdmin), h.CreateVariant)
	inventory.Post("/grade", middleware.RoleProtected(models.RoleAdmin), h.CreateGrade)
	inventory.Put("/:id/stock", middleware.RoleProtected(models.RoleAdmin), h.SetStock)

	pos := api.Group("/pos", middleware.RoleProtected(models.RoleCashier, models.RoleAdmin))
	pos.Get("/cart", h.GetCart)
	pos.Post("/cart", h.AddToCart)
	pos.Delete("/cart", h.ClearCart)
	pos.Delete("/cart/:index", h.RemoveCartLine)
	pos.Post("/checkout", h.Checkout)

	api.Get("/dashboard", h.GetDashboard)

	orders := api.Group("/orders")
	orders.Get("", h.GetOrders)
	orders.Get("/:id", h.GetOrder)
	orders.Post("/:id/cancel", middleware.RoleProtected(models.RoleAdmin), h.CancelOrder)

	admin := api.Group("", middleware.RoleProtected(models.RoleAdmin))
	admin.Get("/ledger", h.GetLedger)
	admin.Post("/ledger", h.CreateLedgerEntry)
	admin.Get("/reports/financial", h.GetFinancialReport)
	admin.Get("/users", h.GetUsers)
	admin.Post("/users", h.RegisterUser)
	admin.Put("/users/:id", h.UpdateUser)
	admin.Delete("/users/:id", h.DeleteUser)
	admin.Get("/debug/sql", h.GetSQLLogs)
	admin.Delete("/debug/sql", h.ClearSQLLogs)
}
