package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-erp-backend/internal/config"
	"retail-erp-backend/internal/database/dbtest"
	"retail-erp-backend/internal/middleware"
	"retail-erp-backend/internal/models"
	"retail-erp-backend/internal/service"
)

type testServer struct {
	app *fiber.App
	svc *service.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	svc := service.New(dbtest.New(t), "test-secret")
	require.NoError(t, svc.Auth.EnsureOperator(context.Background(), "admin", "admin-pass"))
	_, err := svc.Auth.RegisterUser(context.Background(), service.UserRequest{
		Username: "cashier", Password: "cashier-pass", Role: models.RoleCashier,
	})
	require.NoError(t, err)

	app := New(&config.AppConfig{Environment: "production"}, svc)
	return &testServer{app: app, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/v1/login", "", models.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string)
}

func TestHealthAndLogin(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Running", body["status"])
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	resp, body = s.do(t, http.MethodPost, "/api/v1/login", "", models.LoginRequest{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["error"])

	resp, _ = s.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := s.login(t, "admin", "admin-pass")
	resp, body = s.do(t, http.MethodGet, "/api/v1/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin", body["username"])
	assert.NotContains(t, body, "password")
}

func TestRoleChecks(t *testing.T) {
	s := newTestServer(t)
	cashier := s.login(t, "cashier", "cashier-pass")

	resp, _ := s.do(t, http.MethodGet, "/api/v1/ledger", cashier, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/inventory", cashier, service.VariantRequest{Name: "Shirt"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/pos/cart", cashier, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSaleLifecycleOverAPI(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", "admin-pass")
	cashier := s.login(t, "cashier", "cashier-pass")

	resp, body := s.do(t, http.MethodPost, "/api/v1/inventory", admin, map[string]interface{}{
		"name": "Shirt", "category": "Clothing", "size": "M", "cost": "10.00", "price": "25.00", "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	variantID := body["id"].(float64)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/inventory", admin, map[string]interface{}{
		"name": "Shirt", "category": "Clothing", "size": "M", "cost": "10.00", "price": "25.00", "quantity": 5,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/pos/cart", cashier, map[string]interface{}{"variant_id": variantID, "quantity": 6})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/pos/checkout", cashier, map[string]interface{}{"channel": "Store", "payment_method": "Cash"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty cart")

	resp, body = s.do(t, http.MethodPost, "/api/v1/pos/cart", cashier, map[string]interface{}{"variant_id": variantID, "quantity": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "50.00", body["total"])

	resp, _ = s.do(t, http.MethodGet, "/api/v1/pos/cart", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/v1/pos/checkout", cashier, map[string]interface{}{"channel": "Store", "payment_method": "Cash"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["id"].(float64)
	assert.Equal(t, "50", body["total_sale_amount"])
	assert.Equal(t, "30", body["total_profit"])

	resp, body = s.do(t, http.MethodGet, "/api/v1/pos/cart", cashier, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.00", body["total"])

	resp, body = s.do(t, http.MethodGet, "/api/v1/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "50", body["cash_balance"])
	assert.EqualValues(t, 3, body["units_in_stock"])

	resp, _ = s.do(t, http.MethodPost, "/api/v1/orders/999/cancel", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/orders/"+formatID(orderID)+"/cancel", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/v1/inventory/"+formatID(variantID), cashier, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 5, body["stock_quantity"])

	resp, body = s.do(t, http.MethodGet, "/api/v1/ledger", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", body["balance"])
}

func formatID(id float64) string {
	return strconv.FormatFloat(id, 'f', 0, 64)
}

func TestFinancialReportRejectsBadDate(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin", "admin-pass")

	resp, body := s.do(t, http.MethodGet, "/api/v1/reports/financial?start_date=01-02-2026", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid start_date format. Use YYYY-MM-DD", body["error"])

	resp, body = s.do(t, http.MethodGet, "/api/v1/reports/financial?start_date=2026-01-01&end_date=2026-01-31", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", body["total_revenue"])
}

func TestPagesRequireLogin(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))

	form := url.Values{"username": {"admin"}, "password": {"admin-pass"}}
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/admin", resp.Header.Get(fiber.HeaderLocation))

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookie {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	for _, path := range []string{"/admin", "/admin/pos", "/admin/orders", "/admin/inventory", "/admin/ledger"} {
		req = httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
		resp, err = s.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestPageFormsRedirectWithFlash(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin-pass")

	post := func(path string, form url.Values) *http.Response {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
		resp, err := s.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		return resp
	}

	resp := post("/admin/inventory", url.Values{
		"name": {"Dress"}, "category": {"Clothing"}, "cost": {"30"}, "price": {"79,90"},
		"qty_S": {"3"}, "qty_L": {"1"},
	})
	assert.Contains(t, resp.Header.Get(fiber.HeaderLocation), "notice=")

	groups, err := s.svc.Inventory.GroupedStock(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "S: 3 | L: 1", groups[0].Grade)

	resp = post("/admin/ledger", url.Values{"direction": {"debit"}, "amount": {"0"}, "reason": {"Bags"}})
	assert.Contains(t, resp.Header.Get(fiber.HeaderLocation), "error=")

	resp = post("/admin/ledger", url.Values{"direction": {"debit"}, "amount": {"12.50"}, "reason": {"Bags"}})
	assert.Contains(t, resp.Header.Get(fiber.HeaderLocation), "notice=")

	balance, err := s.svc.Ledger.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "-12.5", balance.String())

	resp = post("/admin/pos/checkout", url.Values{"channel": {"Store"}, "payment_method": {"Cash"}})
	assert.Contains(t, resp.Header.Get(fiber.HeaderLocation), "error=cart+is+empty")
}
