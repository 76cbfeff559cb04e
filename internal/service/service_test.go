package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"retail-erp-backend/internal/database/dbtest"
	"retail-erp-backend/internal/models"
	"retail-erp-backend/internal/service"
)

func setup(t *testing.T) (*service.Services, *gorm.DB) {
	db := dbtest.New(t)
	return service.New(db, "test-secret"), db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func registerShirt(t *testing.T, svc *service.Services, size string, qty int) *models.ProductVariant {
	t.Helper()
	v, err := svc.Inventory.RegisterVariant(context.Background(), service.VariantRequest{
		Name:     "Shirt",
		Category: "Clothing",
		Size:     size,
		Cost:     dec("10.00"),
		Price:    dec("25.00"),
		Quantity: qty,
	})
	require.NoError(t, err)
	return v
}

func stockOf(t *testing.T, svc *service.Services, id uint) int {
	t.Helper()
	v, err := svc.Inventory.GetVariant(context.Background(), id)
	require.NoError(t, err)
	return v.StockQuantity
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
