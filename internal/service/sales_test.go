package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-erp-backend/internal/models"
	"retail-erp-backend/internal/service"
)

var storeCash = service.CheckoutRequest{Channel: "Store", PaymentMethod: "Cash"}

func TestShirtScenario(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	shirt := registerShirt(t, svc, "M", 5)
	require.Equal(t, 5, stockOf(t, svc, shirt.ID))
	balanceBefore, err := svc.Ledger.Balance(ctx)
	require.NoError(t, err)

	var cart service.Cart
	_, err = svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 2)
	require.NoError(t, err)

	order, err := svc.Sales.Checkout(ctx, &cart, storeCash)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	requireDecimal(t, "50.00", order.TotalSaleAmount)
	requireDecimal(t, "30.00", order.TotalProfit)
	assert.Equal(t, models.OrderCompleted, order.Status)
	assert.Equal(t, models.DefaultCustomer, order.Customer)
	assert.Equal(t, 3, stockOf(t, svc, shirt.ID))

	balance, err := svc.Ledger.Balance(ctx)
	require.NoError(t, err)
	requireDecimal(t, "50.00", balance.Sub(balanceBefore))

	entries, err := svc.Ledger.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerSale, entries[0].Type)
	require.NotNil(t, entries[0].OrderID)
	assert.Equal(t, order.ID, *entries[0].OrderID)
	assert.Equal(t, "Sale #1 - Walk-in", entries[0].Description)

	cancelled, err := svc.Sales.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, cancelled.ID)
	assert.Equal(t, 5, stockOf(t, svc, shirt.ID))

	balance, err = svc.Ledger.Balance(ctx)
	require.NoError(t, err)
	requireDecimal(t, "0", balance.Sub(balanceBefore))

	assert.Zero(t, count(t, db, &models.Order{}))
	assert.Zero(t, count(t, db, &models.OrderItem{}))
	assert.Zero(t, count(t, db, &models.LedgerEntry{}))

	_, err = svc.Sales.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCheckoutConservesStock(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	s := registerShirt(t, svc, "S", 4)
	m := registerShirt(t, svc, "M", 7)
	l := registerShirt(t, svc, "L", 1)

	sales := []map[uint]int{
		{s.ID: 1, m.ID: 2},
		{m.ID: 3, l.ID: 1},
		{s.ID: 3, m.ID: 1},
	}
	sold := map[uint]int{}
	for _, lines := range sales {
		var cart service.Cart
		for id, qty := range lines {
			_, err := svc.Inventory.AddToCart(ctx, &cart, id, qty)
			require.NoError(t, err)
			sold[id] += qty
		}
		_, err := svc.Sales.Checkout(ctx, &cart, storeCash)
		require.NoError(t, err)
	}

	assert.Equal(t, 4-sold[s.ID], stockOf(t, svc, s.ID))
	assert.Equal(t, 7-sold[m.ID], stockOf(t, svc, m.ID))
	assert.Equal(t, 1-sold[l.ID], stockOf(t, svc, l.ID))
}

func TestCheckoutProfitIsExact(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	hat, err := svc.Inventory.RegisterVariant(ctx, service.VariantRequest{
		Name: "Cap", Category: "Accessories", Size: "One Size", Cost: dec("3.30"), Price: dec("9.90"), Quantity: 10,
	})
	require.NoError(t, err)
	shirt := registerShirt(t, svc, "M", 5)

	var cart service.Cart
	_, err = svc.Inventory.AddToCart(ctx, &cart, hat.ID, 3)
	require.NoError(t, err)
	_, err = svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 1)
	require.NoError(t, err)

	order, err := svc.Sales.Checkout(ctx, &cart, service.CheckoutRequest{
		Customer: "Ana", Channel: "Online", PaymentMethod: "Pix",
		Date: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// 3*9.90 + 25.00 = 54.70; cost 3*3.30 + 10.00 = 19.90
	requireDecimal(t, "54.70", order.TotalSaleAmount)
	requireDecimal(t, "34.80", order.TotalProfit)
	require.Len(t, order.Items, 2)

	stored, err := svc.Sales.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.Customer)
	require.Len(t, stored.Items, 2)
	requireDecimal(t, "29.70", stored.Items[0].LineTotal())
}

func TestCheckoutEmptyCartWritesNothing(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	_, err := svc.Sales.Checkout(ctx, &service.Cart{}, storeCash)
	assert.ErrorIs(t, err, service.ErrEmptyCart)

	_, err = svc.Sales.Checkout(ctx, nil, storeCash)
	assert.ErrorIs(t, err, service.ErrEmptyCart)

	assert.Zero(t, count(t, db, &models.Order{}))
	assert.Zero(t, count(t, db, &models.LedgerEntry{}))
}

func TestCheckoutValidatesHeader(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	shirt := registerShirt(t, svc, "M", 5)

	var cart service.Cart
	_, err := svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 1)
	require.NoError(t, err)

	_, err = svc.Sales.Checkout(ctx, &cart, service.CheckoutRequest{Channel: "Fax", PaymentMethod: "Cash"})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = svc.Sales.Checkout(ctx, &cart, service.CheckoutRequest{Channel: "Store", PaymentMethod: "Barter"})
	assert.ErrorIs(t, err, service.ErrValidation)

	assert.False(t, cart.IsEmpty())
	assert.Zero(t, count(t, db, &models.Order{}))
}

func TestAddToCartRejectsMoreThanStock(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	shirt := registerShirt(t, svc, "M", 3)

	var cart service.Cart
	_, err := svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 4)
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	_, err = svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 2)
	require.NoError(t, err)
	_, err = svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 2)
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	_, err = svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 0)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Inventory.AddToCart(ctx, &cart, 999, 1)
	assert.ErrorIs(t, err, service.ErrNotFound)

	assert.Len(t, cart.Lines, 1)
}

func TestCartSnapshotsPrice(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	shirt := registerShirt(t, svc, "M", 3)

	var cart service.Cart
	_, err := svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 1)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.ProductVariant{}).Where("id = ?", shirt.ID).
		Update("unit_price", dec("99.00")).Error)

	order, err := svc.Sales.Checkout(ctx, &cart, storeCash)
	require.NoError(t, err)
	requireDecimal(t, "25.00", order.TotalSaleAmount)
}

func TestCheckoutRollsBackWhenStockRanOut(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	s := registerShirt(t, svc, "S", 5)
	m := registerShirt(t, svc, "M", 2)

	var cart service.Cart
	_, err := svc.Inventory.AddToCart(ctx, &cart, s.ID, 2)
	require.NoError(t, err)
	_, err = svc.Inventory.AddToCart(ctx, &cart, m.ID, 2)
	require.NoError(t, err)

	// Another register sold one M in the meantime.
	_, err = svc.Inventory.SetStock(ctx, m.ID, 1)
	require.NoError(t, err)

	_, err = svc.Sales.Checkout(ctx, &cart, storeCash)
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	assert.Len(t, cart.Lines, 2, "cart is kept for a retry")
	assert.Equal(t, 5, stockOf(t, svc, s.ID), "first line decrement was rolled back")
	assert.Equal(t, 1, stockOf(t, svc, m.ID))
	assert.Zero(t, count(t, db, &models.Order{}))
	assert.Zero(t, count(t, db, &models.OrderItem{}))
	assert.Zero(t, count(t, db, &models.LedgerEntry{}))
}

func TestCancelOrder(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	t.Run("Fail on unknown order", func(t *testing.T) {
		_, err := svc.Sales.CancelOrder(ctx, 42)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("Only the cancelled order is removed", func(t *testing.T) {
		shirt := registerShirt(t, svc, "M", 10)
		var first, second *models.Order
		for _, target := range []**models.Order{&first, &second} {
			var cart service.Cart
			_, err := svc.Inventory.AddToCart(ctx, &cart, shirt.ID, 2)
			require.NoError(t, err)
			*target, err = svc.Sales.Checkout(ctx, &cart, storeCash)
			require.NoError(t, err)
		}
		require.Equal(t, 6, stockOf(t, svc, shirt.ID))

		_, err := svc.Sales.CancelOrder(ctx, first.ID)
		require.NoError(t, err)

		assert.Equal(t, 8, stockOf(t, svc, shirt.ID))
		orders, err := svc.Sales.ListOrders(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, second.ID, orders[0].ID)
		assert.Equal(t, int64(1), count(t, db, &models.LedgerEntry{}))
	})

	t.Run("Restock adds to a manually edited count", func(t *testing.T) {
		hat, err := svc.Inventory.RegisterVariant(ctx, service.VariantRequest{
			Name: "Cap", Category: "Accessories", Size: "One Size", Price: dec("5"), Quantity: 4,
		})
		require.NoError(t, err)
		var cart service.Cart
		_, err = svc.Inventory.AddToCart(ctx, &cart, hat.ID, 3)
		require.NoError(t, err)
		order, err := svc.Sales.Checkout(ctx, &cart, storeCash)
		require.NoError(t, err)

		_, err = svc.Inventory.SetStock(ctx, hat.ID, 0)
		require.NoError(t, err)
		_, err = svc.Sales.CancelOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stockOf(t, svc, hat.ID))
	})
}
