package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"retail-erp-backend/internal/models"
)

// CheckoutRequest carries the order header chosen at the register.
type CheckoutRequest struct {
	Customer      string    `json:"customer"`
	Channel       string    `json:"channel"`
	PaymentMethod string    `json:"payment_method"`
	Date          time.Time `json:"date"`
}

type SalesService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSalesService(db *gorm.DB) *SalesService {
	return &SalesService{db: db, now: time.Now}
}

func (s *SalesService) normalize(req *CheckoutRequest) error {
	req.Customer = strings.TrimSpace(req.Customer)
	if req.Customer == "" {
		req.Customer = models.DefaultCustomer
	}
	if !slices.Contains(models.Channels, req.Channel) {
		return invalid("unknown channel %q", req.Channel)
	}
	if !slices.Contains(models.PaymentMethods, req.PaymentMethod) {
		return invalid("unknown payment method %q", req.PaymentMethod)
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	// Dates are stored in UTC.
	req.Date = req.Date.UTC()
	return nil
}

// Checkout turns the cart into a completed order in a single transaction:
// order row, line items, guarded stock decrements and the Sale ledger credit.
// The cart is cleared only after the transaction commits.
func (s *SalesService) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest) (*models.Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	for _, l := range cart.Lines {
		if l.Quantity < 1 {
			return nil, invalid("line for %s (%s) has quantity %d", l.Name, l.Size, l.Quantity)
		}
	}
	if err := s.normalize(&req); err != nil {
		return nil, err
	}

	total := cart.Total()
	order := models.Order{
		Date:            req.Date,
		Customer:        req.Customer,
		Channel:         req.Channel,
		TotalSaleAmount: total,
		TotalProfit:     total.Sub(cart.TotalCost()),
		Status:          models.OrderCompleted,
		PaymentMethod:   req.PaymentMethod,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The insert itself yields the id (RETURNING / last insert id).
		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return errors.Wrap(err, "insert order")
		}

		for _, l := range cart.Lines {
			item := models.OrderItem{
				OrderID:     order.ID,
				VariantID:   l.VariantID,
				VariantName: l.Name,
				Size:        l.Size,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				UnitCost:    l.UnitCost,
			}
			if err := tx.Create(&item).Error; err != nil {
				return errors.Wrap(err, "insert order item")
			}
			if err := adjustStock(tx, l.VariantID, -l.Quantity); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		entry := models.LedgerEntry{
			Date:        order.Date,
			Type:        models.LedgerSale,
			Description: saleDescription(order.ID, order.Customer),
			Amount:      total,
			OrderID:     &order.ID,
		}
		if err := tx.Omit("Order").Create(&entry).Error; err != nil {
			return errors.Wrap(err, "insert sale ledger entry")
		}
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("lines", len(cart.Lines)).Warn("checkout failed")
		return nil, err
	}

	cart.Clear()
	log.WithFields(log.Fields{
		"order_id": order.ID,
		"total":    order.TotalSaleAmount.StringFixed(2),
		"profit":   order.TotalProfit.StringFixed(2),
		"channel":  order.Channel,
	}).Info("sale completed")
	return &order, nil
}

func saleDescription(orderID uint, customer string) string {
	return fmt.Sprintf("Sale #%d - %s", orderID, customer)
}

// CancelOrder reverses a sale in one transaction: stock is restored, the
// order's ledger entries, line items and the order itself are deleted.
// It returns the order as it was before removal.
func (s *SalesService) CancelOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return notFound(err, fmt.Sprintf("order %d", orderID))
		}

		for _, item := range order.Items {
			if err := adjustStock(tx, item.VariantID, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.LedgerEntry{}).Error; err != nil {
			return errors.Wrap(err, "delete sale ledger entries")
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return errors.Wrap(err, "delete order items")
		}
		if err := tx.Delete(&models.Order{}, order.ID).Error; err != nil {
			return errors.Wrap(err, "delete order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": order.ID,
		"refund":   order.TotalSaleAmount.StringFixed(2),
		"items":    len(order.Items),
	}).Info("order cancelled")
	return &order, nil
}

func (s *SalesService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("order %d", orderID))
	}
	return &order, nil
}

// ListOrders returns orders newest first with their line items.
func (s *SalesService) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Preload("Items").Order("id desc").Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}
