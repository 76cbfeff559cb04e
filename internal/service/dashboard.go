package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"retail-erp-backend/internal/models"
)

type ChannelSales struct {
	Channel string          `json:"channel"`
	Total   decimal.Decimal `json:"total"`
}

type ProductSales struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type PaymentMethodTotal struct {
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// Summary holds the dashboard metrics and chart series.
type Summary struct {
	CashBalance    decimal.Decimal `json:"cash_balance"`
	Revenue        decimal.Decimal `json:"revenue"`
	Profit         decimal.Decimal `json:"profit"`
	UnitsInStock   int64           `json:"units_in_stock"`
	OrderCount     int64           `json:"order_count"`
	SalesByChannel []ChannelSales  `json:"sales_by_channel"`
	TopProducts    []ProductSales  `json:"top_products"`
}

type FinancialReport struct {
	TotalRevenue   decimal.Decimal      `json:"total_revenue"`
	PaymentMethods []PaymentMethodTotal `json:"payment_methods"`
}

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Summary recomputes every metric from the tables; the queries run concurrently.
func (s *DashboardService) Summary(ctx context.Context) (*Summary, error) {
	var sum Summary
	g, ctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(ctx)

	g.Go(func() error {
		var err error
		sum.CashBalance, err = sumColumn(db.Model(&models.LedgerEntry{}), "amount")
		return err
	})
	g.Go(func() error {
		var err error
		sum.Revenue, err = sumColumn(db.Model(&models.Order{}), "total_sale_amount")
		return err
	})
	g.Go(func() error {
		var err error
		sum.Profit, err = sumColumn(db.Model(&models.Order{}), "total_profit")
		return err
	})
	g.Go(func() error {
		err := db.Model(&models.ProductVariant{}).
			Select("COALESCE(SUM(stock_quantity), 0)").
			Row().Scan(&sum.UnitsInStock)
		return errors.Wrap(err, "sum stock")
	})
	g.Go(func() error {
		return errors.Wrap(db.Model(&models.Order{}).Count(&sum.OrderCount).Error, "count orders")
	})
	g.Go(func() error {
		err := db.Model(&models.Order{}).
			Select("channel, SUM(total_sale_amount) AS total").
			Group("channel").
			Order("total desc").
			Scan(&sum.SalesByChannel).Error
		for i := range sum.SalesByChannel {
			sum.SalesByChannel[i].Total = money(sum.SalesByChannel[i].Total)
		}
		return errors.Wrap(err, "sales by channel")
	})
	g.Go(func() error {
		err := db.Model(&models.OrderItem{}).
			Select("variant_name AS name, SUM(quantity) AS quantity").
			Group("variant_name").
			Order("quantity desc").
			Scan(&sum.TopProducts).Error
		return errors.Wrap(err, "top products")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &sum, nil
}

// FinancialReport totals orders dated within [start, end]; zero bounds are open.
// end is inclusive of its whole day in end's location.
func (s *DashboardService) FinancialReport(ctx context.Context, start, end time.Time) (*FinancialReport, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if !start.IsZero() {
			q = q.Where("date >= ?", start.UTC())
		}
		if !end.IsZero() {
			q = q.Where("date < ?", end.AddDate(0, 0, 1).UTC())
		}
		return q
	}

	report := FinancialReport{}
	var err error
	report.TotalRevenue, err = sumColumn(scope(s.db.WithContext(ctx).Model(&models.Order{})), "total_sale_amount")
	if err != nil {
		return nil, err
	}

	err = scope(s.db.WithContext(ctx).Model(&models.Order{})).
		Select("payment_method, SUM(total_sale_amount) AS total_amount").
		Group("payment_method").
		Order("payment_method").
		Scan(&report.PaymentMethods).Error
	if err != nil {
		return nil, errors.Wrap(err, "revenue by payment method")
	}
	for i := range report.PaymentMethods {
		report.PaymentMethods[i].TotalAmount = money(report.PaymentMethods[i].TotalAmount)
	}
	return &report, nil
}
