// Package service holds the ERP workflows: inventory, cart and checkout,
// cancellation, cash ledger, dashboard aggregation and operator accounts.
// Every multi-table write runs inside one database transaction.
package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Services bundles the workflows shared by the HTTP handlers and the CLI.
type Services struct {
	Inventory *InventoryService
	Sales     *SalesService
	Ledger    *LedgerService
	Dashboard *DashboardService
	Auth      *AuthService
	Carts     *CartStore

	db *gorm.DB
}

func New(db *gorm.DB, jwtSecret string) *Services {
	return &Services{
		Inventory: NewInventoryService(db),
		Sales:     NewSalesService(db),
		Ledger:    NewLedgerService(db),
		Dashboard: NewDashboardService(db),
		Auth:      NewAuthService(db, jwtSecret),
		Carts:     NewCartStore(),
		db:        db,
	}
}

// Ping checks that the database still answers.
func (s *Services) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "get database instance")
	}
	return errors.Wrap(sqlDB.PingContext(ctx), "ping database")
}
