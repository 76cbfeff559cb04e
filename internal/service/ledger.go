package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"retail-erp-backend/internal/models"
)

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// ManualEntryRequest records cash coming in or going out outside of a sale.
// Amount is always positive; Direction decides the sign.
type ManualEntryRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Direction Direction       `json:"direction"`
	Date      time.Time       `json:"date"`
}

type LedgerService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db, now: time.Now}
}

func (s *LedgerService) RecordManualEntry(ctx context.Context, req ManualEntryRequest) (*models.LedgerEntry, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if !req.Amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}
	if req.Reason == "" {
		return nil, invalid("reason is required")
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	req.Date = req.Date.UTC()

	entry := models.LedgerEntry{Date: req.Date, Description: req.Reason}
	switch req.Direction {
	case Credit:
		entry.Type = models.LedgerManualCredit
		entry.Amount = req.Amount
	case Debit:
		entry.Type = models.LedgerManualDebit
		entry.Amount = req.Amount.Neg()
	default:
		return nil, invalid("direction must be credit or debit, got %q", req.Direction)
	}

	if err := s.db.WithContext(ctx).Omit("Order").Create(&entry).Error; err != nil {
		return nil, errors.Wrap(err, "insert ledger entry")
	}

	log.WithFields(log.Fields{"entry_id": entry.ID, "type": entry.Type, "amount": entry.Amount.StringFixed(2)}).Info("ledger entry recorded")
	return &entry, nil
}

// ListEntries returns ledger entries newest first.
func (s *LedgerService) ListEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := s.db.WithContext(ctx).Order("date desc, id desc").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "list ledger entries")
	}
	return entries, nil
}

// Balance is the sum of every signed ledger amount.
func (s *LedgerService) Balance(ctx context.Context) (decimal.Decimal, error) {
	return sumColumn(s.db.WithContext(ctx).Model(&models.LedgerEntry{}), "amount")
}

// sumColumn scans COALESCE(SUM(column), 0) from q into a decimal rounded to cents.
func sumColumn(q *gorm.DB, column string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := q.Select("COALESCE(SUM(" + column + "), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, errors.Wrapf(err, "sum %s", column)
	}
	return money(total), nil
}

// money rounds an aggregate to cents. SQLite keeps decimal columns as REAL,
// so its SUM carries binary float error.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
