package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"retail-erp-backend/internal/models"
)

// VariantRequest registers one (name, size) variant.
type VariantRequest struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Size     string          `json:"size"`
	Cost     decimal.Decimal `json:"cost"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// GradeRequest registers a product over several sizes at once. Sizes with a
// zero quantity are skipped.
type GradeRequest struct {
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Cost       decimal.Decimal `json:"cost"`
	Price      decimal.Decimal `json:"price"`
	Quantities map[string]int  `json:"quantities"`
}

// StockGroup is the per-product view: every variant sharing a name, category and price.
type StockGroup struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Total    int             `json:"total"`
	Grade    string          `json:"grade"`
}

type InventoryService struct {
	db *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db}
}

func validateProduct(name, category string, cost, price decimal.Decimal) error {
	if name == "" {
		return invalid("name is required")
	}
	if !slices.Contains(models.Categories, category) {
		return invalid("unknown category %q", category)
	}
	if cost.IsNegative() {
		return invalid("cost cannot be negative")
	}
	if !price.IsPositive() {
		return invalid("price must be greater than zero")
	}
	return nil
}

func (s *InventoryService) RegisterVariant(ctx context.Context, req VariantRequest) (*models.ProductVariant, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateProduct(req.Name, req.Category, req.Cost, req.Price); err != nil {
		return nil, err
	}
	if !slices.Contains(models.Sizes, req.Size) {
		return nil, invalid("unknown size %q", req.Size)
	}
	if req.Quantity < 0 {
		return nil, invalid("quantity cannot be negative")
	}

	variant := models.ProductVariant{
		Name:          req.Name,
		Category:      req.Category,
		Size:          req.Size,
		UnitCost:      req.Cost,
		UnitPrice:     req.Price,
		StockQuantity: req.Quantity,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createVariant(tx, &variant)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"variant_id": variant.ID, "name": variant.Name, "size": variant.Size}).Info("variant registered")
	return &variant, nil
}

func (s *InventoryService) RegisterGrade(ctx context.Context, req GradeRequest) ([]models.ProductVariant, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateProduct(req.Name, req.Category, req.Cost, req.Price); err != nil {
		return nil, err
	}

	for size := range req.Quantities {
		if !slices.Contains(models.Sizes, size) {
			return nil, invalid("unknown size %q", size)
		}
	}

	var variants []models.ProductVariant
	// Walk the reference order so the rows come out XS..One Size.
	for _, size := range models.Sizes {
		qty := req.Quantities[size]
		if qty < 0 {
			return nil, invalid("quantity for size %s cannot be negative", size)
		}
		if qty == 0 {
			continue
		}
		variants = append(variants, models.ProductVariant{
			Name:          req.Name,
			Category:      req.Category,
			Size:          size,
			UnitCost:      req.Cost,
			UnitPrice:     req.Price,
			StockQuantity: qty,
		})
	}
	if len(variants) == 0 {
		return nil, invalid("at least one size needs a quantity")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range variants {
			if err := createVariant(tx, &variants[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"name": req.Name, "sizes": len(variants)}).Info("grade registered")
	return variants, nil
}

func createVariant(tx *gorm.DB, v *models.ProductVariant) error {
	var count int64
	if err := tx.Model(&models.ProductVariant{}).
		Where("name = ? AND size = ?", v.Name, v.Size).
		Count(&count).Error; err != nil {
		return errors.Wrap(err, "check existing variant")
	}
	if count > 0 {
		return errors.Wrapf(ErrConflict, "variant %s (%s)", v.Name, v.Size)
	}

	if err := tx.Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Wrapf(ErrConflict, "variant %s (%s)", v.Name, v.Size)
		}
		return errors.Wrap(err, "insert variant")
	}
	return nil
}

// SetStock overwrites a variant's stock with a counted value.
func (s *InventoryService) SetStock(ctx context.Context, variantID uint, quantity int) (*models.ProductVariant, error) {
	if quantity < 0 {
		return nil, invalid("quantity cannot be negative")
	}

	var variant models.ProductVariant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&variant, variantID).Error; err != nil {
			return notFound(err, fmt.Sprintf("variant %d", variantID))
		}
		if err := tx.Model(&variant).Update("stock_quantity", quantity).Error; err != nil {
			return errors.Wrap(err, "update stock")
		}
		variant.StockQuantity = quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"variant_id": variantID, "stock": quantity}).Info("stock set")
	return &variant, nil
}

// AdjustStock applies stock += delta. A negative delta larger than the
// current stock is rejected with ErrInsufficientStock.
func (s *InventoryService) AdjustStock(ctx context.Context, variantID uint, delta int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return adjustStock(tx, variantID, delta)
	})
}

// adjustStock is the guarded stock update shared by the sale and cancellation
// workflows. The WHERE clause makes concurrent decrements safe without a lock.
func adjustStock(tx *gorm.DB, variantID uint, delta int) error {
	if delta == 0 {
		return nil
	}
	q := tx.Model(&models.ProductVariant{}).Where("id = ?", variantID)
	if delta < 0 {
		q = q.Where("stock_quantity >= ?", -delta)
	}
	res := q.UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return errors.Wrapf(res.Error, "adjust stock of variant %d", variantID)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var variant models.ProductVariant
	if err := tx.First(&variant, variantID).Error; err != nil {
		return notFound(err, fmt.Sprintf("variant %d", variantID))
	}
	return errors.Wrapf(ErrInsufficientStock, "%s (%s): %d in stock, %d requested",
		variant.Name, variant.Size, variant.StockQuantity, -delta)
}

func (s *InventoryService) GetVariant(ctx context.Context, variantID uint) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := s.db.WithContext(ctx).First(&variant, variantID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("variant %d", variantID))
	}
	return &variant, nil
}

func (s *InventoryService) ListVariants(ctx context.Context) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	if err := s.db.WithContext(ctx).Order("id asc").Find(&variants).Error; err != nil {
		return nil, errors.Wrap(err, "list variants")
	}
	return variants, nil
}

// ListInStock returns the variants that can be sold right now.
func (s *InventoryService) ListInStock(ctx context.Context) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	if err := s.db.WithContext(ctx).
		Where("stock_quantity > 0").
		Order("name asc, id asc").
		Find(&variants).Error; err != nil {
		return nil, errors.Wrap(err, "list variants in stock")
	}
	return variants, nil
}

// GroupedStock folds variants into one row per product, e.g. "S: 3 | M: 2".
func (s *InventoryService) GroupedStock(ctx context.Context) ([]StockGroup, error) {
	variants, err := s.ListVariants(ctx)
	if err != nil {
		return nil, err
	}
	return groupVariants(variants), nil
}

func groupVariants(variants []models.ProductVariant) []StockGroup {
	var groups []StockGroup
	index := make(map[string]int)
	grades := make(map[string][]string)

	for _, v := range variants {
		key := v.Name + "\x00" + v.Category + "\x00" + v.UnitPrice.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, StockGroup{Name: v.Name, Category: v.Category, Price: v.UnitPrice})
		}
		groups[i].Total += v.StockQuantity
		grades[key] = append(grades[key], fmt.Sprintf("%s: %d", v.Size, v.StockQuantity))
	}
	for key, i := range index {
		groups[i].Grade = strings.Join(grades[key], " | ")
	}
	return groups
}
