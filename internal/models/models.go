package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==========================================
// INVENTORY
// ==========================================

// ProductVariant is one product at one size, the unit of stock tracking.
// A "product" is the set of variants sharing a Name.
type ProductVariant struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null;uniqueIndex:idx_variant_name_size" json:"name"`
	Category      string          `gorm:"not null" json:"category"`
	Size          string          `gorm:"not null;uniqueIndex:idx_variant_name_size" json:"size"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ==========================================
// ORDERS
// ==========================================

type OrderStatus string

const OrderCompleted OrderStatus = "Completed"

type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Date            time.Time       `gorm:"not null;index" json:"date"`
	Customer        string          `gorm:"not null" json:"customer"`
	Channel         string          `gorm:"not null;index" json:"channel"`
	TotalSaleAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_sale_amount"`
	TotalProfit     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_profit"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null" json:"status"`
	PaymentMethod   string          `gorm:"not null" json:"payment_method"`
	CreatedAt       time.Time       `json:"created_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// OrderItem is owned by its order. VariantID is kept for restocking but is not
// a foreign key: the name, size and prices are snapshotted at sale time.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	VariantID   uint            `gorm:"not null;index" json:"variant_id"`
	VariantName string          `gorm:"not null" json:"variant_name"`
	Size        string          `gorm:"not null" json:"size"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
}

// LineTotal is Quantity * UnitPrice.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ==========================================
// CASH LEDGER
// ==========================================

type LedgerType string

const (
	LedgerSale         LedgerType = "Sale"
	LedgerManualCredit LedgerType = "ManualCredit"
	LedgerManualDebit  LedgerType = "ManualDebit"
)

// LedgerEntry is a signed cash movement. Sale entries point at their order.
type LedgerEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Type        LedgerType      `gorm:"type:varchar(20);not null" json:"type"`
	Description string          `gorm:"not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	OrderID     *uint           `gorm:"index" json:"order_id,omitempty"`
	Order       *Order          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
}

// ==========================================
// AUTH & USERS
// ==========================================

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier
}

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"not null;unique" json:"username"`
	// Stored in column password_hash; never serialized.
	Password string `gorm:"column:password_hash;not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null" json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// All returns every model managed by the schema manager, parents first.
func All() []interface{} {
	return []interface{}{
		&ProductVariant{},
		&Order{},
		&OrderItem{},
		&LedgerEntry{},
		&User{},
	}
}
