package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"retail-erp-backend/internal/models"
)

// CartLine captures a variant's price and cost at the moment it was added, so
// later price edits do not change a cart that is already being rung up.
type CartLine struct {
	VariantID uint            `json:"variant_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Cart is the transient, per-session list of lines awaiting checkout.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// TotalCost is Σ quantity × unit cost.
func (c *Cart) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// QuantityOf sums the quantity already in the cart for a variant.
func (c *Cart) QuantityOf(variantID uint) int {
	n := 0
	for _, l := range c.Lines {
		if l.VariantID == variantID {
			n += l.Quantity
		}
	}
	return n
}

// RemoveLine drops the line at index.
func (c *Cart) RemoveLine(index int) error {
	if index < 0 || index >= len(c.Lines) {
		return invalid("cart has no line %d", index)
	}
	c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) clone() Cart {
	return Cart{Lines: append([]CartLine(nil), c.Lines...)}
}

// AddToCart appends a line for variantID. The cumulative quantity of that
// variant in the cart may not exceed its current stock.
func (s *InventoryService) AddToCart(ctx context.Context, cart *Cart, variantID uint, quantity int) (*CartLine, error) {
	if quantity < 1 {
		return nil, invalid("quantity must be at least 1")
	}

	variant, err := s.GetVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if inCart := cart.QuantityOf(variantID); inCart+quantity > variant.StockQuantity {
		return nil, errors.Wrapf(ErrInsufficientStock, "%s (%s): %d in stock, %d already in cart, %d requested",
			variant.Name, variant.Size, variant.StockQuantity, inCart, quantity)
	}

	line := newCartLine(variant, quantity)
	cart.Lines = append(cart.Lines, line)
	return &line, nil
}

func newCartLine(v *models.ProductVariant, quantity int) CartLine {
	return CartLine{
		VariantID: v.ID,
		Name:      v.Name,
		Size:      v.Size,
		Quantity:  quantity,
		UnitPrice: v.UnitPrice,
		UnitCost:  v.UnitCost,
		LineTotal: v.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// CartStore keeps one cart per operator for the lifetime of the process.
// Changes to one operator's cart are serialized; different operators do not
// wait on each other.
type CartStore struct {
	mu    sync.Mutex
	carts map[uint]*heldCart
}

type heldCart struct {
	mu   sync.Mutex
	cart Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[uint]*heldCart)}
}

func (s *CartStore) held(owner uint) *heldCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.carts[owner]
	if !ok {
		h = &heldCart{}
		s.carts[owner] = h
	}
	return h
}

// Get returns a copy of the owner's cart.
func (s *CartStore) Get(owner uint) Cart {
	h := s.held(owner)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cart.clone()
}

// Update runs fn on a copy of the owner's cart while holding that owner's
// lock and stores the copy only when fn succeeds. It returns the cart as
// stored afterwards.
func (s *CartStore) Update(owner uint, fn func(*Cart) error) (Cart, error) {
	h := s.held(owner)
	h.mu.Lock()
	defer h.mu.Unlock()

	cart := h.cart.clone()
	if err := fn(&cart); err != nil {
		return h.cart.clone(), err
	}
	h.cart = cart.clone()
	return cart, nil
}

// Clear empties the owner's cart.
func (s *CartStore) Clear(owner uint) {
	_, _ = s.Update(owner, func(c *Cart) error {
		c.Clear()
		return nil
	})
}
