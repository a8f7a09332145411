package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the aggregate root for one user's shopping cart. All mutations go
// through the methods below, which keep the totals and line subtotals in sync
// with the items. There is at most one cart per user, enforced by a unique
// index on user_id in the store.
type Cart struct {
	ID             string          `json:"id,omitempty"`
	UserID         string          `json:"userId"`
	Items          []CartItem      `json:"items"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	TotalItemCount int             `json:"totalItemCount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type CartItem struct {
	ProductID       int64           `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductImageRef string          `json:"productImageRef"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        int             `json:"quantity"`
	LineSubtotal    decimal.Decimal `json:"lineSubtotal"`
	AddedAt         time.Time       `json:"addedAt"`
}

func NewCart(userID string) *Cart {
	now := time.Now()
	return &Cart{
		UserID:      userID,
		Items:       []CartItem{},
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddItem merges the item into the cart. If an item with the same product_id
// already exists its quantity is increased and the subtotal recomputed from
// the stored unit price; the incoming snapshot's price, name and image are
// discarded. Display and price data are first-write-wins.
func (c *Cart) AddItem(item CartItem) {
	existing := c.findItem(item.ProductID)
	if existing != nil {
		existing.Quantity += item.Quantity
		existing.LineSubtotal = existing.UnitPrice.Mul(decimal.NewFromInt(int64(existing.Quantity)))
	} else {
		item.LineSubtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		c.Items = append(c.Items, item)
	}
	c.recomputeTotals()
	c.UpdatedAt = time.Now()
}

// UpdateItemQuantity sets the quantity of the matching item and recomputes
// its subtotal. A quantity of zero or less removes the item. Returns false
// when no item with the given product_id exists.
func (c *Cart) UpdateItemQuantity(productID int64, quantity int) bool {
	item := c.findItem(productID)
	if item == nil {
		return false
	}
	if quantity <= 0 {
		return c.RemoveItem(productID)
	}
	item.Quantity = quantity
	item.LineSubtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	c.recomputeTotals()
	c.UpdatedAt = time.Now()
	return true
}

// RemoveItem deletes the matching item. Returns false when the item was not
// present; callers that require presence must check the result.
func (c *Cart) RemoveItem(productID int64) bool {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.recomputeTotals()
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.recomputeTotals()
	c.UpdatedAt = time.Now()
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) HasItem(productID int64) bool {
	return c.findItem(productID) != nil
}

func (c *Cart) findItem(productID int64) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// recomputeTotals recalculates total_amount and total_item_count from the
// items. Decimal arithmetic, never floats; money must not drift.
func (c *Cart) recomputeTotals() {
	total := decimal.Zero
	count := 0
	for _, item := range c.Items {
		total = total.Add(item.LineSubtotal)
		count += item.Quantity
	}
	c.TotalAmount = total
	c.TotalItemCount = count
}
