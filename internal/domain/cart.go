package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a user's staging list of products prior to checkout. There is at most
// one line per product.
type Cart struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user"`
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// CartItem holds the price captured when the item was last staged.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal is the snapshot price times quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Add stages quantity units of product, merging into an existing line. Stock is
// checked against everything already staged for the product.
func (c *Cart) Add(product Product, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}
	idx := c.indexOfProduct(product.ID)
	staged := 0
	if idx >= 0 {
		staged = c.Items[idx].Quantity
	}
	if quantity > product.Stock-staged {
		return fmt.Errorf("only %d units of %q available: %w", product.Stock, product.Name, ErrInsufficientStock)
	}
	if idx >= 0 {
		c.Items[idx].Quantity += quantity
		c.Items[idx].Price = product.Price
		c.Items[idx].Name = product.Name
		c.Items[idx].Image = product.Thumbnail()
	} else {
		c.Items = append(c.Items, CartItem{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Thumbnail(),
			Quantity:  quantity,
			Price:     product.Price,
		})
	}
	c.Recalculate()
	return nil
}

// SetQuantity replaces the quantity of line itemID, refreshing its snapshot
// from product.
func (c *Cart) SetQuantity(itemID string, product Product, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}
	idx := c.indexOfItem(itemID)
	if idx < 0 {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	if product.Stock < quantity {
		return fmt.Errorf("only %d units of %q available: %w", product.Stock, product.Name, ErrInsufficientStock)
	}
	c.Items[idx].Quantity = quantity
	c.Items[idx].Price = product.Price
	c.Items[idx].Name = product.Name
	c.Items[idx].Image = product.Thumbnail()
	c.Recalculate()
	return nil
}

// Item returns the line with the given id.
func (c *Cart) Item(itemID string) (CartItem, bool) {
	idx := c.indexOfItem(itemID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.Items[idx], true
}

// Remove drops line itemID. Removing an absent line is a no-op.
func (c *Cart) Remove(itemID string) {
	if idx := c.indexOfItem(itemID); idx >= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	}
	c.Recalculate()
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}

// OrderItems snapshots the lines at their staged prices.
func (c Cart) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return items
}

// Recalculate derives TotalItems and TotalPrice from the lines.
func (c *Cart) Recalculate() {
	items := 0
	total := decimal.Zero
	for _, it := range c.Items {
		items += it.Quantity
		total = total.Add(it.Subtotal())
	}
	c.TotalItems = items
	c.TotalPrice = total
}

func (c *Cart) indexOfProduct(productID string) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfItem(itemID string) int {
	for i, it := range c.Items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}
