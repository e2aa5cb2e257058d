// Package cart implements the shopping cart, coupon handling, totals,
// and the simulated checkout state machine.
package cart

import "github.com/underskin/storefront/internal/catalog"

// Item is one product line in the cart.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Cart is an insertion-ordered list of items with at most one item per
// product. Quantities never exceed the product's stock. Cart is not safe
// for concurrent use; Machine serializes access.
type Cart struct {
	items []Item
}

func (c *Cart) index(productID string) int {
	for i, it := range c.items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart, merging with an existing line.
// When no more stock is available the cart is left unchanged and an
// error notice is returned.
func (c *Cart) Add(p catalog.Product) Notice {
	if i := c.index(p.ID); i >= 0 {
		if c.items[i].Quantity >= c.items[i].Product.Stock {
			return failure(msgInsufficientStock)
		}
		c.items[i].Quantity++
		return addedNotice(p.Name)
	}
	if !p.InStock() {
		return failure(msgInsufficientStock)
	}
	c.items = append(c.items, Item{Product: p, Quantity: 1})
	return addedNotice(p.Name)
}

// UpdateQuantity adds delta to a line's quantity when the result stays
// within [1, stock]. It reports whether the change was applied. It never
// removes a line.
func (c *Cart) UpdateQuantity(productID string, delta int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	q := c.items[i].Quantity + delta
	if q < 1 || q > c.items[i].Product.Stock {
		return false
	}
	c.items[i].Quantity = q
	return true
}

// Remove drops the line for productID, if any.
func (c *Cart) Remove(productID string) Notice {
	if i := c.index(productID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
	return info(msgRemoved)
}

// Quantity returns the quantity held for productID.
func (c *Cart) Quantity(productID string) int {
	if i := c.index(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}
