// Package cart holds the in-memory order for the table currently being edited.
// It is the only place where order lines are mutated; the KOT tracker and the
// bill calculator read snapshots returned by Items.
package cart

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDiscountExceedsLine is returned when a per-item discount is larger than
// price × quantity for that line.
var ErrDiscountExceedsLine = errors.New("discount exceeds line total")

// ErrInvalidSpice is returned for spice values outside 0-100.
var ErrInvalidSpice = errors.New("spice percent must be between 0 and 100")

// MenuItem is the subset of a menu record the cart needs to add a line.
type MenuItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Item is one ordered menu line. Price is snapshotted when the line is created.
type Item struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	Note           string          `json:"note,omitempty"`
	SpicePercent   int             `json:"spicePercent,omitempty"`
	IsJain         bool            `json:"isJain,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

// SpiceLevel maps SpicePercent onto the 0-5 level scale used by the menu UI.
func (i Item) SpiceLevel() int { return i.SpicePercent / 20 }

// LineTotal is price × quantity before discounts.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FinalAmount is price × quantity − discount, floored at zero.
func (i Item) FinalAmount() decimal.Decimal {
	amt := i.LineTotal().Sub(i.DiscountAmount)
	if amt.IsNegative() {
		return decimal.Zero
	}
	return amt
}

// SpicePercentFromLevel converts a 0-5 spice level into a percentage.
func SpicePercentFromLevel(level int) int { return level * 20 }

// Options are the per-line kitchen/billing attributes editable after add.
// Nil fields are left untouched.
type Options struct {
	Note           *string
	SpicePercent   *int
	IsJain         *bool
	DiscountAmount *decimal.Decimal
}

// Cart is the ordered list of lines for one table. The zero value is an empty cart.
type Cart struct {
	items []Item
}

// New builds a cart from persisted lines, dropping any with quantity ≤ 0.
func New(items []Item) *Cart {
	c := &Cart{items: make([]Item, 0, len(items))}
	for _, it := range items {
		if it.Quantity > 0 {
			c.items = append(c.items, it)
		}
	}
	return c
}

func (c *Cart) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem increments an existing line by one or appends a new line with quantity 1.
func (c *Cart) AddItem(m MenuItem) {
	if i := c.indexOf(m.ID); i >= 0 {
		c.items[i].Quantity++
		return
	}
	c.items = append(c.items, Item{
		ID:             m.ID,
		Name:           m.Name,
		Price:          m.Price,
		Quantity:       1,
		DiscountAmount: decimal.Zero,
	})
}

// UpdateQuantity sets quantity to max(q+delta, 0); zero removes the line.
// Unknown ids are ignored.
func (c *Cart) UpdateQuantity(id string, delta int) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	q := c.items[i].Quantity + delta
	if q <= 0 {
		c.removeAt(i)
		return
	}
	c.items[i].Quantity = q
	// a smaller line may no longer cover its discount
	if c.items[i].DiscountAmount.GreaterThan(c.items[i].LineTotal()) {
		c.items[i].DiscountAmount = c.items[i].LineTotal()
	}
}

// RemoveItem deletes the line regardless of quantity. Unknown ids are ignored.
func (c *Cart) RemoveItem(id string) {
	if i := c.indexOf(id); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// SetOptions applies per-line options. It reports false when the line does not
// exist; validation errors leave the line unchanged.
func (c *Cart) SetOptions(id string, opts Options) (bool, error) {
	i := c.indexOf(id)
	if i < 0 {
		return false, nil
	}
	it := c.items[i]
	if opts.Note != nil {
		it.Note = *opts.Note
	}
	if opts.SpicePercent != nil {
		if *opts.SpicePercent < 0 || *opts.SpicePercent > 100 {
			return true, ErrInvalidSpice
		}
		it.SpicePercent = *opts.SpicePercent
	}
	if opts.IsJain != nil {
		it.IsJain = *opts.IsJain
	}
	if opts.DiscountAmount != nil {
		d := *opts.DiscountAmount
		if d.IsNegative() || d.GreaterThan(it.LineTotal()) {
			return true, ErrDiscountExceedsLine
		}
		it.DiscountAmount = d
	}
	c.items[i] = it
	return true, nil
}

// Quantity returns the current quantity for id, or 0 when absent.
func (c *Cart) Quantity(id string) int {
	if i := c.indexOf(id); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Len is the number of lines.
func (c *Cart) Len() int { return len(c.items) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Subtotal is Σ FinalAmount over all current lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.FinalAmount())
	}
	return total
}
