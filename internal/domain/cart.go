package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied on top of the subtotal.
var TaxRate = decimal.RequireFromString("0.10")

// CartLine is one product-quantity pairing. The display fields are copied from
// the product when the line is created so a restored cart can be rendered
// before the product list arrives.
type CartLine struct {
	ProductID int             `json:"id"`
	Quantity  int             `json:"quantity"`
	Title     string          `json:"title,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// NewCartLine creates a line for the given product with quantity 1.
func NewCartLine(p Product) CartLine {
	return CartLine{
		ProductID: p.ID,
		Quantity:  1,
		Title:     p.Title,
		Price:     p.Price,
		Category:  p.Category,
		Image:     p.Image,
	}
}

// MarshalJSON writes the price as a JSON number so snapshots keep the shape
// the storefront has always stored.
func (l CartLine) MarshalJSON() ([]byte, error) {
	type line CartLine
	return json.Marshal(struct {
		line
		Price json.Number `json:"price"`
	}{line: line(l), Price: json.Number(l.Price.String())})
}

// LineTotal returns price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds lines in insertion order with at most one line per product.
// Totals are always derived from the lines and never stored.
type Cart struct {
	Lines []CartLine
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{Lines: []CartLine{}}
}

// FindLineIndex returns the index of the line for productID, or -1.
func (c *Cart) FindLineIndex(productID int) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for productID, 0 when there is no line.
func (c *Cart) Quantity(productID int) int {
	if i := c.FindLineIndex(productID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// Line returns the line for productID.
func (c *Cart) Line(productID int) (CartLine, bool) {
	if i := c.FindLineIndex(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

// Subtotal returns the sum of price times quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	var count int
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// Tax returns Subtotal * TaxRate.
func (c *Cart) Tax() decimal.Decimal {
	return c.Subtotal().Mul(TaxRate)
}

// Total returns Subtotal * (1 + TaxRate).
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Mul(decimal.NewFromInt(1).Add(TaxRate))
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return &Cart{Lines: lines}
}

// MarshalJSON encodes the cart as a bare array of lines, the snapshot format
// kept in the persistence store.
func (c *Cart) MarshalJSON() ([]byte, error) {
	lines := c.Lines
	if lines == nil {
		lines = []CartLine{}
	}
	return json.Marshal(lines)
}

// UnmarshalJSON decodes a snapshot. Snapshots holding a non-positive quantity
// or two lines for the same product are rejected as malformed.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return fmt.Errorf("line for product %d has quantity %d", l.ProductID, l.Quantity)
		}
		if _, dup := seen[l.ProductID]; dup {
			return fmt.Errorf("duplicate line for product %d", l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	if lines == nil {
		lines = []CartLine{}
	}
	c.Lines = lines
	return nil
}
