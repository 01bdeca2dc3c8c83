package domain

import "github.com/shopspring/decimal"

// Rating is the upstream review summary shown next to a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog entry as seen by a single session. Stock is the
// session's purchase ceiling and does not change once the session starts.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
	Stock       int             `json:"stock"`
}

// OutOfStock reports whether the product can never be added to a cart this
// session, regardless of what the cart already holds.
func (p Product) OutOfStock() bool {
	return p.Stock <= 0
}

// Catalog is the read-only product set of a session, keyed by product ID and
// remembering the upstream order.
type Catalog struct {
	order []int
	byID  map[int]Product
}

// NewCatalog builds a catalog from an ordered product list. Later duplicates of
// an ID are ignored so the first upstream entry wins.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		order: make([]int, 0, len(products)),
		byID:  make(map[int]Product, len(products)),
	}
	for _, p := range products {
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		if p.Stock < 0 {
			p.Stock = 0
		}
		c.order = append(c.order, p.ID)
		c.byID[p.ID] = p
	}
	return c
}

// Lookup returns the product with the given ID.
func (c *Catalog) Lookup(id int) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Quota returns the stock ceiling for a product, or 0 for unknown products.
func (c *Catalog) Quota(id int) int {
	return c.byID[id].Stock
}

// Products returns the catalog contents in upstream order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}
