package http

import (
	"github.com/AlwanWZ/shophub/internal/domain"
	"github.com/AlwanWZ/shophub/internal/engine"
	"github.com/AlwanWZ/shophub/internal/students"
	"github.com/AlwanWZ/shophub/pkg/pagination"
	"github.com/AlwanWZ/shophub/pkg/slug"
)

// --- Request DTOs ---

// StartSessionRequest is the optional body of POST /api/v1/sessions.
type StartSessionRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

// AddItemRequest is the JSON request body for adding one unit to the cart.
// Any id is accepted; unknown ones are rejected by the engine.
type AddItemRequest struct {
	ProductID *int `json:"product_id" validate:"required"`
}

// SetQuantityRequest is the JSON request body for setting a line quantity.
// Out-of-range values are accepted and clamped.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Response DTOs ---

// CartLineView is a cart line as rendered by the storefront.
type CartLineView struct {
	ProductID int    `json:"product_id"`
	Title     string `json:"title"`
	Category  string `json:"category,omitempty"`
	Image     string `json:"image,omitempty"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	MaxStock  int    `json:"max_stock"`
	Available int    `json:"available"`
	LineTotal string `json:"line_total"`
}

// CartView is the full cart with its derived totals.
type CartView struct {
	Lines     []CartLineView `json:"lines"`
	ItemCount int            `json:"item_count"`
	Subtotal  string         `json:"subtotal"`
	Tax       string         `json:"tax"`
	Total     string         `json:"total"`
}

// ProductView is a catalog entry with its session stock state.
type ProductView struct {
	ID           int            `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     string         `json:"category"`
	CategorySlug string         `json:"category_slug"`
	Image        string         `json:"image"`
	Price        string         `json:"price"`
	Rating       *domain.Rating `json:"rating,omitempty"`
	Stock        int            `json:"stock"`
	InCart       int            `json:"in_cart"`
	Available    int            `json:"available"`
	OutOfStock   bool           `json:"out_of_stock"`
}

// ProductList is one page of products plus the categories on offer.
type ProductList struct {
	pagination.Page[ProductView]
	Categories []string `json:"categories"`
}

// Notice is a non-fatal message attached to a successful quantity change.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LineResult is returned by cart mutations that touch a single line.
type LineResult struct {
	Line    CartLineView `json:"line"`
	Notices []Notice     `json:"notices"`
	Cart    CartView     `json:"cart"`
}

// AvailabilityView answers how many more units may be added.
type AvailabilityView struct {
	ProductID  int  `json:"product_id"`
	InCart     int  `json:"in_cart"`
	Available  int  `json:"available"`
	OutOfStock bool `json:"out_of_stock"`
}

// SessionView is returned when a session starts.
type SessionView struct {
	SessionID string   `json:"session_id"`
	Cart      CartView `json:"cart"`
}

// StudentView is a student record with its parsed score and band.
type StudentView struct {
	students.Student
	Parsed        *int          `json:"score"`
	Band          students.Band `json:"band,omitempty"`
	NeedsGuidance bool          `json:"needs_guidance"`
}

// StudentList is the dashboard payload.
type StudentList struct {
	Stats    students.Stats               `json:"stats"`
	Tab      students.Tab                 `json:"tab"`
	Students pagination.Page[StudentView] `json:"students"`
}

// --- Mapping ---

func lineView(e *engine.Engine, l domain.CartLine) CartLineView {
	return CartLineView{
		ProductID: l.ProductID,
		Title:     l.Title,
		Category:  l.Category,
		Image:     l.Image,
		Price:     l.Price.StringFixed(2),
		Quantity:  l.Quantity,
		MaxStock:  e.Catalog().Quota(l.ProductID),
		Available: max(e.AvailableStock(l.ProductID), 0),
		LineTotal: l.LineTotal().StringFixed(2),
	}
}

func cartView(e *engine.Engine) CartView {
	cart := e.Cart()
	lines := make([]CartLineView, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = lineView(e, l)
	}
	return CartView{
		Lines:     lines,
		ItemCount: e.ItemCount(),
		Subtotal:  e.Subtotal().StringFixed(2),
		Tax:       e.Tax().StringFixed(2),
		Total:     e.Total().StringFixed(2),
	}
}

func productView(e *engine.Engine, p domain.Product) ProductView {
	return ProductView{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		Category:     p.Category,
		CategorySlug: slug.Generate(p.Category),
		Image:        p.Image,
		Price:        p.Price.StringFixed(2),
		Rating:       p.Rating,
		Stock:        p.Stock,
		InCart:       e.Quantity(p.ID),
		Available:    e.AvailableStock(p.ID),
		OutOfStock:   e.IsOutOfStock(p.ID),
	}
}

func studentView(s students.Student) StudentView {
	v := StudentView{Student: s}
	if score, ok := s.Score(); ok {
		v.Parsed = &score
		v.Band = students.BandFor(score)
		v.NeedsGuidance = score <= students.HighPointsThreshold
	}
	return v
}
