// Package engine implements the stock-bounded cart. An Engine owns one cart and
// the product set it was started with. Every mutation is applied synchronously
// and followed by a snapshot write through the Store port.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/AlwanWZ/shophub/internal/domain"
	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
)

var cartOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Total number of cart engine operations by outcome",
	},
	[]string{"operation", "outcome"},
)

// Store is the persistence port for a single cart.
type Store interface {
	// Load returns the persisted cart. It returns an error wrapping
	// apperrors.ErrNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*domain.Cart, error)

	// Save replaces the persisted cart with the given snapshot.
	Save(ctx context.Context, cart *domain.Cart) error
}

// SetResult is the outcome of SetQuantity. Notices are non-fatal: the clamped
// quantity has already been applied when they are reported.
type SetResult struct {
	Line    domain.CartLine
	Notices []*domain.CartError
}

// Engine is the cart consistency engine for one session. It is not safe for
// concurrent use; callers serialize access per session.
type Engine struct {
	catalog *domain.Catalog
	cart    *domain.Cart
	store   Store
	logger  *slog.Logger
}

// New creates an engine with an empty cart.
func New(catalog *domain.Catalog, store Store, logger *slog.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		cart:    domain.NewCart(),
		store:   store,
		logger:  logger,
	}
}

// Restore creates an engine from the persisted snapshot. A missing or
// unreadable snapshot gives an empty cart. The restored cart is reconciled
// against the catalog quotas and saved again if that changed it.
func Restore(ctx context.Context, catalog *domain.Catalog, store Store, logger *slog.Logger) *Engine {
	e := New(catalog, store, logger)

	cart, err := store.Load(ctx)
	switch {
	case err == nil && cart != nil:
		e.cart = cart
	case err == nil, errors.Is(err, apperrors.ErrNotFound):
	default:
		logger.WarnContext(ctx, "discarding unreadable cart snapshot",
			slog.String("error", err.Error()),
		)
	}

	if e.reconcile() {
		logger.InfoContext(ctx, "restored cart reconciled against current stock",
			slog.Int("lines", len(e.cart.Lines)),
		)
		e.persist(ctx)
	}

	return e
}

// reconcile enforces the quantity ceiling on a restored cart. Lines above
// their quota are clamped, lines whose product has no stock are dropped and
// lines for products missing from the catalog are left untouched.
func (e *Engine) reconcile() bool {
	changed := false
	kept := e.cart.Lines[:0]
	for _, line := range e.cart.Lines {
		p, ok := e.catalog.Lookup(line.ProductID)
		if !ok {
			kept = append(kept, line)
			continue
		}
		if p.Stock <= 0 {
			changed = true
			continue
		}
		if line.Quantity > p.Stock {
			line.Quantity = p.Stock
			changed = true
		}
		kept = append(kept, line)
	}
	e.cart.Lines = kept
	return changed
}

// AddOne adds a single unit of a product, creating its line if needed.
func (e *Engine) AddOne(ctx context.Context, productID int) (domain.CartLine, error) {
	p, ok := e.catalog.Lookup(productID)
	if !ok {
		cartOperationsTotal.WithLabelValues("add_one", "unknown_product").Inc()
		return domain.CartLine{}, domain.UnknownProduct(productID)
	}

	current := e.cart.Quantity(productID)
	if current >= p.Stock {
		cartOperationsTotal.WithLabelValues("add_one", "stock_exceeded").Inc()
		return domain.CartLine{}, domain.StockExceeded(productID, p.Stock)
	}

	i := e.cart.FindLineIndex(productID)
	if i < 0 {
		e.cart.Lines = append(e.cart.Lines, domain.NewCartLine(p))
		i = len(e.cart.Lines) - 1
	} else {
		e.cart.Lines[i].Quantity = current + 1
	}
	line := e.cart.Lines[i]

	e.persist(ctx)
	cartOperationsTotal.WithLabelValues("add_one", "ok").Inc()

	e.logger.DebugContext(ctx, "cart line incremented",
		slog.Int("product_id", productID),
		slog.Int("quantity", line.Quantity),
	)

	return line, nil
}

// SetQuantity sets the quantity of an existing line, clamped to [1, quota].
// Clamping is reported through SetResult.Notices and never fails the call.
func (e *Engine) SetQuantity(ctx context.Context, productID, requested int) (SetResult, error) {
	i := e.cart.FindLineIndex(productID)
	p, ok := e.catalog.Lookup(productID)
	if i < 0 || !ok {
		cartOperationsTotal.WithLabelValues("set_quantity", "unknown_product").Inc()
		return SetResult{}, domain.UnknownProduct(productID)
	}

	effective := requested
	var notices []*domain.CartError
	switch {
	case requested < 1:
		effective = 1
		notices = append(notices, domain.BelowMinimum(productID, p.Stock))
	case requested > p.Stock:
		effective = p.Stock
		notices = append(notices, domain.StockExceeded(productID, p.Stock))
	}
	// A zero quota leaves no valid quantity; the line keeps the minimum of 1
	// and the caller is expected to remove it.
	if effective < 1 {
		effective = 1
	}

	e.cart.Lines[i].Quantity = effective
	e.persist(ctx)

	outcome := "ok"
	if len(notices) > 0 {
		outcome = "clamped"
	}
	cartOperationsTotal.WithLabelValues("set_quantity", outcome).Inc()

	return SetResult{Line: e.cart.Lines[i], Notices: notices}, nil
}

// Remove deletes the line for a product. Removing an absent line is a no-op.
func (e *Engine) Remove(ctx context.Context, productID int) {
	if i := e.cart.FindLineIndex(productID); i >= 0 {
		e.cart.Lines = append(e.cart.Lines[:i], e.cart.Lines[i+1:]...)
	}
	e.persist(ctx)
	cartOperationsTotal.WithLabelValues("remove", "ok").Inc()
}

// AvailableStock returns how many more units of a product may be added.
// Unknown products report 0.
func (e *Engine) AvailableStock(productID int) int {
	p, ok := e.catalog.Lookup(productID)
	if !ok {
		return 0
	}
	return p.Stock - e.cart.Quantity(productID)
}

// IsOutOfStock reports whether a product has no stock at all this session.
// Unknown products are treated as out of stock.
func (e *Engine) IsOutOfStock(productID int) bool {
	p, ok := e.catalog.Lookup(productID)
	return !ok || p.OutOfStock()
}

// Quantity returns the quantity held for a product.
func (e *Engine) Quantity(productID int) int {
	return e.cart.Quantity(productID)
}

// Subtotal returns the cart subtotal.
func (e *Engine) Subtotal() decimal.Decimal { return e.cart.Subtotal() }

// ItemCount returns the number of units in the cart.
func (e *Engine) ItemCount() int { return e.cart.ItemCount() }

// Tax returns the tax on the subtotal.
func (e *Engine) Tax() decimal.Decimal { return e.cart.Tax() }

// Total returns subtotal plus tax.
func (e *Engine) Total() decimal.Decimal { return e.cart.Total() }

// Cart returns a copy of the current cart.
func (e *Engine) Cart() *domain.Cart {
	return e.cart.Clone()
}

// Catalog returns the product set the engine was started with.
func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog
}

// persist writes the full snapshot. Failures are logged and swallowed; the
// in-memory cart stays authoritative for the session.
func (e *Engine) persist(ctx context.Context) {
	if err := e.store.Save(ctx, e.cart.Clone()); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist cart snapshot",
			slog.Int("lines", len(e.cart.Lines)),
			slog.String("error", err.Error()),
		)
	}
}
