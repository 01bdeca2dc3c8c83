package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlwanWZ/shophub/internal/engine"
	"github.com/AlwanWZ/shophub/internal/session"
	"github.com/AlwanWZ/shophub/pkg/httputil"
	"github.com/AlwanWZ/shophub/pkg/validator"
)

// Cart operations as reported in events and metrics.
const (
	opAddOne      = "add_one"
	opSetQuantity = "set_quantity"
	opRemove      = "remove"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(sessions *session.Manager, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	var view CartView
	err := h.sessions.With(r.Context(), sessionID(r), func(e *engine.Engine) error {
		view = cartView(e)
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	var result LineResult
	err := h.sessions.Mutate(r.Context(), sessionID(r), opAddOne, func(e *engine.Engine) error {
		line, err := e.AddOne(r.Context(), *req.ProductID)
		if err != nil {
			return cartError(err)
		}
		result = LineResult{Line: lineView(e, line), Notices: []Notice{}, Cart: cartView(e)}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// SetQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseIntParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	var result LineResult
	err := h.sessions.Mutate(r.Context(), sessionID(r), opSetQuantity, func(e *engine.Engine) error {
		res, err := e.SetQuantity(r.Context(), productID, *req.Quantity)
		if err != nil {
			return cartError(err)
		}
		result = LineResult{Line: lineView(e, res.Line), Notices: notices(res.Notices), Cart: cartView(e)}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseIntParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var view CartView
	err := h.sessions.Mutate(r.Context(), sessionID(r), opRemove, func(e *engine.Engine) error {
		e.Remove(r.Context(), productID)
		view = cartView(e)
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// Available handles GET /api/v1/cart/items/{productId}/available
func (h *CartHandler) Available(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseIntParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var view AvailabilityView
	err := h.sessions.With(r.Context(), sessionID(r), func(e *engine.Engine) error {
		view = AvailabilityView{
			ProductID:  productID,
			InCart:     e.Quantity(productID),
			Available:  e.AvailableStock(productID),
			OutOfStock: e.IsOutOfStock(productID),
		}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}
