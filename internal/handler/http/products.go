package http

import (
	"log/slog"
	"net/http"

	"github.com/AlwanWZ/shophub/internal/catalog"
	"github.com/AlwanWZ/shophub/internal/engine"
	"github.com/AlwanWZ/shophub/internal/session"
	"github.com/AlwanWZ/shophub/pkg/httputil"
	"github.com/AlwanWZ/shophub/pkg/pagination"
)

// ProductHandler serves the session's product list.
type ProductHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(sessions *session.Manager, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{sessions: sessions, logger: logger}
}

// ListProducts handles GET /api/v1/products?q=&category=&page=&per_page=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pagination.FromRequest(r)

	var list ProductList
	err := h.sessions.With(r.Context(), sessionID(r), func(e *engine.Engine) error {
		all := e.Catalog().Products()
		matched := catalog.InCategory(catalog.Filter(all, q.Get("q")), q.Get("category"))

		views := make([]ProductView, len(matched))
		for i, p := range matched {
			views[i] = productView(e, p)
		}
		list = ProductList{
			Page:       pagination.Slice(views, page),
			Categories: catalog.Categories(all),
		}
		if list.Categories == nil {
			list.Categories = []string{}
		}
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, list)
}
