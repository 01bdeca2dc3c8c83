package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/AlwanWZ/shophub/internal/engine"
	"github.com/AlwanWZ/shophub/internal/session"
	"github.com/AlwanWZ/shophub/pkg/httputil"
	"github.com/AlwanWZ/shophub/pkg/logger"
	"github.com/AlwanWZ/shophub/pkg/middleware"
	"github.com/AlwanWZ/shophub/pkg/validator"
)

// SessionHandler starts and ends storefront sessions.
type SessionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// StartSession handles POST /api/v1/sessions. The id is taken from the body,
// then the X-Session-ID header; without either a new one is generated.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if r.ContentLength != 0 {
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = strings.TrimSpace(r.Header.Get(middleware.SessionIDHeader))
	}

	id, err := h.sessions.Start(r.Context(), req.SessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	ctx := logger.WithSessionID(r.Context(), id)
	view := SessionView{SessionID: id}
	err = h.sessions.With(ctx, id, func(e *engine.Engine) error {
		view.Cart = cartView(e)
		return nil
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set(middleware.SessionIDHeader, id)
	httputil.WriteData(w, http.StatusOK, view)
}

// EndSession handles DELETE /api/v1/sessions
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), sessionID(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"status": "ended"})
}
