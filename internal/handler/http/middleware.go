package http

import (
	"net/http"
	"strings"

	apperrors "github.com/AlwanWZ/shophub/pkg/errors"
	"github.com/AlwanWZ/shophub/pkg/httputil"
	"github.com/AlwanWZ/shophub/pkg/logger"
	"github.com/AlwanWZ/shophub/pkg/middleware"
)

// RequireSession rejects requests without an X-Session-ID header with 401
// and stores the session id in the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(middleware.SessionIDHeader))
		if id == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized(middleware.SessionIDHeader+" header is required"), nil)
			return
		}
		ctx := logger.WithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the id stored by RequireSession.
func sessionID(r *http.Request) string {
	return logger.SessionIDFromContext(r.Context())
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
