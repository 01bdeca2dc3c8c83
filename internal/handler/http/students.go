package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/AlwanWZ/shophub/internal/students"
	"github.com/AlwanWZ/shophub/pkg/httputil"
	"github.com/AlwanWZ/shophub/pkg/logger"
	"github.com/AlwanWZ/shophub/pkg/pagination"
)

// proxyErrorBody is the fixed body of a failed proxy call.
var proxyErrorBody = map[string]string{"message": "Error fetching data"}

// StudentSource is the records upstream. *students.Client satisfies it.
type StudentSource interface {
	Raw(ctx context.Context) (json.RawMessage, error)
	List(ctx context.Context) ([]students.Student, error)
}

// StudentHandler serves the student-records proxy and dashboard.
type StudentHandler struct {
	source StudentSource
	logger *slog.Logger
}

// NewStudentHandler creates a new student HTTP handler.
func NewStudentHandler(source StudentSource, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{source: source, logger: logger}
}

// Proxy handles GET /api/proxy. The upstream JSON is relayed verbatim with
// status 200; any failure gives 500 with a fixed message. The response is
// not wrapped in the API envelope.
func (h *StudentHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	body, err := h.source.Raw(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).WarnContext(r.Context(), "student proxy fetch failed",
			slog.String("error", err.Error()),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, proxyErrorBody)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ListStudents handles GET /api/v1/students?q=&tab=&page=&per_page=
func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tab, err := students.ParseTab(q.Get("tab"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	records, err := h.source.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	matched := students.Filter(records, q.Get("q"), tab)
	views := make([]StudentView, len(matched))
	for i, s := range matched {
		views[i] = studentView(s)
	}

	httputil.WriteData(w, http.StatusOK, StudentList{
		Stats:    students.Summarize(records),
		Tab:      tab,
		Students: pagination.Slice(views, pagination.FromRequest(r)),
	})
}
