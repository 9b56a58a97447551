package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/okian/upshot/internal/domain/model"
	"github.com/okian/upshot/pkg/logger"
)

// dashboardPage is the data the dashboard template renders.
type dashboardPage struct {
	Inline bool
	Rows   []model.HitCount
}

// DashboardHandler renders the counter store.
type DashboardHandler struct {
	deps   Dependencies
	tmpl   *template.Template
	logger logger.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps Dependencies, l logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		deps:   deps,
		tmpl:   dashboardTemplate,
		logger: l,
	}
}

// HandleDashboard handles GET /dashboard/. The presence of the inline query
// parameter, with any value, switches to image mode.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard"
	ctx := r.Context()

	rows, err := h.deps.Counts(ctx)
	if err != nil {
		h.logger.Error(ctx, "dashboard read failed", logger.Error(WrapKind(op, ErrStore, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	page := dashboardPage{
		Inline: r.URL.Query().Has("inline"),
		Rows:   rows,
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, page); err != nil {
		h.logger.Error(ctx, "dashboard render failed", logger.Error(WrapKind(op, ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleAnalytics handles GET /dashboard/analytics.json with the raw mapping.
func (h *DashboardHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "api.analytics"
	ctx := r.Context()

	snap, err := h.deps.Snapshot(ctx)
	if err != nil {
		h.logger.Error(ctx, "analytics read failed", logger.Error(WrapKind(op, ErrStore, err)))
		writeError(w, http.StatusInternalServerError, "store_unavailable", NewKind(op, ErrStore))
		return
	}
	if snap == nil {
		snap = map[string]int64{}
	}
	writeJSON(w, http.StatusOK, snap)
}
