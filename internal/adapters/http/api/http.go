// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/upshot/internal/domain/fetch"
	"github.com/okian/upshot/internal/domain/imagekey"
	"github.com/okian/upshot/internal/domain/model"
	"github.com/okian/upshot/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Record adds one hit for key. Failures are logged, never shown to clients.
	Record(ctx context.Context, key imagekey.Key) (int64, error)

	// Fetch retrieves key from the remote under the retry policy.
	Fetch(ctx context.Context, key imagekey.Key) fetch.Result

	// Counts returns every counter row ordered by key.
	Counts(ctx context.Context) ([]model.HitCount, error)

	// Snapshot returns the raw key -> count mapping.
	Snapshot(ctx context.Context) (map[string]int64, error)
}

// Server wires HTTP routes for the proxy.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	imageHandler     *ImageHandler
	dashboardHandler *DashboardHandler
}

// ServerOption configures NewServer.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger logger.Logger
}

// WithLogger sets the logger handlers write to.
func WithLogger(l logger.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}

	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		imageHandler:     NewImageHandler(deps, o.logger),
		dashboardHandler: NewDashboardHandler(deps, o.logger),
	}
}

// Register attaches all HTTP routes to r. The catch-all image route goes last.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.Use(RequestIDMiddleware)

	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/dashboard", redirectToSlash).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard")).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/analytics.json", MetricsMiddleware(s.dashboardHandler.HandleAnalytics, "analytics")).Methods(http.MethodGet)

	r.HandleFunc("/screenshot.php", MetricsMiddleware(s.imageHandler.HandleImage, "image")).Methods(http.MethodGet)
	r.HandleFunc("/{file}", MetricsMiddleware(s.imageHandler.HandleImage, "image")).Methods(http.MethodGet)
}

// redirectToSlash sends /dashboard to /dashboard/ so relative image links resolve
// against the site root.
func redirectToSlash(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Path + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeText writes a plain-text body, the format proxy clients expect.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
