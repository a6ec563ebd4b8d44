package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/gradereport/internal/arrange"
	"github.com/pavelanni/gradereport/internal/cache"
	"github.com/pavelanni/gradereport/internal/i18n"
	"github.com/pavelanni/gradereport/internal/model"
	"github.com/pavelanni/gradereport/internal/observability"
	"github.com/pavelanni/gradereport/internal/report"
	"github.com/pavelanni/gradereport/internal/store"
)

// Config holds the handler settings that come from the command line.
type Config struct {
	// Lang is used when a request names no language.
	Lang     string
	CacheTTL time.Duration
	// MaxUploadBytes bounds an imported dataset; 0 means 32 MiB.
	MaxUploadBytes int64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	cache    cache.Cache
	config   Config
	validate *validator.Validate
	now      func() time.Time
}

// New creates a new Handler. A nil cache disables caching.
func New(s *store.Store, c cache.Cache, cfg Config) (*Handler, error) {
	if c == nil {
		c = cache.Noop{}
	}
	if cfg.Lang == "" {
		cfg.Lang = i18n.DefaultLang
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Handler{
		store:    s,
		cache:    c,
		config:   cfg,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/axes", h.handleAxes)
	r.Handle("/metrics", observability.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/reports/{format}", h.handleReport)
		r.With(requireRole(model.UserRoleAdmin)).Post("/admin/datasets", h.handleImportDataset)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.UserCount(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

type axesResponse struct {
	Axes    []arrange.AxisOption `json:"axes"`
	Formats []string             `json:"formats"`
}

func (h *Handler) handleAxes(w http.ResponseWriter, r *http.Request) {
	resp := axesResponse{Axes: arrange.AxisTable()}
	for _, f := range report.Formats {
		resp.Formats = append(resp.Formats, string(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
