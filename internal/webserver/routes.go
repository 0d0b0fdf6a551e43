package webserver

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/spboyer/promptaudit/internal/dashboard"
)

//go:embed static/index.html
var indexHTML []byte

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// AlertsResponse is the body of GET /api/alerts.
type AlertsResponse struct {
	Active  []dashboard.Alert `json:"active"`
	History []dashboard.Alert `json:"history"`
}

type handlers struct {
	d       *dashboard.Dashboard
	version string
}

func newRouter(cfg Config) http.Handler {
	h := &handlers{d: cfg.Dashboard, version: cfg.Version}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.AllowedOrigins...))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/summary", h.summary)
		r.Get("/snapshot", h.snapshot)
		r.Get("/targets", h.targets)
		r.Get("/metrics/{type}", h.metrics)
		r.Get("/alerts", h.alerts)
		r.Post("/alerts/{id}/resolve", h.resolve)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "not found")
		})
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML) //nolint:errcheck
	})
	return r
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

func (h *handlers) summary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Analyzer.Analyze())
}

func (h *handlers) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Snapshot())
}

func (h *handlers) targets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Analyzer.Targets())
}

// metrics serves the points of one metric type. Query parameters: limit
// (positive integer) and since (RFC 3339).
func (h *handlers) metrics(w http.ResponseWriter, r *http.Request) {
	t, err := dashboard.ParseMetricType(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}
	var since time.Time
	if v := q.Get("since"); v != "" {
		since, err = time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
	}
	pts := h.d.Collector.Metrics(t, limit, since)
	if pts == nil {
		pts = []dashboard.Metric{}
	}
	writeJSON(w, http.StatusOK, pts)
}

func (h *handlers) alerts(w http.ResponseWriter, r *http.Request) {
	limit := dashboard.SnapshotHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, AlertsResponse{
		Active:  nonNil(h.d.Alerts.Active()),
		History: nonNil(h.d.Alerts.History(limit)),
	})
}

func (h *handlers) resolve(w http.ResponseWriter, r *http.Request) {
	if !h.d.Alerts.Resolve(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "alert not active")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(a []dashboard.Alert) []dashboard.Alert {
	if a == nil {
		return []dashboard.Alert{}
	}
	return a
}

// corsMiddleware sets CORS headers for allowed origins. With no allowed
// origins only same-origin requests are served.
func corsMiddleware(allowedOrigins ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
