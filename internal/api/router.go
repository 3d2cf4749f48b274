package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/loupe-ai/loupe/internal/metrics"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Store          ReportStore
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Version        string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(deps.AllowedOrigins))
	}
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	reports := newReportsHandler(deps.Store, deps.Metrics)

	// Service info.
	r.Get("/", rootHandler(deps.Version))

	// Health check.
	r.Get("/health", reports.Health)

	// Report routes, one per operation.
	r.Get("/analytics/agent", reports.GetAgentMetrics)
	r.Get("/activitytimeline", reports.GetActivityTimeline)
	r.Get("/tokens-usage", reports.GetTokensUsage)
	r.Get("/total-tokens", reports.GetTotalTokens)
	r.Get("/detailed-usage", reports.GetDetailedUsage)
	r.Get("/recentmessages", reports.GetRecentMessages)

	// Debug and operational endpoints.
	r.Get("/debug/tables", reports.DebugTables)
	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.Handler())
	}

	return r
}

// rootHandler serves service info at /.
func rootHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Loupe LLM proxy analytics API",
			"version": version,
			"health":  "/health",
		})
	}
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
		)
	})
}
