package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/loupe-ai/loupe/internal/analytics"
	"github.com/loupe-ai/loupe/internal/metrics"
)

// ReportStore is the analytics query surface the handlers depend on.
type ReportStore interface {
	AgentMetrics(ctx context.Context, agentName, agentVersion string, days int) (*analytics.AgentMetrics, error)
	ActivityTimeline(ctx context.Context, agentName, agentVersion string, days int) (*analytics.ActivityTimeline, error)
	TokensUsage(ctx context.Context, agentName, agentVersion string, days int) (*analytics.TokensUsage, error)
	TotalTokens(ctx context.Context, agentName, agentVersion string, days int) (*analytics.TotalTokens, error)
	DetailedUsage(ctx context.Context, agentName, agentVersion string, days int) (*analytics.DetailedUsage, error)
	RecentMessages(ctx context.Context, agentName, agentVersion string, days int) (*analytics.RecentMessages, error)
	Ping(ctx context.Context) error
	ListTables(ctx context.Context) ([]string, error)
}

// reportsHandler groups the report HTTP handlers.
type reportsHandler struct {
	store   ReportStore
	metrics *metrics.Metrics
}

func newReportsHandler(store ReportStore, m *metrics.Metrics) *reportsHandler {
	return &reportsHandler{store: store, metrics: m}
}

// reportParams are the query parameters shared by every report route.
type reportParams struct {
	AgentName    string
	AgentVersion string
	Days         int
}

// parseReportParams validates agent_name, agent_version and days. Violations
// reject the request before any storage access.
func parseReportParams(r *http.Request) (reportParams, error) {
	q := r.URL.Query()

	p := reportParams{
		AgentName:    q.Get("agent_name"),
		AgentVersion: q.Get("agent_version"),
	}
	if p.AgentName == "" {
		return p, errors.New("agent_name is required")
	}
	if p.AgentVersion == "" {
		return p, errors.New("agent_version is required")
	}

	daysStr := q.Get("days")
	if daysStr == "" {
		return p, errors.New("days is required")
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil {
		return p, fmt.Errorf("days must be an integer, got %q", daysStr)
	}
	if !analytics.ValidDays(days) {
		return p, fmt.Errorf("days must be one of 1, 2, 7, 15, 20, got %d", days)
	}
	p.Days = days

	return p, nil
}

// observe records one report store query if metrics are enabled.
func (h *reportsHandler) observe(operation string, err error, start time.Time) {
	if h.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, analytics.ErrNoData):
		status = "no_data"
	case err != nil:
		status = "error"
	}
	h.metrics.ObserveReportQuery(operation, status, time.Since(start).Seconds())
}

// writeReportError maps store failures to status codes: no data is 404, an
// unreachable store is 503, everything else is 500.
func writeReportError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	switch {
	case errors.Is(err, analytics.ErrNoData):
		writeError(w, http.StatusNotFound, "not_found", "no data found for the requested agent and window")
	case analytics.IsUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "database is unreachable")
	default:
		slog.Error("report query failed",
			"operation", operation,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to generate "+operation+" report")
	}
}

// GetAgentMetrics handles GET /analytics/agent.
func (h *reportsHandler) GetAgentMetrics(w http.ResponseWriter, r *http.Request) {
	p, err := parseReportParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_params", err.Error())
		return
	}

	start := time.Now()
	report, err := h.store.AgentMetrics(r.Context(), p.AgentName, p.AgentVersion, p.Days)
	h.observe("agent_metrics", err, start)
	if err != nil {
		writeReportError(w, r, "agent_metrics", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetActivityTimeline handles GET /activitytimeline.
func (h *reportsHandler) GetActivityTimeline(w http.ResponseWriter, r *http.Request) {
	p, err := parseReportParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_params", err.Error())
		return
	}

	start := time.Now()
	report, err := h.store.ActivityTimeline(r.Context(), p.AgentName, p.AgentVersion, p.Days)
	h.observe("activity_timeline", err, start)
	if err != nil {
		writeReportError(w, r, "activity_timeline", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetTokensUsage handles GET /tokens-usage.
func (h *reportsHandler) GetTokensUsage(w http.ResponseWriter, r *http.Request) {
	p, err := parseReportParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_params", err.Error())
		return
	}

	start := time.Now()
	report, err := h.store.TokensUsage(r.Context(), p.AgentName, p.AgentVersion, p.Days)
	h.observe("tokens_usage", err, start)
	if err != nil {
		writeReportError(w, r, "tokens_usage", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetTotalTokens handles GET /total-tokens.
func (h *reportsHandler) GetTotalTokens(w http.ResponseWriter, r *http.Request) {
	p, err := parseReportParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_params", err.Error())
		return
	}

	start := time.Now()
	report, err := h.store.TotalTokens(r.Context(), p.AgentName, p.AgentVersion, p.Days)
	h.observe("total_tokens", err, start)
	if err != nil {
		writeReportError(w, r, "total_tokens", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetDetailedUsage handles GET /detailed-usage.
func (h *reportsHandler) GetDetailedUsage(w http.ResponseWriter, r *http.Request) {
	p, err := parseReportParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_params", err.Error())
		return
	}

	start := time.Now()
	report, err := h.store.DetailedUsage(r.Context(), p.AgentName, p.AgentVersion, p.Days)
	h.observe("detailed_usage", err, start)
	if err != nil {
		writeReportError(w, r, "detailed_usage", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// GetRecentMessages handles GET /recentmessages.
func (h *reportsHandler) GetRecentMessages(w http.ResponseWriter, r *http.Request) {
	p, err := parseReportParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_params", err.Error())
		return
	}

	start := time.Now()
	report, err := h.store.RecentMessages(r.Context(), p.AgentName, p.AgentVersion, p.Days)
	h.observe("recent_messages", err, start)
	if err != nil {
		writeReportError(w, r, "recent_messages", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// healthResponse is the /health payload.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /health with a trivial round-trip probe.
func (h *reportsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "database connection failed")
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// DebugTables handles GET /debug/tables.
func (h *reportsHandler) DebugTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		writeReportError(w, r, "debug_tables", err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": tables})
}
