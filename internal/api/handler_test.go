package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loupe-ai/loupe/internal/analytics"
)

// fakeStore is a canned-response ReportStore that counts report queries.
type fakeStore struct {
	calls int

	agentMetrics   *analytics.AgentMetrics
	timeline       *analytics.ActivityTimeline
	tokensUsage    *analytics.TokensUsage
	totalTokens    *analytics.TotalTokens
	detailedUsage  *analytics.DetailedUsage
	recentMessages *analytics.RecentMessages
	tables         []string

	err     error
	pingErr error
}

func (f *fakeStore) AgentMetrics(_ context.Context, _, _ string, _ int) (*analytics.AgentMetrics, error) {
	f.calls++
	return f.agentMetrics, f.err
}

func (f *fakeStore) ActivityTimeline(_ context.Context, _, _ string, _ int) (*analytics.ActivityTimeline, error) {
	f.calls++
	return f.timeline, f.err
}

func (f *fakeStore) TokensUsage(_ context.Context, _, _ string, _ int) (*analytics.TokensUsage, error) {
	f.calls++
	return f.tokensUsage, f.err
}

func (f *fakeStore) TotalTokens(_ context.Context, _, _ string, _ int) (*analytics.TotalTokens, error) {
	f.calls++
	return f.totalTokens, f.err
}

func (f *fakeStore) DetailedUsage(_ context.Context, _, _ string, _ int) (*analytics.DetailedUsage, error) {
	f.calls++
	return f.detailedUsage, f.err
}

func (f *fakeStore) RecentMessages(_ context.Context, _, _ string, _ int) (*analytics.RecentMessages, error) {
	f.calls++
	return f.recentMessages, f.err
}

func (f *fakeStore) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeStore) ListTables(_ context.Context) ([]string, error) {
	return f.tables, f.err
}

func newTestRouter(store ReportStore) http.Handler {
	return NewRouter(RouterDeps{Store: store, Version: "test"})
}

func doGet(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return env.Error.Code, env.Error.Message
}

var reportRoutes = []string{
	"/analytics/agent",
	"/activitytimeline",
	"/tokens-usage",
	"/total-tokens",
	"/detailed-usage",
	"/recentmessages",
}

func TestReportRoutes_InvalidDays(t *testing.T) {
	for _, route := range reportRoutes {
		for _, days := range []string{"0", "3", "14", "-1", "abc", ""} {
			t.Run(fmt.Sprintf("%s days=%q", route, days), func(t *testing.T) {
				store := &fakeStore{}
				handler := newTestRouter(store)

				target := route + "?agent_name=Calculator+Bot&agent_version=1.0.0"
				if days != "" {
					target += "&days=" + days
				}
				rec := doGet(t, handler, target)

				if rec.Code != http.StatusUnprocessableEntity {
					t.Fatalf("expected status 422, got %d", rec.Code)
				}
				if store.calls != 0 {
					t.Errorf("expected no store calls for invalid days, got %d", store.calls)
				}
				if code, _ := decodeError(t, rec); code != "invalid_params" {
					t.Errorf("expected code invalid_params, got %q", code)
				}
			})
		}
	}
}

func TestReportRoutes_MissingParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing agent_name", "/analytics/agent?agent_version=1.0.0&days=7"},
		{"missing agent_version", "/analytics/agent?agent_name=Calculator+Bot&days=7"},
		{"missing everything", "/tokens-usage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			handler := newTestRouter(store)

			rec := doGet(t, handler, tt.target)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d", rec.Code)
			}
			if store.calls != 0 {
				t.Errorf("expected no store calls, got %d", store.calls)
			}
		})
	}
}

func TestGetAgentMetrics_OK(t *testing.T) {
	store := &fakeStore{
		agentMetrics: &analytics.AgentMetrics{
			AgentName:    "Calculator Bot",
			AgentVersion: "1.0.0",
			Metrics: analytics.Metrics{
				TotalSessions:    150,
				TotalMessages:    1200,
				AvgDailyMessages: 171.43,
				TotalUsers:       42,
			},
			DateRange: analytics.DateRange{StartDate: "2024-03-08", EndDate: "2024-03-15"},
		},
	}
	handler := newTestRouter(store)

	rec := doGet(t, handler, "/analytics/agent?agent_name=Calculator+Bot&agent_version=1.0.0&days=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		AgentName    string `json:"agent_name"`
		AgentVersion string `json:"agent_version"`
		Metrics      struct {
			TotalSessions int64 `json:"total_sessions"`
			TotalMessages int64 `json:"total_messages"`
		} `json:"metrics"`
		DateRange struct {
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
		} `json:"date_range"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.AgentName != "Calculator Bot" {
		t.Errorf("agent_name = %q", body.AgentName)
	}
	if body.Metrics.TotalSessions != 150 {
		t.Errorf("total_sessions = %d, want 150", body.Metrics.TotalSessions)
	}
	if body.Metrics.TotalMessages != 1200 {
		t.Errorf("total_messages = %d, want 1200", body.Metrics.TotalMessages)
	}
	if body.DateRange.StartDate != "2024-03-08" || body.DateRange.EndDate != "2024-03-15" {
		t.Errorf("date_range = %+v", body.DateRange)
	}
}

func TestGetAgentMetrics_NoData(t *testing.T) {
	store := &fakeStore{err: analytics.ErrNoData}
	handler := newTestRouter(store)

	rec := doGet(t, handler, "/analytics/agent?agent_name=ghost&agent_version=0.0.1&days=7")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if code, _ := decodeError(t, rec); code != "not_found" {
		t.Errorf("expected code not_found, got %q", code)
	}
}

func TestReportRoutes_StorageUnavailable(t *testing.T) {
	connRefused := fmt.Errorf("querying agent metrics: %w", &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: errors.New("connection refused"),
	})
	store := &fakeStore{err: connRefused}
	handler := newTestRouter(store)

	rec := doGet(t, handler, "/total-tokens?agent_name=Calculator+Bot&agent_version=1.0.0&days=7")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if code, _ := decodeError(t, rec); code != "storage_unavailable" {
		t.Errorf("expected code storage_unavailable, got %q", code)
	}
}

func TestReportRoutes_InternalError(t *testing.T) {
	store := &fakeStore{err: errors.New("scanning timeline row: bad value")}
	handler := newTestRouter(store)

	rec := doGet(t, handler, "/activitytimeline?agent_name=Calculator+Bot&agent_version=1.0.0&days=7")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if code, _ := decodeError(t, rec); code != "internal_error" {
		t.Errorf("expected code internal_error, got %q", code)
	}
}

func TestGetActivityTimeline_EmptyWindowZeroFilled(t *testing.T) {
	w := analytics.NewWindow(7, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	var buckets []analytics.DailySessions
	for _, d := range w.Dates() {
		buckets = append(buckets, analytics.DailySessions{Date: d.Format("2006-01-02")})
	}
	store := &fakeStore{
		timeline: &analytics.ActivityTimeline{
			AgentName:     "Calculator Bot",
			AgentVersion:  "1.0.0",
			DateRange:     w.Range(),
			DailySessions: buckets,
		},
	}
	handler := newTestRouter(store)

	rec := doGet(t, handler, "/activitytimeline?agent_name=Calculator+Bot&agent_version=1.0.0&days=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		DailySessions []struct {
			Date     string `json:"date"`
			Sessions int64  `json:"sessions"`
		} `json:"daily_sessions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(body.DailySessions) != 8 {
		t.Fatalf("expected 8 daily buckets for days=7, got %d", len(body.DailySessions))
	}
	for i, b := range body.DailySessions {
		if b.Sessions != 0 {
			t.Errorf("bucket[%d] sessions = %d, want 0", i, b.Sessions)
		}
		if i > 0 && body.DailySessions[i-1].Date >= b.Date {
			t.Errorf("buckets not ascending at %d", i)
		}
	}
}

func TestGetRecentMessages_OK(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		recentMessages: &analytics.RecentMessages{
			AgentName:    "Calculator Bot",
			AgentVersion: "1.0.0",
			DateRange:    analytics.DateRange{StartDate: "2024-03-08", EndDate: "2024-03-15"},
			Messages: []analytics.Message{
				{Timestamp: now, SessionID: "s2", MessageLength: 5, ModelName: "gpt-4o", Message: "12+30"},
				{Timestamp: now.Add(-time.Hour), SessionID: "s1", MessageLength: 2, ModelName: "gpt-4o", Message: "42"},
			},
		},
	}
	handler := newTestRouter(store)

	rec := doGet(t, handler, "/recentmessages?agent_name=Calculator+Bot&agent_version=1.0.0&days=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Messages []struct {
			Timestamp time.Time `json:"timestamp"`
			SessionID string    `json:"session_id"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(body.Messages))
	}
	if !body.Messages[0].Timestamp.After(body.Messages[1].Timestamp) {
		t.Errorf("messages not descending by timestamp")
	}
}

func TestGetTotalTokens_EmptyWindow(t *testing.T) {
	store := &fakeStore{
		totalTokens: &analytics.TotalTokens{
			AgentName:    "Calculator Bot",
			AgentVersion: "1.0.0",
			DateRange:    analytics.DateRange{StartDate: "2024-03-08", EndDate: "2024-03-15"},
		},
	}
	handler := newTestRouter(store)

	rec := doGet(t, handler, "/total-tokens?agent_name=Calculator+Bot&agent_version=1.0.0&days=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		TotalPromptTokens     int64 `json:"total_prompt_tokens"`
		TotalCompletionTokens int64 `json:"total_completion_tokens"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.TotalPromptTokens != 0 || body.TotalCompletionTokens != 0 {
		t.Errorf("expected zero totals, got %+v", body)
	}
}

func TestHealth_OK(t *testing.T) {
	handler := newTestRouter(&fakeStore{})

	rec := doGet(t, handler, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	if body.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestHealth_Unavailable(t *testing.T) {
	handler := newTestRouter(&fakeStore{pingErr: errors.New("pinging database: dial tcp: connection refused")})

	rec := doGet(t, handler, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if code, _ := decodeError(t, rec); code != "storage_unavailable" {
		t.Errorf("expected code storage_unavailable, got %q", code)
	}
}

func TestRoot(t *testing.T) {
	handler := newTestRouter(&fakeStore{})

	rec := doGet(t, handler, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("version = %q, want test", body["version"])
	}
}

func TestDebugTables(t *testing.T) {
	handler := newTestRouter(&fakeStore{tables: []string{"LiteLLM_RequestTable", "LiteLLM_SpendLogs"}})

	rec := doGet(t, handler, "/debug/tables")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Tables []string `json:"tables"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Tables) != 2 {
		t.Errorf("expected 2 tables, got %v", body.Tables)
	}
}

func TestRequestIDHeader(t *testing.T) {
	handler := newTestRouter(&fakeStore{})

	rec := doGet(t, handler, "/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}
