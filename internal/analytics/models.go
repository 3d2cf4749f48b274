package analytics

import "time"

// DateRange is the reporting window in calendar dates (YYYY-MM-DD).
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Metrics holds the aggregate counts for an agent within a window.
type Metrics struct {
	TotalSessions    int64   `json:"total_sessions"`
	TotalMessages    int64   `json:"total_messages"`
	AvgDailyMessages float64 `json:"avg_daily_messages"`
	TotalUsers       int64   `json:"total_users"`
}

// AgentMetrics is the summary report for one agent name and version.
type AgentMetrics struct {
	AgentName    string    `json:"agent_name"`
	AgentVersion string    `json:"agent_version"`
	Metrics      Metrics   `json:"metrics"`
	DateRange    DateRange `json:"date_range"`
}

// DailySessions is one activity-timeline bucket: distinct sessions on a date.
type DailySessions struct {
	Date     string `json:"date"`
	Sessions int64  `json:"sessions"`
}

// ActivityTimeline lists session counts per calendar day, ascending, with
// zero-filled buckets for days that saw no activity.
type ActivityTimeline struct {
	AgentName     string          `json:"agent_name"`
	AgentVersion  string          `json:"agent_version"`
	DateRange     DateRange       `json:"date_range"`
	DailySessions []DailySessions `json:"daily_sessions"`
}

// DailyTokens is one token-usage bucket: prompt and completion tokens summed
// over a calendar day.
type DailyTokens struct {
	Date             string `json:"date"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}

// TokensUsage lists token sums per calendar day, ascending and zero-filled.
type TokensUsage struct {
	AgentName    string        `json:"agent_name"`
	AgentVersion string        `json:"agent_version"`
	DateRange    DateRange     `json:"date_range"`
	DailyTokens  []DailyTokens `json:"daily_tokens"`
}

// TotalTokens holds the window-wide token sums.
type TotalTokens struct {
	AgentName             string    `json:"agent_name"`
	AgentVersion          string    `json:"agent_version"`
	DateRange             DateRange `json:"date_range"`
	TotalPromptTokens     int64     `json:"total_prompt_tokens"`
	TotalCompletionTokens int64     `json:"total_completion_tokens"`
}

// UsageLog is one proxied request: timestamp, token counts and duration.
type UsageLog struct {
	Timestamp        time.Time `json:"timestamp"`
	AgentName        string    `json:"agent_name"`
	TotalTokens      int64     `json:"total_tokens"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	DurationSeconds  float64   `json:"duration_seconds"`
}

// DetailedUsage lists per-request logs, most recent first.
type DetailedUsage struct {
	AgentName    string     `json:"agent_name"`
	AgentVersion string     `json:"agent_version"`
	DateRange    DateRange  `json:"date_range"`
	UsageLogs    []UsageLog `json:"usage_logs"`
}

// Message is one completion returned by the proxy, with its session context.
type Message struct {
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	MessageLength int64     `json:"message_length"`
	AgentName     string    `json:"agent_name"`
	ModelName     string    `json:"model_name"`
	Message       string    `json:"message"`
}

// RecentMessages lists the most recent completions, newest first, capped at
// the store's configured limit.
type RecentMessages struct {
	AgentName    string    `json:"agent_name"`
	AgentVersion string    `json:"agent_version"`
	DateRange    DateRange `json:"date_range"`
	Messages     []Message `json:"messages"`
}
