package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultMessageLimit caps the recent-messages report when no limit is
// configured.
const defaultMessageLimit = 50

// agentFilter is the predicate shared by every report query: rows must carry
// a non-empty proxy_server_request payload whose requester metadata matches
// the agent name and version exactly, with "startTime" inside the half-open
// window [$3, $4).
const agentFilter = `
	WHERE proxy_server_request::text != '{}'
	  AND proxy_server_request->'metadata'->'requester_metadata'->>'agent_name' = $1
	  AND proxy_server_request->'metadata'->'requester_metadata'->>'agent_version' = $2
	  AND "startTime" >= $3
	  AND "startTime" < $4`

// Store provides read-only report queries over the LiteLLM spend log table.
type Store struct {
	pool         *pgxpool.Pool
	messageLimit int
}

// NewStore creates a Store backed by the given connection pool. messageLimit
// caps the recent-messages report; values <= 0 fall back to the default.
func NewStore(pool *pgxpool.Pool, messageLimit int) *Store {
	if messageLimit <= 0 {
		messageLimit = defaultMessageLimit
	}
	return &Store{pool: pool, messageLimit: messageLimit}
}

// AgentMetrics returns the aggregate summary for one agent name and version
// over the lookback window. Sessions and users are distinct counts over the
// metadata ids, so rows with a null agent_session_id or agent_user_id do not
// contribute to those counts, while still counting toward total_messages.
// Returns ErrNoData when no rows match.
func (s *Store) AgentMetrics(ctx context.Context, agentName, agentVersion string, days int) (*AgentMetrics, error) {
	window := NewWindow(days, time.Now())
	from, to := window.Bounds()

	query := `SELECT
		COUNT(DISTINCT proxy_server_request->'metadata'->'requester_metadata'->>'agent_session_id'),
		COUNT(*),
		COUNT(DISTINCT proxy_server_request->'metadata'->'requester_metadata'->>'agent_user_id'),
		COALESCE(ROUND(COUNT(*)::numeric / NULLIF(COUNT(DISTINCT DATE("startTime")), 0), 2), 0)::float8
	FROM "LiteLLM_SpendLogs"` + agentFilter

	var m Metrics
	err := s.pool.QueryRow(ctx, query, agentName, agentVersion, from, to).Scan(
		&m.TotalSessions,
		&m.TotalMessages,
		&m.TotalUsers,
		&m.AvgDailyMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("querying agent metrics: %w", err)
	}

	if m.TotalMessages == 0 {
		return nil, ErrNoData
	}

	return &AgentMetrics{
		AgentName:    agentName,
		AgentVersion: agentVersion,
		Metrics:      m,
		DateRange:    window.Range(),
	}, nil
}

// ActivityTimeline returns distinct session counts per calendar day,
// ascending, with a zero bucket for every day in the window that saw no
// activity.
func (s *Store) ActivityTimeline(ctx context.Context, agentName, agentVersion string, days int) (*ActivityTimeline, error) {
	window := NewWindow(days, time.Now())
	from, to := window.Bounds()

	query := `SELECT
		DATE("startTime"),
		COUNT(DISTINCT proxy_server_request->'metadata'->'requester_metadata'->>'agent_session_id')
	FROM "LiteLLM_SpendLogs"` + agentFilter + `
	GROUP BY DATE("startTime")`

	rows, err := s.pool.Query(ctx, query, agentName, agentVersion, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying activity timeline: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]int64)
	for rows.Next() {
		var date time.Time
		var sessions int64
		if err := rows.Scan(&date, &sessions); err != nil {
			return nil, fmt.Errorf("scanning timeline row: %w", err)
		}
		byDate[date.Format(dateFormat)] = sessions
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timeline rows: %w", err)
	}

	return &ActivityTimeline{
		AgentName:     agentName,
		AgentVersion:  agentVersion,
		DateRange:     window.Range(),
		DailySessions: fillDailySessions(window, byDate),
	}, nil
}

// TokensUsage returns prompt and completion token sums per calendar day,
// ascending and zero-filled like ActivityTimeline.
func (s *Store) TokensUsage(ctx context.Context, agentName, agentVersion string, days int) (*TokensUsage, error) {
	window := NewWindow(days, time.Now())
	from, to := window.Bounds()

	query := `SELECT
		DATE("startTime"),
		COALESCE(SUM(prompt_tokens), 0),
		COALESCE(SUM(completion_tokens), 0)
	FROM "LiteLLM_SpendLogs"` + agentFilter + `
	GROUP BY DATE("startTime")
	ORDER BY DATE("startTime")`

	rows, err := s.pool.Query(ctx, query, agentName, agentVersion, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying tokens usage: %w", err)
	}
	defer rows.Close()

	byDate := make(map[string]DailyTokens)
	for rows.Next() {
		var date time.Time
		var bucket DailyTokens
		if err := rows.Scan(&date, &bucket.PromptTokens, &bucket.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scanning tokens row: %w", err)
		}
		byDate[date.Format(dateFormat)] = bucket
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tokens rows: %w", err)
	}

	return &TokensUsage{
		AgentName:    agentName,
		AgentVersion: agentVersion,
		DateRange:    window.Range(),
		DailyTokens:  fillDailyTokens(window, byDate),
	}, nil
}

// TotalTokens returns the window-wide prompt and completion token sums.
func (s *Store) TotalTokens(ctx context.Context, agentName, agentVersion string, days int) (*TotalTokens, error) {
	window := NewWindow(days, time.Now())
	from, to := window.Bounds()

	query := `SELECT
		COALESCE(SUM(prompt_tokens), 0),
		COALESCE(SUM(completion_tokens), 0)
	FROM "LiteLLM_SpendLogs"` + agentFilter

	totals := &TotalTokens{
		AgentName:    agentName,
		AgentVersion: agentVersion,
		DateRange:    window.Range(),
	}
	err := s.pool.QueryRow(ctx, query, agentName, agentVersion, from, to).Scan(
		&totals.TotalPromptTokens,
		&totals.TotalCompletionTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("querying total tokens: %w", err)
	}

	return totals, nil
}

// DetailedUsage returns one row per proxied request in the window, most
// recent first, with token counts and the request duration derived from the
// start and end timestamps.
func (s *Store) DetailedUsage(ctx context.Context, agentName, agentVersion string, days int) (*DetailedUsage, error) {
	window := NewWindow(days, time.Now())
	from, to := window.Bounds()

	query := `SELECT
		"startTime",
		COALESCE(proxy_server_request->'metadata'->'requester_metadata'->>'agent_name', $1),
		COALESCE(total_tokens, 0),
		COALESCE(prompt_tokens, 0),
		COALESCE(completion_tokens, 0),
		COALESCE(EXTRACT(EPOCH FROM ("endTime" - "startTime")), 0)::float8
	FROM "LiteLLM_SpendLogs"` + agentFilter + `
	ORDER BY "startTime" DESC`

	rows, err := s.pool.Query(ctx, query, agentName, agentVersion, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying detailed usage: %w", err)
	}
	defer rows.Close()

	logs := []UsageLog{}
	for rows.Next() {
		var l UsageLog
		if err := rows.Scan(
			&l.Timestamp,
			&l.AgentName,
			&l.TotalTokens,
			&l.PromptTokens,
			&l.CompletionTokens,
			&l.DurationSeconds,
		); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage rows: %w", err)
	}

	return &DetailedUsage{
		AgentName:    agentName,
		AgentVersion: agentVersion,
		DateRange:    window.Range(),
		UsageLogs:    logs,
	}, nil
}

// RecentMessages returns the newest completions in the window, descending by
// timestamp and capped at the configured limit. Rows whose response payload
// is empty carry no message content and are excluded.
func (s *Store) RecentMessages(ctx context.Context, agentName, agentVersion string, days int) (*RecentMessages, error) {
	window := NewWindow(days, time.Now())
	from, to := window.Bounds()

	query := `SELECT
		"startTime",
		COALESCE(proxy_server_request->'metadata'->'requester_metadata'->>'agent_session_id', ''),
		COALESCE(LENGTH(response->'choices'->0->'message'->>'content'), 0),
		COALESCE(proxy_server_request->'metadata'->'requester_metadata'->>'agent_name', $1),
		COALESCE(response->>'model', ''),
		COALESCE(response->'choices'->0->'message'->>'content', '')
	FROM "LiteLLM_SpendLogs"` + agentFilter + `
	  AND response::text != '{}'
	ORDER BY "startTime" DESC
	LIMIT $5`

	rows, err := s.pool.Query(ctx, query, agentName, agentVersion, from, to, s.messageLimit)
	if err != nil {
		return nil, fmt.Errorf("querying recent messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Timestamp,
			&m.SessionID,
			&m.MessageLength,
			&m.AgentName,
			&m.ModelName,
			&m.Message,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return &RecentMessages{
		AgentName:    agentName,
		AgentVersion: agentVersion,
		DateRange:    window.Range(),
		Messages:     messages,
	}, nil
}

// Ping verifies store reachability with a trivial round-trip query.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// ListTables returns the LiteLLM tables visible in the public schema.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name LIKE '%LiteLLM%'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("querying table list: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
