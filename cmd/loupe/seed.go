package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loupe-ai/loupe/internal/config"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed synthetic spend-log rows for local development",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

const (
	seedAgentName    = "Calculator Bot"
	seedAgentVersion = "1.0.0"
	seedAppName      = "Loupe Demo"
)

var seedModels = []string{"gpt-4o", "gpt-4o-mini", "claude-3-5-sonnet"}

var seedReplies = []string{
	"The result is 42.",
	"That expression evaluates to 1337.",
	"Dividing by zero is undefined.",
	"The square root of 144 is 12.",
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Check if seed has already run.
	var existing int64
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM "LiteLLM_SpendLogs"
		WHERE proxy_server_request->'metadata'->'requester_metadata'->>'agent_name' = $1`,
		seedAgentName).Scan(&existing)
	if err != nil {
		return fmt.Errorf("checking existing demo rows (run 'loupe migrate' first?): %w", err)
	}
	if existing > 0 {
		slog.Info("demo data already exists, skipping seed", "rows", existing)
		return nil
	}

	rng := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()
	inserted := 0

	// 7 days of activity, a few sessions per day, a few requests per session.
	for day := 0; day < 7; day++ {
		for s := 0; s < 3; s++ {
			sessionID := fmt.Sprintf("demo-session-%d-%d", day, s)
			userID := fmt.Sprintf("demo-user-%d", s%2)

			for m := 0; m < 4; m++ {
				start := now.AddDate(0, 0, -day).
					Add(-time.Duration(rng.Intn(8)) * time.Hour).
					Add(-time.Duration(rng.Intn(60)) * time.Minute)
				end := start.Add(time.Duration(500+rng.Intn(4000)) * time.Millisecond)

				promptTokens := 50 + rng.Intn(400)
				completionTokens := 20 + rng.Intn(200)
				model := seedModels[rng.Intn(len(seedModels))]
				reply := seedReplies[rng.Intn(len(seedReplies))]

				proxyRequest, err := json.Marshal(map[string]any{
					"model": model,
					"metadata": map[string]any{
						"requester_metadata": map[string]string{
							"agent_name":       seedAgentName,
							"agent_version":    seedAgentVersion,
							"agent_session_id": sessionID,
							"agent_user_id":    userID,
							"agent_app_name":   seedAppName,
						},
					},
				})
				if err != nil {
					return fmt.Errorf("marshalling proxy request: %w", err)
				}

				response, err := json.Marshal(map[string]any{
					"model": model,
					"choices": []map[string]any{
						{"message": map[string]string{"role": "assistant", "content": reply}},
					},
				})
				if err != nil {
					return fmt.Errorf("marshalling response: %w", err)
				}

				_, err = pool.Exec(ctx, `INSERT INTO "LiteLLM_SpendLogs"
					(request_id, call_type, model, "startTime", "endTime",
					 total_tokens, prompt_tokens, completion_tokens, spend,
					 proxy_server_request, response)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
					newRequestID(),
					"completion",
					model,
					start,
					end,
					promptTokens+completionTokens,
					promptTokens,
					completionTokens,
					float64(promptTokens+completionTokens)*0.000002,
					proxyRequest,
					response,
				)
				if err != nil {
					return fmt.Errorf("inserting demo spend log: %w", err)
				}
				inserted++
			}
		}
	}

	slog.Info("seeded demo spend logs", "rows", inserted, "agent", seedAgentName, "version", seedAgentVersion)
	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Rows:    %d\n", inserted)
	fmt.Printf("Agent:   %s v%s\n", seedAgentName, seedAgentVersion)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl 'http://localhost:8080/analytics/agent?agent_name=Calculator%%20Bot&agent_version=1.0.0&days=7'\n")
	fmt.Printf("  curl 'http://localhost:8080/tokens-usage?agent_name=Calculator%%20Bot&agent_version=1.0.0&days=7'\n")

	return nil
}

// newRequestID produces a 32-character hex id for a synthetic spend log row.
func newRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
