package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container and applies the embedded
// migrations. Returns a cleanup function.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	runMigrations(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// runMigrations applies the schema directly; the embedded migration
// runner lives one package up and importing it here would cycle.
func runMigrations(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id              TEXT PRIMARY KEY,
			market_id       TEXT NOT NULL,
			market_question TEXT NOT NULL DEFAULT '',
			wallets         TEXT[] NOT NULL,
			trade_refs      JSONB NOT NULL,
			flags           JSONB NOT NULL,
			score           DOUBLE PRECISION NOT NULL,
			explanation     TEXT NOT NULL DEFAULT '',
			dedup_key       TEXT NOT NULL,
			created_at      BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS profile_checkpoints (
			wallet_id         TEXT PRIMARY KEY,
			first_seen        BIGINT NOT NULL,
			last_activity     BIGINT NOT NULL,
			trade_count       BIGINT NOT NULL,
			cumulative_volume DOUBLE PRECISION NOT NULL,
			rolling_avg_size  DOUBLE PRECISION NOT NULL,
			history           JSONB NOT NULL DEFAULT '[]',
			resolved_samples  BIGINT NOT NULL DEFAULT 0,
			resolved_correct  BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for _, schema := range schemas {
		_, err := pool.Exec(ctx, schema)
		require.NoError(t, err, "failed to apply test schema")
	}
}
