package migrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"x1-token-verifier/internal/storage/postgres"
)

func TestRunPostgresMigrations_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("verifier"),
		tcpostgres.WithUsername("verifier"),
		tcpostgres.WithPassword("verifier"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	ran, err := RunPostgresMigrations(ctx, pool)
	require.NoError(t, err)
	assert.Contains(t, ran, "001_verifier")

	ran, err = RunPostgresMigrations(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, ran)

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM schema_migrations").Scan(&n))
	all, err := load("postgres")
	require.NoError(t, err)
	assert.Equal(t, len(all), n)
}
