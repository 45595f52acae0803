package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/observability"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
)

// PostgresImage is the image used for integration tests.
const PostgresImage = "postgres:16-alpine"

// StartPostgres starts a throwaway Postgres container and returns a
// connected service using the Postgres dialect. The container is removed
// when the test ends. Skipped in short mode.
func StartPostgres(t *testing.T, dialect warehouse.Postgres) *warehouse.Service {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase("sparkify"),
		postgres.WithUsername("etl"),
		postgres.WithPassword("etl"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	service, err := warehouse.NewService(warehouse.Config{
		Alias:       "test",
		Dialect:     dialect.Name(),
		DSN:         dsn,
		EnforceKeys: dialect.EnforceKeys,
	}, observability.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, service.Connect(ctx))
	t.Cleanup(func() { _ = service.Close() })
	return service
}
