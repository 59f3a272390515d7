package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a MongoDB container and returns a Database with indexes applied.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Waiting for connections").WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("27017/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())

	db, err := Connect(ctx, uri, "verifier_test", 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, db.SetupIndexes(ctx))

	cleanup := func() {
		_ = db.Disconnect(ctx)
		_ = container.Terminate(ctx)
	}

	return db, cleanup
}

func ptr[T any](v T) *T {
	return &v
}
