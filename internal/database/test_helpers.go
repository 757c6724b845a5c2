package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB opens a migrated sqlite database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "tubely_test.db"),
	})
	require.NoError(t, err, "failed to open sqlite database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), ""))
	return db
}

// setupPostgresDB starts a disposable PostgreSQL container. It needs Docker
// and only runs with TUBELY_TEST_POSTGRES=1.
func setupPostgresDB(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("TUBELY_TEST_POSTGRES") != "1" {
		t.Skip("set TUBELY_TEST_POSTGRES=1 to run PostgreSQL tests")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tubely_test"),
		postgres.WithUsername("tubely_test"),
		postgres.WithPassword("tubely_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := NewDB(Config{
		Type:     "postgres",
		Host:     host,
		Port:     port.Int(),
		User:     "tubely_test",
		Password: "tubely_test_password",
		Name:     "tubely_test",
	})
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(ctx, ""))
	return db
}
