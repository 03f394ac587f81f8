package integration_test

import (
	"os"
	"testing"

	"github.com/SanchitCoder/PortIQ/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("Skipping integration tests: cannot connect to test database: %v", err)
	}
	_, err = db.RunMigrations(database, "../migrations")
	require.NoError(t, err)

	t.Cleanup(func() { database.Close() })
	return database
}

// newUser returns a fresh id; rows are scoped by user so tests never collide.
func newUser(t *testing.T, database *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	t.Cleanup(func() {
		for _, table := range []string{"feature_usage", "subscriptions"} {
			_, err := database.Exec("DELETE FROM "+table+" WHERE user_id = $1", id)
			require.NoError(t, err, "Failed to clean table "+table)
		}
		_, err := database.Exec("DELETE FROM profiles WHERE id = $1", id)
		require.NoError(t, err)
	})
	return id
}
