package usage

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/SanchitCoder/PortIQ/internal/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	database, err := db.Connect(context.Background(), dsn, db.Pool{})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	_, err = db.RunMigrations(database, "../../migrations")
	require.NoError(t, err)
	return database
}

func TestIncrementUsage_ConcurrentIncrementsAreNotLost(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	t.Cleanup(func() {
		db.Exec(`DELETE FROM feature_usage WHERE user_id = $1`, userID)
	})

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementUsage(ctx, userID, FeaturePortfolioMonitor); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := repo.GetUsageCount(ctx, userID, FeaturePortfolioMonitor)
	require.NoError(t, err)
	assert.Equal(t, workers, count)
}
