package usage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectCountQuery = `
		SELECT usage_count
		FROM feature_usage
		WHERE user_id = $1 AND feature_type = $2
	`
	incrementQuery = `
		INSERT INTO feature_usage (user_id, feature_type, usage_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, feature_type)
		DO UPDATE SET usage_count = feature_usage.usage_count + 1,
		              updated_at = NOW()
		RETURNING usage_count
	`
	listQuery = `
		SELECT id, user_id, feature_type, usage_count, created_at, updated_at
		FROM feature_usage
		WHERE user_id = $1
		ORDER BY feature_type
	`
)

func setupUsageMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func TestGetUsageCount(t *testing.T) {
	repo, mock, close := setupUsageMock(t)
	defer close()

	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(selectCountQuery)).
		WithArgs(userID, FeatureStockAnalyzer).
		WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(2))

	count, err := repo.GetUsageCount(context.Background(), userID, FeatureStockAnalyzer)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUsageCount_NoRowIsZero(t *testing.T) {
	repo, mock, close := setupUsageMock(t)
	defer close()

	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(selectCountQuery)).
		WithArgs(userID, FeaturePortfolioMonitor).
		WillReturnError(sql.ErrNoRows)

	count, err := repo.GetUsageCount(context.Background(), userID, FeaturePortfolioMonitor)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetUsageCount_Error(t *testing.T) {
	repo, mock, close := setupUsageMock(t)
	defer close()

	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(selectCountQuery)).
		WithArgs(userID, FeaturePortfolioMonitor).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.GetUsageCount(context.Background(), userID, FeaturePortfolioMonitor)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestIncrementUsage(t *testing.T) {
	repo, mock, close := setupUsageMock(t)
	defer close()

	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(incrementQuery)).
		WithArgs(userID, FeatureAlphaEdgeEvaluator).
		WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(1))

	count, err := repo.IncrementUsage(context.Background(), userID, FeatureAlphaEdgeEvaluator)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByUser(t *testing.T) {
	repo, mock, close := setupUsageMock(t)
	defer close()

	userID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "feature_type", "usage_count", "created_at", "updated_at"}).
			AddRow(uuid.New().String(), userID.String(), "portfolio_monitor", 3, now, now).
			AddRow(uuid.New().String(), userID.String(), "stock_analyzer", 1, now, now))

	rows, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, FeaturePortfolioMonitor, rows[0].FeatureType)
	assert.Equal(t, 3, rows[0].UsageCount)
	assert.Equal(t, userID, rows[1].UserID)
}
