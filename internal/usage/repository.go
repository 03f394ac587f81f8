package usage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetUsageCount(ctx context.Context, userID uuid.UUID, feature Feature) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT usage_count
		FROM feature_usage
		WHERE user_id = $1 AND feature_type = $2
	`, userID, feature)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementUsage creates the row at 1 or adds 1 in a single statement.
func (r *repository) IncrementUsage(ctx context.Context, userID uuid.UUID, feature Feature) (int, error) {
	var count int
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO feature_usage (user_id, feature_type, usage_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, feature_type)
		DO UPDATE SET usage_count = feature_usage.usage_count + 1,
		              updated_at = NOW()
		RETURNING usage_count
	`, userID, feature).Scan(&count)
	return count, err
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]FeatureUsage, error) {
	rows := []FeatureUsage{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, feature_type, usage_count, created_at, updated_at
		FROM feature_usage
		WHERE user_id = $1
		ORDER BY feature_type
	`, userID)
	return rows, err
}
