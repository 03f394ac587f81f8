package usage

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetUsageCount(ctx context.Context, userID uuid.UUID, feature Feature) (int, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, feature Feature) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]FeatureUsage, error)
}
