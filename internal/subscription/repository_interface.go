package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetActive(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	UpsertActive(ctx context.Context, userID uuid.UUID, plan PlanID, start, end time.Time, refs PaymentRefs) (*Subscription, error)
	CancelActive(ctx context.Context, userID uuid.UUID) (int64, error)
	GetByRecurringRef(ctx context.Context, ref string) (*Subscription, error)
}
