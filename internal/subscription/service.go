package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/metrics"
	"github.com/google/uuid"
)

type Service interface {
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	UpsertActiveSubscription(ctx context.Context, userID uuid.UUID, plan PlanID, refs PaymentRefs) (*Subscription, error)
	CancelActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
	FindByRecurringRef(ctx context.Context, ref string) (*Subscription, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *service) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := s.repo.GetActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active subscription: %w", err)
	}
	return sub, nil
}

// UpsertActiveSubscription activates plan for the user starting now. Store
// failures are returned as-is and never retried here.
func (s *service) UpsertActiveSubscription(ctx context.Context, userID uuid.UUID, planID PlanID, refs PaymentRefs) (*Subscription, error) {
	plan, err := FindPlan(planID)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	sub, err := s.repo.UpsertActive(ctx, userID, plan.ID, start, plan.EndDate(start), refs)
	if err != nil {
		return nil, fmt.Errorf("upsert active subscription: %w", err)
	}

	logger.Info("subscription activated",
		"user_id", userID.String(),
		"plan", string(plan.ID),
		"end_date", sub.EndDate,
	)
	return sub, nil
}

// CancelActiveSubscription succeeds when there is nothing to cancel. The
// boolean reports whether an active row was cancelled.
func (s *service) CancelActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.repo.CancelActive(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("cancel subscription: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	metrics.RecordCancellation()
	logger.Info("subscription cancelled", "user_id", userID.String())
	return true, nil
}

func (s *service) FindByRecurringRef(ctx context.Context, ref string) (*Subscription, error) {
	sub, err := s.repo.GetByRecurringRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("find subscription by recurring ref: %w", err)
	}
	return sub, nil
}
