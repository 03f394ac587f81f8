package entitlement

import (
	"context"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/subscription"
	"github.com/SanchitCoder/PortIQ/internal/usage"
	"github.com/google/uuid"
)

type SubscriptionReader interface {
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
}

type UsageStore interface {
	GetUsageCount(ctx context.Context, userID uuid.UUID, feature usage.Feature) int
	IncrementUsage(ctx context.Context, userID uuid.UUID, feature usage.Feature) (int, error)
	ListUsage(ctx context.Context, userID uuid.UUID) map[usage.Feature]int
}

// Engine decides whether a user may use a metered feature.
type Engine struct {
	subs         SubscriptionReader
	usage        UsageStore
	strictExpiry bool
	now          func() time.Time
}

type Option func(*Engine)

// WithStrictExpiry treats an active subscription past its end date as free.
// Off by default: an active row is trusted regardless of end date.
func WithStrictExpiry(strict bool) Option {
	return func(e *Engine) { e.strictExpiry = strict }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(subs SubscriptionReader, usageStore UsageStore, opts ...Option) *Engine {
	e := &Engine{
		subs:  subs,
		usage: usageStore,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentPlan resolves the effective plan. A failed subscription read
// degrades to free.
func (e *Engine) CurrentPlan(ctx context.Context, userID uuid.UUID) subscription.PlanID {
	sub, err := e.subs.GetActiveSubscription(ctx, userID)
	if err != nil {
		logger.Error("subscription read failed, treating user as free",
			"user_id", userID.String(),
			"error", err,
		)
		return subscription.PlanFree
	}
	if !sub.IsPaid() {
		return subscription.PlanFree
	}
	if e.strictExpiry && sub.EndedBy(e.now()) {
		logger.Debug("subscription past end date", "user_id", userID.String(), "end_date", sub.EndDate)
		return subscription.PlanFree
	}
	return sub.PlanID
}

func (e *Engine) HasPaidEntitlement(ctx context.Context, userID uuid.UUID) bool {
	return e.CurrentPlan(ctx, userID) != subscription.PlanFree
}

func (e *Engine) RemainingUses(ctx context.Context, userID uuid.UUID, feature usage.Feature) Remaining {
	if e.HasPaidEntitlement(ctx, userID) {
		return Unlimited()
	}
	used := e.usage.GetUsageCount(ctx, userID, feature)
	return Uses(feature.FreeLimit() - used)
}

func (e *Engine) CanUseFeature(ctx context.Context, userID uuid.UUID, feature usage.Feature) bool {
	return e.RemainingUses(ctx, userID, feature).Allows()
}

// ConsumeUse charges one use to a free user. Paid users are never charged.
// The boolean reports whether a use was recorded.
func (e *Engine) ConsumeUse(ctx context.Context, userID uuid.UUID, feature usage.Feature) (bool, error) {
	if e.HasPaidEntitlement(ctx, userID) {
		return false, nil
	}
	if _, err := e.usage.IncrementUsage(ctx, userID, feature); err != nil {
		return false, err
	}
	return true, nil
}

type FeatureStatus struct {
	Feature   usage.Feature `json:"feature"`
	Name      string        `json:"name"`
	Used      int           `json:"used"`
	Limit     int           `json:"limit"`
	Remaining Remaining     `json:"remaining" swaggertype:"string"`
}

type Snapshot struct {
	Plan      subscription.PlanID `json:"plan"`
	Unlimited bool                `json:"unlimited"`
	Features  []FeatureStatus     `json:"features"`
}

// Snapshot reports usage and remaining uses for every feature.
func (e *Engine) Snapshot(ctx context.Context, userID uuid.UUID) Snapshot {
	plan := e.CurrentPlan(ctx, userID)
	paid := plan != subscription.PlanFree
	counts := e.usage.ListUsage(ctx, userID)

	snap := Snapshot{Plan: plan, Unlimited: paid}
	for _, f := range usage.Features() {
		status := FeatureStatus{
			Feature: f,
			Name:    f.DisplayName(),
			Used:    counts[f],
			Limit:   f.FreeLimit(),
		}
		if paid {
			status.Remaining = Unlimited()
		} else {
			status.Remaining = Uses(status.Limit - status.Used)
		}
		snap.Features = append(snap.Features, status)
	}
	return snap
}
