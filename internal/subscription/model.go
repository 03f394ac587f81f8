package subscription

import (
	"time"

	"github.com/google/uuid"
)

type PlanID string
type Status string

const (
	PlanFree      PlanID = "free"
	PlanMonthly   PlanID = "monthly"
	PlanQuarterly PlanID = "quarterly"
	PlanYearly    PlanID = "yearly"

	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

type Subscription struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	PlanID       PlanID     `db:"plan_id" json:"plan_id"`
	Status       Status     `db:"status" json:"status"`
	StartDate    time.Time  `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	PaymentRef   *string    `db:"payment_ref" json:"payment_ref,omitempty"`
	RecurringRef *string    `db:"recurring_ref" json:"recurring_ref,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsPaid reports an active row on a non-free plan. End date is not consulted.
func (s *Subscription) IsPaid() bool {
	return s != nil && s.Status == StatusActive && s.PlanID != PlanFree
}

// EndedBy reports whether the end date is set and at or before now.
func (s *Subscription) EndedBy(now time.Time) bool {
	return s != nil && s.EndDate != nil && !s.EndDate.After(now)
}

// PaymentRefs are the gateway references stored with an activation.
type PaymentRefs struct {
	PaymentRef   string
	RecurringRef string
}
