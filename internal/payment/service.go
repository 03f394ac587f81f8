package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/events"
	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/metrics"
	"github.com/SanchitCoder/PortIQ/internal/profile"
	"github.com/SanchitCoder/PortIQ/internal/subscription"

	"github.com/google/uuid"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayStripe   = "stripe"
)

type Subscriptions interface {
	UpsertActiveSubscription(ctx context.Context, userID uuid.UUID, plan subscription.PlanID, refs subscription.PaymentRefs) (*subscription.Subscription, error)
	CancelActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
	FindByRecurringRef(ctx context.Context, ref string) (*subscription.Subscription, error)
}

type Notifier interface {
	SendSubscriptionActivated(ctx context.Context, to, name string, plan subscription.Plan, until time.Time) error
	SendSubscriptionCancelled(ctx context.Context, to, name string) error
}

// Recipients resolves the stored address for events that arrive without
// the user's session, such as gateway webhooks.
type Recipients interface {
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
}

// Service applies verified payment outcomes to the subscription store.
type Service struct {
	subs       Subscriptions
	notifier   Notifier
	publisher  events.Publisher
	recipients Recipients
	now        func() time.Time
}

type Option func(*Service)

func WithRecipients(r Recipients) Option {
	return func(s *Service) { s.recipients = r }
}

func NewService(subs Subscriptions, notifier Notifier, publisher events.Publisher, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &Service{
		subs:      subs,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Activate(ctx context.Context, userID uuid.UUID, email string, planID subscription.PlanID, refs subscription.PaymentRefs, gateway string) (*subscription.Subscription, error) {
	plan, err := subscription.FindPlan(planID)
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.UpsertActiveSubscription(ctx, userID, plan.ID, refs)
	if err != nil {
		return nil, fmt.Errorf("activate %s: %w", plan.ID, err)
	}
	metrics.RecordSubscription(string(plan.ID), gateway)

	if s.notifier != nil && email != "" {
		until := plan.EndDate(sub.StartDate)
		if sub.EndDate != nil {
			until = *sub.EndDate
		}
		if err := s.notifier.SendSubscriptionActivated(ctx, email, "", plan, until); err != nil {
			logger.Warn("failed to queue activation email", "user_id", userID.String(), "error", err)
		}
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeSubscriptionActivated,
		UserID:     userID.String(),
		Plan:       string(plan.ID),
		Gateway:    gateway,
		OccurredAt: s.now().UTC(),
	})
	return sub, nil
}

// CancelRecurring cancels the active subscription still bound to ref. A ref
// that was replaced by a later purchase is ignored.
func (s *Service) CancelRecurring(ctx context.Context, ref, gateway string) error {
	sub, err := s.subs.FindByRecurringRef(ctx, ref)
	if err != nil {
		return err
	}
	if sub == nil || sub.Status != subscription.StatusActive {
		logger.Info("no active subscription for recurring ref", "ref", ref, "gateway", gateway)
		return nil
	}

	cancelled, err := s.subs.CancelActiveSubscription(ctx, sub.UserID)
	if err != nil {
		return err
	}
	if !cancelled {
		return nil
	}
	s.notifyCancelled(ctx, sub.UserID)

	s.publish(ctx, events.Event{
		Type:       events.TypeSubscriptionCancelled,
		UserID:     sub.UserID.String(),
		Plan:       string(sub.PlanID),
		Gateway:    gateway,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

func (s *Service) notifyCancelled(ctx context.Context, userID uuid.UUID) {
	if s.notifier == nil || s.recipients == nil {
		return
	}
	p, err := s.recipients.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("failed to look up cancellation recipient", "user_id", userID.String(), "error", err)
		return
	}
	if p == nil || p.Email == "" {
		return
	}
	if err := s.notifier.SendSubscriptionCancelled(ctx, p.Email, p.FullName); err != nil {
		logger.Warn("failed to queue cancellation email", "user_id", userID.String(), "error", err)
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn("failed to publish event", "type", e.Type, "error", err)
	}
}
