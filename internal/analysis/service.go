package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/entitlement"
	"github.com/SanchitCoder/PortIQ/internal/events"
	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/metrics"
	"github.com/SanchitCoder/PortIQ/internal/usage"

	"github.com/google/uuid"
)

// Entitlements is the subset of the entitlement engine an invocation needs.
type Entitlements interface {
	CanUseFeature(ctx context.Context, userID uuid.UUID, feature usage.Feature) bool
	RemainingUses(ctx context.Context, userID uuid.UUID, feature usage.Feature) entitlement.Remaining
	ConsumeUse(ctx context.Context, userID uuid.UUID, feature usage.Feature) (bool, error)
}

// Endpoints maps each feature to its analysis webhook URL.
type Endpoints map[usage.Feature]string

func NewEndpoints(portfolio, stock, evaluator string) Endpoints {
	return Endpoints{
		usage.FeaturePortfolioMonitor:   portfolio,
		usage.FeatureStockAnalyzer:      stock,
		usage.FeatureAlphaEdgeEvaluator: evaluator,
	}
}

type Result struct {
	Feature   usage.Feature         `json:"feature"`
	Text      string                `json:"result"`
	Remaining entitlement.Remaining `json:"remaining_uses"`
}

type Service interface {
	Invoke(ctx context.Context, userID uuid.UUID, req Request) (*Result, error)
}

type service struct {
	entitlements Entitlements
	poster       Poster
	endpoints    Endpoints
	publisher    events.Publisher
	now          func() time.Time
}

func NewService(entitlements Entitlements, poster Poster, endpoints Endpoints, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &service{
		entitlements: entitlements,
		poster:       poster,
		endpoints:    endpoints,
		publisher:    publisher,
		now:          time.Now,
	}
}

// Invoke gates the call on the caller's entitlement, forwards the payload to
// the feature webhook, and charges one use to free users once a displayable
// result is in hand. Failed calls are never charged.
func (s *service) Invoke(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	feature := req.Feature()

	payload, err := req.Payload()
	if err != nil {
		metrics.RecordInvocation(string(feature), "invalid")
		return nil, err
	}

	if !s.entitlements.CanUseFeature(ctx, userID, feature) {
		metrics.RecordInvocation(string(feature), "exhausted")
		return nil, &ExhaustedError{Feature: feature}
	}

	start := time.Now()
	body, err := s.poster.Post(ctx, s.endpoints[feature], payload)
	metrics.RecordWebhook(string(feature), time.Since(start).Seconds())
	if err != nil {
		metrics.RecordInvocation(string(feature), "webhook_failed")
		logger.Warn("analysis webhook failed",
			"feature", string(feature),
			"user_id", userID.String(),
			"error", err,
		)
		return nil, err
	}

	text, err := DisplayText(body)
	if err != nil {
		metrics.RecordInvocation(string(feature), "empty_result")
		if errors.Is(err, ErrEmptyResult) {
			logger.Warn("analysis webhook returned empty body", "feature", string(feature))
		}
		return nil, err
	}

	charged, err := s.entitlements.ConsumeUse(ctx, userID, feature)
	if err != nil {
		// The user already has the result; the use goes uncounted.
		logger.CaptureError(err, "usage increment failed", map[string]interface{}{
			"feature": string(feature),
			"user_id": userID.String(),
		})
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeFeatureInvoked,
		UserID:     userID.String(),
		Feature:    string(feature),
		Charged:    charged,
		OccurredAt: s.now().UTC(),
	})
	metrics.RecordInvocation(string(feature), "success")

	return &Result{
		Feature:   feature,
		Text:      text,
		Remaining: s.entitlements.RemainingUses(ctx, userID, feature),
	}, nil
}

func (s *service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn("failed to publish event", "type", e.Type, "error", err)
	}
}
