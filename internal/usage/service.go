package usage

import (
	"context"
	"fmt"

	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/metrics"
	"github.com/google/uuid"
)

// Service reads and advances lifetime usage counters.
//
// Reads fail open: a store error is logged and reported as zero uses so a
// store outage never blocks a user. Writes are returned to the caller.
type Service interface {
	GetUsageCount(ctx context.Context, userID uuid.UUID, feature Feature) int
	IncrementUsage(ctx context.Context, userID uuid.UUID, feature Feature) (int, error)
	ListUsage(ctx context.Context, userID uuid.UUID) map[Feature]int
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetUsageCount(ctx context.Context, userID uuid.UUID, feature Feature) int {
	count, err := s.repo.GetUsageCount(ctx, userID, feature)
	if err != nil {
		logger.Error("failed to read usage count",
			"user_id", userID.String(),
			"feature", string(feature),
			"error", err,
		)
		return 0
	}
	return count
}

func (s *service) IncrementUsage(ctx context.Context, userID uuid.UUID, feature Feature) (int, error) {
	if !feature.Valid() {
		return 0, fmt.Errorf("increment usage: unknown feature %q", feature)
	}

	count, err := s.repo.IncrementUsage(ctx, userID, feature)
	if err != nil {
		metrics.RecordUsageIncrement(string(feature), "failed")
		return 0, fmt.Errorf("increment usage for %s: %w", feature, err)
	}

	metrics.RecordUsageIncrement(string(feature), "ok")
	logger.Debug("usage incremented", "user_id", userID.String(), "feature", string(feature), "count", count)
	return count, nil
}

// ListUsage returns a count for every feature, zero for features never used.
func (s *service) ListUsage(ctx context.Context, userID uuid.UUID) map[Feature]int {
	out := make(map[Feature]int, len(freeLimits))
	for _, f := range Features() {
		out[f] = 0
	}

	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("failed to list usage", "user_id", userID.String(), "error", err)
		return out
	}
	for _, row := range rows {
		if row.FeatureType.Valid() {
			out[row.FeatureType] = row.UsageCount
		}
	}
	return out
}
