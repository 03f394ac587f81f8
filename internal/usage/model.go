package usage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Feature identifies a metered analysis feature.
type Feature string

const (
	FeaturePortfolioMonitor   Feature = "portfolio_monitor"
	FeatureStockAnalyzer      Feature = "stock_analyzer"
	FeatureAlphaEdgeEvaluator Feature = "alphaedge_evaluator"
)

var freeLimits = map[Feature]int{
	FeaturePortfolioMonitor:   3,
	FeatureStockAnalyzer:      2,
	FeatureAlphaEdgeEvaluator: 1,
}

var displayNames = map[Feature]string{
	FeaturePortfolioMonitor:   "Portfolio Monitor",
	FeatureStockAnalyzer:      "Stock Analyzer",
	FeatureAlphaEdgeEvaluator: "AlphaEdge Evaluator",
}

// Features returns every metered feature in display order.
func Features() []Feature {
	return []Feature{FeaturePortfolioMonitor, FeatureStockAnalyzer, FeatureAlphaEdgeEvaluator}
}

func ParseFeature(s string) (Feature, error) {
	f := Feature(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown feature %q", s)
	}
	return f, nil
}

func (f Feature) Valid() bool {
	_, ok := freeLimits[f]
	return ok
}

// FreeLimit is the lifetime number of uses granted without a paid plan.
func (f Feature) FreeLimit() int {
	return freeLimits[f]
}

func (f Feature) DisplayName() string {
	if name, ok := displayNames[f]; ok {
		return name
	}
	return string(f)
}

type FeatureUsage struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	FeatureType Feature   `db:"feature_type" json:"feature_type"`
	UsageCount  int       `db:"usage_count" json:"usage_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
