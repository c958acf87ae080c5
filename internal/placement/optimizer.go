package placement

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

// MinCostSavings is the smallest monthly saving worth acting on.
const MinCostSavings = 0.01

// Optimizer composes the classifier and evaluator into a migration
// recommendation with a 0-100 score and a go/no-go decision.
type Optimizer struct {
	cfg       *config.Configuration
	store     store.Store
	evaluator *Evaluator
	logger    *slog.Logger

	clock func() time.Time
}

// NewOptimizer creates a placement optimizer.
func NewOptimizer(cfg *config.Configuration, st store.Store, logger *slog.Logger) *Optimizer {
	return &Optimizer{
		cfg:       cfg,
		store:     st,
		evaluator: NewEvaluator(cfg),
		logger:    logger,
		clock:     time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (o *Optimizer) WithClock(clock func() time.Time) *Optimizer {
	o.clock = clock
	return o
}

// AccessMetricsFor aggregates an object's access history over the trailing
// metrics window. HoursSinceAccess is +Inf when the object was never
// accessed.
func (o *Optimizer) AccessMetricsFor(objectID string) types.AccessMetrics {
	now := o.clock()
	windowDays := o.cfg.Replication.AccessMetricsWindow
	cutoff := now.AddDate(0, 0, -windowDays)

	count := o.store.CountAccesses(objectID, cutoff)
	perDay := 0.0
	if windowDays > 0 {
		perDay = float64(count) / float64(windowDays)
	}

	metrics := types.AccessMetrics{
		AccessesPerDay:   perDay,
		TotalAccesses:    count,
		HoursSinceAccess: math.Inf(1),
	}

	if last, ok := o.store.LastAccess(objectID); ok {
		metrics.LastAccess = last
		metrics.HoursSinceAccess = now.Sub(last).Hours()
	}

	metrics.AvgLatencyMS, metrics.LatencySamples = o.store.AvgLatency(objectID)
	return metrics
}

// Optimize determines the optimal placement for a data object.
func (o *Optimizer) Optimize(objectID string) (types.Recommendation, error) {
	obj, ok := o.store.GetObject(objectID)
	if !ok {
		return types.Recommendation{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("optimizer")
	}

	metrics := o.AccessMetricsFor(objectID)
	recommended := ClassifyTier(metrics, o.cfg.Thresholds)
	cost := o.evaluator.CostDelta(obj, recommended)
	latency := o.evaluator.LatencyVerdict(metrics, recommended)

	score := optimizationScore(metrics, cost, latency, recommended)

	shouldMigrate := recommended != obj.CurrentTier &&
		cost.CostSavings > MinCostSavings &&
		latency.Acceptable

	rec := types.Recommendation{
		ObjectID:        objectID,
		CurrentTier:     obj.CurrentTier,
		RecommendedTier: recommended,
		AccessMetrics:   metrics,
		CostAnalysis:    cost,
		LatencyAnalysis: latency,
		Score:           score,
		ShouldMigrate:   shouldMigrate,
		Reasons:         reasons(metrics, cost, latency),
		GeneratedAt:     o.clock(),
	}

	o.logger.Debug("placement evaluated",
		"object", objectID,
		"current_tier", obj.CurrentTier,
		"recommended_tier", recommended,
		"score", score,
		"should_migrate", shouldMigrate)

	return rec, nil
}

// BatchOptimize evaluates up to limit objects, skipping any that disappear
// between listing and evaluation.
func (o *Optimizer) BatchOptimize(limit int) []types.Recommendation {
	objects := o.store.ListObjects(limit)
	results := make([]types.Recommendation, 0, len(objects))

	for _, obj := range objects {
		rec, err := o.Optimize(obj.ID)
		if err != nil {
			continue
		}
		results = append(results, rec)
	}
	return results
}

// optimizationScore computes the composite 0-100 placement score: access
// pattern fit (0-40), cost efficiency (0-30) and latency fitness (0-30,
// zeroed when the verdict is unacceptable).
func optimizationScore(metrics types.AccessMetrics, cost types.CostAnalysis, latency types.LatencyAnalysis, tier types.Tier) float64 {
	var accessScore float64
	switch tier {
	case types.TierHot:
		accessScore = math.Min(40, metrics.AccessesPerDay*0.4)
	case types.TierWarm:
		accessScore = math.Min(30, metrics.AccessesPerDay*3)
	default:
		// Cold is the right home for rarely touched data.
		accessScore = 20
	}

	costScore := math.Min(30, cost.CostSavingsPercent*0.3)
	if costScore < 0 {
		costScore = 0
	}

	var latencyScore float64
	if latency.Acceptable {
		latencyScore = 30 - math.Min(30, math.Max(0, latency.PenaltyMS)*0.1)
	}

	total := accessScore + costScore + latencyScore
	return math.Min(100, math.Max(0, total))
}

// reasons derives the ordered human-readable justifications from the same
// inputs as the decision itself.
func reasons(metrics types.AccessMetrics, cost types.CostAnalysis, latency types.LatencyAnalysis) []string {
	out := make([]string, 0, 3)

	switch {
	case metrics.AccessesPerDay > 50:
		out = append(out, fmt.Sprintf("High access frequency (%.1f accesses/day)", metrics.AccessesPerDay))
	case metrics.AccessesPerDay > 5:
		out = append(out, fmt.Sprintf("Moderate access frequency (%.1f accesses/day)", metrics.AccessesPerDay))
	default:
		out = append(out, fmt.Sprintf("Low access frequency (%.1f accesses/day)", metrics.AccessesPerDay))
	}

	if cost.CostSavings > 0 {
		out = append(out, fmt.Sprintf("Cost savings: $%.2f/month (%.1f%%)",
			cost.CostSavings, cost.CostSavingsPercent))
	}

	if latency.Acceptable {
		out = append(out, fmt.Sprintf("Latency acceptable: %.0fms", latency.TargetLatencyMS))
	} else {
		out = append(out, fmt.Sprintf("Latency concern: %.0fms may be too high", latency.TargetLatencyMS))
	}

	return out
}
