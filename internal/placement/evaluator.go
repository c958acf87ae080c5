package placement

import (
	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/pkg/types"
)

// DefaultAssumedLatencyMS is used when an object has no latency samples.
const DefaultAssumedLatencyMS = 100.0

// Evaluator scores the cost and latency consequences of moving an object to
// a candidate tier. Both methods are pure functions over the tier catalog.
type Evaluator struct {
	cfg *config.Configuration
}

// NewEvaluator creates an evaluator bound to a tier catalog.
func NewEvaluator(cfg *config.Configuration) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// CostDelta computes the absolute and percentage monthly savings of moving
// an object from its current tier to targetTier.
func (e *Evaluator) CostDelta(obj types.DataObject, targetTier types.Tier) types.CostAnalysis {
	currentCost := e.cfg.MonthlyCost(obj.CurrentTier, obj.SizeGB)
	targetCost := e.cfg.MonthlyCost(targetTier, obj.SizeGB)

	savings := currentCost - targetCost
	savingsPercent := 0.0
	if currentCost > 0 {
		savingsPercent = savings / currentCost * 100
	}

	return types.CostAnalysis{
		CurrentCost:        currentCost,
		TargetCost:         targetCost,
		CostSavings:        savings,
		CostSavingsPercent: savingsPercent,
	}
}

// LatencyVerdict compares the target tier's nominal latency against the
// object's observed average access latency. The target is acceptable when
// it stays within twice the observed average.
func (e *Evaluator) LatencyVerdict(metrics types.AccessMetrics, targetTier types.Tier) types.LatencyAnalysis {
	observed := metrics.AvgLatencyMS
	if metrics.LatencySamples == 0 {
		observed = DefaultAssumedLatencyMS
	}

	targetLatency := 0.0
	if spec, ok := e.cfg.Tier(targetTier); ok {
		targetLatency = spec.LatencyMS
	}

	return types.LatencyAnalysis{
		CurrentAvgLatencyMS: observed,
		TargetLatencyMS:     targetLatency,
		Acceptable:          targetLatency <= observed*2,
		PenaltyMS:           targetLatency - observed,
	}
}
