// Package placement decides where a data object should live: a pure tier
// classifier over access metrics, a cost/latency evaluator against the tier
// catalog, and an optimizer composing both into a scored recommendation.
package placement

import (
	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/pkg/types"
)

// ClassifyTier classifies an object into hot, warm or cold from its access
// metrics. Ordered policy, first match wins: hot needs both a high access
// rate and recent access, warm the analogous moderate thresholds, everything
// else is cold. Pure and deterministic.
func ClassifyTier(metrics types.AccessMetrics, thresholds map[types.Tier]config.AccessThreshold) types.Tier {
	hot := thresholds[types.TierHot]
	warm := thresholds[types.TierWarm]

	if metrics.AccessesPerDay >= hot.AccessesPerDay &&
		metrics.HoursSinceAccess <= hot.LastAccessHours {
		return types.TierHot
	}

	if metrics.AccessesPerDay >= warm.AccessesPerDay &&
		metrics.HoursSinceAccess <= warm.LastAccessHours {
		return types.TierWarm
	}

	return types.TierCold
}
