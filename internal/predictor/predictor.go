// Package predictor forecasts the tier an object is likely to need based on
// its usage pattern. Predictions are advisory: the placement optimizer stays
// authoritative and a forecast never moves data on its own.
package predictor

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

// Features is the usage feature vector extracted for one object.
type Features struct {
	SizeGB            float64 `json:"size_gb"`
	AccessCount       int64   `json:"access_count"`
	AccessesPerDay    float64 `json:"accesses_per_day"`
	HoursSinceAccess  float64 `json:"hours_since_access"`
	AvgLatencyMS      float64 `json:"avg_latency_ms"`
	CurrentCost       float64 `json:"current_cost"`
	DaysSinceCreation float64 `json:"days_since_creation"`
}

// defaultLatencyMS stands in when an object has no recorded latency samples.
const defaultLatencyMS = 100.0

const historyCap = 500

// Predictor scores objects against per-tier usage profiles.
type Predictor struct {
	config *config.Configuration
	store  store.Store
	logger *slog.Logger

	clock func() time.Time

	mu      sync.Mutex
	history []types.Prediction
}

// New creates a predictor.
func New(cfg *config.Configuration, st store.Store, logger *slog.Logger) *Predictor {
	return &Predictor{
		config: cfg,
		store:  st,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the predictor's clock. Test hook.
func (p *Predictor) WithClock(clock func() time.Time) *Predictor {
	p.clock = clock
	return p
}

// ExtractFeatures builds the usage feature vector for an object.
func (p *Predictor) ExtractFeatures(objectID string) (Features, error) {
	obj, ok := p.store.GetObject(objectID)
	if !ok {
		return Features{}, errors.Newf(errors.ErrCodeObjectNotFound, "object %s not found", objectID).
			WithComponent("predictor")
	}

	now := p.clock()
	window := time.Duration(p.config.Replication.AccessMetricsWindow) * 24 * time.Hour
	accessCount := p.store.CountAccesses(objectID, now.Add(-window))

	accessesPerDay := 0.0
	if accessCount > 0 {
		accessesPerDay = float64(accessCount) / float64(p.config.Replication.AccessMetricsWindow)
	}

	var hoursSince float64
	if last, ok := p.store.LastAccess(objectID); ok {
		hoursSince = now.Sub(last).Hours()
	} else {
		hoursSince = now.Sub(obj.FirstCreated).Hours()
	}

	avgLatency, samples := p.store.AvgLatency(objectID)
	if samples == 0 {
		avgLatency = defaultLatencyMS
	}

	return Features{
		SizeGB:            obj.SizeGB,
		AccessCount:       accessCount,
		AccessesPerDay:    accessesPerDay,
		HoursSinceAccess:  hoursSince,
		AvgLatencyMS:      avgLatency,
		CurrentCost:       obj.MonthlyCost,
		DaysSinceCreation: now.Sub(obj.FirstCreated).Hours() / 24,
	}, nil
}

// PredictTier forecasts the tier an object's usage pattern fits best.
func (p *Predictor) PredictTier(objectID string) (types.Prediction, error) {
	features, err := p.ExtractFeatures(objectID)
	if err != nil {
		return types.Prediction{}, err
	}

	scores := tierScores(features)
	tier, confidence := pick(scores)

	prediction := types.Prediction{
		ObjectID:      objectID,
		PredictedTier: tier,
		Confidence:    confidence,
		Reasoning:     reasoning(features, tier, confidence),
		PredictedAt:   p.clock(),
	}

	p.record(prediction)
	p.logger.Debug("tier predicted",
		"object", objectID,
		"tier", tier,
		"confidence", fmt.Sprintf("%.2f", confidence))

	return prediction, nil
}

// BatchPredict forecasts tiers for up to limit objects. Objects that vanish
// mid-batch are skipped.
func (p *Predictor) BatchPredict(limit int) []types.Prediction {
	objects := p.store.ListObjects(limit)
	predictions := make([]types.Prediction, 0, len(objects))
	for _, obj := range objects {
		prediction, err := p.PredictTier(obj.ID)
		if err != nil {
			continue
		}
		predictions = append(predictions, prediction)
	}
	return predictions
}

// Recent returns the most recent predictions, newest first.
func (p *Predictor) Recent(limit int) []types.Prediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limit <= 0 || limit > len(p.history) {
		limit = len(p.history)
	}
	out := make([]types.Prediction, limit)
	for i := 0; i < limit; i++ {
		out[i] = p.history[len(p.history)-1-i]
	}
	return out
}

func (p *Predictor) record(prediction types.Prediction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history = append(p.history, prediction)
	if len(p.history) > historyCap {
		p.history = p.history[len(p.history)-historyCap:]
	}
}

// tierScores rates how well the feature vector matches each tier's usage
// profile. Frequency dominates, recency second, latency sensitivity last.
func tierScores(f Features) map[types.Tier]float64 {
	scores := map[types.Tier]float64{}

	hot := 0.0
	switch {
	case f.AccessesPerDay >= 50:
		hot += 0.5
	case f.AccessesPerDay >= 10:
		hot += 0.35
	case f.AccessesPerDay >= 1:
		hot += 0.15
	}
	switch {
	case f.HoursSinceAccess < 24:
		hot += 0.4
	case f.HoursSinceAccess < 168:
		hot += 0.2
	}
	if f.AvgLatencyMS < 50 {
		hot += 0.1
	}
	scores[types.TierHot] = hot

	warm := 0.1
	switch {
	case f.AccessesPerDay >= 50:
		warm += 0.2
	case f.AccessesPerDay >= 1:
		warm += 0.5
	}
	switch {
	case f.HoursSinceAccess < 24:
		warm += 0.25
	case f.HoursSinceAccess < 168:
		warm += 0.4
	}
	scores[types.TierWarm] = warm

	cold := 0.0
	switch {
	case f.AccessesPerDay < 1:
		cold += 0.5
	case f.AccessesPerDay < 10:
		cold += 0.2
	}
	switch {
	case f.HoursSinceAccess >= 168:
		cold += 0.4
	case f.HoursSinceAccess >= 24:
		cold += 0.15
	}
	if f.SizeGB > 10 {
		cold += 0.1
	}
	scores[types.TierCold] = cold

	return scores
}

// pick chooses the highest-scoring tier and normalizes its score against the
// total to yield a confidence in (0,1]. Ties break toward the hotter tier.
func pick(scores map[types.Tier]float64) (types.Tier, float64) {
	order := []types.Tier{types.TierHot, types.TierWarm, types.TierCold}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	best := order[0]

	total := 0.0
	// Sum in a fixed order: float addition is order-sensitive and map
	// iteration is randomized, so ranging over the map makes the
	// confidence nondeterministic across calls.
	for _, t := range []types.Tier{types.TierHot, types.TierWarm, types.TierCold} {
		total += scores[t]
	}
	if total == 0 {
		return types.TierWarm, 1.0 / 3.0
	}
	return best, scores[best] / total
}

func reasoning(f Features, tier types.Tier, confidence float64) string {
	var reasons []string

	switch {
	case f.AccessesPerDay > 50:
		reasons = append(reasons, fmt.Sprintf("Very high access frequency (%.1f/day)", f.AccessesPerDay))
	case f.AccessesPerDay > 10:
		reasons = append(reasons, fmt.Sprintf("High access frequency (%.1f/day)", f.AccessesPerDay))
	case f.AccessesPerDay > 1:
		reasons = append(reasons, fmt.Sprintf("Moderate access frequency (%.1f/day)", f.AccessesPerDay))
	default:
		reasons = append(reasons, fmt.Sprintf("Low access frequency (%.1f/day)", f.AccessesPerDay))
	}

	switch {
	case f.HoursSinceAccess < 24:
		reasons = append(reasons, "Recently accessed")
	case f.HoursSinceAccess < 168:
		reasons = append(reasons, "Accessed within last week")
	default:
		reasons = append(reasons, "Not accessed recently")
	}

	switch tier {
	case types.TierHot:
		reasons = append(reasons, "Recommended for hot tier due to high access")
	case types.TierWarm:
		reasons = append(reasons, "Recommended for warm tier for balanced performance/cost")
	default:
		reasons = append(reasons, "Recommended for cold tier due to low access")
	}

	reasons = append(reasons, fmt.Sprintf("Confidence: %.1f%%", confidence*100))

	return strings.Join(reasons, "; ")
}
