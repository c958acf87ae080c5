package events

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/types"
)

// Simulator generates a continuous feed of ingestion, access and alert
// events against the objects already in the store. It stands in for the
// real ingestion transport during development and tests.
type Simulator struct {
	store     store.Store
	processor *Processor
	logger    *slog.Logger
	rng       *rand.Rand
}

// NewSimulator creates a feed simulator. Pass a seeded source for
// reproducible streams in tests.
func NewSimulator(st store.Store, processor *Processor, logger *slog.Logger, seed int64) *Simulator {
	return &Simulator{
		store:     st,
		processor: processor,
		logger:    logger,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Run emits one random event per interval until the context is canceled.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := s.generate()
			if err := s.processor.Process(ev); err != nil {
				s.logger.Warn("simulated event rejected", "type", ev.Type, "error", err)
			}
		}
	}
}

var contentTypes = []string{"image", "video", "document", "database"}

var alertKinds = []struct {
	kind    string
	message string
}{
	{"cost_threshold", "High cost detected"},
	{"latency_spike", "Latency spike"},
	{"capacity_warning", "Capacity warning"},
}

// generate picks a random object and event variant.
func (s *Simulator) generate() Event {
	objects := s.store.ListObjects(0)
	var objectID string
	if len(objects) > 0 {
		objectID = objects[s.rng.Intn(len(objects))].ID
	}

	switch s.rng.Intn(3) {
	case 0:
		return NewIngestion(Ingestion{
			ObjectID:    objectID,
			SizeGB:      0.1 + s.rng.Float64()*99.9,
			ContentType: contentTypes[s.rng.Intn(len(contentTypes))],
		})
	case 1:
		kinds := []types.AccessKind{types.AccessRead, types.AccessWrite, types.AccessDelete}
		return NewAccess(Access{
			ObjectID:  objectID,
			Kind:      kinds[s.rng.Intn(len(kinds))],
			LatencyMS: 5 + s.rng.Float64()*495,
			Source:    fmt.Sprintf("192.168.1.%d", 1+s.rng.Intn(255)),
		})
	default:
		alert := alertKinds[s.rng.Intn(len(alertKinds))]
		return NewAlert(alert.kind, alert.message)
	}
}
