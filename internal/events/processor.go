package events

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

// Processor applies normalized inbound event records to the fabric state
// and relays every processed event to the bus. The ingestion transport
// (Kafka, MQTT, simulated feed) lives outside the core; the processor only
// sees records already in Event form.
type Processor struct {
	store  store.Store
	bus    *Bus
	logger *slog.Logger

	clock func() time.Time
}

// NewProcessor creates an event processor.
func NewProcessor(st store.Store, bus *Bus, logger *slog.Logger) *Processor {
	return &Processor{
		store:  st,
		bus:    bus,
		logger: logger,
		clock:  time.Now,
	}
}

// Process dispatches one event by its tag. Unknown or malformed events are
// rejected; handled events are relayed to subscribers.
func (p *Processor) Process(ev Event) error {
	var err error
	switch ev.Type {
	case TypeIngestion:
		err = p.handleIngestion(ev)
	case TypeAccess:
		err = p.handleAccess(ev)
	case TypeMigration:
		// Migration lifecycle is owned by the orchestrator; the record is
		// relay-only here.
	case TypeAlert:
		err = p.handleAlert(ev)
	case TypeOptimization, TypeReplication:
		// Outbound-only variants; nothing to apply.
	default:
		return errors.Newf(errors.ErrCodeInvalidInput, "unknown event type %q", ev.Type).
			WithComponent("events")
	}

	if err != nil {
		return err
	}

	p.bus.Publish(ev)
	return nil
}

func (p *Processor) handleIngestion(ev Event) error {
	if ev.Ingestion == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "ingestion event missing payload").
			WithComponent("events")
	}

	payload := ev.Ingestion
	if payload.ObjectID == "" {
		return nil
	}

	updated := p.store.UpdateObject(payload.ObjectID, func(obj *types.DataObject) {
		if payload.SizeGB > 0 {
			obj.SizeGB = payload.SizeGB
		}
		if payload.ContentType != "" {
			obj.ContentType = payload.ContentType
		}
	})
	if !updated {
		p.logger.Debug("ingestion event for unknown object", "object", payload.ObjectID)
	}
	return nil
}

func (p *Processor) handleAccess(ev Event) error {
	if ev.Access == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "access event missing payload").
			WithComponent("events")
	}

	payload := ev.Access
	if payload.ObjectID == "" {
		return nil
	}

	kind := payload.Kind
	if kind == "" {
		kind = types.AccessRead
	}

	now := p.clock()
	p.store.AppendAccess(types.AccessRecord{
		ID:         uuid.NewString(),
		ObjectID:   payload.ObjectID,
		AccessedAt: now,
		Kind:       kind,
		LatencyMS:  payload.LatencyMS,
		Source:     payload.Source,
	})

	p.store.UpdateObject(payload.ObjectID, func(obj *types.DataObject) {
		obj.AccessCount++
		obj.LastAccessed = now
	})
	return nil
}

func (p *Processor) handleAlert(ev Event) error {
	if ev.Alert == nil {
		return errors.NewError(errors.ErrCodeInvalidInput, "alert event missing payload").
			WithComponent("events")
	}
	p.logger.Warn("fabric alert", "alert_type", ev.Alert.Kind, "message", ev.Alert.Message)
	return nil
}
