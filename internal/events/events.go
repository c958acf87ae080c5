// Package events carries the fabric's normalized event records: a tagged
// variant type for ingestion, access, migration, alert, optimization and
// replication events, an in-process bus relaying them to subscribers, and a
// processor applying inbound records to the fabric state.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/datatier/datatier/pkg/types"
)

// Type discriminates the event variants.
type Type string

const (
	TypeIngestion    Type = "data_ingestion"
	TypeAccess       Type = "access_event"
	TypeMigration    Type = "migration_event"
	TypeAlert        Type = "alert"
	TypeOptimization Type = "optimization_complete"
	TypeReplication  Type = "replication_tasks"
)

// Ingestion announces a new or updated data object entering the fabric.
type Ingestion struct {
	ObjectID    string  `json:"object_id"`
	SizeGB      float64 `json:"size_gb,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
}

// Access is one normalized access fact.
type Access struct {
	ObjectID  string           `json:"object_id"`
	Kind      types.AccessKind `json:"access_type"`
	LatencyMS float64          `json:"latency_ms,omitempty"`
	Source    string           `json:"source,omitempty"`
}

// MigrationUpdate carries a migration snapshot on creation or transition.
type MigrationUpdate struct {
	Migration types.Migration `json:"migration"`
}

// Alert is an operational warning from the fabric.
type Alert struct {
	Kind    string `json:"alert_type"`
	Message string `json:"message"`
}

// Optimization carries a completed placement recommendation.
type Optimization struct {
	Recommendation types.Recommendation `json:"recommendation"`
}

// Replication carries the task list of a replication request.
type Replication struct {
	Result types.ReplicationResult `json:"result"`
}

// Event is the tagged variant: Type selects exactly one non-nil payload.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Ingestion    *Ingestion       `json:"ingestion,omitempty"`
	Access       *Access          `json:"access,omitempty"`
	Migration    *MigrationUpdate `json:"migration,omitempty"`
	Alert        *Alert           `json:"alert,omitempty"`
	Optimization *Optimization    `json:"optimization,omitempty"`
	Replication  *Replication     `json:"replication,omitempty"`
}

func newEvent(t Type) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now(),
	}
}

// NewIngestion builds an ingestion event.
func NewIngestion(p Ingestion) Event {
	ev := newEvent(TypeIngestion)
	ev.Ingestion = &p
	return ev
}

// NewAccess builds an access event.
func NewAccess(p Access) Event {
	ev := newEvent(TypeAccess)
	ev.Access = &p
	return ev
}

// NewMigration builds a migration snapshot event.
func NewMigration(m types.Migration) Event {
	ev := newEvent(TypeMigration)
	ev.Migration = &MigrationUpdate{Migration: m}
	return ev
}

// NewAlert builds an alert event.
func NewAlert(kind, message string) Event {
	ev := newEvent(TypeAlert)
	ev.Alert = &Alert{Kind: kind, Message: message}
	return ev
}

// NewOptimization builds an optimization-complete event.
func NewOptimization(rec types.Recommendation) Event {
	ev := newEvent(TypeOptimization)
	ev.Optimization = &Optimization{Recommendation: rec}
	return ev
}

// NewReplication builds a replication-tasks event.
func NewReplication(result types.ReplicationResult) Event {
	ev := newEvent(TypeReplication)
	ev.Replication = &Replication{Result: result}
	return ev
}
