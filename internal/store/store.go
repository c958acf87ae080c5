// Package store defines the repository contract the fabric core depends on
// and an in-memory implementation of it. The durable persistence layer is an
// external collaborator that satisfies the same interface; the in-memory
// store backs tests and the simulated fabric.
package store

import (
	"time"

	"github.com/datatier/datatier/pkg/types"
)

// ObjectStore is the object-table contract.
type ObjectStore interface {
	CreateObject(obj types.DataObject) error
	GetObject(id string) (types.DataObject, bool)
	// UpdateObject applies fn to the stored record under the store's lock,
	// so concurrent readers never observe a half-applied mutation.
	UpdateObject(id string, fn func(*types.DataObject)) bool
	ListObjects(limit int) []types.DataObject
	CountObjects() int
}

// AccessStore is the append-only access-event table contract.
type AccessStore interface {
	AppendAccess(rec types.AccessRecord)
	CountAccesses(objectID string, since time.Time) int64
	CountAllAccesses(since time.Time) int64
	LastAccess(objectID string) (time.Time, bool)
	// AvgLatency returns the mean of recorded latencies and the sample
	// count; zero samples means no latency was ever observed.
	AvgLatency(objectID string) (float64, int64)
}

// MigrationStore is the migration-table contract.
type MigrationStore interface {
	CreateMigration(m types.Migration) error
	GetMigration(id string) (types.Migration, bool)
	UpdateMigration(id string, fn func(*types.Migration)) bool
	// ActiveByObject returns the non-terminal migration for an object, if
	// one exists. The core relies on there being at most one.
	ActiveByObject(objectID string) (types.Migration, bool)
	CountByStatus(status types.MigrationStatus) int
	// RecentByStatus counts migrations in the given status whose attempt
	// started inside the trailing window.
	RecentByStatus(objectID string, status types.MigrationStatus, since time.Time) int
	ListActive() []types.Migration
	History(objectID string, limit int) []types.Migration
}

// Store aggregates the three tables the core operates on.
type Store interface {
	ObjectStore
	AccessStore
	MigrationStore
}
