package store

import (
	"sort"
	"sync"
	"time"

	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

// Memory is a lock-guarded in-memory Store. All returned entities are
// copies; mutation happens only through the Update methods.
type Memory struct {
	mu         sync.RWMutex
	objects    map[string]*types.DataObject
	accesses   map[string][]types.AccessRecord
	migrations map[string]*types.Migration
	// Insertion order for stable listing.
	objectOrder    []string
	migrationOrder []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		objects:    make(map[string]*types.DataObject),
		accesses:   make(map[string][]types.AccessRecord),
		migrations: make(map[string]*types.Migration),
	}
}

// CreateObject inserts a new object record.
func (s *Memory) CreateObject(obj types.DataObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[obj.ID]; exists {
		return errors.Newf(errors.ErrCodeInvalidInput, "object %s already exists", obj.ID)
	}
	cp := obj
	s.objects[obj.ID] = &cp
	s.objectOrder = append(s.objectOrder, obj.ID)
	return nil
}

// GetObject returns a copy of the object record.
func (s *Memory) GetObject(id string) (types.DataObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		return types.DataObject{}, false
	}
	return *obj, true
}

// UpdateObject applies fn under the store lock.
func (s *Memory) UpdateObject(id string, fn func(*types.DataObject)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		return false
	}
	fn(obj)
	return true
}

// ListObjects returns up to limit objects in insertion order. limit <= 0
// means no limit.
func (s *Memory) ListObjects(limit int) []types.DataObject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.objectOrder)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]types.DataObject, 0, n)
	for _, id := range s.objectOrder[:n] {
		out = append(out, *s.objects[id])
	}
	return out
}

// CountObjects returns the number of object records.
func (s *Memory) CountObjects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// AppendAccess appends an immutable access fact.
func (s *Memory) AppendAccess(rec types.AccessRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accesses[rec.ObjectID] = append(s.accesses[rec.ObjectID], rec)
}

// CountAccesses counts accesses for an object at or after since.
func (s *Memory) CountAccesses(objectID string, since time.Time) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rec := range s.accesses[objectID] {
		if !rec.AccessedAt.Before(since) {
			n++
		}
	}
	return n
}

// CountAllAccesses counts accesses across all objects at or after since.
func (s *Memory) CountAllAccesses(since time.Time) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, recs := range s.accesses {
		for _, rec := range recs {
			if !rec.AccessedAt.Before(since) {
				n++
			}
		}
	}
	return n
}

// LastAccess returns the most recent access timestamp for an object.
func (s *Memory) LastAccess(objectID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time
	found := false
	for _, rec := range s.accesses[objectID] {
		if rec.AccessedAt.After(last) {
			last = rec.AccessedAt
			found = true
		}
	}
	return last, found
}

// AvgLatency returns the mean recorded latency and the sample count.
func (s *Memory) AvgLatency(objectID string) (float64, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum float64
	var n int64
	for _, rec := range s.accesses[objectID] {
		if rec.LatencyMS > 0 {
			sum += rec.LatencyMS
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// CreateMigration inserts a new migration record.
func (s *Memory) CreateMigration(m types.Migration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.migrations[m.ID]; exists {
		return errors.Newf(errors.ErrCodeInvalidInput, "migration %s already exists", m.ID)
	}
	cp := m
	s.migrations[m.ID] = &cp
	s.migrationOrder = append(s.migrationOrder, m.ID)
	return nil
}

// GetMigration returns a copy of the migration record.
func (s *Memory) GetMigration(id string) (types.Migration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.migrations[id]
	if !ok {
		return types.Migration{}, false
	}
	return *m, true
}

// UpdateMigration applies fn under the store lock.
func (s *Memory) UpdateMigration(id string, fn func(*types.Migration)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.migrations[id]
	if !ok {
		return false
	}
	fn(m)
	return true
}

// ActiveByObject returns the non-terminal migration for an object, if any.
func (s *Memory) ActiveByObject(objectID string) (types.Migration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.migrations {
		if m.ObjectID == objectID && !m.Status.Terminal() {
			return *m, true
		}
	}
	return types.Migration{}, false
}

// CountByStatus counts migrations in the given status.
func (s *Memory) CountByStatus(status types.MigrationStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.migrations {
		if m.Status == status {
			n++
		}
	}
	return n
}

// RecentByStatus counts migrations for an object in the given status whose
// attempt started at or after since.
func (s *Memory) RecentByStatus(objectID string, status types.MigrationStatus, since time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.migrations {
		if m.ObjectID == objectID && m.Status == status && !m.StartedAt.Before(since) {
			n++
		}
	}
	return n
}

// ListActive returns pending and in-progress migrations, newest first.
func (s *Memory) ListActive() []types.Migration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Migration
	for _, id := range s.migrationOrder {
		m := s.migrations[id]
		if !m.Status.Terminal() {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// History returns up to limit migrations, newest first. An empty objectID
// returns history across all objects. limit <= 0 applies a default of 50.
func (s *Memory) History(objectID string, limit int) []types.Migration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var out []types.Migration
	for _, id := range s.migrationOrder {
		m := s.migrations[id]
		if objectID == "" || m.ObjectID == objectID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
