// Package replication tracks replica consistency and availability across
// locations: checksums, consistency verification, conflict resolution,
// replica-count enforcement and failure-isolation bookkeeping.
package replication

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

// Manager owns the replica-status bookkeeping for the fabric. The status
// map is explicitly held state guarded by the manager's lock, rebuilt from
// replication activity; it is never authoritative over the object record.
type Manager struct {
	cfg      *config.Configuration
	store    store.Store
	logger   *slog.Logger
	strategy ConflictStrategy

	mu       sync.RWMutex
	replicas map[string]*types.ReplicaStatus // key: objectID + "\x00" + location

	clock func() time.Time
}

// NewManager creates a replication manager with the last-write-wins
// conflict strategy.
func NewManager(cfg *config.Configuration, st store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    st,
		logger:   logger,
		strategy: LastWriteWins{},
		replicas: make(map[string]*types.ReplicaStatus),
		clock:    time.Now,
	}
}

// WithStrategy swaps the conflict-resolution strategy.
func (mgr *Manager) WithStrategy(s ConflictStrategy) *Manager {
	mgr.strategy = s
	return mgr
}

// WithClock overrides the time source. Used by tests.
func (mgr *Manager) WithClock(clock func() time.Time) *Manager {
	mgr.clock = clock
	return mgr
}

func replicaKey(objectID, location string) string {
	return objectID + "\x00" + location
}

// Checksum computes a deterministic fingerprint over the object's stable
// identity fields and last-modified marker. Identical inputs produce
// identical checksums; any field change produces a different one. A real
// deployment swaps in content hashing behind the same contract.
func (mgr *Manager) Checksum(objectID string) (string, error) {
	obj, ok := mgr.store.GetObject(objectID)
	if !ok {
		return "", errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("checksum")
	}

	content := fmt.Sprintf("%s_%s_%g_%s",
		obj.ID, obj.Name, obj.SizeGB, obj.LastAccessed.UTC().Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:]), nil
}

// Verify checks consistency for an object across the given locations
// (defaulting to the current primary only). The object is considered
// consistent when no migration has been in progress within the trailing
// consistency window.
func (mgr *Manager) Verify(objectID string, locations []string) (types.ConsistencyReport, error) {
	obj, ok := mgr.store.GetObject(objectID)
	if !ok {
		return types.ConsistencyReport{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("verify")
	}

	checksum, err := mgr.Checksum(objectID)
	if err != nil {
		return types.ConsistencyReport{}, err
	}

	now := mgr.clock()
	recent := mgr.store.RecentByStatus(objectID, types.MigrationInProgress,
		now.Add(-mgr.cfg.Replication.ConsistencyWindow))

	if len(locations) == 0 {
		locations = []string{obj.CurrentLocation}
	}

	return types.ConsistencyReport{
		ObjectID:         objectID,
		Checksum:         checksum,
		Consistent:       recent == 0,
		LocationsChecked: locations,
		ActiveMigrations: recent,
		Timestamp:        now,
	}, nil
}

// Status reports the object's consistency snapshot against any active
// (pending or in-progress) migration, regardless of recency.
func (mgr *Manager) Status(objectID string) (types.ConsistencyReport, error) {
	obj, ok := mgr.store.GetObject(objectID)
	if !ok {
		return types.ConsistencyReport{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("status")
	}

	checksum, err := mgr.Checksum(objectID)
	if err != nil {
		return types.ConsistencyReport{}, err
	}

	active := 0
	if _, ok := mgr.store.ActiveByObject(objectID); ok {
		active = 1
	}

	return types.ConsistencyReport{
		ObjectID:         objectID,
		Checksum:         checksum,
		Consistent:       active == 0,
		LocationsChecked: []string{obj.CurrentLocation},
		ActiveMigrations: active,
		Timestamp:        mgr.clock(),
	}, nil
}

// ResolveConflict resolves conflicting versions of an object using the
// configured strategy.
func (mgr *Manager) ResolveConflict(objectID string, versions []Version) (ConflictResolution, error) {
	if _, ok := mgr.store.GetObject(objectID); !ok {
		return ConflictResolution{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("resolve_conflict")
	}

	winner, err := mgr.strategy.Resolve(versions)
	if err != nil {
		return ConflictResolution{}, err
	}

	mgr.logger.Info("conflict resolved",
		"object", objectID,
		"strategy", mgr.strategy.Name(),
		"winner_location", winner.Location)

	return ConflictResolution{
		ObjectID:  objectID,
		Resolved:  true,
		Strategy:  mgr.strategy.Name(),
		Winner:    winner,
		Timestamp: mgr.clock(),
	}, nil
}

// Replicate creates replication tasks for each target location and tracks
// each replica as in progress. The reported location total counts the
// primary copy.
func (mgr *Manager) Replicate(objectID string, targetLocations []string) (types.ReplicationResult, error) {
	obj, ok := mgr.store.GetObject(objectID)
	if !ok {
		return types.ReplicationResult{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("replicate")
	}

	now := mgr.clock()
	tasks := make([]types.ReplicationTask, 0, len(targetLocations))

	mgr.mu.Lock()
	for _, location := range targetLocations {
		tasks = append(tasks, types.ReplicationTask{
			ObjectID:       objectID,
			SourceLocation: obj.CurrentLocation,
			TargetLocation: location,
			State:          types.ReplicaPending,
			StartedAt:      now,
		})

		mgr.replicas[replicaKey(objectID, location)] = &types.ReplicaStatus{
			ObjectID:  objectID,
			Location:  location,
			State:     types.ReplicaInProgress,
			Progress:  0,
			StartedAt: now,
		}
	}
	mgr.mu.Unlock()

	mgr.logger.Info("replication tasks created",
		"object", objectID,
		"targets", len(targetLocations))

	return types.ReplicationResult{
		ObjectID:       objectID,
		Tasks:          tasks,
		TotalLocations: len(targetLocations) + 1,
	}, nil
}

// CompleteReplica marks the replica at a location as fully copied. Returns
// false when no such replica is tracked.
func (mgr *Manager) CompleteReplica(objectID, location string) bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	status, ok := mgr.replicas[replicaKey(objectID, location)]
	if !ok {
		return false
	}
	status.State = types.ReplicaCompleted
	status.Progress = 100
	return true
}

// ReplicaStatuses returns a snapshot of all tracked replicas for an object.
func (mgr *Manager) ReplicaStatuses(objectID string) []types.ReplicaStatus {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	var out []types.ReplicaStatus
	for _, status := range mgr.replicas {
		if status.ObjectID == objectID {
			out = append(out, *status)
		}
	}
	return out
}

// HandleLocationFailure marks the replica at the failed location and reports
// whether the object remains available. The object is available as long as
// its primary location is not the one that failed.
func (mgr *Manager) HandleLocationFailure(objectID, failedLocation string) (types.AvailabilityReport, error) {
	obj, ok := mgr.store.GetObject(objectID)
	if !ok {
		return types.AvailabilityReport{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("location_failure")
	}

	mgr.mu.Lock()
	if status, ok := mgr.replicas[replicaKey(objectID, failedLocation)]; ok {
		status.State = types.ReplicaFailed
		status.Error = "network failure"
	}
	mgr.mu.Unlock()

	available := obj.CurrentLocation != failedLocation
	report := types.AvailabilityReport{
		ObjectID:       objectID,
		FailedLocation: failedLocation,
		Available:      available,
		Timestamp:      mgr.clock(),
	}
	if available {
		report.FallbackLocation = obj.CurrentLocation
	}

	mgr.logger.Warn("location failure handled",
		"object", objectID,
		"failed_location", failedLocation,
		"available", available)

	return report, nil
}

// EnsureMinReplicas counts the primary plus completed replicas and, when
// short, synthesizes targets for the missing copies and kicks off
// replication.
func (mgr *Manager) EnsureMinReplicas(objectID string, minReplicas int) (types.AvailabilityReport, error) {
	if _, ok := mgr.store.GetObject(objectID); !ok {
		return types.AvailabilityReport{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("ensure_min_replicas")
	}

	if minReplicas < 1 {
		minReplicas = mgr.cfg.Replication.MinReplicas
	}

	current := 1 // primary
	mgr.mu.RLock()
	for _, status := range mgr.replicas {
		if status.ObjectID == objectID && status.State == types.ReplicaCompleted {
			current++
		}
	}
	mgr.mu.RUnlock()

	report := types.AvailabilityReport{
		ObjectID:        objectID,
		Available:       true,
		CurrentReplicas: current,
		MinReplicas:     minReplicas,
		Sufficient:      current >= minReplicas,
		Timestamp:       mgr.clock(),
	}

	if current < minReplicas {
		needed := minReplicas - current
		targets := make([]string, 0, needed)
		for i := 0; i < needed; i++ {
			targets = append(targets, fmt.Sprintf("Replica-%d", i+1))
		}

		result, err := mgr.Replicate(objectID, targets)
		if err != nil {
			return types.AvailabilityReport{}, err
		}
		report.Replication = &result
	}

	return report, nil
}

// SyncEnvironments emits a synced record with a fresh checksum per
// environment. Stand-in for real cross-environment reconciliation.
func (mgr *Manager) SyncEnvironments(objectID string, environments []string) ([]types.SyncResult, error) {
	if _, ok := mgr.store.GetObject(objectID); !ok {
		return nil, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("replication").WithOperation("sync_environments")
	}

	results := make([]types.SyncResult, 0, len(environments))
	for _, env := range environments {
		checksum, err := mgr.Checksum(objectID)
		if err != nil {
			return nil, err
		}
		results = append(results, types.SyncResult{
			Environment: env,
			Status:      "synced",
			Checksum:    checksum,
			Timestamp:   mgr.clock(),
		})
	}
	return results, nil
}
