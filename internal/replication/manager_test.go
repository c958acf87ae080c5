package replication

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

var frozen = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newManager(t *testing.T) (*Manager, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	mgr := NewManager(config.NewDefault(), st, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return frozen })
	return mgr, st
}

func seedObject(t *testing.T, st *store.Memory, id string) types.DataObject {
	t.Helper()
	obj := types.DataObject{
		ID: id, Name: "dataset-" + id, SizeGB: 10,
		CurrentTier:     types.TierWarm,
		CurrentLocation: "Private Cloud Infrastructure",
		LastAccessed:    frozen.Add(-time.Hour),
	}
	require.NoError(t, st.CreateObject(obj))
	return obj
}

func TestChecksumDeterministic(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	first, err := mgr.Checksum("a")
	require.NoError(t, err)
	second, err := mgr.Checksum("a")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same state must hash identically")
	assert.Len(t, first, 64, "sha256 hex digest")
}

func TestChecksumChangesWithState(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	before, err := mgr.Checksum("a")
	require.NoError(t, err)

	st.UpdateObject("a", func(obj *types.DataObject) {
		obj.LastAccessed = frozen
	})

	after, err := mgr.Checksum("a")
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "field change must change the checksum")
}

func TestVerifyConsistentWhenQuiet(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	report, err := mgr.Verify("a", nil)
	require.NoError(t, err)

	assert.True(t, report.Consistent)
	assert.Zero(t, report.ActiveMigrations)
	assert.Equal(t, []string{"Private Cloud Infrastructure"}, report.LocationsChecked)
}

func TestVerifyInconsistentDuringMigration(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	require.NoError(t, st.CreateMigration(types.Migration{
		ID: "m1", ObjectID: "a",
		Status:    types.MigrationInProgress,
		StartedAt: frozen.Add(-30 * time.Minute),
	}))

	report, err := mgr.Verify("a", []string{"loc-1", "loc-2"})
	require.NoError(t, err)

	assert.False(t, report.Consistent)
	assert.Equal(t, 1, report.ActiveMigrations)
	assert.Equal(t, []string{"loc-1", "loc-2"}, report.LocationsChecked)
}

func TestVerifyIgnoresOldMigrations(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	// In progress, but its attempt started outside the trailing window.
	require.NoError(t, st.CreateMigration(types.Migration{
		ID: "m1", ObjectID: "a",
		Status:    types.MigrationInProgress,
		StartedAt: frozen.Add(-2 * time.Hour),
	}))

	report, err := mgr.Verify("a", nil)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestVerifyUnknownObject(t *testing.T) {
	t.Parallel()

	mgr, _ := newManager(t)
	_, err := mgr.Verify("missing", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeObjectNotFound))
}

func TestLastWriteWins(t *testing.T) {
	t.Parallel()

	versions := []Version{
		{Location: "loc-1", Timestamp: frozen.Add(-2 * time.Hour)},
		{Location: "loc-2", Timestamp: frozen.Add(-time.Minute)},
		{Location: "loc-3", Timestamp: frozen.Add(-time.Hour)},
	}

	winner, err := LastWriteWins{}.Resolve(versions)
	require.NoError(t, err)
	assert.Equal(t, "loc-2", winner.Location)

	_, err = LastWriteWins{}.Resolve(nil)
	assert.Error(t, err, "empty version set cannot be resolved")
}

func TestResolveConflict(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	resolution, err := mgr.ResolveConflict("a", []Version{
		{Location: "loc-1", Timestamp: frozen.Add(-time.Hour)},
		{Location: "loc-2", Timestamp: frozen},
	})
	require.NoError(t, err)

	assert.True(t, resolution.Resolved)
	assert.Equal(t, "last_write_wins", resolution.Strategy)
	assert.Equal(t, "loc-2", resolution.Winner.Location)
}

func TestReplicateTracksReplicas(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	result, err := mgr.Replicate("a", []string{"loc-1", "loc-2"})
	require.NoError(t, err)

	assert.Len(t, result.Tasks, 2)
	assert.Equal(t, 3, result.TotalLocations, "primary counts toward the total")
	for _, task := range result.Tasks {
		assert.Equal(t, types.ReplicaPending, task.State)
		assert.Equal(t, "Private Cloud Infrastructure", task.SourceLocation)
	}

	statuses := mgr.ReplicaStatuses("a")
	assert.Len(t, statuses, 2)
	for _, status := range statuses {
		assert.Equal(t, types.ReplicaInProgress, status.State)
	}
}

func TestCompleteReplica(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")
	_, err := mgr.Replicate("a", []string{"loc-1"})
	require.NoError(t, err)

	assert.True(t, mgr.CompleteReplica("a", "loc-1"))
	assert.False(t, mgr.CompleteReplica("a", "untracked"))

	statuses := mgr.ReplicaStatuses("a")
	require.Len(t, statuses, 1)
	assert.Equal(t, types.ReplicaCompleted, statuses[0].State)
	assert.Equal(t, 100.0, statuses[0].Progress)
}

func TestHandleLocationFailure(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")
	_, err := mgr.Replicate("a", []string{"loc-1"})
	require.NoError(t, err)

	report, err := mgr.HandleLocationFailure("a", "loc-1")
	require.NoError(t, err)

	assert.True(t, report.Available, "primary unaffected by replica loss")
	assert.Equal(t, "Private Cloud Infrastructure", report.FallbackLocation)

	statuses := mgr.ReplicaStatuses("a")
	require.Len(t, statuses, 1)
	assert.Equal(t, types.ReplicaFailed, statuses[0].State)
}

func TestHandleLocationFailurePrimaryDown(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	report, err := mgr.HandleLocationFailure("a", "Private Cloud Infrastructure")
	require.NoError(t, err)

	assert.False(t, report.Available)
	assert.Empty(t, report.FallbackLocation)
}

func TestEnsureMinReplicasCreatesTasks(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	// Primary only: one completed copy short of the minimum of two.
	report, err := mgr.EnsureMinReplicas("a", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, report.CurrentReplicas)
	assert.False(t, report.Sufficient)
	require.NotNil(t, report.Replication)
	require.Len(t, report.Replication.Tasks, 1)
	assert.Equal(t, "Replica-1", report.Replication.Tasks[0].TargetLocation)
}

func TestEnsureMinReplicasCountsCompleted(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	_, err := mgr.Replicate("a", []string{"loc-1"})
	require.NoError(t, err)
	mgr.CompleteReplica("a", "loc-1")

	report, err := mgr.EnsureMinReplicas("a", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.CurrentReplicas)
	assert.True(t, report.Sufficient)
	assert.Nil(t, report.Replication, "no tasks when already sufficient")
}

func TestEnsureMinReplicasDefaultsFromConfig(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	report, err := mgr.EnsureMinReplicas("a", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.MinReplicas, "zero falls back to configured minimum")
}

func TestSyncEnvironments(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	results, err := mgr.SyncEnvironments("a", []string{"production", "disaster-recovery"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, "synced", result.Status)
		assert.NotEmpty(t, result.Checksum)
	}
	assert.Equal(t, "production", results[0].Environment)
}

func TestStatusAgainstActiveMigration(t *testing.T) {
	t.Parallel()

	mgr, st := newManager(t)
	seedObject(t, st, "a")

	report, err := mgr.Status("a")
	require.NoError(t, err)
	assert.True(t, report.Consistent)

	// A pending migration is enough to flag the object, regardless of age.
	require.NoError(t, st.CreateMigration(types.Migration{
		ID: "m1", ObjectID: "a",
		Status:    types.MigrationPending,
		StartedAt: frozen.Add(-48 * time.Hour),
	}))

	report, err = mgr.Status("a")
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, 1, report.ActiveMigrations)
}
