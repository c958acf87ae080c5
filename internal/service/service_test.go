package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/internal/events"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

func newService(t *testing.T) *Service {
	t.Helper()

	cfg := config.NewDefault()
	cfg.Monitoring.Enabled = false
	cfg.Migration.ChunkDelay = 0

	svc, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc
}

func waitTerminal(t *testing.T, svc *Service, migrationID string) types.Migration {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		m, err := svc.GetMigration(migrationID)
		require.NoError(t, err)
		if m.Status.Terminal() {
			return m
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("migration never reached a terminal state")
	return types.Migration{}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefault()
	cfg.Migration.MaxConcurrent = 0

	_, err := New(cfg, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestCreateObjectDefaults(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	obj, err := svc.CreateObject(CreateObjectRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, obj.ID)
	assert.NotEmpty(t, obj.Name)
	assert.Equal(t, types.TierWarm, obj.CurrentTier)
	assert.Equal(t, 1.0, obj.SizeGB)
	assert.Equal(t, "Private Cloud Infrastructure", obj.CurrentLocation)
	assert.InDelta(t, 0.012, obj.MonthlyCost, 1e-9)
}

func TestCreateObjectInitialCost(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	obj, err := svc.CreateObject(CreateObjectRequest{
		Name: "archive", SizeGB: 50, Tier: types.TierHot,
	})
	require.NoError(t, err)

	assert.InDelta(t, 50*0.023, obj.MonthlyCost, 1e-9)
	assert.Equal(t, "On-Premise Data Center", obj.CurrentLocation)
}

func TestCreateObjectRejectsBadTier(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	_, err := svc.CreateObject(CreateObjectRequest{Tier: types.Tier("glacial")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestRecordAccessFlowsToMetricsWindow(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	obj, err := svc.CreateObject(CreateObjectRequest{Name: "logs"})
	require.NoError(t, err)

	require.NoError(t, svc.RecordAccess(obj.ID, AccessRequest{
		Kind: types.AccessRead, LatencyMS: 15, Source: "192.168.1.9",
	}))

	got, err := svc.GetObject(obj.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccessCount)

	err = svc.RecordAccess("missing", AccessRequest{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeObjectNotFound))
}

func TestOptimizeAndMigrateRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	obj, err := svc.CreateObject(CreateObjectRequest{
		Name: "cold-candidate", SizeGB: 50, Tier: types.TierHot,
	})
	require.NoError(t, err)

	rec, err := svc.Optimize(obj.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TierCold, rec.RecommendedTier,
		"fresh object with no reads classifies cold")
	assert.True(t, rec.ShouldMigrate)
	assert.InDelta(t, 0.95, rec.CostAnalysis.CostSavings, 1e-9)

	m, err := svc.CreateMigration(obj.ID, rec.RecommendedTier, "", "")
	require.NoError(t, err)

	done := waitTerminal(t, svc, m.ID)
	assert.Equal(t, types.MigrationCompleted, done.Status)
	assert.Equal(t, done.TotalBytes, done.BytesTransferred)

	moved, err := svc.GetObject(obj.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TierCold, moved.CurrentTier)
	assert.InDelta(t, 50*0.004, moved.MonthlyCost, 1e-9)
}

func TestCreateMigrationDuplicate(t *testing.T) {
	t.Parallel()

	cfg := config.NewDefault()
	cfg.Monitoring.Enabled = false
	// Slow transfers keep the first migration active during the second call.
	cfg.Migration.ChunkDelay = 50 * time.Millisecond

	svc, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})

	obj, err := svc.CreateObject(CreateObjectRequest{Name: "big", SizeGB: 1, Tier: types.TierHot})
	require.NoError(t, err)

	first, err := svc.CreateMigration(obj.ID, types.TierCold, "", "")
	require.NoError(t, err)

	second, err := svc.CreateMigration(obj.ID, types.TierCold, "", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlreadyInProgress))
	assert.Equal(t, first.ID, second.ID, "caller gets the existing record back")
}

func TestMigrationEventsReachSubscribers(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	ch, cancel := svc.Events()
	defer cancel()

	obj, err := svc.CreateObject(CreateObjectRequest{Name: "tracked", SizeGB: 1, Tier: types.TierHot})
	require.NoError(t, err)

	m, err := svc.CreateMigration(obj.ID, types.TierCold, "", "")
	require.NoError(t, err)
	waitTerminal(t, svc, m.ID)

	sawCompleted := false
	timeout := time.After(2 * time.Second)
	for !sawCompleted {
		select {
		case ev := <-ch:
			if ev.Type == events.TypeMigration && ev.Migration.Migration.Status == types.MigrationCompleted {
				sawCompleted = true
			}
		case <-timeout:
			t.Fatal("no completed-migration event observed")
		}
	}
}

func TestVerifyConsistencyViaService(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	obj, err := svc.CreateObject(CreateObjectRequest{Name: "c"})
	require.NoError(t, err)

	report, err := svc.VerifyConsistency(obj.ID, nil)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.NotEmpty(t, report.Checksum)
}

func TestEnsureAvailabilityCreatesReplicas(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	obj, err := svc.CreateObject(CreateObjectRequest{Name: "precious"})
	require.NoError(t, err)

	report, err := svc.EnsureAvailability(obj.ID, 3)
	require.NoError(t, err)

	assert.False(t, report.Sufficient)
	require.NotNil(t, report.Replication)
	assert.Len(t, report.Replication.Tasks, 2)
}

func TestStatsAggregation(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	_, err := svc.CreateObject(CreateObjectRequest{Name: "h", SizeGB: 10, Tier: types.TierHot})
	require.NoError(t, err)
	_, err = svc.CreateObject(CreateObjectRequest{Name: "w", SizeGB: 20, Tier: types.TierWarm})
	require.NoError(t, err)
	obj, err := svc.CreateObject(CreateObjectRequest{Name: "c", SizeGB: 30, Tier: types.TierCold})
	require.NoError(t, err)

	require.NoError(t, svc.RecordAccess(obj.ID, AccessRequest{Kind: types.AccessRead}))

	stats := svc.Stats()
	assert.Equal(t, 3, stats.TotalObjects)
	assert.InDelta(t, 60.0, stats.TotalSizeGB, 1e-9)
	assert.InDelta(t, 10*0.023+20*0.012+30*0.004, stats.TotalMonthlyCost, 1e-9)
	assert.Equal(t, 1, stats.TierDistribution[types.TierHot])
	assert.Equal(t, 1, stats.TierDistribution[types.TierWarm])
	assert.Equal(t, 1, stats.TierDistribution[types.TierCold])
	assert.Equal(t, int64(1), stats.RecentAccesses24h)
}

func TestFeedLifecycle(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	_, err := svc.CreateObject(CreateObjectRequest{Name: "seed"})
	require.NoError(t, err)

	svc.StartFeed(time.Millisecond)
	svc.StartFeed(time.Millisecond) // second start is a no-op

	time.Sleep(50 * time.Millisecond)
	svc.StopFeed()
	svc.StopFeed() // idempotent
}

func TestBatchPredictViaService(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	for _, name := range []string{"a", "b"} {
		_, err := svc.CreateObject(CreateObjectRequest{Name: name})
		require.NoError(t, err)
	}

	predictions := svc.BatchPredict(0)
	assert.Len(t, predictions, 2)
	for _, p := range predictions {
		assert.True(t, p.PredictedTier.Valid())
		assert.NotEmpty(t, p.Reasoning)
	}
}
