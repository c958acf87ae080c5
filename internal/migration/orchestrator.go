package migration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/types"
)

const bytesPerGB = 1 << 30

// Listener observes migration snapshots on creation and on every state
// transition. Called off the hot path but synchronously per transition, so
// listeners must be cheap.
type Listener func(m types.Migration)

// Orchestrator executes approved moves with bounded concurrency. Admission
// is a counting semaphore acquired before the pending -> in_progress
// transition, so the in-progress count can never exceed the cap.
type Orchestrator struct {
	cfg    *config.Configuration
	store  store.Store
	engine TransferEngine
	logger *slog.Logger

	slots chan struct{}
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	listeners []Listener

	clock func() time.Time
	newID func() string
}

// NewOrchestrator creates a migration orchestrator with the configured
// concurrency cap.
func NewOrchestrator(cfg *config.Configuration, st store.Store, engine TransferEngine, logger *slog.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:    cfg,
		store:  st,
		engine: engine,
		logger: logger,
		slots:  make(chan struct{}, cfg.Migration.MaxConcurrent),
		ctx:    ctx,
		cancel: cancel,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
}

// Subscribe registers a listener for migration snapshots.
func (o *Orchestrator) Subscribe(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *Orchestrator) notify(id string) {
	m, ok := o.store.GetMigration(id)
	if !ok {
		return
	}
	o.mu.RLock()
	listeners := o.listeners
	o.mu.RUnlock()
	for _, l := range listeners {
		l(m)
	}
}

// Create records a pending migration for an object. When the object already
// has a non-terminal migration, the existing record is returned alongside an
// ALREADY_IN_PROGRESS error so callers can poll it instead of retrying.
func (o *Orchestrator) Create(objectID string, targetTier types.Tier, targetLocation, targetProvider string) (types.Migration, error) {
	obj, ok := o.store.GetObject(objectID)
	if !ok {
		return types.Migration{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("orchestrator").WithOperation("create")
	}

	if !targetTier.Valid() {
		return types.Migration{}, errors.Newf(errors.ErrCodeInvalidInput,
			"unknown target tier %q", targetTier).WithComponent("orchestrator").WithOperation("create")
	}

	if existing, ok := o.store.ActiveByObject(objectID); ok {
		return existing, errors.Newf(errors.ErrCodeAlreadyInProgress,
			"object %s already has migration %s in %s", objectID, existing.ID, existing.Status).
			WithComponent("orchestrator").WithOperation("create")
	}

	if targetLocation == "" {
		targetLocation = o.cfg.TargetLocation(targetTier, targetProvider)
	}

	m := types.Migration{
		ID:             o.newID(),
		ObjectID:       objectID,
		SourceTier:     obj.CurrentTier,
		TargetTier:     targetTier,
		SourceLocation: obj.CurrentLocation,
		TargetLocation: targetLocation,
		Status:         types.MigrationPending,
		StartedAt:      o.clock(),
		TotalBytes:     int64(obj.SizeGB * bytesPerGB),
	}

	if err := o.store.CreateMigration(m); err != nil {
		return types.Migration{}, err
	}

	o.logger.Info("migration created",
		"migration", m.ID,
		"object", objectID,
		"source_tier", m.SourceTier,
		"target_tier", m.TargetTier,
		"target_location", m.TargetLocation,
		"total_bytes", m.TotalBytes)

	o.notify(m.ID)
	return m, nil
}

// Execute admits a pending migration to a worker slot. Non-pending
// migrations are a no-op returning their current state. When every slot is
// busy the call fails with CAPACITY_EXCEEDED, a transient condition the
// caller is expected to retry.
func (o *Orchestrator) Execute(migrationID string) (types.Migration, error) {
	m, ok := o.store.GetMigration(migrationID)
	if !ok {
		return types.Migration{}, errors.Newf(errors.ErrCodeMigrationNotFound,
			"migration %s not found", migrationID).WithComponent("orchestrator").WithOperation("execute")
	}

	if m.Status != types.MigrationPending {
		return m, nil
	}

	select {
	case o.slots <- struct{}{}:
	default:
		return types.Migration{}, errors.Newf(errors.ErrCodeCapacityExceeded,
			"maximum concurrent migrations (%d) reached", o.cfg.Migration.MaxConcurrent).
			WithComponent("orchestrator").WithOperation("execute").
			WithDetail("migration_id", migrationID)
	}

	// Slot held; take the pending -> in_progress transition under the store
	// lock so a racing Execute on the same migration admits only once.
	admitted := false
	o.store.UpdateMigration(migrationID, func(m *types.Migration) {
		if m.Status == types.MigrationPending {
			m.Status = types.MigrationInProgress
			admitted = true
		}
	})
	if !admitted {
		<-o.slots
		current, _ := o.store.GetMigration(migrationID)
		return current, nil
	}

	o.notify(migrationID)

	o.wg.Add(1)
	go o.run(migrationID)

	current, _ := o.store.GetMigration(migrationID)
	return current, nil
}

// run performs the transfer for an admitted migration and releases its slot.
func (o *Orchestrator) run(migrationID string) {
	defer o.wg.Done()
	defer func() { <-o.slots }()

	m, ok := o.store.GetMigration(migrationID)
	if !ok {
		return
	}

	o.logger.Info("migration started",
		"migration", m.ID,
		"object", m.ObjectID,
		"total_bytes", m.TotalBytes)

	chunkSize := int64(o.cfg.Migration.ChunkSizeMB) * 1024 * 1024

	err := o.engine.Transfer(o.ctx, m, chunkSize, func(transferred int64) {
		o.store.UpdateMigration(migrationID, func(m *types.Migration) {
			// Progress never rewinds within an attempt.
			if transferred > m.BytesTransferred {
				m.BytesTransferred = transferred
			}
		})
	})

	if err != nil {
		o.store.UpdateMigration(migrationID, func(m *types.Migration) {
			m.Status = types.MigrationFailed
			m.ErrorMessage = err.Error()
		})
		o.logger.Error("migration failed",
			"migration", migrationID,
			"object", m.ObjectID,
			"error", err)
		o.notify(migrationID)
		return
	}

	// Completion: the object's tier, location and cost change together in a
	// single locked update, then the migration is closed out.
	o.store.UpdateObject(m.ObjectID, func(obj *types.DataObject) {
		obj.CurrentTier = m.TargetTier
		obj.CurrentLocation = m.TargetLocation
		obj.MonthlyCost = o.cfg.MonthlyCost(m.TargetTier, obj.SizeGB)
	})

	completedAt := o.clock()
	o.store.UpdateMigration(migrationID, func(m *types.Migration) {
		m.Status = types.MigrationCompleted
		m.CompletedAt = completedAt
		m.BytesTransferred = m.TotalBytes
	})

	o.logger.Info("migration completed",
		"migration", migrationID,
		"object", m.ObjectID,
		"target_tier", m.TargetTier,
		"duration", completedAt.Sub(m.StartedAt))

	o.notify(migrationID)
}

// Retry resets a failed migration to pending with a fresh byte counter and
// immediately attempts admission. Only failed migrations may be retried.
func (o *Orchestrator) Retry(migrationID string) (types.Migration, error) {
	m, ok := o.store.GetMigration(migrationID)
	if !ok {
		return types.Migration{}, errors.Newf(errors.ErrCodeMigrationNotFound,
			"migration %s not found", migrationID).WithComponent("orchestrator").WithOperation("retry")
	}

	if m.Status != types.MigrationFailed {
		return types.Migration{}, errors.Newf(errors.ErrCodeInvalidRetry,
			"migration %s is %s, only failed migrations can be retried", migrationID, m.Status).
			WithComponent("orchestrator").WithOperation("retry")
	}

	startedAt := o.clock()
	o.store.UpdateMigration(migrationID, func(m *types.Migration) {
		m.Status = types.MigrationPending
		m.BytesTransferred = 0
		m.ErrorMessage = ""
		m.StartedAt = startedAt
	})

	o.logger.Info("migration reset for retry", "migration", migrationID)
	o.notify(migrationID)

	return o.Execute(migrationID)
}

// Get returns the current snapshot of a migration.
func (o *Orchestrator) Get(migrationID string) (types.Migration, error) {
	m, ok := o.store.GetMigration(migrationID)
	if !ok {
		return types.Migration{}, errors.Newf(errors.ErrCodeMigrationNotFound,
			"migration %s not found", migrationID).WithComponent("orchestrator").WithOperation("get")
	}
	return m, nil
}

// ListActive returns pending and in-progress migrations, newest first.
func (o *Orchestrator) ListActive() []types.Migration {
	return o.store.ListActive()
}

// History returns up to limit migrations, optionally scoped to one object.
func (o *Orchestrator) History(objectID string, limit int) []types.Migration {
	return o.store.History(objectID, limit)
}

// InProgressCount returns the number of migrations currently transferring.
func (o *Orchestrator) InProgressCount() int {
	return o.store.CountByStatus(types.MigrationInProgress)
}

// Stop cancels in-flight transfers and waits for workers to settle.
// Interrupted migrations land in failed with a context error captured.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
