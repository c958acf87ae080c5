// Package service is the composition root of the fabric: it wires the store,
// placement optimizer, migration orchestrator, replication manager, event
// pipeline, predictor and metrics into one façade exposing every fabric
// operation.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datatier/datatier/internal/config"
	"github.com/datatier/datatier/internal/events"
	"github.com/datatier/datatier/internal/metrics"
	"github.com/datatier/datatier/internal/migration"
	"github.com/datatier/datatier/internal/placement"
	"github.com/datatier/datatier/internal/predictor"
	"github.com/datatier/datatier/internal/replication"
	"github.com/datatier/datatier/internal/store"
	"github.com/datatier/datatier/pkg/errors"
	"github.com/datatier/datatier/pkg/retry"
	"github.com/datatier/datatier/pkg/types"
)

// CreateObjectRequest carries the fields of a new data object. Zero values
// fall back to the same defaults the ingestion path applies.
type CreateObjectRequest struct {
	Name          string     `json:"name"`
	SizeGB        float64    `json:"size_gb"`
	Tier          types.Tier `json:"tier"`
	Location      string     `json:"location"`
	CloudProvider string     `json:"cloud_provider"`
	Region        string     `json:"region"`
	ContentType   string     `json:"content_type"`
	Encrypted     bool       `json:"encrypted"`
}

// AccessRequest carries one access fact to record against an object.
type AccessRequest struct {
	Kind      types.AccessKind `json:"access_type"`
	LatencyMS float64          `json:"latency_ms"`
	Source    string           `json:"source"`
}

// Service is the fabric façade.
type Service struct {
	cfg    *config.Configuration
	store  store.Store
	logger *slog.Logger

	optimizer    *placement.Optimizer
	orchestrator *migration.Orchestrator
	replication  *replication.Manager
	predictor    *predictor.Predictor
	collector    *metrics.Collector

	bus       *events.Bus
	processor *events.Processor
	simulator *events.Simulator
	retryer   *retry.Retryer

	mu       sync.Mutex
	feedStop context.CancelFunc

	clock func() time.Time
}

// New builds a fully wired fabric service backed by the in-memory store.
func New(cfg *config.Configuration, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "invalid configuration: %v", err).
			WithComponent("service").WithCause(err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	st := store.NewMemory()

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Monitoring.Enabled,
		Port:      cfg.Global.MetricsPort,
		Path:      cfg.Monitoring.Path,
		Namespace: cfg.Monitoring.Namespace,
	})
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(0)
	processor := events.NewProcessor(st, bus, logger)

	engine := &migration.SimulatedEngine{ChunkDelay: cfg.Migration.ChunkDelay}
	orchestrator := migration.NewOrchestrator(cfg, st, engine, logger)

	svc := &Service{
		cfg:          cfg,
		store:        st,
		logger:       logger,
		optimizer:    placement.NewOptimizer(cfg, st, logger),
		orchestrator: orchestrator,
		replication:  replication.NewManager(cfg, st, logger),
		predictor:    predictor.New(cfg, st, logger),
		collector:    collector,
		bus:          bus,
		processor:    processor,
		simulator:    events.NewSimulator(st, processor, logger, time.Now().UnixNano()),
		retryer:      retry.New(retry.DefaultConfig()),
		clock:        time.Now,
	}

	// Every migration transition fans out to the bus and the collector.
	orchestrator.Subscribe(func(m types.Migration) {
		svc.collector.ObserveMigration(m)
		svc.bus.Publish(events.NewMigration(m))
	})

	return svc, nil
}

// Store exposes the underlying store. Intended for tests and tooling.
func (s *Service) Store() store.Store { return s.store }

// Start brings up the metrics endpoint.
func (s *Service) Start(ctx context.Context) error {
	return s.collector.Start(ctx)
}

// Stop drains in-flight work and shuts the service down.
func (s *Service) Stop(ctx context.Context) error {
	s.StopFeed()

	if err := s.orchestrator.Stop(ctx); err != nil {
		return err
	}
	s.bus.Close()
	return s.collector.Stop(ctx)
}

// Events subscribes to the fabric event stream. The cancel func releases the
// subscription.
func (s *Service) Events() (<-chan events.Event, func()) {
	return s.bus.Subscribe()
}

// CreateObject registers a new data object with its initial placement cost.
func (s *Service) CreateObject(req CreateObjectRequest) (types.DataObject, error) {
	if req.Name == "" {
		req.Name = fmt.Sprintf("object_%d", s.clock().UnixNano())
	}
	if req.SizeGB <= 0 {
		req.SizeGB = 1.0
	}
	if req.Tier == "" {
		req.Tier = types.TierWarm
	}
	if !req.Tier.Valid() {
		return types.DataObject{}, errors.Newf(errors.ErrCodeInvalidInput,
			"unknown tier %q", req.Tier).WithComponent("service").WithOperation("create_object")
	}
	if req.Location == "" {
		req.Location = s.cfg.TargetLocation(req.Tier, req.CloudProvider)
	}

	now := s.clock()
	obj := types.DataObject{
		ID:              uuid.NewString(),
		Name:            req.Name,
		SizeGB:          req.SizeGB,
		CurrentTier:     req.Tier,
		CurrentLocation: req.Location,
		CloudProvider:   req.CloudProvider,
		Region:          req.Region,
		LastAccessed:    now,
		FirstCreated:    now,
		MonthlyCost:     s.cfg.MonthlyCost(req.Tier, req.SizeGB),
		ContentType:     req.ContentType,
		Encrypted:       req.Encrypted,
	}

	if err := s.store.CreateObject(obj); err != nil {
		return types.DataObject{}, err
	}

	s.logger.Info("data object created",
		"object", obj.ID,
		"name", obj.Name,
		"tier", obj.CurrentTier,
		"size_gb", obj.SizeGB,
		"monthly_cost", obj.MonthlyCost)

	s.bus.Publish(events.NewIngestion(events.Ingestion{
		ObjectID:    obj.ID,
		SizeGB:      obj.SizeGB,
		ContentType: obj.ContentType,
	}))

	return obj, nil
}

// GetObject returns one data object.
func (s *Service) GetObject(id string) (types.DataObject, error) {
	obj, ok := s.store.GetObject(id)
	if !ok {
		return types.DataObject{}, errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", id).WithComponent("service").WithOperation("get_object")
	}
	return obj, nil
}

// ListObjects returns up to limit objects in creation order.
func (s *Service) ListObjects(limit int) []types.DataObject {
	return s.store.ListObjects(limit)
}

// RecordAccess logs one access against an object and updates its counters.
func (s *Service) RecordAccess(objectID string, req AccessRequest) error {
	if _, ok := s.store.GetObject(objectID); !ok {
		return errors.Newf(errors.ErrCodeObjectNotFound,
			"object %s not found", objectID).WithComponent("service").WithOperation("record_access")
	}

	ev := events.NewAccess(events.Access{
		ObjectID:  objectID,
		Kind:      req.Kind,
		LatencyMS: req.LatencyMS,
		Source:    req.Source,
	})
	if err := s.processor.Process(ev); err != nil {
		return err
	}
	s.collector.RecordEvent(string(ev.Type))
	return nil
}

// Optimize evaluates placement for one object.
func (s *Service) Optimize(objectID string) (types.Recommendation, error) {
	rec, err := s.optimizer.Optimize(objectID)
	if err != nil {
		return types.Recommendation{}, err
	}
	s.collector.RecordOptimization(rec)
	s.bus.Publish(events.NewOptimization(rec))
	return rec, nil
}

// BatchOptimize evaluates placement for up to limit objects.
func (s *Service) BatchOptimize(limit int) []types.Recommendation {
	recs := s.optimizer.BatchOptimize(limit)
	for _, rec := range recs {
		s.collector.RecordOptimization(rec)
		s.bus.Publish(events.NewOptimization(rec))
	}
	return recs
}

// PredictTier produces an advisory tier forecast for one object.
func (s *Service) PredictTier(objectID string) (types.Prediction, error) {
	return s.predictor.PredictTier(objectID)
}

// BatchPredict produces advisory forecasts for up to limit objects.
func (s *Service) BatchPredict(limit int) []types.Prediction {
	return s.predictor.BatchPredict(limit)
}

// CreateMigration records a migration and immediately attempts admission,
// retrying with backoff while the concurrency cap is saturated. A still-busy
// fabric leaves the migration pending for a later ExecuteMigration.
func (s *Service) CreateMigration(objectID string, targetTier types.Tier, targetLocation, provider string) (types.Migration, error) {
	m, err := s.orchestrator.Create(objectID, targetTier, targetLocation, provider)
	if err != nil {
		return m, err
	}
	s.collector.RecordMigrationCreated()

	executed, execErr := s.executeWithRetry(m.ID)
	if execErr != nil {
		if errors.IsCode(execErr, errors.ErrCodeCapacityExceeded) {
			s.logger.Warn("migration admission deferred, fabric at capacity",
				"migration", m.ID)
			return m, nil
		}
		return m, execErr
	}
	return executed, nil
}

// ExecuteMigration admits a pending migration, retrying admission with
// backoff while the concurrency cap is saturated.
func (s *Service) ExecuteMigration(migrationID string) (types.Migration, error) {
	return s.executeWithRetry(migrationID)
}

func (s *Service) executeWithRetry(migrationID string) (types.Migration, error) {
	var m types.Migration
	err := s.retryer.Do(func() error {
		var execErr error
		m, execErr = s.orchestrator.Execute(migrationID)
		return execErr
	})
	return m, err
}

// RetryMigration resets a failed migration and re-admits it.
func (s *Service) RetryMigration(migrationID string) (types.Migration, error) {
	return s.orchestrator.Retry(migrationID)
}

// GetMigration returns the current snapshot of one migration.
func (s *Service) GetMigration(migrationID string) (types.Migration, error) {
	return s.orchestrator.Get(migrationID)
}

// ListActiveMigrations returns pending and in-progress migrations.
func (s *Service) ListActiveMigrations() []types.Migration {
	return s.orchestrator.ListActive()
}

// MigrationHistory returns up to limit migrations, optionally scoped to one
// object.
func (s *Service) MigrationHistory(objectID string, limit int) []types.Migration {
	return s.orchestrator.History(objectID, limit)
}

// VerifyConsistency verifies an object across the given locations.
func (s *Service) VerifyConsistency(objectID string, locations []string) (types.ConsistencyReport, error) {
	return s.replication.Verify(objectID, locations)
}

// ConsistencyStatus reports an object's consistency against active
// migrations.
func (s *Service) ConsistencyStatus(objectID string) (types.ConsistencyReport, error) {
	return s.replication.Status(objectID)
}

// Replicate copies an object to the target locations.
func (s *Service) Replicate(objectID string, targetLocations []string) (types.ReplicationResult, error) {
	result, err := s.replication.Replicate(objectID, targetLocations)
	if err != nil {
		return types.ReplicationResult{}, err
	}
	s.collector.RecordReplicationTasks(len(result.Tasks))
	s.bus.Publish(events.NewReplication(result))
	return result, nil
}

// EnsureAvailability enforces the minimum replica count for an object,
// kicking off replication when short. minReplicas below 1 means the
// configured default.
func (s *Service) EnsureAvailability(objectID string, minReplicas int) (types.AvailabilityReport, error) {
	report, err := s.replication.EnsureMinReplicas(objectID, minReplicas)
	if err != nil {
		return types.AvailabilityReport{}, err
	}
	if report.Replication != nil {
		s.collector.RecordReplicationTasks(len(report.Replication.Tasks))
		s.bus.Publish(events.NewReplication(*report.Replication))
	}
	return report, nil
}

// HandleLocationFailure reports whether an object survives a location loss.
func (s *Service) HandleLocationFailure(objectID, failedLocation string) (types.AvailabilityReport, error) {
	return s.replication.HandleLocationFailure(objectID, failedLocation)
}

// SyncEnvironments reconciles an object across environments.
func (s *Service) SyncEnvironments(objectID string, environments []string) ([]types.SyncResult, error) {
	return s.replication.SyncEnvironments(objectID, environments)
}

// ResolveConflict resolves conflicting object versions with the configured
// strategy.
func (s *Service) ResolveConflict(objectID string, versions []replication.Version) (replication.ConflictResolution, error) {
	return s.replication.ResolveConflict(objectID, versions)
}

// StartFeed starts the simulated ingestion feed at the given interval. A
// second call while running is a no-op.
func (s *Service) StartFeed(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.feedStop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.feedStop = cancel
	go s.simulator.Run(ctx, interval)
	s.logger.Info("ingestion feed started", "interval", interval)
}

// StopFeed stops the simulated ingestion feed if running.
func (s *Service) StopFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.feedStop != nil {
		s.feedStop()
		s.feedStop = nil
		s.logger.Info("ingestion feed stopped")
	}
}

// Stats aggregates the fabric snapshot for dashboards.
func (s *Service) Stats() types.FabricStats {
	objects := s.store.ListObjects(0)

	stats := types.FabricStats{
		TotalObjects: len(objects),
		TierDistribution: map[types.Tier]int{
			types.TierHot:  0,
			types.TierWarm: 0,
			types.TierCold: 0,
		},
	}

	for _, obj := range objects {
		stats.TotalSizeGB += obj.SizeGB
		stats.TotalMonthlyCost += obj.MonthlyCost
		stats.TierDistribution[obj.CurrentTier]++
	}

	stats.ActiveMigrations = len(s.store.ListActive())
	stats.RecentAccesses24h = s.store.CountAllAccesses(s.clock().Add(-24 * time.Hour))

	return stats
}
