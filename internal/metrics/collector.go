// Package metrics exposes Prometheus instrumentation for the fabric core:
// migration lifecycle counters, transfer volume, optimization outcomes and
// replication activity.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datatier/datatier/pkg/types"
)

// Config represents metrics configuration.
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// Collector implements metrics collection over its own registry.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	migrationsCreated    prometheus.Counter
	migrationsFinished   *prometheus.CounterVec
	migrationsInProgress prometheus.Gauge
	migrationBytes       prometheus.Counter
	migrationDuration    prometheus.Histogram
	optimizationsTotal   prometheus.Counter
	migrationAdvised     prometheus.Counter
	optimizationScore    prometheus.Histogram
	replicationTasks     prometheus.Counter
	eventsProcessed      *prometheus.CounterVec

	server *http.Server
}

// NewCollector creates a metrics collector.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Port:      9430,
			Path:      "/metrics",
			Namespace: "datatier",
		}
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()
	ns := config.Namespace

	c := &Collector{
		config:   config,
		registry: registry,
		migrationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "migrations_created_total",
			Help:      "Total number of migration records created",
		}),
		migrationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "migrations_finished_total",
			Help:      "Total number of migrations reaching a terminal state",
		}, []string{"status"}),
		migrationsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "migrations_in_progress",
			Help:      "Number of migrations currently transferring",
		}),
		migrationBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "migration_bytes_total",
			Help:      "Total bytes transferred by completed migrations",
		}),
		migrationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "migration_duration_seconds",
			Help:      "Wall-clock duration of completed migrations",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		optimizationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "optimizations_total",
			Help:      "Total number of placement optimizations run",
		}),
		migrationAdvised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "optimizations_migration_advised_total",
			Help:      "Optimizations that recommended a migration",
		}),
		optimizationScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "optimization_score",
			Help:      "Distribution of placement optimization scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		replicationTasks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "replication_tasks_total",
			Help:      "Total replication tasks created",
		}),
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_processed_total",
			Help:      "Normalized event records processed, by type",
		}, []string{"type"}),
	}

	collectors := []prometheus.Collector{
		c.migrationsCreated,
		c.migrationsFinished,
		c.migrationsInProgress,
		c.migrationBytes,
		c.migrationDuration,
		c.optimizationsTotal,
		c.migrationAdvised,
		c.optimizationScore,
		c.replicationTasks,
		c.eventsProcessed,
	}
	for _, col := range collectors {
		if err := registry.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return c, nil
}

// Start serves the metrics endpoint in the background.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"healthy"}`)
	})

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Metrics server error: %v\n", err)
		}
	}()

	return nil
}

// Stop shuts the metrics server down.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// RecordMigrationCreated counts a new migration record.
func (c *Collector) RecordMigrationCreated() {
	if !c.config.Enabled {
		return
	}
	c.migrationsCreated.Inc()
}

// ObserveMigration records a migration state transition snapshot.
func (c *Collector) ObserveMigration(m types.Migration) {
	if !c.config.Enabled {
		return
	}

	switch m.Status {
	case types.MigrationInProgress:
		c.migrationsInProgress.Inc()
	case types.MigrationCompleted:
		c.migrationsInProgress.Dec()
		c.migrationsFinished.WithLabelValues(string(types.MigrationCompleted)).Inc()
		c.migrationBytes.Add(float64(m.TotalBytes))
		if !m.CompletedAt.IsZero() {
			c.migrationDuration.Observe(m.CompletedAt.Sub(m.StartedAt).Seconds())
		}
	case types.MigrationFailed:
		c.migrationsInProgress.Dec()
		c.migrationsFinished.WithLabelValues(string(types.MigrationFailed)).Inc()
	}
}

// RecordOptimization records one completed placement optimization.
func (c *Collector) RecordOptimization(rec types.Recommendation) {
	if !c.config.Enabled {
		return
	}
	c.optimizationsTotal.Inc()
	c.optimizationScore.Observe(rec.Score)
	if rec.ShouldMigrate {
		c.migrationAdvised.Inc()
	}
}

// RecordReplicationTasks counts created replication tasks.
func (c *Collector) RecordReplicationTasks(n int) {
	if !c.config.Enabled {
		return
	}
	c.replicationTasks.Add(float64(n))
}

// RecordEvent counts one processed event record.
func (c *Collector) RecordEvent(eventType string) {
	if !c.config.Enabled {
		return
	}
	c.eventsProcessed.WithLabelValues(eventType).Inc()
}
