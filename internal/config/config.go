package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/datatier/datatier/pkg/types"
)

// Configuration represents the complete fabric configuration.
type Configuration struct {
	Global      GlobalConfig                     `yaml:"global"`
	Tiers       map[types.Tier]TierSpec          `yaml:"tiers"`
	Providers   map[string]ProviderSpec          `yaml:"providers"`
	Thresholds  map[types.Tier]AccessThreshold   `yaml:"access_thresholds"`
	Migration   MigrationConfig                  `yaml:"migration"`
	Replication ReplicationConfig                `yaml:"replication"`
	Monitoring  MonitoringConfig                 `yaml:"monitoring"`
}

// GlobalConfig represents global application settings.
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsPort int    `yaml:"metrics_port"`
}

// TierSpec describes one storage tier in the catalog.
type TierSpec struct {
	Name       string             `yaml:"name"`
	Class      types.StorageClass `yaml:"class"`
	CostPerGB  float64            `yaml:"cost_per_gb"`
	LatencyMS  float64            `yaml:"latency_ms"`
	CapacityGB float64            `yaml:"capacity_gb"`
}

// ProviderSpec describes one cloud provider in the catalog.
type ProviderSpec struct {
	Name      string   `yaml:"name"`
	Regions   []string `yaml:"regions"`
	CostPerGB float64  `yaml:"cost_per_gb"`
}

// AccessThreshold holds the classification thresholds for one tier.
type AccessThreshold struct {
	AccessesPerDay  float64 `yaml:"accesses_per_day"`
	LastAccessHours float64 `yaml:"last_access_hours"`
}

// MigrationConfig holds migration orchestration settings.
type MigrationConfig struct {
	ChunkSizeMB   int           `yaml:"chunk_size_mb"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	RetryAttempts int           `yaml:"retry_attempts"`
	ChunkDelay    time.Duration `yaml:"chunk_delay"`
}

// ReplicationConfig holds consistency and replication settings.
type ReplicationConfig struct {
	MinReplicas         int           `yaml:"min_replicas"`
	ConsistencyWindow   time.Duration `yaml:"consistency_window"`
	AccessMetricsWindow int           `yaml:"access_metrics_window_days"`
}

// MonitoringConfig holds metrics settings.
type MonitoringConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"`
}

// NewDefault returns a configuration with the stock tier catalog, provider
// catalog and thresholds.
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			MetricsPort: 9430,
		},
		Tiers: map[types.Tier]TierSpec{
			types.TierHot: {
				Name:       "Hot Storage",
				Class:      types.ClassOnPremise,
				CostPerGB:  0.023,
				LatencyMS:  5,
				CapacityGB: 10000,
			},
			types.TierWarm: {
				Name:       "Warm Storage",
				Class:      types.ClassPrivateCloud,
				CostPerGB:  0.012,
				LatencyMS:  50,
				CapacityGB: 50000,
			},
			types.TierCold: {
				Name:       "Cold Storage",
				Class:      types.ClassPublicCloud,
				CostPerGB:  0.004,
				LatencyMS:  200,
				CapacityGB: 100000,
			},
		},
		Providers: map[string]ProviderSpec{
			"aws": {
				Name:      "AWS S3",
				Regions:   []string{"us-east-1", "us-west-2", "eu-west-1"},
				CostPerGB: 0.023,
			},
			"azure": {
				Name:      "Azure Blob Storage",
				Regions:   []string{"eastus", "westus2", "westeurope"},
				CostPerGB: 0.018,
			},
			"gcp": {
				Name:      "Google Cloud Storage",
				Regions:   []string{"us-central1", "us-east1", "europe-west1"},
				CostPerGB: 0.020,
			},
		},
		Thresholds: map[types.Tier]AccessThreshold{
			types.TierHot:  {AccessesPerDay: 100, LastAccessHours: 24},
			types.TierWarm: {AccessesPerDay: 10, LastAccessHours: 168},
			types.TierCold: {AccessesPerDay: 1, LastAccessHours: 720},
		},
		Migration: MigrationConfig{
			ChunkSizeMB:   100,
			MaxConcurrent: 5,
			RetryAttempts: 3,
			ChunkDelay:    100 * time.Millisecond,
		},
		Replication: ReplicationConfig{
			MinReplicas:         2,
			ConsistencyWindow:   time.Hour,
			AccessMetricsWindow: 30,
		},
		Monitoring: MonitoringConfig{
			Enabled:   true,
			Namespace: "datatier",
			Path:      "/metrics",
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration overrides from environment variables.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("DATATIER_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("DATATIER_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}
	if val := os.Getenv("DATATIER_CHUNK_SIZE_MB"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			c.Migration.ChunkSizeMB = size
		}
	}
	if val := os.Getenv("DATATIER_MAX_CONCURRENT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Migration.MaxConcurrent = n
		}
	}
	if val := os.Getenv("DATATIER_RETRY_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Migration.RetryAttempts = n
		}
	}
	if val := os.Getenv("DATATIER_CHUNK_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Migration.ChunkDelay = d
		}
	}
	if val := os.Getenv("DATATIER_MIN_REPLICAS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Replication.MinReplicas = n
		}
	}
	if val := os.Getenv("DATATIER_CONSISTENCY_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Replication.ConsistencyWindow = d
		}
	}
	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	if c.Migration.MaxConcurrent <= 0 {
		return fmt.Errorf("migration.max_concurrent must be greater than 0")
	}
	if c.Migration.ChunkSizeMB <= 0 {
		return fmt.Errorf("migration.chunk_size_mb must be greater than 0")
	}
	if c.Replication.MinReplicas < 1 {
		return fmt.Errorf("replication.min_replicas must be at least 1")
	}
	if c.Replication.AccessMetricsWindow <= 0 {
		return fmt.Errorf("replication.access_metrics_window_days must be greater than 0")
	}

	for _, tier := range []types.Tier{types.TierHot, types.TierWarm, types.TierCold} {
		spec, ok := c.Tiers[tier]
		if !ok {
			return fmt.Errorf("tier catalog missing entry for %q", tier)
		}
		if spec.CostPerGB < 0 {
			return fmt.Errorf("tier %q has negative cost_per_gb", tier)
		}
		if spec.LatencyMS < 0 {
			return fmt.Errorf("tier %q has negative latency_ms", tier)
		}
		if _, ok := c.Thresholds[tier]; !ok && tier != types.TierCold {
			return fmt.Errorf("access thresholds missing entry for %q", tier)
		}
	}

	for name, provider := range c.Providers {
		if len(provider.Regions) == 0 {
			return fmt.Errorf("provider %q has no regions", name)
		}
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// Tier returns the catalog entry for a tier.
func (c *Configuration) Tier(tier types.Tier) (TierSpec, bool) {
	spec, ok := c.Tiers[tier]
	return spec, ok
}

// Rate returns the per-GB monthly rate for a tier, or 0 if unknown.
func (c *Configuration) Rate(tier types.Tier) float64 {
	if spec, ok := c.Tiers[tier]; ok {
		return spec.CostPerGB
	}
	return 0
}

// MonthlyCost returns the monthly storage cost of sizeGB at a tier's rate.
func (c *Configuration) MonthlyCost(tier types.Tier, sizeGB float64) float64 {
	return c.Rate(tier) * sizeGB
}

// TargetLocation resolves a default location for a tier, optionally pinned
// to a provider. A named provider wins; otherwise the tier's storage class
// decides, with AWS as the public-cloud default.
func (c *Configuration) TargetLocation(tier types.Tier, provider string) string {
	if provider != "" {
		if spec, ok := c.Providers[provider]; ok && len(spec.Regions) > 0 {
			return fmt.Sprintf("%s - %s", spec.Name, spec.Regions[0])
		}
	}

	class := types.ClassPublicCloud
	if spec, ok := c.Tiers[tier]; ok {
		class = spec.Class
	}

	switch class {
	case types.ClassOnPremise:
		return "On-Premise Data Center"
	case types.ClassPrivateCloud:
		return "Private Cloud Infrastructure"
	default:
		aws := c.Providers["aws"]
		if len(aws.Regions) == 0 {
			return "Public Cloud"
		}
		return fmt.Sprintf("%s - %s", aws.Name, aws.Regions[0])
	}
}
