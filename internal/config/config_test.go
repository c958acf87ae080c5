package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/datatier/datatier/pkg/types"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Global.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel to be INFO, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 9430 {
		t.Errorf("Expected MetricsPort to be 9430, got %d", cfg.Global.MetricsPort)
	}

	// Tier catalog
	hot := cfg.Tiers[types.TierHot]
	if hot.CostPerGB != 0.023 {
		t.Errorf("Expected hot cost_per_gb to be 0.023, got %g", hot.CostPerGB)
	}
	if hot.LatencyMS != 5 {
		t.Errorf("Expected hot latency_ms to be 5, got %g", hot.LatencyMS)
	}
	cold := cfg.Tiers[types.TierCold]
	if cold.CostPerGB != 0.004 {
		t.Errorf("Expected cold cost_per_gb to be 0.004, got %g", cold.CostPerGB)
	}
	if cold.Class != types.ClassPublicCloud {
		t.Errorf("Expected cold class to be public-cloud, got %s", cold.Class)
	}

	// Classification thresholds
	if th := cfg.Thresholds[types.TierHot]; th.AccessesPerDay != 100 || th.LastAccessHours != 24 {
		t.Errorf("Unexpected hot thresholds: %+v", th)
	}
	if th := cfg.Thresholds[types.TierWarm]; th.AccessesPerDay != 10 || th.LastAccessHours != 168 {
		t.Errorf("Unexpected warm thresholds: %+v", th)
	}

	// Migration defaults
	if cfg.Migration.ChunkSizeMB != 100 {
		t.Errorf("Expected ChunkSizeMB to be 100, got %d", cfg.Migration.ChunkSizeMB)
	}
	if cfg.Migration.MaxConcurrent != 5 {
		t.Errorf("Expected MaxConcurrent to be 5, got %d", cfg.Migration.MaxConcurrent)
	}
	if cfg.Migration.ChunkDelay != 100*time.Millisecond {
		t.Errorf("Expected ChunkDelay to be 100ms, got %v", cfg.Migration.ChunkDelay)
	}

	// Replication defaults
	if cfg.Replication.MinReplicas != 2 {
		t.Errorf("Expected MinReplicas to be 2, got %d", cfg.Replication.MinReplicas)
	}
	if cfg.Replication.ConsistencyWindow != time.Hour {
		t.Errorf("Expected ConsistencyWindow to be 1h, got %v", cfg.Replication.ConsistencyWindow)
	}
	if cfg.Replication.AccessMetricsWindow != 30 {
		t.Errorf("Expected AccessMetricsWindow to be 30, got %d", cfg.Replication.AccessMetricsWindow)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  NewDefault,
			wantErr: false,
		},
		{
			name: "zero max concurrent",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Migration.MaxConcurrent = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "max_concurrent must be greater than 0",
		},
		{
			name: "zero chunk size",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Migration.ChunkSizeMB = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "chunk_size_mb must be greater than 0",
		},
		{
			name: "zero min replicas",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Replication.MinReplicas = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "min_replicas must be at least 1",
		},
		{
			name: "missing tier",
			config: func() *Configuration {
				cfg := NewDefault()
				delete(cfg.Tiers, types.TierWarm)
				return cfg
			},
			wantErr: true,
			errMsg:  "tier catalog missing entry",
		},
		{
			name: "negative tier cost",
			config: func() *Configuration {
				cfg := NewDefault()
				spec := cfg.Tiers[types.TierHot]
				spec.CostPerGB = -1
				cfg.Tiers[types.TierHot] = spec
				return cfg
			},
			wantErr: true,
			errMsg:  "negative cost_per_gb",
		},
		{
			name: "provider without regions",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Providers["aws"] = ProviderSpec{Name: "AWS S3"}
				return cfg
			},
			wantErr: true,
			errMsg:  "has no regions",
		},
		{
			name: "bad log level",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.LogLevel = "VERBOSE"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config().Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want substring %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datatier.yaml")

	cfg := NewDefault()
	cfg.Migration.MaxConcurrent = 7
	cfg.Global.LogLevel = "DEBUG"

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded := NewDefault()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if loaded.Migration.MaxConcurrent != 7 {
		t.Errorf("MaxConcurrent = %d, want 7", loaded.Migration.MaxConcurrent)
	}
	if loaded.Global.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %s, want DEBUG", loaded.Global.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("DATATIER_MAX_CONCURRENT", "9")
	os.Setenv("DATATIER_CONSISTENCY_WINDOW", "30m")
	defer os.Unsetenv("DATATIER_MAX_CONCURRENT")
	defer os.Unsetenv("DATATIER_CONSISTENCY_WINDOW")

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Migration.MaxConcurrent != 9 {
		t.Errorf("MaxConcurrent = %d, want 9", cfg.Migration.MaxConcurrent)
	}
	if cfg.Replication.ConsistencyWindow != 30*time.Minute {
		t.Errorf("ConsistencyWindow = %v, want 30m", cfg.Replication.ConsistencyWindow)
	}
}

func TestMonthlyCost(t *testing.T) {
	cfg := NewDefault()

	if got := cfg.MonthlyCost(types.TierHot, 50); got != 50*0.023 {
		t.Errorf("MonthlyCost(hot, 50) = %g, want %g", got, 50*0.023)
	}
	if got := cfg.MonthlyCost(types.TierCold, 50); got != 50*0.004 {
		t.Errorf("MonthlyCost(cold, 50) = %g, want %g", got, 50*0.004)
	}
	if got := cfg.MonthlyCost(types.Tier("glacial"), 50); got != 0 {
		t.Errorf("MonthlyCost(unknown, 50) = %g, want 0", got)
	}
}

func TestTargetLocation(t *testing.T) {
	cfg := NewDefault()

	tests := []struct {
		name     string
		tier     types.Tier
		provider string
		want     string
	}{
		{"hot defaults on-premise", types.TierHot, "", "On-Premise Data Center"},
		{"warm defaults private cloud", types.TierWarm, "", "Private Cloud Infrastructure"},
		{"cold defaults to aws", types.TierCold, "", "AWS S3 - us-east-1"},
		{"explicit provider wins", types.TierCold, "gcp", "Google Cloud Storage - us-central1"},
		{"unknown provider falls back", types.TierWarm, "nope", "Private Cloud Infrastructure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.TargetLocation(tt.tier, tt.provider); got != tt.want {
				t.Errorf("TargetLocation(%s, %q) = %q, want %q", tt.tier, tt.provider, got, tt.want)
			}
		})
	}
}
