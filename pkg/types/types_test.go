package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTierValid(t *testing.T) {
	t.Parallel()

	for _, tier := range []Tier{TierHot, TierWarm, TierCold} {
		if !tier.Valid() {
			t.Errorf("%s should be valid", tier)
		}
	}
	if Tier("glacial").Valid() {
		t.Error("unknown tier should be invalid")
	}
	if Tier("").Valid() {
		t.Error("empty tier should be invalid")
	}
}

func TestMigrationStatusTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status MigrationStatus
		want   bool
	}{
		{MigrationPending, false},
		{MigrationInProgress, false},
		{MigrationCompleted, true},
		{MigrationFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestProgressPercent(t *testing.T) {
	t.Parallel()

	m := Migration{TotalBytes: 200, BytesTransferred: 50}
	if got := m.ProgressPercent(); got != 25 {
		t.Errorf("ProgressPercent = %g, want 25", got)
	}

	empty := Migration{}
	if got := empty.ProgressPercent(); got != 0 {
		t.Errorf("ProgressPercent with zero total = %g, want 0", got)
	}

	full := Migration{TotalBytes: 100, BytesTransferred: 100}
	if got := full.ProgressPercent(); got != 100 {
		t.Errorf("ProgressPercent = %g, want 100", got)
	}
}

func TestMigrationJSONFieldNames(t *testing.T) {
	t.Parallel()

	m := Migration{
		ID:         "m-1",
		ObjectID:   "obj-1",
		SourceTier: TierHot,
		TargetTier: TierCold,
		Status:     MigrationInProgress,
		StartedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		TotalBytes: 1024,
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	for _, key := range []string{"object_id", "source_tier", "target_tier", "status", "bytes_transferred", "total_bytes"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("serialized migration missing %q", key)
		}
	}
	if fields["status"] != "in_progress" {
		t.Errorf("status = %v, want in_progress", fields["status"])
	}
}
