package types

import (
	"time"
)

// Tier identifies a storage tier class.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// Valid reports whether the tier is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierHot, TierWarm, TierCold:
		return true
	}
	return false
}

// StorageClass identifies where a tier physically lives.
type StorageClass string

const (
	ClassOnPremise    StorageClass = "on-premise"
	ClassPrivateCloud StorageClass = "private-cloud"
	ClassPublicCloud  StorageClass = "public-cloud"
)

// DataObject represents a logical unit of data placed in the fabric.
type DataObject struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	SizeGB          float64   `json:"size_gb"`
	CurrentTier     Tier      `json:"current_tier"`
	CurrentLocation string    `json:"current_location"`
	CloudProvider   string    `json:"cloud_provider,omitempty"`
	Region          string    `json:"region,omitempty"`
	AccessCount     int64     `json:"access_count"`
	LastAccessed    time.Time `json:"last_accessed"`
	FirstCreated    time.Time `json:"first_created"`
	MonthlyCost     float64   `json:"monthly_cost"`
	ContentType     string    `json:"content_type,omitempty"`
	Encrypted       bool      `json:"encrypted"`
}

// AccessKind is the type of access recorded against an object.
type AccessKind string

const (
	AccessRead   AccessKind = "read"
	AccessWrite  AccessKind = "write"
	AccessDelete AccessKind = "delete"
)

// AccessRecord is an immutable, append-only access fact. It is only ever
// consumed in aggregate by the placement components.
type AccessRecord struct {
	ID         string     `json:"id"`
	ObjectID   string     `json:"object_id"`
	AccessedAt time.Time  `json:"accessed_at"`
	Kind       AccessKind `json:"kind"`
	LatencyMS  float64    `json:"latency_ms,omitempty"`
	Source     string     `json:"source,omitempty"`
}

// MigrationStatus is the lifecycle state of a migration attempt.
type MigrationStatus string

const (
	MigrationPending    MigrationStatus = "pending"
	MigrationInProgress MigrationStatus = "in_progress"
	MigrationCompleted  MigrationStatus = "completed"
	MigrationFailed     MigrationStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s MigrationStatus) Terminal() bool {
	return s == MigrationCompleted || s == MigrationFailed
}

// Migration tracks one object-move attempt between tiers/locations.
type Migration struct {
	ID               string          `json:"id"`
	ObjectID         string          `json:"object_id"`
	SourceTier       Tier            `json:"source_tier"`
	TargetTier       Tier            `json:"target_tier"`
	SourceLocation   string          `json:"source_location"`
	TargetLocation   string          `json:"target_location"`
	Status           MigrationStatus `json:"status"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      time.Time       `json:"completed_at,omitempty"`
	BytesTransferred int64           `json:"bytes_transferred"`
	TotalBytes       int64           `json:"total_bytes"`
	ErrorMessage     string          `json:"error_message,omitempty"`
}

// ProgressPercent returns transfer progress in [0,100].
func (m *Migration) ProgressPercent() float64 {
	if m.TotalBytes <= 0 {
		return 0
	}
	return float64(m.BytesTransferred) / float64(m.TotalBytes) * 100
}

// AccessMetrics summarizes an object's access history over a trailing window.
type AccessMetrics struct {
	AccessesPerDay   float64   `json:"accesses_per_day"`
	TotalAccesses    int64     `json:"total_accesses"`
	HoursSinceAccess float64   `json:"hours_since_access"`
	LastAccess       time.Time `json:"last_access,omitempty"`
	AvgLatencyMS     float64   `json:"avg_latency_ms"`
	LatencySamples   int64     `json:"latency_samples"`
}

// CostAnalysis is the cost delta of moving an object to a target tier.
type CostAnalysis struct {
	CurrentCost        float64 `json:"current_cost"`
	TargetCost         float64 `json:"target_cost"`
	CostSavings        float64 `json:"cost_savings"`
	CostSavingsPercent float64 `json:"cost_savings_percent"`
}

// LatencyAnalysis is the latency verdict of moving an object to a target tier.
type LatencyAnalysis struct {
	CurrentAvgLatencyMS float64 `json:"current_avg_latency_ms"`
	TargetLatencyMS     float64 `json:"target_latency_ms"`
	Acceptable          bool    `json:"latency_acceptable"`
	PenaltyMS           float64 `json:"latency_penalty_ms"`
}

// Recommendation is the outcome of a placement optimization run.
type Recommendation struct {
	ObjectID        string          `json:"object_id"`
	CurrentTier     Tier            `json:"current_tier"`
	RecommendedTier Tier            `json:"recommended_tier"`
	AccessMetrics   AccessMetrics   `json:"access_metrics"`
	CostAnalysis    CostAnalysis    `json:"cost_analysis"`
	LatencyAnalysis LatencyAnalysis `json:"latency_analysis"`
	Score           float64         `json:"optimization_score"`
	ShouldMigrate   bool            `json:"should_migrate"`
	Reasons         []string        `json:"reasons"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Prediction is an advisory tier forecast. It may inform a recommendation
// but is never authoritative over the classifier.
type Prediction struct {
	ObjectID      string    `json:"object_id"`
	PredictedTier Tier      `json:"predicted_tier"`
	Confidence    float64   `json:"confidence_score"`
	Reasoning     string    `json:"reasoning"`
	PredictedAt   time.Time `json:"predicted_at"`
}

// ReplicaState is the lifecycle state of one replica at one location.
type ReplicaState string

const (
	ReplicaPending    ReplicaState = "pending"
	ReplicaInProgress ReplicaState = "in_progress"
	ReplicaCompleted  ReplicaState = "completed"
	ReplicaFailed     ReplicaState = "failed"
)

// ReplicaStatus is ephemeral bookkeeping for a replica of an object at a
// location. Owned by the replication manager; never authoritative over the
// object record.
type ReplicaStatus struct {
	ObjectID  string       `json:"object_id"`
	Location  string       `json:"location"`
	State     ReplicaState `json:"state"`
	Progress  float64      `json:"progress"`
	StartedAt time.Time    `json:"started_at"`
	Error     string       `json:"error,omitempty"`
}

// ReplicationTask describes one requested copy of an object to a location.
type ReplicationTask struct {
	ObjectID       string       `json:"object_id"`
	SourceLocation string       `json:"source_location"`
	TargetLocation string       `json:"target_location"`
	State          ReplicaState `json:"state"`
	StartedAt      time.Time    `json:"started_at"`
}

// ReplicationResult is the outcome of a replicate call.
type ReplicationResult struct {
	ObjectID       string            `json:"object_id"`
	Tasks          []ReplicationTask `json:"replication_tasks"`
	TotalLocations int               `json:"total_locations"`
}

// ConsistencyReport is the outcome of a consistency verification.
type ConsistencyReport struct {
	ObjectID         string    `json:"object_id"`
	Checksum         string    `json:"checksum"`
	Consistent       bool      `json:"is_consistent"`
	LocationsChecked []string  `json:"locations_checked"`
	ActiveMigrations int       `json:"active_migrations"`
	Timestamp        time.Time `json:"timestamp"`
}

// AvailabilityReport is the outcome of a location-failure check or a
// minimum-replica enforcement pass.
type AvailabilityReport struct {
	ObjectID         string             `json:"object_id"`
	FailedLocation   string             `json:"failed_location,omitempty"`
	Available        bool               `json:"is_available"`
	FallbackLocation string             `json:"fallback_location,omitempty"`
	CurrentReplicas  int                `json:"current_replicas"`
	MinReplicas      int                `json:"min_replicas"`
	Sufficient       bool               `json:"sufficient"`
	Replication      *ReplicationResult `json:"replication,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
}

// SyncResult records one cross-environment reconciliation pass.
type SyncResult struct {
	Environment string    `json:"environment"`
	Status      string    `json:"status"`
	Checksum    string    `json:"checksum"`
	Timestamp   time.Time `json:"timestamp"`
}

// FabricStats is an aggregate snapshot of the fabric.
type FabricStats struct {
	TotalObjects      int          `json:"total_objects"`
	TotalSizeGB       float64      `json:"total_size_gb"`
	TotalMonthlyCost  float64      `json:"total_monthly_cost"`
	TierDistribution  map[Tier]int `json:"tier_distribution"`
	ActiveMigrations  int          `json:"active_migrations"`
	RecentAccesses24h int64        `json:"recent_accesses_24h"`
}
