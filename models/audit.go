package models

import "time"

// ActorKind identifies who drove a status transition.
type ActorKind string

const (
	ActorUser   ActorKind = "user"
	ActorShop   ActorKind = "shop"
	ActorSystem ActorKind = "system"
	ActorAdmin  ActorKind = "admin"
)

// AuditEntry is the append-only record of one status transition. Appending an
// entry is the only legal way a reservation's status changes.
type AuditEntry struct {
	ID            string            `bson:"id" json:"id"`
	ReservationID string            `bson:"reservation_id" json:"reservation_id"`
	FromStatus    ReservationStatus `bson:"from_status" json:"from_status"`
	ToStatus      ReservationStatus `bson:"to_status" json:"to_status"`
	ActorKind     ActorKind         `bson:"actor_kind" json:"actor_kind"`
	ActorID       string            `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Reason        string            `bson:"reason,omitempty" json:"reason,omitempty"`
	Success       bool              `bson:"success" json:"success"` // False when the transition was rejected
	Metadata      map[string]any    `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"created_at"`
}

// OperationStats is the per-shop/per-type read model over a sliding window.
type OperationStats struct {
	ShopID        string        `json:"shop_id,omitempty"`
	OperationType string        `json:"operation_type"`
	Count         int64         `json:"count"`
	SuccessCount  int64         `json:"success_count"`
	SuccessRate   float64       `json:"success_rate"` // Percentage 0..100
	AvgDuration   time.Duration `json:"avg_duration"`
	MaxDuration   time.Duration `json:"max_duration"`
	ConflictCount int64         `json:"conflict_count"`
	LockTimeouts  int64         `json:"lock_timeouts"`
	Deadlocks     int64         `json:"deadlocks"`
}

// StatusPairStats aggregates transitions over one (from,to) edge.
type StatusPairStats struct {
	FromStatus  ReservationStatus `json:"from_status"`
	ToStatus    ReservationStatus `json:"to_status"`
	Total       int64             `json:"total"`
	Succeeded   int64             `json:"succeeded"`
	SuccessRate float64           `json:"success_rate"`
}

// ActorStats aggregates transitions per actor kind.
type ActorStats struct {
	ActorKind   ActorKind `json:"actor_kind"`
	Total       int64     `json:"total"`
	Succeeded   int64     `json:"succeeded"`
	SuccessRate float64   `json:"success_rate"`
}

// IntegrityIssue flags an audit row that fails a data-integrity check.
type IntegrityIssue struct {
	Kind        string `json:"kind"` // "orphaned" or "duplicate"
	AuditID     string `json:"audit_id"`
	Description string `json:"description"`
}

// ComplianceReport covers all transitions in a date range, recomputed from raw
// audit rows so it can be cross-checked against tracker aggregates.
type ComplianceReport struct {
	From              time.Time         `json:"from"`
	To                time.Time         `json:"to"`
	TotalTransitions  int64             `json:"total_transitions"`
	FailedTransitions int64             `json:"failed_transitions"`
	ErrorRate         float64           `json:"error_rate"` // failed/total*100
	ByStatusPair      []StatusPairStats `json:"by_status_pair"`
	ByActor           []ActorStats      `json:"by_actor"`
	IntegrityIssues   []IntegrityIssue  `json:"integrity_issues"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// TrendBucket is one day's aggregate in a trend analysis.
type TrendBucket struct {
	Day           string        `json:"day"` // "YYYY-MM-DD"
	Total         int64         `json:"total"`
	Failed        int64         `json:"failed"`
	ErrorRate     float64       `json:"error_rate"`
	AvgProcessing time.Duration `json:"avg_processing"`
}

// Anomaly marks a bucket whose metrics deviate from the window average.
type Anomaly struct {
	Day    string  `json:"day"`
	Metric string  `json:"metric"` // "error_rate", "processing_time", "volume"
	Value  float64 `json:"value"`
	Mean   float64 `json:"mean"`
	Factor float64 `json:"factor"` // value / mean
}

// TrendReport is the output of the trend analysis read model.
type TrendReport struct {
	From      time.Time     `json:"from"`
	To        time.Time     `json:"to"`
	Buckets   []TrendBucket `json:"buckets"`
	Anomalies []Anomaly     `json:"anomalies"`
}
