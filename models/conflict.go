package models

import "time"

// ConflictType classifies which booking invariant was violated.
type ConflictType string

const (
	ConflictSlotOverlap      ConflictType = "slot_overlap"
	ConflictCapacityExceeded ConflictType = "capacity_exceeded"
	ConflictResource         ConflictType = "resource_conflict"
	ConflictPayment          ConflictType = "payment_conflict"
	ConflictVersion          ConflictType = "version_conflict"
)

// ConflictSeverity ranks how urgently a conflict needs attention.
type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "low"
	SeverityMedium   ConflictSeverity = "medium"
	SeverityHigh     ConflictSeverity = "high"
	SeverityCritical ConflictSeverity = "critical"
)

// ConflictStatus tracks the resolution lifecycle of a conflict record.
type ConflictStatus string

const (
	ConflictDetected ConflictStatus = "detected"
	ConflictResolved ConflictStatus = "resolved"
	ConflictFailed   ConflictStatus = "failed"
)

// Conflict is an immutable-ish record of a detected invariant violation.
// Created by the detector, its resolution fields are written exactly once by
// the resolution engine; it is never deleted outside retention cleanup.
type Conflict struct {
	ID              string           `bson:"id" json:"id"`
	Type            ConflictType     `bson:"type" json:"type"`
	Severity        ConflictSeverity `bson:"severity" json:"severity"`
	Status          ConflictStatus   `bson:"status" json:"status"`
	ShopID          string           `bson:"shop_id" json:"shop_id"`
	ReservationIDs  []string         `bson:"reservation_ids" json:"reservation_ids"` // All reservations party to the conflict
	Details         map[string]any   `bson:"details" json:"details"`                 // Type-specific payload (shortfall, versions, amounts)
	DetectedAt      time.Time        `bson:"detected_at" json:"detected_at"`
	ResolvedAt      *time.Time       `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	StrategyID      string           `bson:"strategy_id,omitempty" json:"strategy_id,omitempty"`
	ResolutionNotes string           `bson:"resolution_notes,omitempty" json:"resolution_notes,omitempty"`
}

// ResolutionAction is a single remediation step within a strategy.
type ResolutionAction string

const (
	ActionCancelReservation ResolutionAction = "cancel_reservation"
	ActionReschedule        ResolutionAction = "reschedule"
	ActionMerge             ResolutionAction = "merge"
	ActionSplit             ResolutionAction = "split"
	ActionUpdatePayment     ResolutionAction = "update_payment"
	ActionRetry             ResolutionAction = "retry"
	ActionNotify            ResolutionAction = "notify"
	ActionReconcilePayments ResolutionAction = "reconcile_payments"
)

// StrategyAction pairs an action with its priority and parameters.
type StrategyAction struct {
	Action   ResolutionAction `bson:"action" json:"action"`
	Priority int              `bson:"priority" json:"priority"` // Ascending execution order
	Params   map[string]any   `bson:"params,omitempty" json:"params,omitempty"`
}

// ResolutionStrategy is static configuration mapping a conflict type to its
// ordered remediation actions. Built once at startup, never mutated.
type ResolutionStrategy struct {
	ID                  string           `json:"id"`
	ConflictType        ConflictType     `json:"conflict_type"`
	Actions             []StrategyAction `json:"actions"`
	AutomaticResolution bool             `json:"automatic_resolution"` // May run unattended
	RequiresApproval    bool             `json:"requires_approval"`    // Side effects gated behind explicit approval
}

// ActionOutcome reports one executed action inside a resolution.
type ActionOutcome struct {
	Action  ResolutionAction `json:"action"`
	Success bool             `json:"success"`
	Detail  string           `json:"detail,omitempty"`
}

// ResolutionResult is the per-conflict outcome of a Resolve call.
type ResolutionResult struct {
	ConflictID      string          `json:"conflict_id"`
	StrategyID      string          `json:"strategy_id,omitempty"`
	Resolved        bool            `json:"resolved"`
	PendingApproval bool            `json:"pending_approval"` // Strategy requires explicit approval before side effects
	Actions         []ActionOutcome `json:"actions,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}
