package models

import "time"

// ErrorKind is the typed classification produced at the throw site. Retry
// decisions key off this value, never off error message text.
type ErrorKind string

const (
	ErrKindConflict        ErrorKind = "conflict"         // Slot/capacity violation, needs reschedule or a human
	ErrKindVersionConflict ErrorKind = "version_conflict" // Stale optimistic version, re-read and retry
	ErrKindLockTimeout     ErrorKind = "lock_timeout"     // Slot lock not acquired in time
	ErrKindDeadlock        ErrorKind = "deadlock"         // Store-reported deadlock, retry with doubled delay
	ErrKindPaymentConflict ErrorKind = "payment_conflict" // Duplicate active payment, manual reconciliation only
	ErrKindValidation      ErrorKind = "validation_error" // Caller fault, never retried
	ErrKindTimeout         ErrorKind = "timeout"          // Per-attempt hard timeout exceeded
	ErrKindTemporary       ErrorKind = "temporary"        // Transient infrastructure failure
	ErrKindSystem          ErrorKind = "system_error"     // Default catch-all
	ErrKindNone            ErrorKind = ""
)

// RetryConfig is the snapshot of retry tuning taken when an operation starts.
type RetryConfig struct {
	MaxRetries        int           `bson:"max_retries" json:"max_retries"`
	BaseDelay         time.Duration `bson:"base_delay" json:"base_delay"`
	MaxDelay          time.Duration `bson:"max_delay" json:"max_delay"`
	BackoffMultiplier float64       `bson:"backoff_multiplier" json:"backoff_multiplier"`
	JitterFactor      float64       `bson:"jitter_factor" json:"jitter_factor"`
	AttemptTimeout    time.Duration `bson:"attempt_timeout" json:"attempt_timeout"`
}

// RetryAttempt records one execution inside a retryable operation.
type RetryAttempt struct {
	Number    int           `bson:"number" json:"number"` // 1-based
	Success   bool          `bson:"success" json:"success"`
	ErrorKind ErrorKind     `bson:"error_kind,omitempty" json:"error_kind,omitempty"`
	ErrorText string        `bson:"error_text,omitempty" json:"error_text,omitempty"`
	Delay     time.Duration `bson:"delay" json:"delay"` // Backoff applied before this attempt
	Duration  time.Duration `bson:"duration" json:"duration"`
	StartedAt time.Time     `bson:"started_at" json:"started_at"`
}

// RetryOperation is the immutable record of a retryable operation: created at
// start, appended to per attempt, closed on terminal success or exhaustion.
type RetryOperation struct {
	ID            string         `bson:"id" json:"id"`
	OperationType string         `bson:"operation_type" json:"operation_type"` // e.g. "reservation_create"
	ShopID        string         `bson:"shop_id,omitempty" json:"shop_id,omitempty"`
	ReservationID string         `bson:"reservation_id,omitempty" json:"reservation_id,omitempty"`
	PaymentID     string         `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	Config        RetryConfig    `bson:"config" json:"config"`
	Attempts      []RetryAttempt `bson:"attempts" json:"attempts"`
	Success       bool           `bson:"success" json:"success"`
	FinalError    ErrorKind      `bson:"final_error,omitempty" json:"final_error,omitempty"`
	ConflictSeen  bool           `bson:"conflict_seen" json:"conflict_seen"`
	LockTimeouts  int            `bson:"lock_timeouts" json:"lock_timeouts"`
	Deadlocks     int            `bson:"deadlocks" json:"deadlocks"`
	StartedAt     time.Time      `bson:"started_at" json:"started_at"`
	CompletedAt   *time.Time     `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
