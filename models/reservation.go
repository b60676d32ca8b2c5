package models

import "time"

// ReservationStatus enumerates the reservation state machine.
type ReservationStatus string

const (
	StatusRequested       ReservationStatus = "requested"
	StatusConfirmed       ReservationStatus = "confirmed"
	StatusInProgress      ReservationStatus = "in_progress"
	StatusCompleted       ReservationStatus = "completed"
	StatusCancelledByUser ReservationStatus = "cancelled_by_user"
	StatusCancelledByShop ReservationStatus = "cancelled_by_shop"
	StatusNoShow          ReservationStatus = "no_show"
)

// ActiveStatuses are the states that occupy slot capacity.
var ActiveStatuses = []ReservationStatus{StatusRequested, StatusConfirmed, StatusInProgress}

// IsTerminal reports whether no further transition is allowed from s.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByUser, StatusCancelledByShop, StatusNoShow:
		return true
	}
	return false
}

// Reservation represents a booked shop time-slot. Status is never written
// directly; every change goes through the transition primitive so it lands in
// the audit trail.
type Reservation struct {
	ID                string            `bson:"id" json:"id"`                             // Unique reservation identifier (UUID)
	ShopID            string            `bson:"shop_id" json:"shop_id"`                   // Shop being booked
	UserID            string            `bson:"user_id" json:"user_id"`                   // Requesting user
	Date              string            `bson:"date" json:"date"`                         // Reservation date in "YYYY-MM-DD" format
	Start             int               `bson:"start" json:"start"`                       // Start time (minutes from midnight)
	End               int               `bson:"end" json:"end"`                           // End time, exclusive (minutes from midnight)
	ServiceCategory   string            `bson:"service_category" json:"service_category"` // Drives grace-period lookup
	Services          []string          `bson:"services" json:"services"`                 // Requested service ids
	Status            ReservationStatus `bson:"status" json:"status"`
	Version           int64             `bson:"version" json:"version"`               // Monotonic, for optimistic concurrency
	ScheduledTime     time.Time         `bson:"scheduled_time" json:"scheduled_time"` // Date+Start resolved to wall clock, indexed for scans
	RefundEligible    bool              `bson:"refund_eligible" json:"refund_eligible"`
	PointsAwarded     bool              `bson:"points_awarded" json:"points_awarded"`
	NoShowWarned      bool              `bson:"no_show_warned" json:"no_show_warned"`           // Warning notification already sent
	GraceExtensionMin int               `bson:"grace_extension_min" json:"grace_extension_min"` // Manual grace extension, minutes
	CreatedAt         time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updated_at"`
}

// ResolveScheduledTime computes the wall-clock start from Date and Start.
func ResolveScheduledTime(date string, startMinutes int, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(startMinutes) * time.Minute), nil
}

// CreateReservationRequest is the input for a locked reservation creation.
type CreateReservationRequest struct {
	ShopID          string   `json:"shop_id" binding:"required"`
	UserID          string   `json:"user_id" binding:"required"`
	Date            string   `json:"date" binding:"required"`
	Start           int      `json:"start"`
	DurationMinutes int      `json:"duration_minutes" binding:"required"`
	ServiceCategory string   `json:"service_category"`
	Services        []string `json:"services"`
	Units           int      `json:"units"` // Concurrent seats requested, defaults to 1
}

// UpdateReservationPatch carries the mutable fields of an update operation.
// Nil fields are left untouched.
type UpdateReservationPatch struct {
	Date            *string  `json:"date,omitempty"`
	Start           *int     `json:"start,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Services        []string `json:"services,omitempty"`
}

// CreateReservationResult is returned to the HTTP edge.
type CreateReservationResult struct {
	Success       bool      `json:"success"`
	ReservationID string    `json:"reservation_id,omitempty"`
	Version       int64     `json:"version,omitempty"`
	Conflict      *Conflict `json:"conflict,omitempty"`
}

// UpdateReservationResult is returned to the HTTP edge.
type UpdateReservationResult struct {
	Success    bool      `json:"success"`
	NewVersion int64     `json:"new_version,omitempty"`
	Conflict   *Conflict `json:"conflict,omitempty"`
}
