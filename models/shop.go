package models

import "time"

// Shop carries the booking configuration the core consumes. Profile fields
// (name, address, images) live with the shop CRUD surface and are not needed
// here beyond display.
type Shop struct {
	ID            string         `bson:"id" json:"id"`
	Name          string         `bson:"name" json:"name"`
	MaxConcurrent int            `bson:"max_concurrent" json:"max_concurrent"` // Seats bookable at the same instant
	GracePeriods  map[string]int `bson:"grace_periods" json:"grace_periods"`   // Service category -> minutes
	PenaltyPoints int            `bson:"penalty_points" json:"penalty_points"` // No-show penalty
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
}

// GracePeriodFor returns the grace period for a service category, falling back
// to def when the category has no entry.
func (s *Shop) GracePeriodFor(category string, def time.Duration) time.Duration {
	if minutes, ok := s.GracePeriods[category]; ok && minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}
	return def
}
