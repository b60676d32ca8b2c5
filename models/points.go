package models

import "time"

// PointEntry is one row in the user point ledger. The balance is the sum of
// deltas; penalty deductions reference the reservation that caused them.
type PointEntry struct {
	ID            string    `bson:"id" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	Delta         int       `bson:"delta" json:"delta"` // Negative for deductions
	Reason        string    `bson:"reason" json:"reason"`
	ReservationID string    `bson:"reservation_id,omitempty" json:"reservation_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
