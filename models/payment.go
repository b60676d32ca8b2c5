package models

import "time"

// PaymentStatus enumerates payment lifecycle states. Pending, processing and
// completed count as active for duplicate detection.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// ActivePaymentStatuses are the states checked by the payment-conflict rule.
var ActivePaymentStatuses = []PaymentStatus{PaymentPending, PaymentProcessing, PaymentCompleted}

// Payment is a payment row tied to a reservation.
type Payment struct {
	ID            string        `bson:"id" json:"id"`
	ReservationID string        `bson:"reservation_id" json:"reservation_id"`
	UserID        string        `bson:"user_id" json:"user_id"`
	Amount        int64         `bson:"amount" json:"amount"` // Minor currency units
	Currency      string        `bson:"currency" json:"currency"`
	Status        PaymentStatus `bson:"status" json:"status"`
	Version       int64         `bson:"version" json:"version"`
	GatewayRef    string        `bson:"gateway_ref,omitempty" json:"gateway_ref,omitempty"` // Stripe payment intent / refund id
	CreatedAt     time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
}
