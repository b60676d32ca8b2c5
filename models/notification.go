package models

// NotificationPayload is the queue message consumed by the notification
// worker. Delivery itself (push, SMS) is a downstream collaborator.
type NotificationPayload struct {
	Kind          string            `json:"kind"` // "no_show_warning", "no_show_final", "rescheduled", ...
	UserID        string            `json:"user_id"`
	ShopID        string            `json:"shop_id,omitempty"`
	ReservationID string            `json:"reservation_id,omitempty"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Data          map[string]string `json:"data,omitempty"`
}
