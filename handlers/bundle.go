package handlers

// HandlerBundle groups all endpoint handlers into one struct so route
// registration only passes a single dependency around.
type HandlerBundle struct {
	Booking  *BookingHandler
	Conflict *ConflictHandler
	Admin    *AdminHandler
	Health   *HealthHandler
}
