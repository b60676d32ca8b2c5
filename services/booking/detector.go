package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	conflictRepo "reserva/database/repository/conflict"
	paymentRepo "reserva/database/repository/payment"
	reservationRepo "reserva/database/repository/reservation"
	shopRepo "reserva/database/repository/shop"
	"reserva/models"
)

// Detector runs the four invariant checks. Each check is pure given current
// store state; detected conflicts are persisted before any resolution
// decision so they stay visible even when resolution later fails.
type Detector struct {
	Reservations reservationRepo.Repository
	Payments     paymentRepo.Repository
	Shops        shopRepo.Repository
	Conflicts    conflictRepo.Repository
	Logger       *zap.Logger
}

// NewDetector constructs a Detector.
func NewDetector(
	reservations reservationRepo.Repository,
	payments paymentRepo.Repository,
	shops shopRepo.Repository,
	conflicts conflictRepo.Repository,
	logger *zap.Logger,
) *Detector {
	return &Detector{
		Reservations: reservations,
		Payments:     payments,
		Shops:        shops,
		Conflicts:    conflicts,
		Logger:       logger,
	}
}

// SlotCheck describes a requested slot occupancy for overlap and capacity
// checks. ExcludeID skips the reservation being updated.
type SlotCheck struct {
	ShopID    string `json:"shop_id"`
	Date      string `json:"date"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Units     int    `json:"units"`
	ExcludeID string `json:"exclude_id,omitempty"`
}

// CheckSlotOverlap flags active reservations overlapping the requested
// interval, but only when the shop's concurrent limit cannot absorb them:
// overlap within capacity is admitted. Intervals are half-open: touching
// boundaries do not overlap. A pure unit overflow into an empty window is
// CheckCapacity's to report.
func (d *Detector) CheckSlotOverlap(ctx context.Context, check SlotCheck) (*models.Conflict, error) {
	shop, err := d.Shops.GetByID(ctx, check.ShopID)
	if err != nil {
		return nil, NewSystemError("overlap check shop read failed", err)
	}
	existing, err := d.Reservations.ListActiveByShopDate(ctx, check.ShopID, check.Date)
	if err != nil {
		return nil, NewSystemError("overlap check read failed", err)
	}

	var overlapping []string
	for _, r := range existing {
		if r.ID == check.ExcludeID {
			continue
		}
		if check.Start < r.End && check.End > r.Start {
			overlapping = append(overlapping, r.ID)
		}
	}
	requested := check.Units
	if requested <= 0 {
		requested = 1
	}
	if len(overlapping) == 0 || len(overlapping)+requested <= shop.MaxConcurrent {
		return nil, nil
	}

	c := &models.Conflict{
		ID:             uuid.New().String(),
		Type:           models.ConflictSlotOverlap,
		Severity:       models.SeverityHigh,
		Status:         models.ConflictDetected,
		ShopID:         check.ShopID,
		ReservationIDs: overlapping,
		Details: map[string]any{
			"date":      check.Date,
			"new_start": check.Start,
			"new_end":   check.End,
			"occupied":  len(overlapping),
			"max":       shop.MaxConcurrent,
		},
		DetectedAt: time.Now().UTC(),
	}
	return c, d.persist(ctx, c)
}

// CheckCapacity counts active reservations at the exact requested start and
// flags the shortfall when the shop's concurrent limit would be exceeded.
func (d *Detector) CheckCapacity(ctx context.Context, check SlotCheck) (*models.Conflict, error) {
	shop, err := d.Shops.GetByID(ctx, check.ShopID)
	if err != nil {
		return nil, NewSystemError("capacity check shop read failed", err)
	}
	current, err := d.Reservations.CountActiveAt(ctx, check.ShopID, check.Date, check.Start)
	if err != nil {
		return nil, NewSystemError("capacity check count failed", err)
	}

	requested := check.Units
	if requested <= 0 {
		requested = 1
	}
	if current+requested <= shop.MaxConcurrent {
		return nil, nil
	}

	c := &models.Conflict{
		ID:       uuid.New().String(),
		Type:     models.ConflictCapacityExceeded,
		Severity: models.SeverityHigh,
		Status:   models.ConflictDetected,
		ShopID:   check.ShopID,
		Details: map[string]any{
			"date":      check.Date,
			"start":     check.Start,
			"current":   current,
			"requested": requested,
			"max":       shop.MaxConcurrent,
			"shortfall": current + requested - shop.MaxConcurrent,
		},
		DetectedAt: time.Now().UTC(),
	}
	return c, d.persist(ctx, c)
}

// CheckVersion compares a caller-supplied expected version against the stored
// one. A mismatch is retryable: the caller re-reads and retries.
func (d *Detector) CheckVersion(ctx context.Context, reservationID string, expectedVersion int64) (*models.Conflict, error) {
	r, err := d.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, NewSystemError("version check read failed", err)
	}
	if r.Version == expectedVersion {
		return nil, nil
	}

	c := &models.Conflict{
		ID:             uuid.New().String(),
		Type:           models.ConflictVersion,
		Severity:       models.SeverityLow,
		Status:         models.ConflictDetected,
		ShopID:         r.ShopID,
		ReservationIDs: []string{reservationID},
		Details: map[string]any{
			"expected_version": expectedVersion,
			"stored_version":   r.Version,
		},
		DetectedAt: time.Now().UTC(),
	}
	return c, d.persist(ctx, c)
}

// CheckPayment flags another active payment on the same reservation with the
// same amount. Critical: never silently retried.
func (d *Detector) CheckPayment(ctx context.Context, reservationID string, amount int64, excludePaymentID string) (*models.Conflict, error) {
	dups, err := d.Payments.FindActiveDuplicates(ctx, reservationID, amount, excludePaymentID)
	if err != nil {
		return nil, NewSystemError("payment check read failed", err)
	}
	if len(dups) == 0 {
		return nil, nil
	}

	dupIDs := make([]string, 0, len(dups))
	for _, p := range dups {
		dupIDs = append(dupIDs, p.ID)
	}
	c := &models.Conflict{
		ID:             uuid.New().String(),
		Type:           models.ConflictPayment,
		Severity:       models.SeverityCritical,
		Status:         models.ConflictDetected,
		ReservationIDs: []string{reservationID},
		Details: map[string]any{
			"amount":      amount,
			"payment_ids": dupIDs,
		},
		DetectedAt: time.Now().UTC(),
	}
	return c, d.persist(ctx, c)
}

// DetectRequest selects which checks DetectRealTime runs.
type DetectRequest struct {
	Operation       string    `json:"operation"` // "create", "update", "payment"
	Slot            SlotCheck `json:"slot"`
	ReservationID   string    `json:"reservation_id,omitempty"`
	ExpectedVersion int64     `json:"expected_version,omitempty"`
	PaymentID       string    `json:"payment_id,omitempty"`
	Amount          int64     `json:"amount,omitempty"`
}

// DetectRealTime runs the checks appropriate to an operation type and returns
// every conflict found, already persisted.
func (d *Detector) DetectRealTime(ctx context.Context, req DetectRequest) ([]models.Conflict, error) {
	var out []models.Conflict

	appendIf := func(c *models.Conflict, err error) error {
		if err != nil {
			return err
		}
		if c != nil {
			out = append(out, *c)
		}
		return nil
	}

	switch req.Operation {
	case "create":
		if err := appendIf(d.CheckSlotOverlap(ctx, req.Slot)); err != nil {
			return nil, err
		}
		if err := appendIf(d.CheckCapacity(ctx, req.Slot)); err != nil {
			return nil, err
		}
	case "update":
		if err := appendIf(d.CheckVersion(ctx, req.ReservationID, req.ExpectedVersion)); err != nil {
			return nil, err
		}
		if req.Slot.ShopID != "" {
			if err := appendIf(d.CheckSlotOverlap(ctx, req.Slot)); err != nil {
				return nil, err
			}
		}
	case "payment":
		if err := appendIf(d.CheckPayment(ctx, req.ReservationID, req.Amount, req.PaymentID)); err != nil {
			return nil, err
		}
	default:
		return nil, NewValidationError("unknown operation type: " + req.Operation)
	}
	return out, nil
}

func (d *Detector) persist(ctx context.Context, c *models.Conflict) error {
	if err := d.Conflicts.Insert(ctx, c); err != nil {
		d.Logger.Error("failed to persist conflict",
			zap.String("conflict_id", c.ID),
			zap.String("type", string(c.Type)),
			zap.Error(err))
		return NewSystemError("conflict persistence failed", err)
	}
	d.Logger.Info("conflict detected",
		zap.String("conflict_id", c.ID),
		zap.String("type", string(c.Type)),
		zap.String("severity", string(c.Severity)),
		zap.String("shop_id", c.ShopID))
	return nil
}
