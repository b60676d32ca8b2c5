package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	conflictRepo "reserva/database/repository/conflict"
	paymentRepo "reserva/database/repository/payment"
	reservationRepo "reserva/database/repository/reservation"
	shopRepo "reserva/database/repository/shop"
	"reserva/models"
	"reserva/services/notification"
	"reserva/services/payment"
)

// Resolver maps detected conflicts to their configured remediation. Actions
// are idempotent: the engine may run more than once for the same conflict and
// the conflict record is closed with first-write-wins semantics.
type Resolver struct {
	Strategies   StrategyTable
	Conflicts    conflictRepo.Repository
	Reservations reservationRepo.Repository
	Payments     paymentRepo.Repository
	Shops        shopRepo.Repository
	Transitioner *Transitioner
	Notifier     notification.Service
	Gateway      payment.Gateway
	Location     *time.Location // Shop-local timezone for rescheduled times
	Logger       *zap.Logger
}

// NewResolver constructs a Resolver around an immutable strategy table.
func NewResolver(
	strategies StrategyTable,
	conflicts conflictRepo.Repository,
	reservations reservationRepo.Repository,
	payments paymentRepo.Repository,
	shops shopRepo.Repository,
	transitioner *Transitioner,
	notifier notification.Service,
	gateway payment.Gateway,
	location *time.Location,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		Strategies:   strategies,
		Conflicts:    conflicts,
		Reservations: reservations,
		Payments:     payments,
		Shops:        shops,
		Transitioner: transitioner,
		Notifier:     notifier,
		Gateway:      gateway,
		Location:     location,
		Logger:       logger,
	}
}

func (rs *Resolver) loc() *time.Location {
	if rs.Location != nil {
		return rs.Location
	}
	return time.Local
}

// Resolve executes the configured strategy for each conflict id. approved is
// true when an authorized actor has explicitly signed off; strategies with
// RequiresApproval (or without AutomaticResolution) take no side effects
// until then and return a pending-approval result instead.
func (rs *Resolver) Resolve(ctx context.Context, conflictIDs []string, approved bool) ([]models.ResolutionResult, error) {
	conflicts, err := rs.Conflicts.ListByIDs(ctx, conflictIDs)
	if err != nil {
		return nil, NewSystemError("conflict lookup failed", err)
	}

	results := make([]models.ResolutionResult, 0, len(conflicts))
	for i := range conflicts {
		results = append(results, rs.resolveOne(ctx, &conflicts[i], approved))
	}
	return results, nil
}

func (rs *Resolver) resolveOne(ctx context.Context, c *models.Conflict, approved bool) models.ResolutionResult {
	result := models.ResolutionResult{ConflictID: c.ID}

	if c.Status != models.ConflictDetected {
		result.Resolved = c.Status == models.ConflictResolved
		result.Notes = "conflict already closed"
		return result
	}

	strategy, ok := rs.Strategies[c.Type]
	if !ok {
		result.Notes = "no strategy configured for type " + string(c.Type)
		rs.close(ctx, c.ID, models.ConflictFailed, "", result.Notes)
		return result
	}
	result.StrategyID = strategy.ID

	if (!strategy.AutomaticResolution || strategy.RequiresApproval) && !approved {
		result.PendingApproval = true
		result.Notes = "awaiting explicit approval"
		return result
	}

	actions := make([]models.StrategyAction, len(strategy.Actions))
	copy(actions, strategy.Actions)
	sort.Slice(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })

	allOK := true
	for _, sa := range actions {
		outcome := rs.runAction(ctx, c, sa)
		result.Actions = append(result.Actions, outcome)
		if !outcome.Success {
			allOK = false
		}
	}

	status := models.ConflictResolved
	notes := "all actions completed"
	if !allOK {
		status = models.ConflictFailed
		notes = "one or more actions failed"
	}
	result.Resolved = allOK
	result.Notes = notes
	rs.close(ctx, c.ID, status, strategy.ID, notes)
	return result
}

// close updates the conflict record exactly once. A lost race means another
// resolver invocation already closed it, which is fine.
func (rs *Resolver) close(ctx context.Context, id string, status models.ConflictStatus, strategyID, notes string) {
	err := rs.Conflicts.Close(ctx, id, status, strategyID, notes)
	if err != nil && !errors.Is(err, conflictRepo.ErrAlreadyClosed) {
		rs.Logger.Error("failed to close conflict", zap.String("conflict_id", id), zap.Error(err))
	}
}

func (rs *Resolver) runAction(ctx context.Context, c *models.Conflict, sa models.StrategyAction) models.ActionOutcome {
	out := models.ActionOutcome{Action: sa.Action}

	switch sa.Action {
	case models.ActionRetry:
		// The retry itself runs in the caller's executor; resolving the
		// conflict signals that a retry is expected to succeed.
		out.Success = true
		out.Detail = "caller retry authorized"

	case models.ActionReschedule:
		out.Success, out.Detail = rs.reschedule(ctx, c)

	case models.ActionCancelReservation:
		refundToo, _ := sa.Params["refund"].(bool)
		out.Success, out.Detail = rs.cancelReservations(ctx, c, refundToo)

	case models.ActionNotify:
		out.Success, out.Detail = rs.notifyAffected(ctx, c)

	case models.ActionReconcilePayments:
		out.Success, out.Detail = rs.reconcilePayments(ctx, c)

	case models.ActionUpdatePayment:
		out.Success, out.Detail = rs.reconcilePayments(ctx, c)

	case models.ActionMerge, models.ActionSplit:
		// Structural changes to reservations always go through a human.
		out.Detail = "manual action required"

	default:
		out.Detail = "unknown action"
	}

	rs.Logger.Info("resolution action executed",
		zap.String("conflict_id", c.ID),
		zap.String("action", string(sa.Action)),
		zap.Bool("success", out.Success))
	return out
}

// reschedule moves the first affected reservation to the next interval of the
// same length the shop can absorb on the same day. Idempotent: a reservation
// whose interval is back within capacity is left where it is.
func (rs *Resolver) reschedule(ctx context.Context, c *models.Conflict) (bool, string) {
	if len(c.ReservationIDs) == 0 {
		return true, "no reservation to move"
	}
	r, err := rs.Reservations.GetByID(ctx, c.ReservationIDs[0])
	if err != nil {
		return false, fmt.Sprintf("load reservation: %v", err)
	}
	if r.Status.IsTerminal() {
		return true, "reservation already terminal"
	}

	shop, err := rs.Shops.GetByID(ctx, r.ShopID)
	if err != nil {
		return false, fmt.Sprintf("load shop: %v", err)
	}
	maxConcurrent := shop.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	active, err := rs.Reservations.ListActiveByShopDate(ctx, r.ShopID, r.Date)
	if err != nil {
		return false, fmt.Sprintf("load day schedule: %v", err)
	}

	duration := r.End - r.Start
	newStart, found := nextFreeInterval(active, r.ID, r.Start, duration, maxConcurrent)
	if !found {
		return false, "no free interval remaining on " + r.Date
	}
	if newStart == r.Start {
		return true, "reservation no longer conflicts"
	}

	scheduled, err := models.ResolveScheduledTime(r.Date, newStart, rs.loc())
	if err != nil {
		return false, fmt.Sprintf("resolve scheduled time: %v", err)
	}
	_, err = rs.Reservations.UpdateWithVersion(ctx, r.ID, r.Version, map[string]any{
		"start":          newStart,
		"end":            newStart + duration,
		"scheduled_time": scheduled,
	})
	if err != nil {
		return false, fmt.Sprintf("move reservation: %v", err)
	}
	return true, fmt.Sprintf("moved to %d-%d", newStart, newStart+duration)
}

// nextFreeInterval finds the earliest start >= fromStart where a window of
// the given duration overlaps fewer than maxConcurrent active reservations
// (candidate excluded). The day ends at minute 1440.
func nextFreeInterval(active []models.Reservation, excludeID string, fromStart, duration, maxConcurrent int) (int, bool) {
	const dayEnd = 24 * 60
	for start := fromStart; start+duration <= dayEnd; start += 15 {
		end := start + duration
		occupied := 0
		for _, r := range active {
			if r.ID == excludeID {
				continue
			}
			if start < r.End && end > r.Start {
				occupied++
			}
		}
		if occupied < maxConcurrent {
			return start, true
		}
	}
	return 0, false
}

// cancelReservations cancels every affected reservation, refunding completed
// payments when requested. Already-cancelled reservations are a no-op.
func (rs *Resolver) cancelReservations(ctx context.Context, c *models.Conflict, refundToo bool) (bool, string) {
	ok := true
	detail := ""
	for _, id := range c.ReservationIDs {
		r, err := rs.Reservations.GetByID(ctx, id)
		if err != nil {
			ok, detail = false, fmt.Sprintf("load %s: %v", id, err)
			continue
		}
		if r.Status.IsTerminal() {
			continue
		}
		err = rs.Transitioner.Apply(ctx, TransitionRequest{
			ReservationID: id,
			From:          r.Status,
			To:            models.StatusCancelledByShop,
			ActorKind:     models.ActorSystem,
			Reason:        "conflict resolution: " + string(c.Type),
			Metadata:      map[string]any{"conflict_id": c.ID},
		})
		// An audit-lost transition still cancelled the reservation.
		if err != nil && !errors.Is(err, ErrAuditLost) {
			ok, detail = false, fmt.Sprintf("cancel %s: %v", id, err)
			continue
		}
		if refundToo {
			if err := rs.refundReservation(ctx, id); err != nil {
				ok, detail = false, fmt.Sprintf("refund %s: %v", id, err)
			}
		}
	}
	if ok && detail == "" {
		detail = fmt.Sprintf("%d reservation(s) processed", len(c.ReservationIDs))
	}
	return ok, detail
}

func (rs *Resolver) refundReservation(ctx context.Context, reservationID string) error {
	payments, err := rs.Payments.ListByReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if p.Status != models.PaymentCompleted {
			continue
		}
		ref, err := rs.Gateway.Refund(ctx, p.GatewayRef, p.Amount)
		if err != nil {
			return err
		}
		if _, err := rs.Payments.UpdateStatusWithVersion(ctx, p.ID, p.Version, models.PaymentRefunded, ref); err != nil {
			return err
		}
	}
	return nil
}

func (rs *Resolver) notifyAffected(ctx context.Context, c *models.Conflict) (bool, string) {
	for _, id := range c.ReservationIDs {
		r, err := rs.Reservations.GetByID(ctx, id)
		if err != nil {
			continue
		}
		_ = rs.Notifier.Enqueue(ctx, models.NotificationPayload{
			Kind:          "rescheduled",
			UserID:        r.UserID,
			ShopID:        r.ShopID,
			ReservationID: r.ID,
			Title:         "Your reservation was updated",
			Body:          "A booking conflict required changes to your reservation.",
			Data:          map[string]string{"conflict_id": c.ID},
		})
	}
	return true, "notifications enqueued"
}

// reconcilePayments cancels duplicate pending/processing payments, keeping
// the oldest row; completed payments are never touched automatically.
func (rs *Resolver) reconcilePayments(ctx context.Context, c *models.Conflict) (bool, string) {
	if len(c.ReservationIDs) == 0 {
		return true, "nothing to reconcile"
	}
	payments, err := rs.Payments.ListByReservation(ctx, c.ReservationIDs[0])
	if err != nil {
		return false, fmt.Sprintf("load payments: %v", err)
	}

	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.Before(payments[j].CreatedAt) })
	cancelled := 0
	seen := map[int64]bool{}
	for _, p := range payments {
		switch p.Status {
		case models.PaymentPending, models.PaymentProcessing:
			if !seen[p.Amount] {
				seen[p.Amount] = true
				continue
			}
			if _, err := rs.Payments.UpdateStatusWithVersion(ctx, p.ID, p.Version, models.PaymentCancelled, ""); err != nil {
				return false, fmt.Sprintf("cancel duplicate payment %s: %v", p.ID, err)
			}
			cancelled++
		case models.PaymentCompleted:
			seen[p.Amount] = true
		}
	}
	return true, fmt.Sprintf("%d duplicate payment(s) cancelled", cancelled)
}
