package noshow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pointsRepo "reserva/database/repository/points"
	reservationRepo "reserva/database/repository/reservation"
	shopRepo "reserva/database/repository/shop"
	"reserva/models"
	"reserva/services/booking"
	"reserva/services/notification"
)

// Config tunes the scheduler. All values come from the application config at
// startup.
type Config struct {
	ScanInterval  time.Duration
	DefaultGrace  time.Duration // Fallback when a service category has no entry
	WarningDelay  time.Duration // Non-terminal warning before the grace period expires
	Lookback      time.Duration // Oldest scheduled time scanned
	Lookahead     time.Duration // Newest scheduled time scanned (usually zero)
	PenaltyPoints int           // Fallback when the shop configures none
}

// Scheduler periodically scans confirmed reservations and drives overdue ones
// to no_show through the shared transition primitive. A single running
// instance is assumed; a duplicate instance repeats scan work but cannot
// double-apply penalties because the confirmed->no_show edge is one-shot.
type Scheduler struct {
	Reservations reservationRepo.Repository
	Shops        shopRepo.Repository
	Points       pointsRepo.Repository
	Transitioner *booking.Transitioner
	Notifier     notification.Service
	Cfg          Config
	Logger       *zap.Logger

	now func() time.Time // Injectable clock for tests
}

// NewScheduler constructs a Scheduler.
func NewScheduler(
	reservations reservationRepo.Repository,
	shops shopRepo.Repository,
	points pointsRepo.Repository,
	transitioner *booking.Transitioner,
	notifier notification.Service,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		Reservations: reservations,
		Shops:        shops,
		Points:       points,
		Transitioner: transitioner,
		Notifier:     notifier,
		Cfg:          cfg,
		Logger:       logger,
		now:          time.Now,
	}
}

// Run scans on the configured cadence until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Cfg.ScanInterval)
	defer ticker.Stop()

	s.Logger.Info("no-show scheduler started",
		zap.Duration("interval", s.Cfg.ScanInterval),
		zap.Duration("default_grace", s.Cfg.DefaultGrace))

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("no-show scheduler stopped")
			return
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil {
				s.Logger.Error("no-show scan failed", zap.Error(err))
			}
		}
	}
}

// ScanOnce processes one bounded window of confirmed reservations.
func (s *Scheduler) ScanOnce(ctx context.Context) error {
	now := s.now().UTC()
	from := now.Add(-s.Cfg.Lookback)
	to := now.Add(s.Cfg.Lookahead)

	candidates, err := s.Reservations.ListConfirmedInWindow(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list confirmed reservations: %w", err)
	}

	var declared, warned int
	for i := range candidates {
		r := &candidates[i]
		grace, penalty := s.policyFor(ctx, r)
		deadline := r.ScheduledTime.Add(grace)

		switch {
		case !now.Before(deadline):
			if err := s.declareNoShow(ctx, r, grace, penalty, models.ActorSystem, "", "grace period elapsed"); err != nil {
				s.Logger.Warn("no-show transition skipped",
					zap.String("reservation_id", r.ID),
					zap.Error(err))
				continue
			}
			declared++
		case !now.Before(r.ScheduledTime.Add(s.Cfg.WarningDelay)):
			if s.warnOnce(ctx, r, deadline) {
				warned++
			}
		}
	}

	if declared > 0 || warned > 0 {
		s.Logger.Info("no-show scan completed",
			zap.Int("scanned", len(candidates)),
			zap.Int("declared", declared),
			zap.Int("warned", warned))
	}
	return nil
}

// policyFor resolves the grace period (including any manual extension) and
// penalty for a reservation from its shop configuration.
func (s *Scheduler) policyFor(ctx context.Context, r *models.Reservation) (time.Duration, int) {
	grace := s.Cfg.DefaultGrace
	penalty := s.Cfg.PenaltyPoints

	shop, err := s.Shops.GetByID(ctx, r.ShopID)
	if err == nil {
		grace = shop.GracePeriodFor(r.ServiceCategory, s.Cfg.DefaultGrace)
		if shop.PenaltyPoints > 0 {
			penalty = shop.PenaltyPoints
		}
	} else {
		s.Logger.Warn("shop config unavailable, using defaults",
			zap.String("shop_id", r.ShopID), zap.Error(err))
	}
	if r.GraceExtensionMin > 0 {
		grace += time.Duration(r.GraceExtensionMin) * time.Minute
	}
	return grace, penalty
}

// declareNoShow drives confirmed -> no_show and applies the side effects.
// The transition edge is one-shot, so a second scheduler pass (or a racing
// manual override) cannot apply the penalty twice.
func (s *Scheduler) declareNoShow(ctx context.Context, r *models.Reservation, grace time.Duration, penalty int, actor models.ActorKind, actorID, reason string) error {
	err := s.Transitioner.Apply(ctx, booking.TransitionRequest{
		ReservationID: r.ID,
		From:          models.StatusConfirmed,
		To:            models.StatusNoShow,
		ActorKind:     actor,
		ActorID:       actorID,
		Reason:        reason,
		Metadata: map[string]any{
			"grace_minutes":  int(grace.Minutes()),
			"penalty_points": penalty,
		},
		Extra: map[string]any{
			"refund_eligible": false,
			"points_awarded":  false,
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrAuditLost):
		// The edge committed and is consumed; the side effects still belong
		// to this caller even though the audit row was lost.
		s.Logger.Error("no-show transition audited nothing, side effects proceed",
			zap.String("reservation_id", r.ID), zap.Error(err))
	default:
		// Lost the edge or the write never committed: another scheduler pass
		// or a manual override owns the side effects.
		return err
	}

	if _, err := s.applyPenalty(ctx, r, penalty); err != nil {
		// The transition is already committed; log and keep going so the
		// notification still fires. The ledger guard keeps a later manual
		// replay idempotent.
		s.Logger.Error("penalty application failed after no-show transition",
			zap.String("reservation_id", r.ID), zap.Error(err))
	}

	_ = s.Notifier.Enqueue(ctx, models.NotificationPayload{
		Kind:          "no_show_final",
		UserID:        r.UserID,
		ShopID:        r.ShopID,
		ReservationID: r.ID,
		Title:         "Reservation marked as no-show",
		Body:          fmt.Sprintf("Your reservation was not attended within the %d-minute grace period.", int(grace.Minutes())),
	})
	return nil
}

// applyPenalty deducts min(penalty, balance) with a ledger entry. The ledger
// check makes the deduction idempotent even outside the state machine guard.
func (s *Scheduler) applyPenalty(ctx context.Context, r *models.Reservation, penalty int) (int, error) {
	if penalty <= 0 {
		return 0, nil
	}
	already, err := s.Points.HasPenaltyFor(ctx, r.UserID, r.ID)
	if err != nil {
		return 0, fmt.Errorf("penalty idempotency check: %w", err)
	}
	if already {
		return 0, nil
	}

	balance, err := s.Points.Balance(ctx, r.UserID)
	if err != nil {
		return 0, fmt.Errorf("point balance read: %w", err)
	}
	deduct := penalty
	if balance < deduct {
		deduct = balance
	}
	if deduct <= 0 {
		return 0, nil
	}

	entry := &models.PointEntry{
		ID:            uuid.New().String(),
		UserID:        r.UserID,
		Delta:         -deduct,
		Reason:        "no_show_penalty",
		ReservationID: r.ID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.Points.Append(ctx, entry); err != nil {
		return 0, fmt.Errorf("penalty ledger append: %w", err)
	}
	return deduct, nil
}

// warnOnce sends the pre-grace warning notification at most once.
func (s *Scheduler) warnOnce(ctx context.Context, r *models.Reservation, deadline time.Time) bool {
	first, err := s.Reservations.MarkWarned(ctx, r.ID)
	if err != nil {
		s.Logger.Warn("warning flag update failed", zap.String("reservation_id", r.ID), zap.Error(err))
		return false
	}
	if !first {
		return false
	}
	_ = s.Notifier.Enqueue(ctx, models.NotificationPayload{
		Kind:          "no_show_warning",
		UserID:        r.UserID,
		ShopID:        r.ShopID,
		ReservationID: r.ID,
		Title:         "Are you coming?",
		Body:          fmt.Sprintf("Your reservation will be marked as a no-show at %s.", deadline.Format(time.Kitchen)),
	})
	return true
}
