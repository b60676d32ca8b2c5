package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	reservationRepo "reserva/database/repository/reservation"
	"reserva/models"
)

// DefaultBookingService implements Service. All mutating paths run through
// the lock coordinator, the detector and the retry executor; results reach
// the tracker before they reach the caller.
type DefaultBookingService struct {
	Locks    *LockCoordinator
	Detector *Detector
	Resolver *Resolver
	Executor *Executor
	Trans    *Transitioner
	Location *time.Location // Shop-local timezone for scheduled-time resolution
	Logger   *zap.Logger
}

func (s *DefaultBookingService) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

// CreateReservationWithLock serializes the check-then-insert race per slot
// key, detects conflicts inside the critical section, and retries transient
// failures per the creation profile.
func (s *DefaultBookingService) CreateReservationWithLock(ctx context.Context, req models.CreateReservationRequest) (*models.CreateReservationResult, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	end := req.Start + req.DurationMinutes
	units := req.Units
	if units <= 0 {
		units = 1
	}

	var created *models.Reservation
	var conflictHit *models.Conflict

	op := Operation{
		Type:        OpReservationCreate,
		ShopID:      req.ShopID,
		Config:      CreateRetryConfig(),
		ShouldRetry: CreateShouldRetry,
		Execute: func(ctx context.Context) error {
			return s.Locks.WithSlotLock(ctx, req.ShopID, req.Date, req.Start, func(ctx context.Context) error {
				check := SlotCheck{
					ShopID: req.ShopID,
					Date:   req.Date,
					Start:  req.Start,
					End:    end,
					Units:  units,
				}
				if c, err := s.Detector.CheckSlotOverlap(ctx, check); err != nil {
					return err
				} else if c != nil {
					conflictHit = c
					return NewConflictError(c)
				}
				if c, err := s.Detector.CheckCapacity(ctx, check); err != nil {
					return err
				} else if c != nil {
					conflictHit = c
					return NewConflictError(c)
				}

				scheduled, err := models.ResolveScheduledTime(req.Date, req.Start, s.loc())
				if err != nil {
					return NewValidationError("invalid date: " + req.Date)
				}
				now := time.Now().UTC()
				r := &models.Reservation{
					ID:              uuid.New().String(),
					ShopID:          req.ShopID,
					UserID:          req.UserID,
					Date:            req.Date,
					Start:           req.Start,
					End:             end,
					ServiceCategory: req.ServiceCategory,
					Services:        req.Services,
					Status:          models.StatusRequested,
					Version:         1,
					ScheduledTime:   scheduled,
					RefundEligible:  true,
					CreatedAt:       now,
					UpdatedAt:       now,
				}
				if err := s.Detector.Reservations.Insert(ctx, r); err != nil {
					return NewSystemError("reservation insert failed", err)
				}
				created = r
				return nil
			})
		},
	}

	result := s.Executor.ExecuteWithRetry(ctx, op)
	if result.Success {
		s.Logger.Info("reservation created",
			zap.String("reservation_id", created.ID),
			zap.String("shop_id", req.ShopID),
			zap.Int("attempts", len(result.Attempts)))
		return &models.CreateReservationResult{
			Success:       true,
			ReservationID: created.ID,
			Version:       created.Version,
		}, nil
	}

	if conflictHit != nil {
		// Kick off automatic resolution; approval-gated strategies simply
		// report pending and wait for an admin.
		if _, err := s.Resolver.Resolve(ctx, []string{conflictHit.ID}, false); err != nil {
			s.Logger.Warn("automatic resolution failed", zap.Error(err))
		}
		return &models.CreateReservationResult{Success: false, Conflict: conflictHit}, nil
	}
	return nil, result.FinalError
}

// UpdateReservationWithLock applies a patch under optimistic concurrency.
// Version conflicts are detected, persisted, and retried with a fresh read
// per the update profile. A patch that moves the slot serializes on the
// target slot key, so the overlap check and the commit run as one critical
// section against competing creates and moves.
func (s *DefaultBookingService) UpdateReservationWithLock(ctx context.Context, id string, patch models.UpdateReservationPatch, expectedVersion int64) (*models.UpdateReservationResult, error) {
	if id == "" {
		return nil, NewValidationError("reservation id is required")
	}

	var newVersion int64
	var versionConflict *models.Conflict

	op := Operation{
		Type:          OpReservationUpdate,
		ReservationID: id,
		Config:        UpdateRetryConfig(),
		ShouldRetry:   UpdateShouldRetry,
		Execute: func(ctx context.Context) error {
			current, err := s.Detector.Reservations.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, reservationRepo.ErrNotFound) {
					return NewValidationError("reservation not found: " + id)
				}
				return NewSystemError("reservation read failed", err)
			}
			if current.Status.IsTerminal() {
				return NewValidationError("reservation is in terminal state " + string(current.Status))
			}
			if current.Version != expectedVersion {
				c, derr := s.Detector.CheckVersion(ctx, id, expectedVersion)
				if derr != nil {
					return derr
				}
				versionConflict = c
				return NewVersionConflictError("reservation", expectedVersion)
			}

			fields, newCheck, err := buildPatch(current, patch, s.loc())
			if err != nil {
				return err
			}

			commit := func(ctx context.Context) error {
				if newCheck != nil {
					if c, derr := s.Detector.CheckSlotOverlap(ctx, *newCheck); derr != nil {
						return derr
					} else if c != nil {
						versionConflict = c
						return NewConflictError(c)
					}
				}
				v, err := s.Detector.Reservations.UpdateWithVersion(ctx, id, expectedVersion, fields)
				if err != nil {
					if errors.Is(err, reservationRepo.ErrVersionMismatch) {
						return NewVersionConflictError("reservation", expectedVersion)
					}
					return NewSystemError("reservation update failed", err)
				}
				newVersion = v
				return nil
			}

			if newCheck != nil {
				return s.Locks.WithSlotLock(ctx, newCheck.ShopID, newCheck.Date, newCheck.Start, commit)
			}
			return commit(ctx)
		},
	}

	result := s.Executor.ExecuteWithRetry(ctx, op)
	if result.Success {
		return &models.UpdateReservationResult{Success: true, NewVersion: newVersion}, nil
	}
	if KindOf(result.FinalError) == models.ErrKindVersionConflict || versionConflict != nil {
		return &models.UpdateReservationResult{Success: false, Conflict: versionConflict}, nil
	}
	return nil, result.FinalError
}

// DetectRealTimeConflicts exposes the detector to collaborators.
func (s *DefaultBookingService) DetectRealTimeConflicts(ctx context.Context, req DetectRequest) ([]models.Conflict, error) {
	return s.Detector.DetectRealTime(ctx, req)
}

// ResolveConflicts exposes the resolution engine to collaborators.
func (s *DefaultBookingService) ResolveConflicts(ctx context.Context, conflictIDs []string, approved bool) ([]models.ResolutionResult, error) {
	return s.Resolver.Resolve(ctx, conflictIDs, approved)
}

// GetReservation returns a reservation by id.
func (s *DefaultBookingService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.Detector.Reservations.GetByID(ctx, id)
}

// ListReservations returns all reservations for a shop and date.
func (s *DefaultBookingService) ListReservations(ctx context.Context, shopID, date string) ([]models.Reservation, error) {
	return s.Detector.Reservations.ListByShopDate(ctx, shopID, date)
}

func validateCreate(req models.CreateReservationRequest) error {
	switch {
	case req.ShopID == "":
		return NewValidationError("shop_id is required")
	case req.UserID == "":
		return NewValidationError("user_id is required")
	case req.Date == "":
		return NewValidationError("date is required")
	case req.Start < 0 || req.Start >= 24*60:
		return NewValidationError("start must be within the day")
	case req.DurationMinutes <= 0:
		return NewValidationError("duration must be positive")
	case req.Start+req.DurationMinutes > 24*60:
		return NewValidationError("reservation must end within the day")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return NewValidationError("date must be YYYY-MM-DD")
	}
	return nil
}

// buildPatch translates a patch into store fields and, when the slot moved,
// the overlap check that must pass first.
func buildPatch(current *models.Reservation, patch models.UpdateReservationPatch, loc *time.Location) (map[string]any, *SlotCheck, error) {
	fields := map[string]any{}
	date := current.Date
	start := current.Start
	duration := current.End - current.Start

	if patch.Date != nil {
		if _, err := time.Parse("2006-01-02", *patch.Date); err != nil {
			return nil, nil, NewValidationError("date must be YYYY-MM-DD")
		}
		date = *patch.Date
		fields["date"] = date
	}
	if patch.Start != nil {
		if *patch.Start < 0 || *patch.Start >= 24*60 {
			return nil, nil, NewValidationError("start must be within the day")
		}
		start = *patch.Start
		fields["start"] = start
	}
	if patch.DurationMinutes != nil {
		if *patch.DurationMinutes <= 0 {
			return nil, nil, NewValidationError("duration must be positive")
		}
		duration = *patch.DurationMinutes
	}
	if patch.Services != nil {
		fields["services"] = patch.Services
	}

	slotMoved := patch.Date != nil || patch.Start != nil || patch.DurationMinutes != nil
	if !slotMoved {
		return fields, nil, nil
	}

	end := start + duration
	if end > 24*60 {
		return nil, nil, NewValidationError("reservation must end within the day")
	}
	fields["end"] = end
	scheduled, err := models.ResolveScheduledTime(date, start, loc)
	if err != nil {
		return nil, nil, NewValidationError("invalid date: " + date)
	}
	fields["scheduled_time"] = scheduled

	return fields, &SlotCheck{
		ShopID:    current.ShopID,
		Date:      date,
		Start:     start,
		End:       end,
		ExcludeID: current.ID,
	}, nil
}
