package noshow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	reservationRepo "reserva/database/repository/reservation"
	shopRepo "reserva/database/repository/shop"
	"reserva/models"
)

type memReservationRepo struct {
	mu    sync.Mutex
	items map[string]*models.Reservation
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{items: map[string]*models.Reservation{}}
}

func (m *memReservationRepo) Insert(_ context.Context, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *memReservationRepo) GetByID(_ context.Context, id string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, reservationRepo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReservationRepo) ListActiveByShopDate(_ context.Context, _, _ string) ([]models.Reservation, error) {
	return nil, nil
}

func (m *memReservationRepo) CountActiveAt(_ context.Context, _, _ string, _ int) (int, error) {
	return 0, nil
}

func (m *memReservationRepo) ListByShopDate(_ context.Context, _, _ string) ([]models.Reservation, error) {
	return nil, nil
}

func (m *memReservationRepo) UpdateWithVersion(_ context.Context, id string, expectedVersion int64, fields map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return 0, reservationRepo.ErrNotFound
	}
	if r.Version != expectedVersion {
		return 0, reservationRepo.ErrVersionMismatch
	}
	if v, ok := fields["grace_extension_min"]; ok {
		r.GraceExtensionMin = v.(int)
	}
	r.Version++
	return r.Version, nil
}

func (m *memReservationRepo) TransitionStatus(_ context.Context, id string, from, to models.ReservationStatus, extra map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return reservationRepo.ErrNotFound
	}
	if r.Status != from {
		return reservationRepo.ErrEdgeTaken
	}
	r.Status = to
	if v, ok := extra["refund_eligible"]; ok {
		r.RefundEligible = v.(bool)
	}
	if v, ok := extra["points_awarded"]; ok {
		r.PointsAwarded = v.(bool)
	}
	r.Version++
	return nil
}

func (m *memReservationRepo) ListConfirmedInWindow(_ context.Context, from, to time.Time) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.items {
		if r.Status == models.StatusConfirmed && !r.ScheduledTime.Before(from) && r.ScheduledTime.Before(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memReservationRepo) MarkWarned(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return false, reservationRepo.ErrNotFound
	}
	if r.NoShowWarned {
		return false, nil
	}
	r.NoShowWarned = true
	return true, nil
}

type memShopRepo struct {
	mu    sync.Mutex
	items map[string]*models.Shop
}

func newMemShopRepo() *memShopRepo {
	return &memShopRepo{items: map[string]*models.Shop{}}
}

func (m *memShopRepo) GetByID(_ context.Context, id string) (*models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, shopRepo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memShopRepo) Insert(_ context.Context, s *models.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.items[s.ID] = &cp
	return nil
}

// memPointsRepo is an append-only ledger fake.
type memPointsRepo struct {
	mu      sync.Mutex
	entries []models.PointEntry
	seed    map[string]int // Initial balances
}

func newMemPointsRepo() *memPointsRepo {
	return &memPointsRepo{seed: map[string]int{}}
}

func (m *memPointsRepo) Balance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := m.seed[userID]
	for _, e := range m.entries {
		if e.UserID == userID {
			balance += e.Delta
		}
	}
	return balance, nil
}

func (m *memPointsRepo) Append(_ context.Context, e *models.PointEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memPointsRepo) HasPenaltyFor(_ context.Context, userID, reservationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == userID && e.ReservationID == reservationID && e.Delta < 0 {
			return true, nil
		}
	}
	return false, nil
}

type memAuditRepo struct {
	mu         sync.Mutex
	entries    []models.AuditEntry
	failAppend error // When set, Append rejects every entry
}

func (m *memAuditRepo) Append(_ context.Context, e *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		return m.failAppend
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAuditRepo) ListByReservation(_ context.Context, reservationID string) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range m.entries {
		if e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAuditRepo) CountBetween(_ context.Context, _, _ time.Time) (int64, int64, error) {
	return 0, 0, nil
}

func (m *memAuditRepo) StatusPairStats(_ context.Context, _, _ time.Time) ([]models.StatusPairStats, error) {
	return nil, nil
}

func (m *memAuditRepo) ActorStats(_ context.Context, _, _ time.Time) ([]models.ActorStats, error) {
	return nil, nil
}

func (m *memAuditRepo) FindOrphans(_ context.Context, _, _ time.Time, _ int64) ([]models.IntegrityIssue, error) {
	return nil, nil
}

func (m *memAuditRepo) FindDuplicateTerminals(_ context.Context, _, _ time.Time) ([]models.IntegrityIssue, error) {
	return nil, nil
}

func (m *memAuditRepo) DailyBuckets(_ context.Context, _, _ time.Time) ([]models.TrendBucket, error) {
	return nil, nil
}

func (m *memAuditRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type memNotifier struct {
	mu       sync.Mutex
	payloads []models.NotificationPayload
}

func (n *memNotifier) Enqueue(_ context.Context, p models.NotificationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return nil
}

func (n *memNotifier) byKind(kind string) []models.NotificationPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.NotificationPayload
	for _, p := range n.payloads {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func testLogger() *zap.Logger { return zap.NewNop() }
