package booking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	conflictRepo "reserva/database/repository/conflict"
	paymentRepo "reserva/database/repository/payment"
	reservationRepo "reserva/database/repository/reservation"
	shopRepo "reserva/database/repository/shop"
	"reserva/models"
)

// memReservationRepo is an in-memory Repository with the same CAS semantics
// as the Mongo implementation. All methods are safe for concurrent use.
// listDelay widens the read-then-write window in race tests.
type memReservationRepo struct {
	mu        sync.Mutex
	items     map[string]*models.Reservation
	listDelay time.Duration
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

func (m *memReservationRepo) ListActiveByShopDate(_ context.Context, shopID, date string) ([]models.Reservation, error) {
	if m.listDelay > 0 {
		time.Sleep(m.listDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.items {
		if r.ShopID == shopID && r.Date == date && isActive(r.Status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memReservationRepo) CountActiveAt(_ context.Context, shopID, date string, atMinutes int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.items {
		if r.ShopID == shopID && r.Date == date && isActive(r.Status) && r.Start <= atMinutes && atMinutes < r.End {
			n++
		}
	}
	return n, nil
}

func (m *memReservationRepo) ListByShopDate(_ context.Context, shopID, date string) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.items {
		if r.ShopID == shopID && r.Date == date {
			out = append(out, *r)
		}
	}
	return out, nil
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
	applyFields(r, fields)
	r.Version++
	r.UpdatedAt = time.Now().UTC()
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
	applyFields(r, extra)
	r.Version++
	r.UpdatedAt = time.Now().UTC()
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

func applyFields(r *models.Reservation, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "date":
			r.Date = v.(string)
		case "start":
			r.Start = v.(int)
		case "end":
			r.End = v.(int)
		case "services":
			r.Services = v.([]string)
		case "scheduled_time":
			r.ScheduledTime = v.(time.Time)
		case "refund_eligible":
			r.RefundEligible = v.(bool)
		case "points_awarded":
			r.PointsAwarded = v.(bool)
		case "grace_extension_min":
			r.GraceExtensionMin = v.(int)
		}
	}
}

func isActive(s models.ReservationStatus) bool {
	for _, a := range models.ActiveStatuses {
		if a == s {
			return true
		}
	}
	return false
}

type memConflictRepo struct {
	mu    sync.Mutex
	items map[string]*models.Conflict
}

func newMemConflictRepo() *memConflictRepo {
	return &memConflictRepo{items: map[string]*models.Conflict{}}
}

func (m *memConflictRepo) Insert(_ context.Context, c *models.Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *memConflictRepo) GetByID(_ context.Context, id string) (*models.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, conflictRepo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memConflictRepo) ListByIDs(_ context.Context, ids []string) ([]models.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Conflict
	for _, id := range ids {
		if c, ok := m.items[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memConflictRepo) ListOpen(_ context.Context, shopID string, limit int64) ([]models.Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Conflict
	for _, c := range m.items {
		if c.Status != models.ConflictDetected {
			continue
		}
		if shopID != "" && c.ShopID != shopID {
			continue
		}
		out = append(out, *c)
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (m *memConflictRepo) Close(_ context.Context, id string, status models.ConflictStatus, strategyID, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return conflictRepo.ErrNotFound
	}
	if c.Status != models.ConflictDetected {
		return conflictRepo.ErrAlreadyClosed
	}
	now := time.Now().UTC()
	c.Status = status
	c.StrategyID = strategyID
	c.ResolutionNotes = notes
	c.ResolvedAt = &now
	return nil
}

func (m *memConflictRepo) DeleteClosedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.items {
		if c.Status != models.ConflictDetected && c.DetectedAt.Before(cutoff) {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

type memPaymentRepo struct {
	mu    sync.Mutex
	items map[string]*models.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{items: map[string]*models.Payment{}}
}

func (m *memPaymentRepo) Insert(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) GetByID(_ context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, paymentRepo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) ListByReservation(_ context.Context, reservationID string) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.items {
		if p.ReservationID == reservationID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) FindActiveDuplicates(_ context.Context, reservationID string, amount int64, excludeID string) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.items {
		if p.ID == excludeID || p.ReservationID != reservationID || p.Amount != amount {
			continue
		}
		for _, a := range models.ActivePaymentStatuses {
			if p.Status == a {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}

func (m *memPaymentRepo) UpdateStatusWithVersion(_ context.Context, id string, expectedVersion int64, status models.PaymentStatus, gatewayRef string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return 0, paymentRepo.ErrNotFound
	}
	if p.Version != expectedVersion {
		return 0, paymentRepo.ErrVersionMismatch
	}
	p.Status = status
	if gatewayRef != "" {
		p.GatewayRef = gatewayRef
	}
	p.Version++
	return p.Version, nil
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

func (m *memAuditRepo) CountBetween(_ context.Context, from, to time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, failed int64
	for _, e := range m.entries {
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		total++
		if !e.Success {
			failed++
		}
	}
	return total, failed, nil
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

// memLockProvider serializes sections per key with in-process mutexes,
// standing in for the Redis provider.
type memLockProvider struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newMemLockProvider() *memLockProvider {
	return &memLockProvider{locks: map[int64]*sync.Mutex{}}
}

func (p *memLockProvider) WithLock(ctx context.Context, key int64, _ time.Duration, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &sync.Mutex{}
		p.locks[key] = l
	}
	p.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

// noopTracker satisfies OperationTracker without persistence.
type noopTracker struct{}

func (noopTracker) OperationStarted(context.Context, *models.RetryOperation) {}

func (noopTracker) AttemptRecorded(context.Context, string, models.RetryAttempt) {}

func (noopTracker) OperationCompleted(context.Context, string, bool, models.ErrorKind) {}

// memNotifier records enqueued payloads.
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

// memGateway records refunds and returns a synthetic reference.
type memGateway struct {
	mu      sync.Mutex
	refunds []string
}

func (g *memGateway) Refund(_ context.Context, gatewayRef string, _ int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, gatewayRef)
	return "re_" + gatewayRef, nil
}

func testLogger() *zap.Logger { return zap.NewNop() }

// newTestExecutor skips real sleeps so retry tests run instantly.
func newTestExecutor() *Executor {
	ex := NewExecutor(noopTracker{}, testLogger())
	ex.sleep = func(context.Context, time.Duration) error { return nil }
	return ex
}
