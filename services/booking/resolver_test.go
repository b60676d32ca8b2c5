package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserva/models"
)

type resolverFixture struct {
	resolver     *Resolver
	reservations *memReservationRepo
	payments     *memPaymentRepo
	shops        *memShopRepo
	conflicts    *memConflictRepo
	notifier     *memNotifier
	gateway      *memGateway
	audit        *memAuditRepo
}

func newResolverFixture() *resolverFixture {
	reservations := newMemReservationRepo()
	payments := newMemPaymentRepo()
	shops := newMemShopRepo()
	conflicts := newMemConflictRepo()
	notifier := &memNotifier{}
	gateway := &memGateway{}
	audit := &memAuditRepo{}
	_ = shops.Insert(context.Background(), &models.Shop{ID: "shop-1", MaxConcurrent: 1})
	trans := NewTransitioner(reservations, audit, testLogger())
	resolver := NewResolver(DefaultStrategies(), conflicts, reservations, payments, shops, trans, notifier, gateway, time.UTC, testLogger())
	return &resolverFixture{
		resolver:     resolver,
		reservations: reservations,
		payments:     payments,
		shops:        shops,
		conflicts:    conflicts,
		notifier:     notifier,
		gateway:      gateway,
		audit:        audit,
	}
}

func seedConflict(t *testing.T, repo *memConflictRepo, id string, ctype models.ConflictType, reservationIDs ...string) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), &models.Conflict{
		ID:             id,
		Type:           ctype,
		Severity:       models.SeverityHigh,
		Status:         models.ConflictDetected,
		ShopID:         "shop-1",
		ReservationIDs: reservationIDs,
		DetectedAt:     time.Now().UTC(),
	}))
}

func TestResolve_OverlapReschedulesAndNotifies(t *testing.T) {
	f := newResolverFixture()
	seedReservation(t, f.reservations, "blocker", "shop-1", 600, 660, models.StatusConfirmed)
	seedReservation(t, f.reservations, "mover", "shop-1", 630, 690, models.StatusConfirmed)
	seedConflict(t, f.conflicts, "c1", models.ConflictSlotOverlap, "mover")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Resolved)
	assert.Equal(t, "overlap-reschedule", results[0].StrategyID)

	moved, _ := f.reservations.GetByID(context.Background(), "mover")
	assert.GreaterOrEqual(t, moved.Start, 660)
	assert.Equal(t, 60, moved.End-moved.Start)

	require.Len(t, f.notifier.payloads, 1)
	assert.Equal(t, "rescheduled", f.notifier.payloads[0].Kind)

	closed, _ := f.conflicts.GetByID(context.Background(), "c1")
	assert.Equal(t, models.ConflictResolved, closed.Status)
}

func TestResolve_CapacityRequiresApproval(t *testing.T) {
	f := newResolverFixture()
	seedReservation(t, f.reservations, "r1", "shop-1", 600, 660, models.StatusConfirmed)
	seedConflict(t, f.conflicts, "c1", models.ConflictCapacityExceeded, "r1")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].PendingApproval)
	assert.False(t, results[0].Resolved)
	assert.Empty(t, results[0].Actions)

	// No side effects before approval: reservation untouched, conflict open.
	r, _ := f.reservations.GetByID(context.Background(), "r1")
	assert.Equal(t, models.StatusConfirmed, r.Status)
	c, _ := f.conflicts.GetByID(context.Background(), "c1")
	assert.Equal(t, models.ConflictDetected, c.Status)
}

func TestResolve_ApprovedCapacityCancelsAndRefunds(t *testing.T) {
	f := newResolverFixture()
	seedReservation(t, f.reservations, "r1", "shop-1", 600, 660, models.StatusConfirmed)
	require.NoError(t, f.payments.Insert(context.Background(), &models.Payment{
		ID: "p1", ReservationID: "r1", Amount: 5000,
		Status: models.PaymentCompleted, Version: 1, GatewayRef: "pi_123",
	}))
	seedConflict(t, f.conflicts, "c1", models.ConflictCapacityExceeded, "r1")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Resolved)

	r, _ := f.reservations.GetByID(context.Background(), "r1")
	assert.Equal(t, models.StatusCancelledByShop, r.Status)

	require.Len(t, f.gateway.refunds, 1)
	assert.Equal(t, "pi_123", f.gateway.refunds[0])
	p, _ := f.payments.GetByID(context.Background(), "p1")
	assert.Equal(t, models.PaymentRefunded, p.Status)
}

func TestResolve_PaymentReconciliationKeepsOldest(t *testing.T) {
	f := newResolverFixture()
	base := time.Now().UTC()
	require.NoError(t, f.payments.Insert(context.Background(), &models.Payment{
		ID: "older", ReservationID: "r1", Amount: 5000,
		Status: models.PaymentPending, Version: 1, CreatedAt: base,
	}))
	require.NoError(t, f.payments.Insert(context.Background(), &models.Payment{
		ID: "newer", ReservationID: "r1", Amount: 5000,
		Status: models.PaymentPending, Version: 1, CreatedAt: base.Add(time.Minute),
	}))
	seedConflict(t, f.conflicts, "c1", models.ConflictPayment, "r1")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Resolved)

	older, _ := f.payments.GetByID(context.Background(), "older")
	newer, _ := f.payments.GetByID(context.Background(), "newer")
	assert.Equal(t, models.PaymentPending, older.Status)
	assert.Equal(t, models.PaymentCancelled, newer.Status)
}

func TestResolve_PaymentStrategyGatedWithoutApproval(t *testing.T) {
	f := newResolverFixture()
	seedConflict(t, f.conflicts, "c1", models.ConflictPayment, "r1")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].PendingApproval)
}

func TestResolve_AlreadyClosedConflictIsNoOp(t *testing.T) {
	f := newResolverFixture()
	seedConflict(t, f.conflicts, "c1", models.ConflictSlotOverlap)
	require.NoError(t, f.conflicts.Close(context.Background(), "c1", models.ConflictResolved, "overlap-reschedule", "done"))

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Resolved)
	assert.Equal(t, "conflict already closed", results[0].Notes)
	assert.Empty(t, results[0].Actions)
}

func TestResolve_RescheduleIdempotentWhenNoLongerOverlapping(t *testing.T) {
	f := newResolverFixture()
	// The mover no longer overlaps anything; a replayed resolution must not
	// move it again.
	seedReservation(t, f.reservations, "mover", "shop-1", 600, 660, models.StatusConfirmed)
	seedConflict(t, f.conflicts, "c1", models.ConflictSlotOverlap, "mover")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Resolved)

	r, _ := f.reservations.GetByID(context.Background(), "mover")
	assert.Equal(t, 600, r.Start)
}

// A shop with spare concurrent capacity absorbs overlapping reservations;
// resolving such a conflict must not move anyone.
func TestResolve_RescheduleLeavesWithinCapacityInPlace(t *testing.T) {
	f := newResolverFixture()
	require.NoError(t, f.shops.Insert(context.Background(), &models.Shop{ID: "shop-1", MaxConcurrent: 2}))
	seedReservation(t, f.reservations, "r1", "shop-1", 600, 660, models.StatusConfirmed)
	seedReservation(t, f.reservations, "r2", "shop-1", 600, 660, models.StatusConfirmed)
	seedConflict(t, f.conflicts, "c1", models.ConflictSlotOverlap, "r1", "r2")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Resolved)

	r1, _ := f.reservations.GetByID(context.Background(), "r1")
	r2, _ := f.reservations.GetByID(context.Background(), "r2")
	assert.Equal(t, 600, r1.Start)
	assert.Equal(t, 600, r2.Start)
}

func TestResolve_RescheduleResolvesTimeInConfiguredLocation(t *testing.T) {
	f := newResolverFixture()
	kst := time.FixedZone("KST", 9*3600)
	f.resolver.Location = kst
	seedReservation(t, f.reservations, "blocker", "shop-1", 600, 660, models.StatusConfirmed)
	seedReservation(t, f.reservations, "mover", "shop-1", 630, 690, models.StatusConfirmed)
	seedConflict(t, f.conflicts, "c1", models.ConflictSlotOverlap, "mover")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Resolved)

	moved, _ := f.reservations.GetByID(context.Background(), "mover")
	require.Equal(t, 660, moved.Start)
	expected, err := models.ResolveScheduledTime("2026-09-01", 660, kst)
	require.NoError(t, err)
	assert.True(t, expected.Equal(moved.ScheduledTime))
}

func TestResolve_VersionConflictAutoResolves(t *testing.T) {
	f := newResolverFixture()
	seedConflict(t, f.conflicts, "c1", models.ConflictVersion, "r1")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Resolved)
	require.Len(t, results[0].Actions, 1)
	assert.Equal(t, models.ActionRetry, results[0].Actions[0].Action)
}

func TestResolve_RescheduleFailsWhenDayFull(t *testing.T) {
	f := newResolverFixture()
	// A blocker spans the entire day, so no free interval exists.
	seedReservation(t, f.reservations, "mover", "shop-1", 0, 60, models.StatusConfirmed)
	seedReservation(t, f.reservations, "all-day", "shop-1", 0, 24*60, models.StatusConfirmed)
	seedConflict(t, f.conflicts, "c1", models.ConflictSlotOverlap, "mover")

	results, err := f.resolver.Resolve(context.Background(), []string{"c1"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Resolved)

	closed, _ := f.conflicts.GetByID(context.Background(), "c1")
	assert.Equal(t, models.ConflictFailed, closed.Status)
}
