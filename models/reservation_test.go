package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScheduledTime(t *testing.T) {
	got, err := ResolveScheduledTime("2026-09-01", 600, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), got)

	kst := time.FixedZone("KST", 9*60*60)
	got, err = ResolveScheduledTime("2026-09-01", 90, kst)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 1, 30, 0, 0, kst).Unix(), got.Unix())
}

func TestResolveScheduledTime_BadDate(t *testing.T) {
	_, err := ResolveScheduledTime("01/09/2026", 600, time.UTC)
	assert.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	terminal := []ReservationStatus{StatusCompleted, StatusCancelledByUser, StatusCancelledByShop, StatusNoShow}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}
	for _, s := range ActiveStatuses {
		assert.False(t, s.IsTerminal(), string(s))
	}
}

func TestGracePeriodFor(t *testing.T) {
	shop := &Shop{GracePeriods: map[string]int{"haircut": 30, "zero": 0}}

	assert.Equal(t, 30*time.Minute, shop.GracePeriodFor("haircut", 20*time.Minute))
	assert.Equal(t, 20*time.Minute, shop.GracePeriodFor("massage", 20*time.Minute))
	// A zero entry falls back rather than disabling the grace period.
	assert.Equal(t, 20*time.Minute, shop.GracePeriodFor("zero", 20*time.Minute))
}
