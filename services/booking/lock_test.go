package booking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reserva/models"
)

func TestWithSlotLock_SerializesSameSlot(t *testing.T) {
	lc := NewLockCoordinator(newMemLockProvider(), time.Second, testLogger())

	var inSection int32
	var maxInSection int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := lc.WithSlotLock(context.Background(), "shop-1", "2026-09-01", 600, func(context.Context) error {
				n := atomic.AddInt32(&inSection, 1)
				for {
					cur := atomic.LoadInt32(&maxInSection)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInSection, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inSection, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInSection))
}

func TestWithSlotLock_DifferentSlotsDoNotContend(t *testing.T) {
	lc := NewLockCoordinator(newMemLockProvider(), time.Second, testLogger())

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = lc.WithSlotLock(context.Background(), "shop-1", "2026-09-01", 600, func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	// A different start minute maps to a different key and must not block.
	done := make(chan error, 1)
	go func() {
		done <- lc.WithSlotLock(context.Background(), "shop-1", "2026-09-01", 660, func(context.Context) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("independent slot blocked behind unrelated lock")
	}
}

// timeoutLockProvider always fails acquisition with the typed error.
type timeoutLockProvider struct{}

func (timeoutLockProvider) WithLock(_ context.Context, key int64, _ time.Duration, _ func(ctx context.Context) error) error {
	return NewLockTimeoutError(key)
}

func TestWithSlotLock_TimeoutSurfacesTypedError(t *testing.T) {
	lc := NewLockCoordinator(timeoutLockProvider{}, time.Millisecond, testLogger())

	err := lc.WithSlotLock(context.Background(), "shop-1", "2026-09-01", 600, func(context.Context) error {
		t.Fatal("section must not run without the lock")
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, models.ErrKindLockTimeout, KindOf(err))
	assert.True(t, IsRetryable(err))
}

func TestWithSlotLock_ReleasedOnSectionError(t *testing.T) {
	lc := NewLockCoordinator(newMemLockProvider(), time.Second, testLogger())

	err := lc.WithSlotLock(context.Background(), "shop-1", "2026-09-01", 600, func(context.Context) error {
		return NewValidationError("boom")
	})
	require.Error(t, err)

	// The lock must be free again for the next caller.
	err = lc.WithSlotLock(context.Background(), "shop-1", "2026-09-01", 600, func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}
