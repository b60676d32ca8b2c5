package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LockProvider is the advisory mutual-exclusion primitive behind the slot
// lock. Implementations must be cooperative (not row-level): the lock exists
// to serialize check-then-insert races for slots that may have no row yet.
type LockProvider interface {
	// WithLock acquires the lock for key within timeout, runs fn while
	// holding it, and releases on every exit path. A failed acquisition
	// returns a lock-timeout Error.
	WithLock(ctx context.Context, key int64, timeout time.Duration, fn func(ctx context.Context) error) error
}

// RedisLockProvider implements LockProvider with SET NX PX plus a fencing
// token so a lock can only be released by its holder.
type RedisLockProvider struct {
	client *redis.Client
	ttl    time.Duration // Safety expiry in case a holder dies mid-transaction
	poll   time.Duration
	logger *zap.Logger
}

// NewRedisLockProvider constructs a RedisLockProvider. ttl bounds how long a
// crashed holder can block a slot.
func NewRedisLockProvider(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLockProvider {
	return &RedisLockProvider{
		client: client,
		ttl:    ttl,
		poll:   20 * time.Millisecond,
		logger: logger,
	}
}

// releaseScript deletes the lock only when the stored token matches, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (p *RedisLockProvider) WithLock(ctx context.Context, key int64, timeout time.Duration, fn func(ctx context.Context) error) error {
	lockKey := fmt.Sprintf("slotlock:%d", key)
	token := uuid.New().String()
	deadline := time.Now().Add(timeout)
	started := time.Now()

	for {
		ok, err := p.client.SetNX(ctx, lockKey, token, p.ttl).Result()
		if err != nil {
			return NewSystemError("lock acquisition failed", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			p.logger.Warn("slot lock acquisition timed out",
				zap.Int64("key", key),
				zap.Duration("waited", time.Since(started)))
			return NewLockTimeoutError(key)
		}
		select {
		case <-ctx.Done():
			return NewTimeoutError("lock acquisition")
		case <-time.After(p.poll):
		}
	}

	p.logger.Debug("slot lock acquired",
		zap.Int64("key", key),
		zap.Duration("wait", time.Since(started)))

	defer func() {
		// Best-effort token-checked release; the TTL covers the failure case.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := releaseScript.Run(relCtx, p.client, []string{lockKey}, token).Result(); err != nil {
			p.logger.Error("slot lock release failed", zap.Int64("key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}

// LockCoordinator serializes reservation creation per slot key.
type LockCoordinator struct {
	provider LockProvider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewLockCoordinator constructs a LockCoordinator with the configured
// per-create acquisition budget.
func NewLockCoordinator(provider LockProvider, timeout time.Duration, logger *zap.Logger) *LockCoordinator {
	return &LockCoordinator{provider: provider, timeout: timeout, logger: logger}
}

// WithSlotLock runs fn under the advisory lock for (shopID, date, start).
func (lc *LockCoordinator) WithSlotLock(ctx context.Context, shopID, date string, startMinutes int, fn func(ctx context.Context) error) error {
	key := SlotKey(shopID, date, startMinutes)
	started := time.Now()
	err := lc.provider.WithLock(ctx, key, lc.timeout, fn)
	lc.logger.Debug("slot lock section finished",
		zap.String("shop_id", shopID),
		zap.String("date", date),
		zap.Int("start", startMinutes),
		zap.Duration("held", time.Since(started)),
		zap.Bool("ok", err == nil))
	return err
}
