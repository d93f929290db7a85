package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CooldownStore throttles repeated actions per key with an explicit
// TTL entry. The first Hit for a key succeeds and stamps the key; any
// further Hit before the TTL expires is rejected with the remaining
// wait time. Keys expire on their own, so a quiet user costs nothing.
type CooldownStore interface {
	// Hit attempts to consume the cooldown for key. It returns
	// allowed=false and the remaining wait when the key is still
	// cooling down.
	Hit(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)

	// Remaining reports how long the key has left on its cooldown,
	// zero when the key is free.
	Remaining(ctx context.Context, key string) (time.Duration, error)

	// Reset clears the cooldown for a key.
	Reset(ctx context.Context, key string) error
}

// cooldownStore implements CooldownStore on top of the shared Cache,
// so the same code runs against memory in development and Redis in
// production.
type cooldownStore struct {
	cache    Cache
	interval time.Duration
	prefix   string
	logger   *zap.Logger
}

// NewCooldownStore creates a cooldown store with the given interval.
// An interval of zero or less disables throttling entirely.
func NewCooldownStore(cache Cache, interval time.Duration, prefix string, logger *zap.Logger) CooldownStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "cooldown"
	}

	return &cooldownStore{
		cache:    cache,
		interval: interval,
		prefix:   prefix,
		logger:   logger,
	}
}

func (s *cooldownStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Hit implements CooldownStore.
func (s *cooldownStore) Hit(ctx context.Context, key string) (bool, time.Duration, error) {
	if s.interval <= 0 {
		return true, 0, nil
	}

	cacheKey := s.key(key)

	if s.cache.Exists(ctx, cacheKey) {
		remaining, err := s.cache.GetTTL(ctx, cacheKey)
		if err != nil || remaining <= 0 {
			// Expired between Exists and GetTTL; treat as free.
			remaining = 0
		}
		if remaining > 0 {
			s.logger.Debug("Cooldown active",
				zap.String("key", key),
				zap.Duration("retry_after", remaining),
			)
			return false, remaining, nil
		}
	}

	if err := s.cache.Set(ctx, cacheKey, time.Now().Unix(), s.interval); err != nil {
		// A broken cooldown store should never block the action itself.
		s.logger.Warn("Failed to stamp cooldown key",
			zap.String("key", key),
			zap.Error(err),
		)
		return true, 0, nil
	}

	return true, 0, nil
}

// Remaining implements CooldownStore.
func (s *cooldownStore) Remaining(ctx context.Context, key string) (time.Duration, error) {
	if s.interval <= 0 {
		return 0, nil
	}

	cacheKey := s.key(key)
	if !s.cache.Exists(ctx, cacheKey) {
		return 0, nil
	}

	remaining, err := s.cache.GetTTL(ctx, cacheKey)
	if err != nil || remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Reset implements CooldownStore.
func (s *cooldownStore) Reset(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, s.key(key))
}
