package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	c, err := NewCache(&Config{Provider: "memory", TTL: time.Minute}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCooldownFirstHitAllowed(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewCooldownStore(newTestCache(t), time.Minute, "test:cooldown", logger)

	allowed, retryAfter, err := store.Hit(context.Background(), "user:1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestCooldownSecondHitRejected(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewCooldownStore(newTestCache(t), time.Minute, "test:cooldown", logger)

	_, _, err := store.Hit(context.Background(), "user:1")
	require.NoError(t, err)

	allowed, retryAfter, err := store.Hit(context.Background(), "user:1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestCooldownKeysAreIndependent(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewCooldownStore(newTestCache(t), time.Minute, "test:cooldown", logger)

	_, _, err := store.Hit(context.Background(), "user:1")
	require.NoError(t, err)

	allowed, _, err := store.Hit(context.Background(), "user:2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCooldownDisabledWithZeroInterval(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewCooldownStore(newTestCache(t), 0, "test:cooldown", logger)

	for i := 0; i < 5; i++ {
		allowed, _, err := store.Hit(context.Background(), "user:1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestCooldownReset(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewCooldownStore(newTestCache(t), time.Minute, "test:cooldown", logger)

	_, _, err := store.Hit(context.Background(), "user:1")
	require.NoError(t, err)

	require.NoError(t, store.Reset(context.Background(), "user:1"))

	allowed, _, err := store.Hit(context.Background(), "user:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCooldownRemaining(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewCooldownStore(newTestCache(t), time.Minute, "test:cooldown", logger)

	remaining, err := store.Remaining(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	_, _, err = store.Hit(context.Background(), "user:1")
	require.NoError(t, err)

	remaining, err = store.Remaining(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Greater(t, remaining, time.Duration(0))
}
