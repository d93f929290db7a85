package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dietly/internal/cache"
	"dietly/internal/contextutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCooldownStore(t *testing.T, interval time.Duration) cache.CooldownStore {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	c, err := cache.NewCache(&cache.Config{Provider: "memory", TTL: time.Minute}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return cache.NewCooldownStore(c, interval, "test:validate", logger)
}

func cooldownTestHandler(store cache.CooldownStore) http.Handler {
	return ValidateCooldown(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestValidateCooldownAllowsFirstRequest(t *testing.T) {
	handler := cooldownTestHandler(newCooldownStore(t, time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/badges/validate", nil)
	req = req.WithContext(contextutils.WithUserID(req.Context(), 7))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateCooldownRejectsRapidRepeat(t *testing.T) {
	handler := cooldownTestHandler(newCooldownStore(t, time.Minute))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/badges/validate", nil)
		req = req.WithContext(contextutils.WithUserID(req.Context(), 7))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if i == 0 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	}
}

func TestValidateCooldownIsPerUser(t *testing.T) {
	handler := cooldownTestHandler(newCooldownStore(t, time.Minute))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/badges/validate", nil)
	first = first.WithContext(contextutils.WithUserID(first.Context(), 7))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/api/v1/badges/validate", nil)
	second = second.WithContext(contextutils.WithUserID(second.Context(), 8))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateCooldownDisabledInterval(t *testing.T) {
	handler := cooldownTestHandler(newCooldownStore(t, 0))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/badges/validate", nil)
		req = req.WithContext(contextutils.WithUserID(req.Context(), 7))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
