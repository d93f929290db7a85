package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBus(t *testing.T) Bus {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	bus := NewInMemoryBus(DefaultBusConfig(), logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Stop(ctx)
	})
	return bus
}

func waitForCount(t *testing.T, counter *int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt64(counter) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d handled events, got %d", want, atomic.LoadInt64(counter))
}

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := newTestBus(t)

	var handled int64
	bus.Subscribe(TypeBadgeAwarded, HandlerFunc{
		ID: "test.counter",
		Func: func(ctx context.Context, event BusEvent) error {
			awarded, ok := event.(BadgeAwarded)
			require.True(t, ok)
			assert.Equal(t, int64(7), awarded.UserID)
			atomic.AddInt64(&handled, 1)
			return nil
		},
	})

	err := bus.Publish(context.Background(), BadgeAwarded{
		EventID: GenerateEventID(),
		UserID:  7,
		BadgeID: 1,
	})
	require.NoError(t, err)

	waitForCount(t, &handled, 1)
}

func TestBusFanOutToMultipleHandlers(t *testing.T) {
	bus := newTestBus(t)

	var handled int64
	for i := 0; i < 3; i++ {
		bus.Subscribe(TypeBadgeAwarded, HandlerFunc{
			ID: "test.fanout",
			Func: func(ctx context.Context, event BusEvent) error {
				atomic.AddInt64(&handled, 1)
				return nil
			},
		})
	}

	require.NoError(t, bus.Publish(context.Background(), BadgeAwarded{UserID: 1}))
	waitForCount(t, &handled, 3)
}

func TestBusIgnoresUnsubscribedTypes(t *testing.T) {
	bus := newTestBus(t)

	var handled int64
	bus.Subscribe("some.other.topic", HandlerFunc{
		ID: "test.other",
		Func: func(ctx context.Context, event BusEvent) error {
			atomic.AddInt64(&handled, 1)
			return nil
		},
	})

	require.NoError(t, bus.Publish(context.Background(), BadgeAwarded{UserID: 1}))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&handled))
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := newTestBus(t)

	var handled int64
	bus.Subscribe(TypeBadgeAwarded, HandlerFunc{
		ID:   "test.panics",
		Func: func(ctx context.Context, event BusEvent) error { panic("boom") },
	})
	bus.Subscribe(TypeBadgeAwarded, HandlerFunc{
		ID: "test.survives",
		Func: func(ctx context.Context, event BusEvent) error {
			atomic.AddInt64(&handled, 1)
			return nil
		},
	})

	// Publish twice; the panicking handler must not kill the workers
	require.NoError(t, bus.Publish(context.Background(), BadgeAwarded{UserID: 1}))
	require.NoError(t, bus.Publish(context.Background(), BadgeAwarded{UserID: 2}))

	waitForCount(t, &handled, 2)
}

func TestBusStatsCountPublishes(t *testing.T) {
	bus := newTestBus(t)

	var handled int64
	bus.Subscribe(TypeBadgeAwarded, HandlerFunc{
		ID: "test.stats",
		Func: func(ctx context.Context, event BusEvent) error {
			atomic.AddInt64(&handled, 1)
			return nil
		},
	})

	require.NoError(t, bus.Publish(context.Background(), BadgeAwarded{UserID: 1}))
	waitForCount(t, &handled, 1)

	stats := bus.Stats()
	assert.Equal(t, int64(1), stats.EventsPublished)
	assert.Equal(t, 1, stats.HandlersCount)
}
