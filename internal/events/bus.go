package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ===============================
// EVENT BUS
// ===============================

// BusEvent is anything that can travel on the in-process bus.
type BusEvent interface {
	Type() string
}

// Handler consumes bus events for one topic.
type Handler interface {
	Handle(ctx context.Context, event BusEvent) error
	GetHandlerID() string
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event BusEvent) error
}

// Handle implements Handler
func (f HandlerFunc) Handle(ctx context.Context, event BusEvent) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements Handler
func (f HandlerFunc) GetHandlerID() string { return f.ID }

// Bus defines the event publishing and subscription interface.
type Bus interface {
	Publish(ctx context.Context, event BusEvent) error
	Subscribe(eventType string, handler Handler)
	Stop(ctx context.Context) error
	Stats() *BusStats
}

// BusStats represents event bus statistics
type BusStats struct {
	EventsPublished int64 `json:"events_published"`
	EventsProcessed int64 `json:"events_processed"`
	EventsFailed    int64 `json:"events_failed"`
	HandlersCount   int   `json:"handlers_count"`
	QueueDepth      int   `json:"queue_depth"`
}

// BusConfig holds configuration for the in-memory bus.
type BusConfig struct {
	BufferSize     int           `json:"buffer_size"`
	WorkerCount    int           `json:"worker_count"`
	HandlerTimeout time.Duration `json:"handler_timeout"`
}

// DefaultBusConfig returns default configuration
func DefaultBusConfig() *BusConfig {
	return &BusConfig{
		BufferSize:     256,
		WorkerCount:    2,
		HandlerTimeout: 10 * time.Second,
	}
}

// inMemoryBus implements Bus using a buffered channel and a small
// worker pool. Delivery is at-most-once; a slow or failing handler
// never blocks the publisher.
type inMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	queue    chan busMessage
	logger   *zap.Logger
	config   *BusConfig
	stats    BusStats
	statsMu  sync.Mutex
	shutdown chan struct{}
	wg       sync.WaitGroup
}

type busMessage struct {
	event BusEvent
}

// NewInMemoryBus creates a new in-memory event bus and starts its
// worker goroutines.
func NewInMemoryBus(config *BusConfig, logger *zap.Logger) Bus {
	if config == nil {
		config = DefaultBusConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bus := &inMemoryBus{
		handlers: make(map[string][]Handler),
		queue:    make(chan busMessage, config.BufferSize),
		logger:   logger,
		config:   config,
		shutdown: make(chan struct{}),
	}

	for i := 0; i < config.WorkerCount; i++ {
		bus.wg.Add(1)
		go bus.worker(i)
	}

	return bus
}

// Publish queues an event for asynchronous delivery. If the queue is
// full the event is dropped and counted as failed rather than blocking
// the caller; badge notifications are best-effort by design.
func (b *inMemoryBus) Publish(ctx context.Context, event BusEvent) error {
	select {
	case b.queue <- busMessage{event: event}:
		b.incr(func(s *BusStats) { s.EventsPublished++ })
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.incr(func(s *BusStats) { s.EventsFailed++ })
		b.logger.Warn("Event bus queue full, dropping event",
			zap.String("event_type", event.Type()),
		)
		return nil
	}
}

// Subscribe registers a handler for an event type.
func (b *inMemoryBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	b.logger.Info("Event handler registered",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
		zap.Int("total_handlers", len(b.handlers[eventType])),
	)
}

// Stop drains the workers and waits for them to exit.
func (b *inMemoryBus) Stop(ctx context.Context) error {
	close(b.shutdown)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timed out")
		return ctx.Err()
	}
}

// Stats returns a snapshot of bus statistics.
func (b *inMemoryBus) Stats() *BusStats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()

	b.mu.RLock()
	handlerCount := 0
	for _, hs := range b.handlers {
		handlerCount += len(hs)
	}
	b.mu.RUnlock()

	snapshot := b.stats
	snapshot.HandlersCount = handlerCount
	snapshot.QueueDepth = len(b.queue)
	return &snapshot
}

func (b *inMemoryBus) worker(id int) {
	defer b.wg.Done()

	for {
		select {
		case msg := <-b.queue:
			b.dispatch(msg.event)
		case <-b.shutdown:
			return
		}
	}
}

func (b *inMemoryBus) dispatch(event BusEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.config.HandlerTimeout)
	defer cancel()

	for _, handler := range handlers {
		if err := b.safeHandle(ctx, handler, event); err != nil {
			b.incr(func(s *BusStats) { s.EventsFailed++ })
			b.logger.Error("Event handler failed",
				zap.String("event_type", event.Type()),
				zap.String("handler_id", handler.GetHandlerID()),
				zap.Error(err),
			)
		}
	}

	b.incr(func(s *BusStats) { s.EventsProcessed++ })
}

// safeHandle calls a handler with panic recovery so one bad subscriber
// cannot take down a worker.
func (b *inMemoryBus) safeHandle(ctx context.Context, handler Handler, event BusEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &handlerPanicError{value: r}
			b.logger.Error("Event handler panicked",
				zap.String("event_type", event.Type()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

func (b *inMemoryBus) incr(fn func(*BusStats)) {
	b.statsMu.Lock()
	fn(&b.stats)
	b.statsMu.Unlock()
}

type handlerPanicError struct {
	value interface{}
}

func (e *handlerPanicError) Error() string {
	return "handler panicked"
}
