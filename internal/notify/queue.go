package notify

import (
	"sync"
	"time"

	"dietly/internal/models"

	"go.uber.org/zap"
)

// ===============================
// DEFERRED ACTIONS
// ===============================

// DeferredAction is what should happen once the badge presentation is
// out of the way. The set is closed: a presentation flow either
// reloads the current view, redirects somewhere, or runs a callback.
type DeferredAction interface {
	deferredAction()
}

// ReloadAction reloads the current view.
type ReloadAction struct{}

// RedirectAction navigates to Path.
type RedirectAction struct {
	Path string
}

// CallbackAction runs an arbitrary follow-up.
type CallbackAction struct {
	Fn func()
}

func (ReloadAction) deferredAction()   {}
func (RedirectAction) deferredAction() {}
func (CallbackAction) deferredAction() {}

// ===============================
// DEFERRAL QUEUE
// ===============================

// Queue state names.
const (
	StateIdle    = "idle"
	StateVisible = "visible"
)

// QueueConfig tunes presentation timing.
type QueueConfig struct {
	// MinDelay is how long an empty enqueue waits before running its
	// action, giving in-flight award pushes a chance to land first.
	MinDelay time.Duration

	// DismissDelay is how long a dismissal animation gets before the
	// stored action runs.
	DismissDelay time.Duration
}

// DefaultQueueConfig returns default configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MinDelay:     300 * time.Millisecond,
		DismissDelay: 400 * time.Millisecond,
	}
}

// Queue sequences badge unlock presentations against a follow-up
// action. It is a two-state machine: idle until badges are enqueued,
// visible until dismissed, then idle again. Whatever happens, the
// deferred action of a presentation runs at most once.
type Queue struct {
	mu     sync.Mutex
	config *QueueConfig
	logger *zap.Logger

	state   string
	badges  []models.Badge
	action  DeferredAction
	fired   bool
	onShow  func([]models.Badge)
	runner  func(DeferredAction)
	pending *time.Timer
}

// NewQueue creates a new notification deferral queue. run is invoked
// for every deferred action that fires; onShow is called when badges
// become visible (both may be nil).
func NewQueue(config *QueueConfig, run func(DeferredAction), onShow func([]models.Badge), logger *zap.Logger) *Queue {
	if config == nil {
		config = DefaultQueueConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Queue{
		config: config,
		logger: logger,
		state:  StateIdle,
		onShow: onShow,
		runner: run,
	}
}

// State returns the current queue state.
func (q *Queue) State() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Visible returns the badges currently presented, nil when idle.
func (q *Queue) Visible() []models.Badge {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != StateVisible {
		return nil
	}
	out := make([]models.Badge, len(q.badges))
	copy(out, q.badges)
	return out
}

// Enqueue presents freshly awarded badges and stores the follow-up
// action. With no badges to show, the action alone fires after
// MinDelay; the queue never becomes visible in that case. A new
// Enqueue replaces any stored unfired action, pending or visible:
// only the latest follow-up runs.
func (q *Queue) Enqueue(badges []models.Badge, action DeferredAction) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancelPendingLocked()

	if len(badges) == 0 {
		if action == nil {
			return
		}
		q.state = StateIdle
		q.badges = nil
		q.action = action
		q.fired = false
		q.pending = time.AfterFunc(q.config.MinDelay, q.fireAction)
		return
	}

	q.state = StateVisible
	q.badges = badges
	q.action = action
	q.fired = false

	q.logger.Debug("Badge notification visible",
		zap.Int("badge_count", len(badges)),
	)

	if q.onShow != nil {
		shown := make([]models.Badge, len(badges))
		copy(shown, badges)
		go q.onShow(shown)
	}
}

// Dismiss hides the presentation and schedules the stored action. A
// second Dismiss is a no-op.
func (q *Queue) Dismiss() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != StateVisible {
		return
	}

	q.state = StateIdle
	q.badges = nil

	if q.action == nil {
		return
	}

	q.pending = time.AfterFunc(q.config.DismissDelay, q.fireAction)
}

// fireAction runs the stored action exactly once.
func (q *Queue) fireAction() {
	q.mu.Lock()
	if q.fired || q.action == nil {
		q.mu.Unlock()
		return
	}
	q.fired = true
	action := q.action
	q.action = nil
	runner := q.runner
	q.mu.Unlock()

	if runner != nil {
		runner(action)
	} else if cb, ok := action.(CallbackAction); ok && cb.Fn != nil {
		cb.Fn()
	}
}

// cancelPendingLocked stops a scheduled action timer. Callers hold the
// lock.
func (q *Queue) cancelPendingLocked() {
	if q.pending != nil {
		q.pending.Stop()
		q.pending = nil
	}
}
