package notify

import (
	"sync"
	"testing"
	"time"

	"dietly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// actionRecorder collects fired actions across goroutines.
type actionRecorder struct {
	mu      sync.Mutex
	actions []DeferredAction
}

func (r *actionRecorder) run(action DeferredAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *actionRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

func fastConfig() *QueueConfig {
	return &QueueConfig{
		MinDelay:     10 * time.Millisecond,
		DismissDelay: 10 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueueStartsIdle(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	q := NewQueue(fastConfig(), nil, nil, logger)

	assert.Equal(t, StateIdle, q.State())
	assert.Nil(t, q.Visible())
}

func TestQueueEnqueueShowsBadges(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	recorder := &actionRecorder{}
	q := NewQueue(fastConfig(), recorder.run, nil, logger)

	badges := []models.Badge{{ID: 1, Slug: "first-diet"}}
	q.Enqueue(badges, RedirectAction{Path: "/dashboard"})

	assert.Equal(t, StateVisible, q.State())
	require.Len(t, q.Visible(), 1)
	assert.Equal(t, "first-diet", q.Visible()[0].Slug)

	// Action waits for dismissal
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, recorder.count())
}

func TestQueueDismissFiresActionOnce(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	recorder := &actionRecorder{}
	q := NewQueue(fastConfig(), recorder.run, nil, logger)

	q.Enqueue([]models.Badge{{ID: 1}}, RedirectAction{Path: "/dashboard"})
	q.Dismiss()

	assert.Equal(t, StateIdle, q.State())

	waitFor(t, func() bool { return recorder.count() == 1 })

	// A second dismiss must not fire the action again
	q.Dismiss()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, recorder.count())

	redirect, ok := recorder.actions[0].(RedirectAction)
	require.True(t, ok)
	assert.Equal(t, "/dashboard", redirect.Path)
}

func TestQueueEmptyEnqueueFiresActionWithoutShowing(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	recorder := &actionRecorder{}
	q := NewQueue(fastConfig(), recorder.run, nil, logger)

	// No badges to show: the action runs after MinDelay, queue stays idle
	q.Enqueue(nil, ReloadAction{})

	assert.Equal(t, StateIdle, q.State())
	waitFor(t, func() bool { return recorder.count() == 1 })
}

func TestQueueEmptyEnqueueWithoutActionIsNoop(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	recorder := &actionRecorder{}
	q := NewQueue(fastConfig(), recorder.run, nil, logger)

	q.Enqueue(nil, nil)

	assert.Equal(t, StateIdle, q.State())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, recorder.count())
}

func TestQueueOnShowCallback(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	shown := make(chan []models.Badge, 1)
	q := NewQueue(fastConfig(), nil, func(badges []models.Badge) {
		shown <- badges
	}, logger)

	q.Enqueue([]models.Badge{{ID: 1}, {ID: 2}}, nil)

	select {
	case badges := <-shown:
		assert.Len(t, badges, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("onShow was not called")
	}
}

func TestQueueReEnqueueSupersedesPendingAction(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	recorder := &actionRecorder{}
	q := NewQueue(&QueueConfig{
		MinDelay:     100 * time.Millisecond,
		DismissDelay: 10 * time.Millisecond,
	}, recorder.run, nil, logger)

	// The first empty enqueue is superseded before its delay elapses
	q.Enqueue(nil, ReloadAction{})
	q.Enqueue(nil, RedirectAction{Path: "/next"})

	waitFor(t, func() bool { return recorder.count() == 1 })
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, recorder.count())

	_, ok := recorder.actions[0].(RedirectAction)
	assert.True(t, ok)
}

func TestQueueEnqueueWhileVisibleReplacesStoredAction(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	recorder := &actionRecorder{}
	q := NewQueue(fastConfig(), recorder.run, nil, logger)

	q.Enqueue([]models.Badge{{ID: 1}}, RedirectAction{Path: "/old"})
	q.Enqueue([]models.Badge{{ID: 2}}, ReloadAction{})

	require.Len(t, q.Visible(), 1)
	assert.Equal(t, int64(2), q.Visible()[0].ID)

	// Only the latest follow-up fires on dismissal
	q.Dismiss()
	waitFor(t, func() bool { return recorder.count() == 1 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, recorder.count())

	_, ok := recorder.actions[0].(ReloadAction)
	assert.True(t, ok)
}

func TestQueueCallbackActionRunsInline(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	// No runner wired: a CallbackAction still executes its function
	fired := make(chan struct{}, 1)
	q := NewQueue(fastConfig(), nil, nil, logger)

	q.Enqueue(nil, CallbackAction{Fn: func() { fired <- struct{}{} }})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback action did not run")
	}
}
