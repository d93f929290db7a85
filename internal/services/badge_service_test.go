package services

import (
	"context"
	"errors"
	"testing"

	"dietly/internal/events"
	"dietly/internal/models"
	"dietly/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBadgeRepository serves a fixed catalog keyed by event name.
type fakeBadgeRepository struct {
	byEvent map[string][]models.Badge
	listErr error
}

func (f *fakeBadgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	for _, badges := range f.byEvent {
		for i := range badges {
			if badges[i].ID == id {
				return &badges[i], nil
			}
		}
	}
	return nil, nil
}

func (f *fakeBadgeRepository) FindByEvent(ctx context.Context, event string) ([]models.Badge, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byEvent[event], nil
}

func (f *fakeBadgeRepository) ListAll(ctx context.Context) ([]models.Badge, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var all []models.Badge
	for _, badges := range f.byEvent {
		all = append(all, badges...)
	}
	return all, nil
}

func (f *fakeBadgeRepository) UpdateIcon(ctx context.Context, id int64, iconURL string) error {
	return nil
}

func (f *fakeBadgeRepository) InvalidateCache(ctx context.Context) error { return nil }

// fakeAwardRepository is an in-memory award ledger.
type fakeAwardRepository struct {
	held     map[[2]int64]bool
	tryErr   error
	attempts int
}

func newFakeAwardRepository() *fakeAwardRepository {
	return &fakeAwardRepository{held: make(map[[2]int64]bool)}
}

func (f *fakeAwardRepository) TryAward(ctx context.Context, award *models.UserBadge) (bool, error) {
	f.attempts++
	if f.tryErr != nil {
		return false, f.tryErr
	}
	key := [2]int64{award.UserID, award.BadgeID}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeAwardRepository) HasAward(ctx context.Context, userID, badgeID int64) (bool, error) {
	return f.held[[2]int64{userID, badgeID}], nil
}

func (f *fakeAwardRepository) ListByUser(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	return nil, nil
}

func (f *fakeAwardRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return int64(len(f.held)), nil
}

// fakeEvaluator satisfies criteria according to a per-event map.
// errWhen fails evaluation for matching criteria only.
type fakeEvaluator struct {
	satisfied map[string]bool
	err       error
	errWhen   func(models.BadgeCriteria) bool
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, userID int64, criteria models.BadgeCriteria) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.errWhen != nil && f.errWhen(criteria) {
		return false, errors.New("evaluation failed")
	}
	return f.satisfied[criteria.Event], nil
}

// fakeBus records published events synchronously.
type fakeBus struct {
	published []events.BusEvent
}

func (f *fakeBus) Publish(ctx context.Context, event events.BusEvent) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(eventType string, handler events.Handler) {}
func (f *fakeBus) Stop(ctx context.Context) error                    { return nil }
func (f *fakeBus) Stats() *events.BusStats                           { return &events.BusStats{} }

type fakeHealth struct{ healthy bool }

func (f fakeHealth) IsHealthy() bool { return f.healthy }

func testBadge(id int64, slug, event string) models.Badge {
	return models.Badge{
		ID:       id,
		Slug:     slug,
		Title:    slug,
		Criteria: models.BadgeCriteria{Event: event},
		Visible:  true,
	}
}

func newTestBadgeService(
	badges *fakeBadgeRepository,
	awards *fakeAwardRepository,
	evaluator CriteriaEvaluator,
	bus events.Bus,
	health HealthReporter,
) BadgeService {
	logger, _ := zap.NewDevelopment()
	repos := &repositories.Collection{Badge: badges, Award: awards}
	return NewBadgeService(repos, evaluator, bus, health, logger, nil)
}

func TestValidateEventsRejectedWhenStorageUnhealthy(t *testing.T) {
	service := newTestBadgeService(
		&fakeBadgeRepository{},
		newFakeAwardRepository(),
		&fakeEvaluator{},
		&fakeBus{},
		fakeHealth{healthy: false},
	)

	_, err := service.ValidateEvents(context.Background(), 1, []events.Descriptor{
		{Name: events.EventDietChosen},
	})
	require.Error(t, err)
	assert.True(t, IsServiceUnavailableError(err))
}

func TestValidateEventsRejectsOversizedBatch(t *testing.T) {
	service := newTestBadgeService(
		&fakeBadgeRepository{},
		newFakeAwardRepository(),
		&fakeEvaluator{},
		&fakeBus{},
		fakeHealth{healthy: true},
	)

	batch := make([]events.Descriptor, DefaultBadgeServiceConfig().MaxBatchSize+1)
	for i := range batch {
		batch[i] = events.Descriptor{Name: events.EventDietChosen}
	}

	_, err := service.ValidateEvents(context.Background(), 1, batch)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestValidateEventsAwardsSatisfiedBadges(t *testing.T) {
	badges := &fakeBadgeRepository{byEvent: map[string][]models.Badge{
		events.EventDietChosen: {
			testBadge(1, "first-diet", events.EventDietChosen),
			testBadge(2, "diet-explorer", events.EventDietChosen),
		},
	}}
	awards := newFakeAwardRepository()
	bus := &fakeBus{}

	service := newTestBadgeService(badges, awards,
		&fakeEvaluator{satisfied: map[string]bool{events.EventDietChosen: true}},
		bus, fakeHealth{healthy: true})

	result, err := service.ValidateEvents(context.Background(), 7, []events.Descriptor{
		{Name: events.EventDietChosen},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Len(t, result.Badges, 2)
	assert.Len(t, bus.published, 2)

	// Both awards landed in the ledger
	held, _ := awards.HasAward(context.Background(), 7, 1)
	assert.True(t, held)
	held, _ = awards.HasAward(context.Background(), 7, 2)
	assert.True(t, held)
}

func TestValidateEventsDeduplicatesWithinBatch(t *testing.T) {
	badges := &fakeBadgeRepository{byEvent: map[string][]models.Badge{
		events.EventDietChosen: {testBadge(1, "first-diet", events.EventDietChosen)},
	}}
	awards := newFakeAwardRepository()

	service := newTestBadgeService(badges, awards,
		&fakeEvaluator{satisfied: map[string]bool{events.EventDietChosen: true}},
		&fakeBus{}, fakeHealth{healthy: true})

	// The same event twice in one batch must award the badge once
	result, err := service.ValidateEvents(context.Background(), 7, []events.Descriptor{
		{Name: events.EventDietChosen},
		{Name: events.EventDietChosen},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 1, awards.attempts)
}

func TestValidateEventsSkipsAlreadyHeldBadges(t *testing.T) {
	badges := &fakeBadgeRepository{byEvent: map[string][]models.Badge{
		events.EventDietChosen: {testBadge(1, "first-diet", events.EventDietChosen)},
	}}
	awards := newFakeAwardRepository()
	awards.held[[2]int64{7, 1}] = true
	bus := &fakeBus{}

	service := newTestBadgeService(badges, awards,
		&fakeEvaluator{satisfied: map[string]bool{events.EventDietChosen: true}},
		bus, fakeHealth{healthy: true})

	result, err := service.ValidateEvents(context.Background(), 7, []events.Descriptor{
		{Name: events.EventDietChosen},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.Empty(t, bus.published)
}

func TestValidateEventsAbsorbsEvaluatorErrors(t *testing.T) {
	badges := &fakeBadgeRepository{byEvent: map[string][]models.Badge{
		events.EventDietChosen: {testBadge(1, "first-diet", events.EventDietChosen)},
	}}

	service := newTestBadgeService(badges, newFakeAwardRepository(),
		&fakeEvaluator{err: errors.New("facts unavailable")},
		&fakeBus{}, fakeHealth{healthy: true})

	// A broken evaluation produces an empty result, not a failure
	result, err := service.ValidateEvents(context.Background(), 7, []events.Descriptor{
		{Name: events.EventDietChosen},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}

func TestValidateEventsIsolatesBadgeFailuresWithinBatch(t *testing.T) {
	broken := testBadge(1, "serial-switcher", events.EventDietChosen)
	broken.Criteria.Count = int64Ptr(5)
	healthy := testBadge(2, "first-diet", events.EventDietChosen)

	badges := &fakeBadgeRepository{byEvent: map[string][]models.Badge{
		events.EventDietChosen: {broken, healthy},
	}}
	awards := newFakeAwardRepository()
	bus := &fakeBus{}

	service := newTestBadgeService(badges, awards,
		&fakeEvaluator{
			satisfied: map[string]bool{events.EventDietChosen: true},
			errWhen:   func(c models.BadgeCriteria) bool { return c.Count != nil },
		},
		bus, fakeHealth{healthy: true})

	// One badge's evaluation blowing up must not stop the others in
	// the same batch from being evaluated and awarded.
	result, err := service.ValidateEvents(context.Background(), 7, []events.Descriptor{
		{Name: events.EventDietChosen},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "first-diet", result.Badges[0].Slug)
	assert.Len(t, bus.published, 1)

	held, _ := awards.HasAward(context.Background(), 7, 2)
	assert.True(t, held)
	held, _ = awards.HasAward(context.Background(), 7, 1)
	assert.False(t, held)
}

func TestValidateEventsSkipsUnknownEventNames(t *testing.T) {
	badges := &fakeBadgeRepository{byEvent: map[string][]models.Badge{
		events.EventDietChosen: {testBadge(1, "first-diet", events.EventDietChosen)},
	}}
	awards := newFakeAwardRepository()

	service := newTestBadgeService(badges, awards,
		&fakeEvaluator{satisfied: map[string]bool{events.EventDietChosen: true}},
		&fakeBus{}, fakeHealth{healthy: true})

	result, err := service.ValidateEvents(context.Background(), 7, []events.Descriptor{
		{Name: "steps_walked"},
		{Name: events.EventDietChosen},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestValidateEventsPropagatesCatalogLookupFailure(t *testing.T) {
	badges := &fakeBadgeRepository{listErr: errors.New("catalog down")}

	service := newTestBadgeService(badges, newFakeAwardRepository(),
		&fakeEvaluator{}, &fakeBus{}, fakeHealth{healthy: true})

	// A dead catalog is an infrastructure failure, not an empty result
	_, err := service.ValidateEvents(context.Background(), 7, []events.Descriptor{
		{Name: events.EventDietChosen},
	})
	require.Error(t, err)
	assert.True(t, IsServiceUnavailableError(err))
}

func TestGetBadgeNotFound(t *testing.T) {
	service := newTestBadgeService(
		&fakeBadgeRepository{byEvent: map[string][]models.Badge{}},
		newFakeAwardRepository(),
		&fakeEvaluator{}, &fakeBus{}, fakeHealth{healthy: true})

	_, err := service.GetBadge(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}
