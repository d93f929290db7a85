package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dietly/internal/events"
	"dietly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFactRepository returns canned facts for evaluator tests.
type fakeFactRepository struct {
	adoptions         int64
	adoptionsDistinct int64
	adoptionsErr      error

	dietStartedAt    time.Time
	dietStartedFound bool

	startWeight      float64
	startWeightFound bool
	minWeight        float64
	minWeightFound   bool

	experience      int64
	experienceFound bool

	lastDistinctFlag bool
}

func (f *fakeFactRepository) CountDietAdoptions(ctx context.Context, userID int64, distinct bool) (int64, error) {
	f.lastDistinctFlag = distinct
	if f.adoptionsErr != nil {
		return 0, f.adoptionsErr
	}
	if distinct {
		return f.adoptionsDistinct, nil
	}
	return f.adoptions, nil
}

func (f *fakeFactRepository) ActiveDietStartedAt(ctx context.Context, userID int64) (time.Time, bool, error) {
	return f.dietStartedAt, f.dietStartedFound, nil
}

func (f *fakeFactRepository) StartingWeight(ctx context.Context, userID int64) (float64, bool, error) {
	return f.startWeight, f.startWeightFound, nil
}

func (f *fakeFactRepository) MinRecordedWeight(ctx context.Context, userID int64) (float64, bool, error) {
	return f.minWeight, f.minWeightFound, nil
}

func (f *fakeFactRepository) LatestExperience(ctx context.Context, userID int64) (int64, bool, error) {
	return f.experience, f.experienceFound, nil
}

func newTestEvaluator(facts *fakeFactRepository, now time.Time) *criteriaEvaluator {
	logger, _ := zap.NewDevelopment()
	return &criteriaEvaluator{
		facts:  facts,
		logger: logger,
		now:    func() time.Time { return now },
	}
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func TestEvaluateDietChosenDefaults(t *testing.T) {
	facts := &fakeFactRepository{adoptions: 1}
	evaluator := newTestEvaluator(facts, time.Now())

	// Default count is 1 with gte, so a single adoption satisfies it
	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventDietChosen,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// No adoptions yet
	facts.adoptions = 0
	ok, err = evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventDietChosen,
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateDietSwitchesDistinct(t *testing.T) {
	facts := &fakeFactRepository{adoptions: 5, adoptionsDistinct: 2}
	evaluator := newTestEvaluator(facts, time.Now())

	criteria := models.BadgeCriteria{
		Event:    events.EventDietSwitches,
		Count:    int64Ptr(3),
		Distinct: true,
	}

	// Five switches but only two distinct plans
	ok, err := evaluator.Evaluate(context.Background(), 1, criteria)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, facts.lastDistinctFlag)

	criteria.Distinct = false
	ok, err = evaluator.Evaluate(context.Background(), 1, criteria)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, facts.lastDistinctFlag)
}

func TestEvaluateOperators(t *testing.T) {
	tests := []struct {
		name     string
		operator models.CriteriaOperator
		count    int64
		want     bool
	}{
		{"gte satisfied at boundary", models.OpGTE, 3, true},
		{"gt rejected at boundary", models.OpGT, 3, false},
		{"gt satisfied above", models.OpGT, 4, true},
		{"eq satisfied exactly", models.OpEQ, 3, true},
		{"eq rejected above", models.OpEQ, 4, false},
		{"lte satisfied below", models.OpLTE, 2, true},
		{"lt rejected at boundary", models.OpLT, 3, false},
		{"unset operator falls back to gte", "", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := &fakeFactRepository{adoptions: tt.count}
			evaluator := newTestEvaluator(facts, time.Now())

			ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
				Event:    events.EventDietChosen,
				Operator: tt.operator,
				Count:    int64Ptr(3),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEvaluateDietDurationFloorsWholeDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// 6 days and 23 hours elapsed floors to 6 days, short of 7
	facts := &fakeFactRepository{
		dietStartedAt:    now.Add(-(6*24 + 23) * time.Hour),
		dietStartedFound: true,
	}
	evaluator := newTestEvaluator(facts, now)

	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventDietDuration,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	// Exactly 7 days satisfies the default
	facts.dietStartedAt = now.Add(-7 * 24 * time.Hour)
	ok, err = evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventDietDuration,
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateDietDurationNoActiveDiet(t *testing.T) {
	facts := &fakeFactRepository{dietStartedFound: false}
	evaluator := newTestEvaluator(facts, time.Now())

	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event:        events.EventDietDuration,
		DurationDays: int64Ptr(30),
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateWeightLoss(t *testing.T) {
	facts := &fakeFactRepository{
		startWeight:      90,
		startWeightFound: true,
		minWeight:        84.5,
		minWeightFound:   true,
	}
	evaluator := newTestEvaluator(facts, time.Now())

	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event:     events.EventWeightLoss,
		Threshold: float64Ptr(5),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// 5.5kg lost does not reach a 10kg threshold
	ok, err = evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event:     events.EventWeightLoss,
		Threshold: float64Ptr(10),
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateWeightLossMissingBaseline(t *testing.T) {
	// No onboarding weight recorded yet
	facts := &fakeFactRepository{
		startWeightFound: false,
		minWeight:        80,
		minWeightFound:   true,
	}
	evaluator := newTestEvaluator(facts, time.Now())

	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventWeightLoss,
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateExperienceDefaultThreshold(t *testing.T) {
	facts := &fakeFactRepository{experience: 1000, experienceFound: true}
	evaluator := newTestEvaluator(facts, time.Now())

	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventExperience,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	facts.experience = 999
	ok, err = evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventExperience,
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateShoppingExportAlwaysSatisfied(t *testing.T) {
	evaluator := newTestEvaluator(&fakeFactRepository{}, time.Now())

	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventShoppingExport,
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateUnknownEventNeverSatisfied(t *testing.T) {
	evaluator := newTestEvaluator(&fakeFactRepository{adoptions: 100}, time.Now())

	ok, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: "steps_walked",
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluatePropagatesFactErrors(t *testing.T) {
	facts := &fakeFactRepository{adoptionsErr: errors.New("connection reset")}
	evaluator := newTestEvaluator(facts, time.Now())

	_, err := evaluator.Evaluate(context.Background(), 1, models.BadgeCriteria{
		Event: events.EventDietChosen,
	})
	assert.Error(t, err)
}
