package services

import (
	"context"
	"fmt"
	"time"

	"dietly/internal/events"
	"dietly/internal/models"
	"dietly/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

// Evaluation defaults applied when a criteria descriptor leaves a
// threshold field unset.
const (
	defaultCount            int64   = 1
	defaultDurationDays     int64   = 7
	defaultWeightLossKg     float64 = 1
	defaultExperiencePoints float64 = 1000
)

// CriteriaEvaluator decides whether one user currently satisfies one
// badge criteria. Evaluation is a pure read: it never writes and never
// caches, so repeated calls always reflect the latest recorded facts.
type CriteriaEvaluator interface {
	// Evaluate returns true when the user satisfies the criteria.
	// Unknown events and missing facts return (false, nil); only a
	// failed fact lookup returns an error.
	Evaluate(ctx context.Context, userID int64, criteria models.BadgeCriteria) (bool, error)
}

// criteriaEvaluator implements CriteriaEvaluator over the fact
// repository.
type criteriaEvaluator struct {
	facts  repositories.FactRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewCriteriaEvaluator creates a new criteria evaluator
func NewCriteriaEvaluator(facts repositories.FactRepository, logger *zap.Logger) CriteriaEvaluator {
	return &criteriaEvaluator{
		facts:  facts,
		logger: logger,
		now:    time.Now,
	}
}

// Evaluate implements CriteriaEvaluator with a closed dispatch over
// the event vocabulary. Adding an event means adding a case here; a
// name outside the set is simply never satisfied.
func (e *criteriaEvaluator) Evaluate(ctx context.Context, userID int64, criteria models.BadgeCriteria) (bool, error) {
	switch criteria.Event {
	case events.EventDietChosen:
		return e.evaluateDietAdoptions(ctx, userID, criteria)
	case events.EventDietSwitches:
		return e.evaluateDietAdoptions(ctx, userID, criteria)
	case events.EventDietDuration:
		return e.evaluateDietDuration(ctx, userID, criteria)
	case events.EventShoppingExport:
		// Exporting the shopping list is the trigger itself; there is
		// no stored fact to cross-check yet.
		return true, nil
	case events.EventWeightLoss:
		return e.evaluateWeightLoss(ctx, userID, criteria)
	case events.EventExperience:
		return e.evaluateExperience(ctx, userID, criteria)
	default:
		e.logger.Debug("Criteria references unknown event, never satisfied",
			zap.String("event", criteria.Event),
			zap.Int64("user_id", userID),
		)
		return false, nil
	}
}

// evaluateDietAdoptions covers diet_chosen and diet_switches, both of
// which compare the user's diet row count against a target count.
func (e *criteriaEvaluator) evaluateDietAdoptions(ctx context.Context, userID int64, criteria models.BadgeCriteria) (bool, error) {
	count, err := e.facts.CountDietAdoptions(ctx, userID, criteria.Distinct)
	if err != nil {
		return false, fmt.Errorf("failed to count diet adoptions: %w", err)
	}

	want := defaultCount
	if criteria.Count != nil {
		want = *criteria.Count
	}

	return compare(criteria.EffectiveOperator(), count, want), nil
}

// evaluateDietDuration checks how long the active diet has been
// running, in whole elapsed days.
func (e *criteriaEvaluator) evaluateDietDuration(ctx context.Context, userID int64, criteria models.BadgeCriteria) (bool, error) {
	startedAt, found, err := e.facts.ActiveDietStartedAt(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get active diet start: %w", err)
	}
	if !found {
		return false, nil
	}

	elapsed := e.now().Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	days := int64(elapsed.Hours() / 24)

	want := defaultDurationDays
	if criteria.DurationDays != nil {
		want = *criteria.DurationDays
	}

	return compare(criteria.EffectiveOperator(), days, want), nil
}

// evaluateWeightLoss compares the drop from the onboarding baseline to
// the lowest recorded weight against the criteria threshold.
func (e *criteriaEvaluator) evaluateWeightLoss(ctx context.Context, userID int64, criteria models.BadgeCriteria) (bool, error) {
	start, found, err := e.facts.StartingWeight(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get starting weight: %w", err)
	}
	if !found {
		return false, nil
	}

	lowest, found, err := e.facts.MinRecordedWeight(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get min recorded weight: %w", err)
	}
	if !found {
		return false, nil
	}

	loss := start - lowest

	want := defaultWeightLossKg
	if criteria.Threshold != nil {
		want = *criteria.Threshold
	}

	return compare(criteria.EffectiveOperator(), loss, want), nil
}

// evaluateExperience compares the user's latest experience total
// against the criteria threshold.
func (e *criteriaEvaluator) evaluateExperience(ctx context.Context, userID int64, criteria models.BadgeCriteria) (bool, error) {
	points, found, err := e.facts.LatestExperience(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get latest experience: %w", err)
	}
	if !found {
		return false, nil
	}

	want := defaultExperiencePoints
	if criteria.Threshold != nil {
		want = *criteria.Threshold
	}

	return compare(criteria.EffectiveOperator(), float64(points), want), nil
}

// compare applies a criteria operator to an ordered pair.
func compare[T constraints.Ordered](op models.CriteriaOperator, have, want T) bool {
	switch op {
	case models.OpGT:
		return have > want
	case models.OpEQ:
		return have == want
	case models.OpLTE:
		return have <= want
	case models.OpLT:
		return have < want
	default:
		return have >= want
	}
}
