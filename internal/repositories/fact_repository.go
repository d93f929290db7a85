package repositories

import (
	"context"
	"fmt"
	"time"

	"dietly/internal/database"

	"go.uber.org/zap"
)

// factRepository implements FactRepository over the diet-tracking
// tables. A missing fact is a normal answer here, never an error;
// the evaluator treats it as "criteria not met yet".
type factRepository struct {
	*BaseRepository
}

// NewFactRepository creates a new activity fact repository
func NewFactRepository(db *database.Manager, logger *zap.Logger) FactRepository {
	return &factRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// CountDietAdoptions counts the user's diet rows. With distinct set,
// repeated adoptions of the same plan count once.
func (r *factRepository) CountDietAdoptions(ctx context.Context, userID int64, distinct bool) (int64, error) {
	query := `SELECT COUNT(*) FROM user_diets WHERE user_id = $1`
	if distinct {
		query = `SELECT COUNT(DISTINCT diet_plan_id) FROM user_diets WHERE user_id = $1`
	}

	var count int64
	if err := r.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count diet adoptions: %w", err)
	}

	return count, nil
}

// ActiveDietStartedAt returns the start time of the user's active diet
func (r *factRepository) ActiveDietStartedAt(ctx context.Context, userID int64) (time.Time, bool, error) {
	query := `
		SELECT started_at
		FROM user_diets
		WHERE user_id = $1 AND active = true
		ORDER BY started_at DESC
		LIMIT 1`

	var startedAt time.Time
	err := r.QueryRowContext(ctx, query, userID).Scan(&startedAt)
	if err != nil {
		if r.IsNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get active diet start: %w", err)
	}

	return startedAt, true, nil
}

// StartingWeight returns the user's onboarding baseline weight
func (r *factRepository) StartingWeight(ctx context.Context, userID int64) (float64, bool, error) {
	query := `SELECT weight_start_kg FROM user_profiles WHERE user_id = $1`

	var kg float64
	err := r.QueryRowContext(ctx, query, userID).Scan(&kg)
	if err != nil {
		if r.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get starting weight: %w", err)
	}

	return kg, true, nil
}

// MinRecordedWeight returns the lowest weight the user ever logged
func (r *factRepository) MinRecordedWeight(ctx context.Context, userID int64) (float64, bool, error) {
	query := `SELECT MIN(weight_kg) FROM weight_entries WHERE user_id = $1`

	var kg *float64
	err := r.QueryRowContext(ctx, query, userID).Scan(&kg)
	if err != nil {
		if r.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get min recorded weight: %w", err)
	}

	// MIN over zero rows yields NULL, not ErrNoRows.
	if kg == nil {
		return 0, false, nil
	}

	return *kg, true, nil
}

// LatestExperience returns the user's current experience total
func (r *factRepository) LatestExperience(ctx context.Context, userID int64) (int64, bool, error) {
	query := `
		SELECT points_total
		FROM experience_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var points int64
	err := r.QueryRowContext(ctx, query, userID).Scan(&points)
	if err != nil {
		if r.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get latest experience: %w", err)
	}

	return points, true, nil
}
