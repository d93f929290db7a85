package repositories

import (
	"context"
	"fmt"

	"dietly/internal/database"
	"dietly/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// awardRepository implements AwardRepository. Uniqueness of the
// (user, badge) pair is enforced by the database constraint, not by a
// read-then-write in application code, so concurrent validations of
// the same user cannot double-award.
type awardRepository struct {
	*BaseRepository
}

// NewAwardRepository creates a new award ledger repository
func NewAwardRepository(db *database.Manager, logger *zap.Logger) AwardRepository {
	return &awardRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// TryAward inserts an award record with insert-or-ignore semantics.
// ON CONFLICT DO NOTHING returns no row for duplicates, which scans as
// sql.ErrNoRows and maps to created=false.
func (r *awardRepository) TryAward(ctx context.Context, award *models.UserBadge) (bool, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id, event_name, event_payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id) DO NOTHING
		RETURNING id, awarded_at`

	var payload interface{}
	if len(award.EventPayload) > 0 {
		payload = []byte(award.EventPayload)
	}

	err := r.QueryRowContext(
		ctx, query,
		award.UserID, award.BadgeID, award.EventName, payload,
	).Scan(&award.ID, &award.AwardedAt)

	if err != nil {
		if r.IsNotFound(err) {
			return false, nil
		}
		// Belt and braces: a unique violation surfacing despite DO
		// NOTHING still means "already awarded", not a failure.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert award record: %w", err)
	}

	r.GetLogger().Info("Badge awarded",
		zap.Int64("user_id", award.UserID),
		zap.Int64("badge_id", award.BadgeID),
		zap.String("event", award.EventName),
	)

	return true, nil
}

// HasAward reports whether the user already holds the badge
func (r *awardRepository) HasAward(ctx context.Context, userID, badgeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)`

	var exists bool
	if err := r.QueryRowContext(ctx, query, userID, badgeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check award existence: %w", err)
	}

	return exists, nil
}

// ListByUser returns all awards of a user, newest first, with the
// catalog entry joined in for display.
func (r *awardRepository) ListByUser(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	query := fmt.Sprintf(`
		SELECT
			ub.id, ub.user_id, ub.badge_id, ub.awarded_at,
			ub.event_name, ub.event_payload,
			%s
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.awarded_at DESC, ub.id DESC`, badgeSelectColumns)

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user awards: %w", err)
	}
	defer rows.Close()

	awards := make([]models.UserBadge, 0)
	for rows.Next() {
		var (
			award   models.UserBadge
			payload []byte
			buf     badgeRow
		)

		// The badge columns follow the award columns in the select list.
		dest := []interface{}{
			&award.ID, &award.UserID, &award.BadgeID, &award.AwardedAt,
			&award.EventName, &payload,
		}
		dest = append(dest, buf.scanDest()...)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan award row: %w", err)
		}

		if len(payload) > 0 {
			award.EventPayload = payload
		}
		badge := buf.toBadge()
		award.Badge = &badge
		awards = append(awards, award)
	}

	return awards, rows.Err()
}

// CountByUser returns the number of badges a user holds
func (r *awardRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM user_badges WHERE user_id = $1`

	var count int64
	if err := r.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count user awards: %w", err)
	}

	return count, nil
}
