package repositories

import (
	"context"
	"time"

	"dietly/internal/models"
)

// ===============================
// REPOSITORY INTERFACES
// ===============================

// BadgeRepository provides read access to the immutable badge catalog.
type BadgeRepository interface {
	// GetByID returns a single catalog entry, nil when absent.
	GetByID(ctx context.Context, id int64) (*models.Badge, error)

	// FindByEvent returns the catalog entries whose criteria reference
	// the given event name, ordered by weight descending then id
	// ascending. Unknown event names yield an empty slice.
	FindByEvent(ctx context.Context, event string) ([]models.Badge, error)

	// ListAll returns the whole visible catalog in display order.
	ListAll(ctx context.Context) ([]models.Badge, error)

	// UpdateIcon replaces the icon URL of a catalog entry.
	UpdateIcon(ctx context.Context, id int64, iconURL string) error

	// InvalidateCache drops any cached catalog data.
	InvalidateCache(ctx context.Context) error
}

// AwardRepository is the append-only award ledger.
type AwardRepository interface {
	// TryAward inserts an award record unless one already exists for
	// the (user, badge) pair. It returns the created record and true,
	// or nil and false when the pair was already awarded.
	TryAward(ctx context.Context, award *models.UserBadge) (created bool, err error)

	// HasAward reports whether the user already holds the badge.
	HasAward(ctx context.Context, userID, badgeID int64) (bool, error)

	// ListByUser returns all awards of a user, newest first, with the
	// catalog entry joined in.
	ListByUser(ctx context.Context, userID int64) ([]models.UserBadge, error)

	// CountByUser returns the number of badges a user holds.
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// FactRepository answers the evaluator's questions about a user's
// recorded activity. Every method returns found=false (never an error)
// when the underlying fact simply is not recorded yet.
type FactRepository interface {
	// CountDietAdoptions returns how many diet rows the user has. The
	// row count doubles as the switch count since switching inserts a
	// new row.
	CountDietAdoptions(ctx context.Context, userID int64, distinct bool) (int64, error)

	// ActiveDietStartedAt returns the start time of the user's active
	// diet, found=false when no diet is active.
	ActiveDietStartedAt(ctx context.Context, userID int64) (startedAt time.Time, found bool, err error)

	// StartingWeight returns the user's onboarding baseline weight.
	StartingWeight(ctx context.Context, userID int64) (kg float64, found bool, err error)

	// MinRecordedWeight returns the lowest weight the user ever logged.
	MinRecordedWeight(ctx context.Context, userID int64) (kg float64, found bool, err error)

	// LatestExperience returns the user's current experience total.
	LatestExperience(ctx context.Context, userID int64) (points int64, found bool, err error)
}
