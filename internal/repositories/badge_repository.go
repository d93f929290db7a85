package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dietly/internal/cache"
	"dietly/internal/database"
	"dietly/internal/models"

	"go.uber.org/zap"
)

// badgeSelectColumns is the column list shared by all catalog queries.
const badgeSelectColumns = `
	b.id, b.slug, b.title, b.description, b.icon, b.color,
	b.criteria_event, b.criteria_operator, b.criteria_count,
	b.criteria_threshold, b.criteria_duration_days, b.criteria_distinct,
	b.criteria_meta, b.weight, b.visible, b.created_at, b.updated_at`

// badgeRepository implements BadgeRepository with a cache in front of
// the catalog queries. The catalog changes only via migrations, so a
// short TTL keeps reads cheap without an invalidation protocol.
type badgeRepository struct {
	*BaseRepository
	cache      cache.Cache
	catalogTTL time.Duration
}

// NewBadgeRepository creates a new cache-backed badge repository
func NewBadgeRepository(db *database.Manager, c cache.Cache, catalogTTL time.Duration, logger *zap.Logger) BadgeRepository {
	if catalogTTL <= 0 {
		catalogTTL = 5 * time.Minute
	}

	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
		cache:          c,
		catalogTTL:     catalogTTL,
	}
}

// GetByID retrieves a badge by ID, nil when absent
func (r *badgeRepository) GetByID(ctx context.Context, id int64) (*models.Badge, error) {
	query := fmt.Sprintf(`SELECT %s FROM badges b WHERE b.id = $1`, badgeSelectColumns)

	badge, err := r.scanBadge(r.QueryRowContext(ctx, query, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge by ID: %w", err)
	}

	return badge, nil
}

// FindByEvent returns the catalog entries declared for an event,
// ordered by weight descending then id ascending so higher-value
// badges are evaluated and displayed first.
func (r *badgeRepository) FindByEvent(ctx context.Context, event string) ([]models.Badge, error) {
	cacheKey := fmt.Sprintf("badges:catalog:event:%s", event)

	if badges, ok := r.cachedBadges(ctx, cacheKey); ok {
		return badges, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM badges b
		WHERE b.criteria_event = $1
		ORDER BY b.weight DESC, b.id ASC`, badgeSelectColumns)

	badges, err := r.queryBadges(ctx, query, event)
	if err != nil {
		return nil, fmt.Errorf("failed to find badges by event: %w", err)
	}

	r.cacheBadges(ctx, cacheKey, badges)

	return badges, nil
}

// ListAll returns the visible catalog in display order
func (r *badgeRepository) ListAll(ctx context.Context) ([]models.Badge, error) {
	cacheKey := "badges:catalog:all"

	if badges, ok := r.cachedBadges(ctx, cacheKey); ok {
		return badges, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM badges b
		WHERE b.visible = true
		ORDER BY b.weight DESC, b.id ASC`, badgeSelectColumns)

	badges, err := r.queryBadges(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}

	r.cacheBadges(ctx, cacheKey, badges)

	return badges, nil
}

// UpdateIcon replaces the icon URL of a catalog entry and invalidates
// the cached catalog.
func (r *badgeRepository) UpdateIcon(ctx context.Context, id int64, iconURL string) error {
	query := `UPDATE badges SET icon = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.ExecContext(ctx, query, iconURL, id)
	if err != nil {
		return fmt.Errorf("failed to update badge icon: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return r.InvalidateCache(ctx)
}

// InvalidateCache drops any cached catalog data
func (r *badgeRepository) InvalidateCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.DeletePattern(ctx, "badges:catalog:*")
}

// ===============================
// INTERNAL HELPERS
// ===============================

func (r *badgeRepository) queryBadges(ctx context.Context, query string, args ...interface{}) ([]models.Badge, error) {
	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := make([]models.Badge, 0)
	for rows.Next() {
		badge, err := r.scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, *badge)
	}

	return badges, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// badgeRow buffers nullable catalog columns during scanning.
type badgeRow struct {
	badge        models.Badge
	operator     sql.NullString
	count        sql.NullInt64
	threshold    sql.NullFloat64
	durationDays sql.NullInt64
	meta         []byte
	color        sql.NullString
}

// scanDest returns the scan destinations matching badgeSelectColumns.
func (b *badgeRow) scanDest() []interface{} {
	return []interface{}{
		&b.badge.ID, &b.badge.Slug, &b.badge.Title, &b.badge.Description,
		&b.badge.Icon, &b.color,
		&b.badge.Criteria.Event, &b.operator, &b.count,
		&b.threshold, &b.durationDays, &b.badge.Criteria.Distinct,
		&b.meta, &b.badge.Weight, &b.badge.Visible,
		&b.badge.CreatedAt, &b.badge.UpdatedAt,
	}
}

// toBadge resolves the nullable columns into the model.
func (b *badgeRow) toBadge() models.Badge {
	badge := b.badge

	if b.color.Valid {
		badge.Color = b.color.String
	}
	if b.operator.Valid {
		badge.Criteria.Operator = models.CriteriaOperator(b.operator.String)
	}
	if b.count.Valid {
		count := b.count.Int64
		badge.Criteria.Count = &count
	}
	if b.threshold.Valid {
		threshold := b.threshold.Float64
		badge.Criteria.Threshold = &threshold
	}
	if b.durationDays.Valid {
		days := b.durationDays.Int64
		badge.Criteria.DurationDays = &days
	}
	if len(b.meta) > 0 {
		badge.Criteria.Meta = json.RawMessage(b.meta)
	}

	return badge
}

func (r *badgeRepository) scanBadge(row rowScanner) (*models.Badge, error) {
	var buf badgeRow
	if err := row.Scan(buf.scanDest()...); err != nil {
		return nil, err
	}

	badge := buf.toBadge()
	return &badge, nil
}

// cachedBadges fetches a badge list from the cache. Values round-trip
// through JSON because the Redis provider hands back decoded generic
// values rather than our structs.
func (r *badgeRepository) cachedBadges(ctx context.Context, key string) ([]models.Badge, bool) {
	if r.cache == nil {
		return nil, false
	}

	value, found := r.cache.Get(ctx, key)
	if !found {
		return nil, false
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		data = encoded
	}

	var badges []models.Badge
	if err := json.Unmarshal(data, &badges); err != nil {
		r.GetLogger().Warn("Failed to decode cached badge catalog",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}

	return badges, true
}

func (r *badgeRepository) cacheBadges(ctx context.Context, key string, badges []models.Badge) {
	if r.cache == nil {
		return
	}

	data, err := json.Marshal(badges)
	if err != nil {
		return
	}

	if err := r.cache.Set(ctx, key, string(data), r.catalogTTL); err != nil {
		r.GetLogger().Warn("Failed to cache badge catalog",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
