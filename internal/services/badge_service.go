package services

import (
	"context"

	"dietly/internal/events"
	"dietly/internal/models"
	"dietly/internal/repositories"

	"go.uber.org/zap"
)

// HealthReporter gates badge validation on storage health.
type HealthReporter interface {
	IsHealthy() bool
}

// BadgeService orchestrates badge validation: catalog lookup,
// criteria evaluation, award recording and notification publishing.
type BadgeService interface {
	// ValidateEvents runs one validation pass for a batch of activity
	// events. Badges already held are skipped; badges awarded earlier
	// in the same batch are not awarded twice. A failure around one
	// badge is logged and absorbed so the rest of the batch still
	// completes; a catalog lookup failure aborts the pass, since it
	// means the badge store itself is unreachable.
	ValidateEvents(ctx context.Context, userID int64, descriptors []events.Descriptor) (*ValidationResult, error)

	// ListCatalog returns the visible badge catalog in display order.
	ListCatalog(ctx context.Context) ([]models.Badge, error)

	// GetBadge returns one catalog entry.
	GetBadge(ctx context.Context, id int64) (*models.Badge, error)

	// ListUserAwards returns the badges a user has earned, newest
	// first.
	ListUserAwards(ctx context.Context, userID int64) ([]models.UserBadge, error)
}

// BadgeServiceConfig tunes the orchestrator.
type BadgeServiceConfig struct {
	MaxBatchSize int
}

// DefaultBadgeServiceConfig returns default configuration
func DefaultBadgeServiceConfig() *BadgeServiceConfig {
	return &BadgeServiceConfig{
		MaxBatchSize: 20,
	}
}

// badgeService implements BadgeService
type badgeService struct {
	repos     *repositories.Collection
	evaluator CriteriaEvaluator
	bus       events.Bus
	health    HealthReporter
	logger    *zap.Logger
	config    *BadgeServiceConfig
}

// NewBadgeService creates a new badge orchestration service
func NewBadgeService(
	repos *repositories.Collection,
	evaluator CriteriaEvaluator,
	bus events.Bus,
	health HealthReporter,
	logger *zap.Logger,
	config *BadgeServiceConfig,
) BadgeService {
	if config == nil {
		config = DefaultBadgeServiceConfig()
	}

	return &badgeService{
		repos:     repos,
		evaluator: evaluator,
		bus:       bus,
		health:    health,
		logger:    logger,
		config:    config,
	}
}

// ValidateEvents implements BadgeService
func (s *badgeService) ValidateEvents(ctx context.Context, userID int64, descriptors []events.Descriptor) (*ValidationResult, error) {
	if s.health != nil && !s.health.IsHealthy() {
		return nil, NewServiceUnavailableError("badge validation is temporarily unavailable")
	}

	if len(descriptors) > s.config.MaxBatchSize {
		return nil, NewValidationError("too many events in one request", nil)
	}

	result := &ValidationResult{Badges: make([]models.Badge, 0)}
	awarded := make(map[int64]bool)

	// Events are processed in order; a badge unlocked by an earlier
	// event is not re-awarded by a later one in the same batch.
	for _, desc := range descriptors {
		if err := desc.Validate(); err != nil {
			s.logger.Debug("Skipping invalid event descriptor",
				zap.Int64("user_id", userID),
				zap.String("event", desc.Name),
				zap.Error(err),
			)
			continue
		}

		candidates, err := s.repos.Badge.FindByEvent(ctx, desc.Name)
		if err != nil {
			s.logger.Error("Badge catalog lookup failed",
				zap.Int64("user_id", userID),
				zap.String("event", desc.Name),
				zap.Error(err),
			)
			// Unlike a single broken badge, a dead catalog means no
			// event can be evaluated. Awards recorded earlier in the
			// batch stay recorded.
			return nil, NewServiceUnavailableError("badge validation is temporarily unavailable")
		}

		for i := range candidates {
			badge := candidates[i]
			if awarded[badge.ID] {
				continue
			}

			if created := s.tryAwardBadge(ctx, userID, badge, desc); created {
				awarded[badge.ID] = true
				result.Badges = append(result.Badges, badge)
			}
		}
	}

	result.Count = len(result.Badges)

	if result.Count > 0 {
		s.logger.Info("Badge validation awarded new badges",
			zap.Int64("user_id", userID),
			zap.Int("count", result.Count),
		)
	}

	return result, nil
}

// tryAwardBadge evaluates and awards a single badge. Failures are
// logged and absorbed so one broken badge never poisons the batch.
func (s *badgeService) tryAwardBadge(ctx context.Context, userID int64, badge models.Badge, desc events.Descriptor) bool {
	satisfied, err := s.evaluator.Evaluate(ctx, userID, badge.Criteria)
	if err != nil {
		s.logger.Error("Criteria evaluation failed",
			zap.Int64("user_id", userID),
			zap.Int64("badge_id", badge.ID),
			zap.String("badge_slug", badge.Slug),
			zap.Error(err),
		)
		return false
	}
	if !satisfied {
		return false
	}

	award := &models.UserBadge{
		UserID:       userID,
		BadgeID:      badge.ID,
		EventName:    desc.Name,
		EventPayload: desc.Payload,
	}

	created, err := s.repos.Award.TryAward(ctx, award)
	if err != nil {
		s.logger.Error("Failed to record badge award",
			zap.Int64("user_id", userID),
			zap.Int64("badge_id", badge.ID),
			zap.Error(err),
		)
		return false
	}
	if !created {
		// Already held; the ledger's unique constraint decided.
		return false
	}

	s.publishAward(ctx, award, badge)

	return true
}

// publishAward pushes a BadgeAwarded event onto the in-process bus.
// Notification delivery is best-effort; a publish failure never undoes
// the award.
func (s *badgeService) publishAward(ctx context.Context, award *models.UserBadge, badge models.Badge) {
	if s.bus == nil {
		return
	}

	event := events.BadgeAwarded{
		EventID:    events.GenerateEventID(),
		UserID:     award.UserID,
		BadgeID:    badge.ID,
		BadgeSlug:  badge.Slug,
		BadgeTitle: badge.Title,
		Trigger:    award.EventName,
		Payload:    award.EventPayload,
		AwardedAt:  award.AwardedAt,
	}

	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish badge awarded event",
			zap.Int64("user_id", award.UserID),
			zap.Int64("badge_id", badge.ID),
			zap.Error(err),
		)
	}
}

// ListCatalog implements BadgeService
func (s *badgeService) ListCatalog(ctx context.Context) ([]models.Badge, error) {
	badges, err := s.repos.Badge.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list badge catalog", zap.Error(err))
		return nil, NewInternalError("failed to load badge catalog")
	}
	return badges, nil
}

// GetBadge implements BadgeService
func (s *badgeService) GetBadge(ctx context.Context, id int64) (*models.Badge, error) {
	badge, err := s.repos.Badge.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get badge", zap.Int64("badge_id", id), zap.Error(err))
		return nil, NewInternalError("failed to load badge")
	}
	if badge == nil {
		return nil, EntityNotFoundError("badge", id)
	}
	return badge, nil
}

// ListUserAwards implements BadgeService
func (s *badgeService) ListUserAwards(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	awards, err := s.repos.Award.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list user awards",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, NewInternalError("failed to load awarded badges")
	}
	return awards, nil
}
