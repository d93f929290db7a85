package services

import (
	"context"
	"fmt"

	"dietly/internal/cache"
	"dietly/internal/config"
	"dietly/internal/database"
	"dietly/internal/events"
	"dietly/internal/repositories"

	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"
)

// ServiceCollection holds all services with dependency injection
type ServiceCollection struct {
	// Core services
	BadgeService BadgeService `json:"-"`
	IconService  IconService  `json:"-"`

	// Repository collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure components
	Cache      cache.Cache         `json:"-"`
	Cooldown   cache.CooldownStore `json:"-"`
	EventBus   events.Bus          `json:"-"`
	Logger     *zap.Logger         `json:"-"`
	Config     *config.Config      `json:"-"`
	DBManager  *database.Manager   `json:"-"`
	Cloudinary *cloudinary.Cloudinary `json:"-"`
}

// NewServiceCollection creates a new service collection, wiring
// components in dependency order.
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sc := &ServiceCollection{
		DBManager: dbManager,
		Config:    cfg,
		Logger:    logger,
	}

	if err := sc.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := sc.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	sc.initializeServices()

	logger.Info("Service collection initialized successfully")

	return sc, nil
}

// initializeInfrastructure sets up cache, event bus and Cloudinary
func (sc *ServiceCollection) initializeInfrastructure() error {
	cacheConfig := &cache.Config{
		Provider:      sc.Config.Cache.Provider,
		TTL:           sc.Config.Cache.TTL,
		RedisURL:      sc.Config.Cache.RedisURL,
		RedisDB:       sc.Config.Cache.RedisDB,
		RedisPassword: sc.Config.Cache.RedisPassword,
		PoolSize:      sc.Config.Cache.PoolSize,
	}

	c, err := cache.NewCache(cacheConfig, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = c

	sc.Cooldown = cache.NewCooldownStore(
		sc.Cache,
		sc.Config.Badges.ValidateCooldown,
		"badges:validate",
		sc.Logger,
	)

	sc.EventBus = events.NewInMemoryBus(events.DefaultBusConfig(), sc.Logger)

	if sc.Config.Cloudinary.CloudName != "" {
		cld, err := cloudinary.NewFromParams(
			sc.Config.Cloudinary.CloudName,
			sc.Config.Cloudinary.APIKey,
			sc.Config.Cloudinary.APISecret,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudinary: %w", err)
		}
		sc.Cloudinary = cld
	}

	return nil
}

// initializeRepositories sets up the repository layer
func (sc *ServiceCollection) initializeRepositories() error {
	repoConfig := &repositories.RepositoryConfig{
		CatalogCacheTTL: sc.Config.Cache.CatalogTTL,
	}

	repos, err := repositories.NewCollection(sc.DBManager, sc.Cache, sc.Logger, repoConfig)
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}
	sc.Repositories = repos

	return nil
}

// initializeServices sets up the service layer
func (sc *ServiceCollection) initializeServices() {
	evaluator := NewCriteriaEvaluator(sc.Repositories.Fact, sc.Logger)

	sc.BadgeService = NewBadgeService(
		sc.Repositories,
		evaluator,
		sc.EventBus,
		sc.DBManager.HealthChecker(),
		sc.Logger,
		&BadgeServiceConfig{MaxBatchSize: sc.Config.Badges.MaxBatchSize},
	)

	sc.IconService = NewIconService(
		sc.Cloudinary,
		sc.Repositories.Badge,
		&sc.Config.Cloudinary,
		sc.Logger,
	)
}

// HealthCheck reports the health of the collection's dependencies
func (sc *ServiceCollection) HealthCheck(ctx context.Context) map[string]interface{} {
	health := sc.Repositories.HealthCheck(ctx)

	if err := sc.Cache.Health(ctx); err != nil {
		health["cache"] = map[string]interface{}{"healthy": false, "error": err.Error()}
	} else {
		health["cache"] = map[string]interface{}{"healthy": true}
	}

	health["event_bus"] = sc.EventBus.Stats()

	return health
}

// Shutdown stops background components in reverse dependency order
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	if sc.EventBus != nil {
		if err := sc.EventBus.Stop(ctx); err != nil {
			sc.Logger.Warn("Event bus shutdown failed", zap.Error(err))
		}
	}

	if sc.Cache != nil {
		if err := sc.Cache.Close(); err != nil {
			sc.Logger.Warn("Cache shutdown failed", zap.Error(err))
		}
	}

	return nil
}
