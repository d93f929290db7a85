package repositories

import (
	"context"
	"fmt"
	"time"

	"dietly/internal/cache"
	"dietly/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Badge BadgeRepository
	Award AwardRepository
	Fact  FactRepository

	// Database and logger for custom operations
	db     *database.Manager
	logger *zap.Logger
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	CatalogCacheTTL time.Duration
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, c cache.Cache, logger *zap.Logger, config *RepositoryConfig) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	if config == nil {
		config = &RepositoryConfig{
			CatalogCacheTTL: 5 * time.Minute,
		}
	}

	collection := &Collection{
		db:     db,
		logger: logger,
	}

	collection.Badge = NewBadgeRepository(db, c, config.CatalogCacheTTL, logger)
	collection.Award = NewAwardRepository(db, logger)
	collection.Fact = NewFactRepository(db, logger)

	logger.Info("Repository collection initialized successfully",
		zap.Duration("catalog_cache_ttl", config.CatalogCacheTTL),
	)

	return collection, nil
}

// ===============================
// HEALTH AND MONITORING
// ===============================

// HealthCheck performs health checks on the database and repositories
func (c *Collection) HealthCheck(ctx context.Context) map[string]interface{} {
	health := make(map[string]interface{})

	dbHealth := c.db.Health(ctx)
	health["database"] = map[string]interface{}{
		"status":        dbHealth.Status,
		"response_time": dbHealth.ResponseTime,
		"errors":        dbHealth.Errors,
	}

	health["repositories"] = map[string]interface{}{
		"badge": c.testRepositoryHealth(ctx, "badges", func() error {
			_, err := c.Badge.ListAll(ctx)
			return err
		}),
		"award": c.testRepositoryHealth(ctx, "user_badges", func() error {
			_, err := c.Award.CountByUser(ctx, 0)
			return err
		}),
	}

	metrics := c.db.Metrics()
	health["performance"] = map[string]interface{}{
		"query_count":        metrics.QueryCount,
		"error_count":        metrics.ErrorCount,
		"slow_query_count":   metrics.SlowQueryCount,
		"avg_query_duration": metrics.AvgQueryDuration,
	}

	return health
}

// testRepositoryHealth runs a test operation for a repository
func (c *Collection) testRepositoryHealth(ctx context.Context, name string, testFn func() error) map[string]interface{} {
	start := time.Now()
	err := testFn()
	duration := time.Since(start)

	result := map[string]interface{}{
		"duration": duration,
		"healthy":  err == nil,
	}

	if err != nil {
		result["error"] = err.Error()
		c.logger.Warn("Repository health check failed",
			zap.String("repository", name),
			zap.Error(err),
			zap.Duration("duration", duration),
		)
	}

	return result
}

// GetDB returns the underlying database manager for advanced operations
func (c *Collection) GetDB() *database.Manager {
	return c.db
}

// GetLogger returns the logger instance
func (c *Collection) GetLogger() *zap.Logger {
	return c.logger
}

// Close closes all repository connections and cleans up resources
func (c *Collection) Close() error {
	c.logger.Info("Closing repository collection")

	if c.db != nil {
		return c.db.Close()
	}

	return nil
}
