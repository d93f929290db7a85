package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the current health status of the database
type HealthStatus struct {
	Status          string                 `json:"status"`
	Timestamp       time.Time              `json:"timestamp"`
	ResponseTime    time.Duration          `json:"response_time"`
	ConnectionCount int                    `json:"connection_count"`
	Errors          []string               `json:"errors,omitempty"`
	Details         map[string]interface{} `json:"details"`
}

// Health check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusStarting  = "starting"
	StatusShutdown  = "shutdown"
)

// HealthChecker monitors database health. Badge validation is gated on
// the last known status so a dead database short-circuits requests
// instead of timing out query by query.
type HealthChecker struct {
	manager *Manager
	logger  *zap.Logger

	mu        sync.RWMutex
	isActive  int32
	lastCheck time.Time
	status    *HealthStatus

	stopCh  chan struct{}
	stopped chan struct{}

	checkInterval   time.Duration
	timeoutDuration time.Duration
	criticalTables  []string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(manager *Manager, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		manager:         manager,
		logger:          logger,
		isActive:        1,
		checkInterval:   30 * time.Second,
		timeoutDuration: 10 * time.Second,
		criticalTables:  []string{"badges", "user_badges"},
		stopCh:          make(chan struct{}),
		stopped:         make(chan struct{}),
	}
}

// Check performs a health check and caches the result
func (hc *HealthChecker) Check(ctx context.Context) *HealthStatus {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return &HealthStatus{
			Status:    StatusShutdown,
			Timestamp: time.Now(),
			Errors:    []string{"health checker is shutdown"},
			Details:   make(map[string]interface{}),
		}
	}

	start := time.Now()
	status := &HealthStatus{
		Timestamp: start,
		Details:   make(map[string]interface{}),
		Errors:    make([]string, 0),
	}

	ctx, cancel := context.WithTimeout(ctx, hc.timeoutDuration)
	defer cancel()

	if err := hc.checkConnectivity(ctx, status); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("connectivity: %v", err))
	}

	hc.checkConnectionPool(status)

	if err := hc.checkTableAccess(ctx, status); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("table access: %v", err))
	}

	status.ResponseTime = time.Since(start)
	status.Status = hc.determineOverallStatus(status)

	hc.mu.Lock()
	hc.status = status
	hc.lastCheck = time.Now()
	hc.mu.Unlock()

	if status.Status != StatusHealthy {
		hc.logger.Warn("Database health check failed",
			zap.String("status", status.Status),
			zap.Strings("errors", status.Errors),
			zap.Duration("response_time", status.ResponseTime),
		)
	}

	return status
}

// checkConnectivity tests basic database connectivity
func (hc *HealthChecker) checkConnectivity(ctx context.Context, status *HealthStatus) error {
	start := time.Now()
	err := hc.manager.DB().PingContext(ctx)
	pingDuration := time.Since(start)

	status.Details["ping_duration_ms"] = pingDuration.Milliseconds()
	status.Details["ping_success"] = err == nil

	if pingDuration > 500*time.Millisecond {
		status.Details["ping_warning"] = "slow ping response"
	}

	return err
}

// checkConnectionPool analyzes connection pool health
func (hc *HealthChecker) checkConnectionPool(status *HealthStatus) {
	stats := hc.manager.DB().Stats()

	status.ConnectionCount = stats.OpenConnections
	status.Details["connection_pool"] = map[string]interface{}{
		"max_open":         stats.MaxOpenConnections,
		"open":             stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration_ms": stats.WaitDuration.Milliseconds(),
	}

	if stats.MaxOpenConnections > 0 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		if utilization > 0.8 {
			status.Details["connection_warning"] = "high connection utilization"
		}
	}
}

// checkTableAccess verifies the engine's critical tables are reachable
func (hc *HealthChecker) checkTableAccess(ctx context.Context, status *HealthStatus) error {
	tableStatus := make(map[string]bool)

	for _, table := range hc.criticalTables {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s LIMIT 1", table)
		err := hc.manager.DB().QueryRowContext(ctx, query).Scan(&count)

		tableStatus[table] = err == nil

		if err != nil {
			hc.logger.Error("Failed to access critical table",
				zap.String("table", table),
				zap.Error(err),
			)
			return fmt.Errorf("cannot access table %s: %w", table, err)
		}
	}

	status.Details["table_access"] = tableStatus
	return nil
}

// determineOverallStatus calculates the overall health status
func (hc *HealthChecker) determineOverallStatus(status *HealthStatus) string {
	if len(status.Errors) > 0 {
		return StatusUnhealthy
	}

	if status.ResponseTime > 1*time.Second {
		return StatusDegraded
	}

	for key := range status.Details {
		if key == "ping_warning" || key == "connection_warning" {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

// StartMonitoring begins background health monitoring (call after the
// database is known reachable).
func (hc *HealthChecker) StartMonitoring() {
	if atomic.LoadInt32(&hc.isActive) == 1 {
		go hc.startPeriodicChecks()
		hc.logger.Info("Background database health monitoring started",
			zap.Duration("interval", hc.checkInterval))
	}
}

func (hc *HealthChecker) startPeriodicChecks() {
	defer close(hc.stopped)

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt32(&hc.isActive) == 0 {
				return
			}

			hc.mu.RLock()
			var lastStatus string
			if hc.status != nil {
				lastStatus = hc.status.Status
			}
			hc.mu.RUnlock()

			ctx, cancel := context.WithTimeout(context.Background(), hc.timeoutDuration)
			status := hc.Check(ctx)
			cancel()

			if status.Status != lastStatus && lastStatus != "" {
				hc.logger.Info("Database health status changed",
					zap.String("from", lastStatus),
					zap.String("to", status.Status),
					zap.Duration("response_time", status.ResponseTime),
				)
			}

		case <-hc.stopCh:
			return
		}
	}
}

// Stop stops the health checker and waits for the background loop.
func (hc *HealthChecker) Stop() {
	if !atomic.CompareAndSwapInt32(&hc.isActive, 1, 0) {
		return
	}

	close(hc.stopCh)

	select {
	case <-hc.stopped:
		hc.logger.Info("Health checker stopped")
	case <-time.After(5 * time.Second):
		hc.logger.Warn("Health checker stop timeout")
	}
}

// GetLastStatus returns the last cached health status
func (hc *HealthChecker) GetLastStatus() *HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	if hc.status == nil {
		return &HealthStatus{
			Status:    StatusStarting,
			Timestamp: time.Now(),
			Errors:    []string{"no health check performed yet"},
			Details:   make(map[string]interface{}),
		}
	}

	return hc.status
}

// IsHealthy returns true if the database is healthy
func (hc *HealthChecker) IsHealthy() bool {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return false
	}
	return hc.GetLastStatus().Status == StatusHealthy
}

// WaitForHealthy blocks until the database reports healthy or the
// timeout expires.
func (hc *HealthChecker) WaitForHealthy(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database to become healthy: %w", ctx.Err())
		case <-ticker.C:
			checkCtx, checkCancel := context.WithTimeout(ctx, hc.timeoutDuration)
			status := hc.Check(checkCtx)
			checkCancel()

			if status.Status == StatusHealthy {
				return nil
			}
		}
	}
}
