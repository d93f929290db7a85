// Package docs contains Swagger documentation for the badge engine API
package docs

// This file contains all Swagger endpoint documentation
// Import this in your main.go with: _ "dietly/internal/docs"

// HealthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API and its dependencies
// @Tags System
// @Produce json
// @Success 200 {object} HealthCheckResponse "API is healthy"
// @Failure 503 {object} HealthCheckResponse "A critical dependency is down"
// @Router /health [get]
func _() {}

// ValidateBadges godoc
// @Summary Validate activity events against the badge catalog
// @Description Evaluates one event or a batch of events for the authenticated user and awards any badge whose criteria are now satisfied. Already-held badges are never re-awarded.
// @Tags Badges
// @Accept json
// @Produce json
// @Param validateRequest body ValidateRequest true "Event or batch of events"
// @Success 200 {object} ValidateResponse "Newly awarded badges"
// @Failure 400 {object} ErrorResponse "Invalid request or too many events"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Failure 429 {object} ErrorResponse "Validation requested too recently"
// @Failure 503 {object} ErrorResponse "Award storage is unavailable"
// @Security BearerAuth
// @Router /api/v1/badges/validate [post]
func _() {}

// ListCatalog godoc
// @Summary List the badge catalog
// @Description Returns all badges ordered by weight (descending)
// @Tags Badges
// @Produce json
// @Success 200 {object} APIResponse "Badge catalog"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Security BearerAuth
// @Router /api/v1/badges [get]
func _() {}

// GetBadge godoc
// @Summary Get a single badge
// @Tags Badges
// @Produce json
// @Param id path int true "Badge ID"
// @Success 200 {object} APIResponse "Badge"
// @Failure 404 {object} ErrorResponse "Badge not found"
// @Security BearerAuth
// @Router /api/v1/badges/{id} [get]
func _() {}

// ListUserAwards godoc
// @Summary List the caller's earned badges
// @Description Returns the authenticated user's awards, newest first
// @Tags Badges
// @Produce json
// @Success 200 {object} APIResponse "Earned badges"
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Security BearerAuth
// @Router /api/v1/badges/awards [get]
func _() {}

// UploadIcon godoc
// @Summary Upload a badge icon
// @Description Replaces the icon asset of a catalog badge. Admin only.
// @Tags Badges
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Badge ID"
// @Param icon formData file true "Icon image (png, jpg, svg, webp)"
// @Success 201 {object} APIResponse "Uploaded icon details"
// @Failure 400 {object} ErrorResponse "Invalid file"
// @Failure 403 {object} ErrorResponse "Insufficient permissions"
// @Failure 404 {object} ErrorResponse "Badge not found"
// @Security BearerAuth
// @Router /api/v1/badges/{id}/icon [post]
func _() {}
