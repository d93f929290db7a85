package badges

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"dietly/internal/contextutils"
	"dietly/internal/events"
	"dietly/internal/response"
	"dietly/internal/services"
	"dietly/internal/validation"

	"github.com/go-chi/chi/v5"
)

// maxRequestBody caps validate request bodies; event payloads are
// small contextual JSON, not uploads.
const maxRequestBody = 64 * 1024

// BadgeController handles the badge engine API endpoints
type BadgeController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
}

// NewBadgeController creates a new badge API controller
func NewBadgeController(
	serviceCollection *services.ServiceCollection,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) *BadgeController {
	return &BadgeController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
	}
}

// ===============================
// REQUEST TYPES
// ===============================

// ValidateRequest accepts either a single event or a batch. Exactly one
// of the two forms must be used.
type ValidateRequest struct {
	Event   string              `json:"event,omitempty"`
	Payload json.RawMessage     `json:"payload,omitempty"`
	Events  []events.Descriptor `json:"events,omitempty" validate:"omitempty,dive"`
}

// descriptors normalizes both request forms into a batch.
func (req *ValidateRequest) descriptors() []events.Descriptor {
	if len(req.Events) > 0 {
		return req.Events
	}
	if req.Event != "" {
		return []events.Descriptor{{Name: req.Event, Payload: req.Payload}}
	}
	return nil
}

// ===============================
// HANDLERS
// ===============================

// ValidateBadges evaluates the caller's activity events against the
// badge catalog and awards anything newly earned.
// POST /api/v1/badges/validate
func (c *BadgeController) ValidateBadges(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	var req ValidateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	if fields, err := validation.ValidateStruct(&req); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewInternalError(err.Error()))
		return
	} else if len(fields) > 0 {
		c.responseBuilder.WriteValidationError(w, r, "request validation failed", toResponseFields(fields))
		return
	}

	descriptors := req.descriptors()
	if len(descriptors) == 0 {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("either 'event' or 'events' must be provided", nil))
		return
	}

	result, err := c.serviceCollection.BadgeService.ValidateEvents(r.Context(), userID, descriptors)
	if err != nil {
		c.handleServiceError(w, r, err, "validate badges")
		return
	}

	c.responseBuilder.WriteSuccess(w, r, result)
}

// ListCatalog returns the full badge catalog ordered by weight.
// GET /api/v1/badges
func (c *BadgeController) ListCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := c.serviceCollection.BadgeService.ListCatalog(r.Context())
	if err != nil {
		c.handleServiceError(w, r, err, "list catalog")
		return
	}

	c.responseBuilder.WriteSuccess(w, r, catalog)
}

// GetBadge returns a single catalog entry.
// GET /api/v1/badges/{id}
func (c *BadgeController) GetBadge(w http.ResponseWriter, r *http.Request) {
	badgeID, err := c.badgeIDFromURL(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid badge ID", err))
		return
	}

	badge, err := c.serviceCollection.BadgeService.GetBadge(r.Context(), badgeID)
	if err != nil {
		c.handleServiceError(w, r, err, "get badge")
		return
	}

	c.responseBuilder.WriteSuccess(w, r, badge)
}

// ListUserAwards returns the caller's earned badges, newest first.
// GET /api/v1/badges/awards
func (c *BadgeController) ListUserAwards(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())
	if userID == 0 {
		c.responseBuilder.WriteError(w, r, services.NewUnauthorizedError("authentication required"))
		return
	}

	awards, err := c.serviceCollection.BadgeService.ListUserAwards(r.Context(), userID)
	if err != nil {
		c.handleServiceError(w, r, err, "list user awards")
		return
	}

	c.responseBuilder.WriteSuccess(w, r, awards)
}

// UploadIcon replaces a badge's icon asset.
// POST /api/v1/badges/{id}/icon
func (c *BadgeController) UploadIcon(w http.ResponseWriter, r *http.Request) {
	badgeID, err := c.badgeIDFromURL(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid badge ID", err))
		return
	}

	maxSize := c.serviceCollection.Config.Cloudinary.MaxFileSize
	if err := r.ParseMultipartForm(maxSize); err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("invalid multipart form", err))
		return
	}

	file, header, err := r.FormFile("icon")
	if err != nil {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("icon file is required", err))
		return
	}
	defer file.Close()

	result, err := c.serviceCollection.IconService.UploadIcon(r.Context(), &services.IconUploadRequest{
		BadgeID:  badgeID,
		File:     file,
		Filename: header.Filename,
		Size:     header.Size,
	})
	if err != nil {
		c.handleServiceError(w, r, err, "upload icon")
		return
	}

	c.responseBuilder.WriteCreated(w, r, result)
}

// ===============================
// HELPERS
// ===============================

func (c *BadgeController) badgeIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// handleServiceError writes the error response and logs unexpected
// failures with operation context.
func (c *BadgeController) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if !services.IsServiceError(err) {
		c.logger.Error("Unexpected handler error",
			zap.String("operation", operation),
			zap.String("request_id", contextutils.GetRequestID(r.Context())),
			zap.Error(err),
		)
	}

	c.responseBuilder.WriteError(w, r, err)
}

func toResponseFields(fields []validation.FieldError) []response.FieldError {
	out := make([]response.FieldError, len(fields))
	for i, f := range fields {
		out[i] = response.FieldError{
			Field:   f.Field,
			Message: f.Message,
			Code:    f.Rule,
		}
	}
	return out
}
