package badges

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dietly/internal/contextutils"
	"dietly/internal/events"
	"dietly/internal/models"
	"dietly/internal/response"
	"dietly/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBadgeService returns canned results for controller tests.
type fakeBadgeService struct {
	result      *services.ValidationResult
	validateErr error
	catalog     []models.Badge

	lastUserID int64
	lastBatch  []events.Descriptor
}

func (f *fakeBadgeService) ValidateEvents(ctx context.Context, userID int64, descriptors []events.Descriptor) (*services.ValidationResult, error) {
	f.lastUserID = userID
	f.lastBatch = descriptors
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.result, nil
}

func (f *fakeBadgeService) ListCatalog(ctx context.Context) ([]models.Badge, error) {
	return f.catalog, nil
}

func (f *fakeBadgeService) GetBadge(ctx context.Context, id int64) (*models.Badge, error) {
	for i := range f.catalog {
		if f.catalog[i].ID == id {
			return &f.catalog[i], nil
		}
	}
	return nil, services.EntityNotFoundError("badge", id)
}

func (f *fakeBadgeService) ListUserAwards(ctx context.Context, userID int64) ([]models.UserBadge, error) {
	return nil, nil
}

func newTestController(service services.BadgeService) *BadgeController {
	logger, _ := zap.NewDevelopment()
	builder := response.NewBuilder(response.DefaultConfig(), logger)
	sc := &services.ServiceCollection{BadgeService: service, Logger: logger}
	return NewBadgeController(sc, builder, logger)
}

func authedRequest(method, target, body string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(contextutils.WithUserID(req.Context(), 7))
}

func TestValidateBadgesRequiresAuthentication(t *testing.T) {
	controller := newTestController(&fakeBadgeService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/badges/validate",
		strings.NewReader(`{"event":"diet_chosen"}`))
	rec := httptest.NewRecorder()

	controller.ValidateBadges(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateBadgesSingleEvent(t *testing.T) {
	service := &fakeBadgeService{
		result: &services.ValidationResult{
			Count:  1,
			Badges: []models.Badge{{ID: 1, Slug: "first-diet"}},
		},
	}
	controller := newTestController(service)

	req := authedRequest(http.MethodPost, "/api/v1/badges/validate",
		`{"event":"diet_chosen","payload":{"diet_id":3}}`)
	rec := httptest.NewRecorder()

	controller.ValidateBadges(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), service.lastUserID)
	require.Len(t, service.lastBatch, 1)
	assert.Equal(t, "diet_chosen", service.lastBatch[0].Name)

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, 1, envelope.Data.Count)
}

func TestValidateBadgesBatchForm(t *testing.T) {
	service := &fakeBadgeService{
		result: &services.ValidationResult{Badges: []models.Badge{}},
	}
	controller := newTestController(service)

	req := authedRequest(http.MethodPost, "/api/v1/badges/validate",
		`{"events":[{"event":"diet_chosen"},{"event":"shopping_exported"}]}`)
	rec := httptest.NewRecorder()

	controller.ValidateBadges(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, service.lastBatch, 2)
}

func TestValidateBadgesRejectsEmptyRequest(t *testing.T) {
	controller := newTestController(&fakeBadgeService{})

	req := authedRequest(http.MethodPost, "/api/v1/badges/validate", `{}`)
	rec := httptest.NewRecorder()

	controller.ValidateBadges(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateBadgesRejectsMalformedJSON(t *testing.T) {
	controller := newTestController(&fakeBadgeService{})

	req := authedRequest(http.MethodPost, "/api/v1/badges/validate", `{"event":`)
	rec := httptest.NewRecorder()

	controller.ValidateBadges(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateBadgesMapsServiceUnavailable(t *testing.T) {
	controller := newTestController(&fakeBadgeService{
		validateErr: services.NewServiceUnavailableError("badge validation is temporarily unavailable"),
	})

	req := authedRequest(http.MethodPost, "/api/v1/badges/validate", `{"event":"diet_chosen"}`)
	rec := httptest.NewRecorder()

	controller.ValidateBadges(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListCatalog(t *testing.T) {
	controller := newTestController(&fakeBadgeService{
		catalog: []models.Badge{{ID: 1, Slug: "first-diet"}, {ID: 2, Slug: "week-streak"}},
	})

	req := authedRequest(http.MethodGet, "/api/v1/badges", "")
	rec := httptest.NewRecorder()

	controller.ListCatalog(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []models.Badge `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
}

func TestListUserAwardsRequiresAuthentication(t *testing.T) {
	controller := newTestController(&fakeBadgeService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges/awards", nil)
	rec := httptest.NewRecorder()

	controller.ListUserAwards(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
