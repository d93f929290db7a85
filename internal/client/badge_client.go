package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dietly/internal/events"
	"dietly/internal/models"
	"dietly/internal/notify"

	"go.uber.org/zap"
)

// BadgeClient triggers badge validation from the rest of the
// application. Validation is a side quest of whatever the user was
// doing: any failure is logged and swallowed, and the caller's
// deferred action runs regardless, so a broken badge engine never
// breaks a diet switch or a shopping export.
type BadgeClient struct {
	baseURL    string
	httpClient *http.Client
	queue      *notify.Queue
	logger     *zap.Logger

	// tokenFn supplies the bearer token for the calling user.
	tokenFn func(ctx context.Context) string

	// run handles deferred actions when no queue is wired.
	run func(notify.DeferredAction)
}

// ClientConfig holds badge client configuration.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	TokenFn func(ctx context.Context) string

	// ActionRunner receives deferred actions directly when the client
	// has no deferral queue.
	ActionRunner func(notify.DeferredAction)
}

// NewBadgeClient creates a new badge validation client
func NewBadgeClient(config *ClientConfig, queue *notify.Queue, logger *zap.Logger) *BadgeClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := 10 * time.Second
	if config.Timeout > 0 {
		timeout = config.Timeout
	}

	return &BadgeClient{
		baseURL:    config.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		queue:      queue,
		logger:     logger,
		tokenFn:    config.TokenFn,
		run:        config.ActionRunner,
	}
}

// validateRequest is the wire format of a validation trigger.
type validateRequest struct {
	Event   string              `json:"event,omitempty"`
	Payload json.RawMessage     `json:"payload,omitempty"`
	Events  []events.Descriptor `json:"events,omitempty"`
}

// validateResponse mirrors the API envelope around ValidationResult.
type validateResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Count  int            `json:"count"`
		Badges []models.Badge `json:"badges"`
	} `json:"data"`
}

// TriggerBadgeValidation validates a single activity event and hands
// any newly awarded badges to the deferral queue together with the
// follow-up action.
func (c *BadgeClient) TriggerBadgeValidation(ctx context.Context, event events.Descriptor, action notify.DeferredAction) {
	c.trigger(ctx, validateRequest{Event: event.Name, Payload: event.Payload}, action)
}

// TriggerBatchBadgeValidation validates several activity events in one
// request.
func (c *BadgeClient) TriggerBatchBadgeValidation(ctx context.Context, descriptors []events.Descriptor, action notify.DeferredAction) {
	c.trigger(ctx, validateRequest{Events: descriptors}, action)
}

func (c *BadgeClient) trigger(ctx context.Context, payload validateRequest, action notify.DeferredAction) {
	badges, err := c.post(ctx, payload)
	if err != nil {
		c.logger.Warn("Badge validation trigger failed",
			zap.String("event", payload.Event),
			zap.Int("batch_size", len(payload.Events)),
			zap.Error(err),
		)
		// The follow-up still runs; only the badge presentation is lost.
		c.enqueue(nil, action)
		return
	}

	c.enqueue(badges, action)
}

func (c *BadgeClient) enqueue(badges []models.Badge, action notify.DeferredAction) {
	if c.queue != nil {
		c.queue.Enqueue(badges, action)
		return
	}

	// No queue wired; hand the action to the fallback runner.
	if c.run != nil {
		c.run(action)
		return
	}

	// Without a runner only callbacks can execute; reload and redirect
	// need a presentation layer to carry them out.
	if cb, ok := action.(notify.CallbackAction); ok && cb.Fn != nil {
		cb.Fn()
	}
}

func (c *BadgeClient) post(ctx context.Context, payload validateRequest) ([]models.Badge, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode validation request: %w", err)
	}

	url := c.baseURL + "/api/v1/badges/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build validation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.tokenFn != nil {
		if token := c.tokenFn(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validation request returned status %d", resp.StatusCode)
	}

	var decoded validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode validation response: %w", err)
	}

	return decoded.Data.Badges, nil
}
