package docs

import (
	"encoding/json"
	"time"
)

// APIResponse is the standard response format for all API responses
type APIResponse struct {
	Success   bool        `json:"success" example:"true"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id" example:"9f2b8f0e-5f1a-4c9f-9a3e-2f1b8c0d7e6a"`
	Timestamp int64       `json:"timestamp" example:"1717171717"`
	Version   string      `json:"version" example:"v1"`
}

// ErrorResponse represents an error response envelope
type ErrorResponse struct {
	Success bool        `json:"success" example:"false"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the error body of an ErrorResponse
type ErrorDetail struct {
	Type    string `json:"type" example:"VALIDATION_ERROR"`
	Message string `json:"message" example:"invalid request body"`
	Code    string `json:"code,omitempty"`
}

// ValidateRequest accepts a single event or a batch
type ValidateRequest struct {
	// Single event name, mutually exclusive with events
	Event string `json:"event,omitempty" example:"diet_chosen"`
	// Contextual payload for the single event
	Payload json.RawMessage `json:"payload,omitempty"`
	// Batch form
	Events []EventDescriptor `json:"events,omitempty"`
}

// EventDescriptor is one activity event in a batch
type EventDescriptor struct {
	Event   string          `json:"event" example:"weight_loss"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ValidateResponse wraps the validation result
type ValidateResponse struct {
	Success bool             `json:"success" example:"true"`
	Data    ValidationResult `json:"data"`
}

// ValidationResult lists newly awarded badges
type ValidationResult struct {
	Count  int           `json:"count" example:"1"`
	Badges []interface{} `json:"badges"`
}

// HealthCheckResponse represents the health check response
type HealthCheckResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp" example:"2026-01-15T10:30:00Z"`
	Services  map[string]string `json:"services,omitempty"`
}
