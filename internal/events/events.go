package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// ===============================
// EVENT VOCABULARY
// ===============================

// The fixed vocabulary of activity events that may trigger badge
// evaluation. External callers must use these names verbatim.
const (
	EventDietChosen     = "diet_chosen"
	EventDietSwitches   = "diet_switches"
	EventDietDuration   = "diet_duration"
	EventShoppingExport = "shopping_exported"
	EventWeightLoss     = "weight_loss"
	EventExperience     = "experience"
)

// KnownEvents lists the full vocabulary in declaration order.
var KnownEvents = []string{
	EventDietChosen,
	EventDietSwitches,
	EventDietDuration,
	EventShoppingExport,
	EventWeightLoss,
	EventExperience,
}

// IsKnownEvent reports whether name belongs to the fixed vocabulary.
// Unknown names are not an error for the evaluator (they simply never
// match), but inbound API payloads are rejected early.
func IsKnownEvent(name string) bool {
	for _, e := range KnownEvents {
		if e == name {
			return true
		}
	}
	return false
}

// ===============================
// EVENT DESCRIPTOR
// ===============================

// Descriptor is the ephemeral input to badge validation: an event name
// from the fixed vocabulary plus a free-form contextual payload (e.g.
// the weight value and date for a weight event). Descriptors are not
// persisted by the engine; the triggering name and payload are copied
// onto any award record they produce.
type Descriptor struct {
	Name    string          `json:"event" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks the descriptor against the fixed vocabulary.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("event name is required")
	}
	if !IsKnownEvent(d.Name) {
		return fmt.Errorf("unknown event name %q", d.Name)
	}
	return nil
}

// GenerateEventID returns a new unique event identifier.
func GenerateEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// NewV4 only fails when the entropy source does; fall back to
		// a timestamp so publishing is never blocked.
		return fmt.Sprintf("evt-%d", time.Now().UnixNano())
	}
	return id.String()
}

// ===============================
// BUS EVENTS
// ===============================

// BadgeAwarded is published on the in-process bus whenever the award
// ledger creates a new award record. The notification hub subscribes
// to push unlocks to connected clients.
type BadgeAwarded struct {
	EventID    string          `json:"event_id"`
	UserID     int64           `json:"user_id"`
	BadgeID    int64           `json:"badge_id"`
	BadgeSlug  string          `json:"badge_slug"`
	BadgeTitle string          `json:"badge_title"`
	Trigger    string          `json:"trigger"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	AwardedAt  time.Time       `json:"awarded_at"`
}

// Type returns the bus topic for awarded badges.
func (BadgeAwarded) Type() string { return TypeBadgeAwarded }

// TypeBadgeAwarded is the bus topic name for BadgeAwarded events.
const TypeBadgeAwarded = "badge.awarded"
