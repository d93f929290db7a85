package models

import (
	"encoding/json"
	"time"
)

// ===============================
// CRITERIA DESCRIPTOR
// ===============================

// CriteriaOperator is one of the five comparison operators a badge
// criteria may declare. The zero value means "use the default" (gte).
type CriteriaOperator string

const (
	OpGTE CriteriaOperator = "gte"
	OpGT  CriteriaOperator = "gt"
	OpEQ  CriteriaOperator = "eq"
	OpLTE CriteriaOperator = "lte"
	OpLT  CriteriaOperator = "lt"
)

// IsValid reports whether the operator is part of the closed set.
func (op CriteriaOperator) IsValid() bool {
	switch op {
	case OpGTE, OpGT, OpEQ, OpLTE, OpLT:
		return true
	}
	return false
}

// BadgeCriteria is the declarative unlock rule attached to a badge.
// Which threshold fields are meaningful depends on the event: count for
// adoption events, DurationDays for diet_duration, Threshold for
// weight_loss and experience.
type BadgeCriteria struct {
	Event        string           `json:"event" db:"criteria_event"`
	Operator     CriteriaOperator `json:"operator,omitempty" db:"criteria_operator"`
	Count        *int64           `json:"count,omitempty" db:"criteria_count"`
	Threshold    *float64         `json:"threshold,omitempty" db:"criteria_threshold"`
	DurationDays *int64           `json:"duration_days,omitempty" db:"criteria_duration_days"`
	Distinct     bool             `json:"distinct,omitempty" db:"criteria_distinct"`
	Meta         json.RawMessage  `json:"meta,omitempty" db:"criteria_meta"`
}

// EffectiveOperator returns the declared operator, defaulting to gte.
func (c BadgeCriteria) EffectiveOperator() CriteriaOperator {
	if c.Operator.IsValid() {
		return c.Operator
	}
	return OpGTE
}

// ===============================
// CATALOG ENTRY
// ===============================

// Badge represents an immutable achievement catalog entry. Badges are
// seeded via migrations and administered out-of-band; the award engine
// only reads them.
type Badge struct {
	ID          int64         `json:"id" db:"id"`
	Slug        string        `json:"slug" db:"slug"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	Icon        string        `json:"icon" db:"icon"`
	Color       string        `json:"color,omitempty" db:"color"`
	Criteria    BadgeCriteria `json:"criteria" db:"-"`
	Weight      int           `json:"weight" db:"weight"`
	Visible     bool          `json:"visible" db:"visible"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty" db:"updated_at"`
}

// ===============================
// AWARD RECORD
// ===============================

// UserBadge records that one user has earned one badge. At most one
// row may ever exist per (user, badge) pair; the badges store enforces
// this with a unique constraint and insert-or-ignore semantics.
type UserBadge struct {
	ID           int64           `json:"id" db:"id"`
	UserID       int64           `json:"user_id" db:"user_id"`
	BadgeID      int64           `json:"badge_id" db:"badge_id"`
	AwardedAt    time.Time       `json:"awarded_at" db:"awarded_at"`
	EventName    string          `json:"event_name" db:"event_name"`
	EventPayload json.RawMessage `json:"event_payload,omitempty" db:"event_payload"`

	// Joined catalog data, populated on reads
	Badge *Badge `json:"badge,omitempty" db:"-"`
}
