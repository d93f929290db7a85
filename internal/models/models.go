package models

import (
	"time"
)

// ===============================
// USERS & PROFILES
// ===============================

// User represents a registered account. Authentication flows live in a
// separate service; this application only needs the identity row.
type User struct {
	ID          int64      `json:"id" db:"id"`
	Username    string     `json:"username" db:"username"`
	Email       string     `json:"email" db:"email"`
	Role        string     `json:"role" db:"role"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
}

// UserProfile holds onboarding body metrics. WeightStartKg is the
// baseline for weight-loss badge evaluation.
type UserProfile struct {
	UserID        int64      `json:"user_id" db:"user_id"`
	WeightStartKg float64    `json:"weight_start_kg" db:"weight_start_kg"`
	WeightGoalKg  *float64   `json:"weight_goal_kg,omitempty" db:"weight_goal_kg"`
	HeightCm      *float64   `json:"height_cm,omitempty" db:"height_cm"`
	BirthYear     *int       `json:"birth_year,omitempty" db:"birth_year"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ===============================
// DIET TRACKING
// ===============================

// DietPlan is a catalog diet a user can follow.
type DietPlan struct {
	ID          int64     `json:"id" db:"id"`
	Slug        string    `json:"slug" db:"slug"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserDiet records a user adopting a diet plan. A user has at most one
// active diet at a time; switching deactivates the previous row and
// inserts a new one, so the row count doubles as the switch count.
type UserDiet struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	DietPlanID int64     `json:"diet_plan_id" db:"diet_plan_id"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	Active     bool      `json:"active" db:"active"`
}

// WeightEntry is one logged weight measurement.
type WeightEntry struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	WeightKg   float64   `json:"weight_kg" db:"weight_kg"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// ExperienceEntry is a snapshot of a user's cumulative experience
// points. The latest row per user is the authoritative total.
type ExperienceEntry struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	PointsTotal int64     `json:"points_total" db:"points_total"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
