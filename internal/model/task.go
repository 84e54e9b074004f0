package model

import (
	"time"

	"github.com/dukerupert/messmate/internal/timeband"
)

// TaskTemplate is one recurring chore kind, pinned to a single period.
type TaskTemplate struct {
	ID               int64           `json:"id"`
	Name             string          `json:"task_name"`
	Period           timeband.Period `json:"time_of_day"`
	Points           float64         `json:"points"`
	DefaultHeadcount int             `json:"default_headcount"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TaskLogEntry records one person's completion of a template on a date.
// A nil UserID means the work was done by someone outside the roster:
// the slot counts as filled but contributes zero points to anyone.
type TaskLogEntry struct {
	ID           int64           `json:"id"`
	CycleID      int64           `json:"cycle_id"`
	TemplateID   int64           `json:"template_id"`
	Date         timeband.Date   `json:"task_date"`
	Period       timeband.Period `json:"time_period"`
	UserID       *int64          `json:"user_id"`
	PointsEarned float64         `json:"points_earned"`
	Notes        string          `json:"notes"`
}
