package model

import "github.com/dukerupert/messmate/internal/timeband"

// AvailabilityRow marks one member as available for one weekday/period
// combination. The same shape serves both the live grid and the
// per-cycle snapshot taken at lock time.
type AvailabilityRow struct {
	UserID    int64           `json:"user_id"`
	DayOfWeek int             `json:"day_of_week"` // 0=Sunday … 6=Saturday
	Period    timeband.Period `json:"time_of_day"`
}
