package model

// CycleTarget is one member's point objective for one cycle.
// WeightPercent is only meaningful in Legacy mode (Group mode writes 0).
// CreditsEarned flips to 1 once the member's logged points reach
// max(objective, 1).
type CycleTarget struct {
	CycleID        int64   `json:"cycle_id"`
	UserID         int64   `json:"user_id"`
	PointObjective float64 `json:"point_objective"`
	WeightPercent  float64 `json:"weight_percent"`
	CreditsEarned  int     `json:"credits_earned"`
}
