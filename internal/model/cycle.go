package model

import (
	"time"

	"github.com/dukerupert/messmate/internal/timeband"
)

// CalculationMode selects which objective algorithm a cycle uses.
type CalculationMode string

const (
	ModeLegacy CalculationMode = "Legacy"
	ModeGroup  CalculationMode = "Group"
)

// Valid reports whether m is a known calculation mode.
func (m CalculationMode) Valid() bool {
	return m == ModeLegacy || m == ModeGroup
}

// Cycle is an administrator-defined duty window. Its absolute boundaries
// are derived from the date/period pairs; cycles never overlap once the
// trim engine has run.
type Cycle struct {
	ID              int64           `json:"id"`
	Name            string          `json:"cycle_name"`
	StartDate       timeband.Date   `json:"start_date"`
	EndDate         timeband.Date   `json:"end_date"`
	StartPeriod     timeband.Period `json:"start_period"`
	EndPeriod       timeband.Period `json:"end_period"`
	CalculationMode CalculationMode `json:"calculation_mode"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
