package standings

import (
	"github.com/dukerupert/messmate/internal/cycle"
	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

// legacyCalculator is the weight-based algorithm: one global points pool
// for the whole cycle, distributed by each member's share of the total
// availability slots.
type legacyCalculator struct{}

func (legacyCalculator) Objectives(in Inputs) ([]model.CycleTarget, error) {
	if err := validateCycleRange(in.Cycle); err != nil {
		return nil, err
	}

	availBySlot := availabilityBySlot(in.Snapshot)
	logs := logsBySlot(in.Logs)
	byPeriod := templatesByPeriod(in.Templates)

	// Pass 1: the cycle's total points pool. Slots with nobody available
	// contribute nothing — the work could never have been scheduled.
	var totalPointsPool float64
	cycle.EachSlot(in.Cycle, func(d timeband.Date, p timeband.Period) {
		if len(availBySlot[slotKey{Day: d.Weekday(), Period: p}]) == 0 {
			return
		}
		totalPointsPool += slotPool(byPeriod[p], logs, d)
	})

	// Pass 2: per-member availability slot counts over the same range.
	userSlots := make(map[int64]int)
	totalSlots := 0
	cycle.EachSlot(in.Cycle, func(d timeband.Date, p timeband.Period) {
		available := availBySlot[slotKey{Day: d.Weekday(), Period: p}]
		totalSlots += len(available)
		for _, userID := range available {
			userSlots[userID]++
		}
	})

	targets := make([]model.CycleTarget, 0, len(in.Members))
	degenerate := totalSlots == 0 || totalPointsPool == 0

	for _, m := range in.Members {
		t := model.CycleTarget{CycleID: in.Cycle.ID, UserID: m.ID}
		if m.Role == model.RoleMember && !degenerate {
			if slots := userSlots[m.ID]; slots > 0 {
				t.WeightPercent = float64(slots) / float64(totalSlots)
				t.PointObjective = round2(totalPointsPool * t.WeightPercent)
			}
		}
		targets = append(targets, t)
	}
	return targets, nil
}
