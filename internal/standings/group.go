package standings

import (
	"github.com/dukerupert/messmate/internal/cycle"
	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

// groupCalculator is the slot-based algorithm: each slot's own points
// pool is split evenly among the members available for that slot. There
// is no global pool, so fairness is local to each slot rather than to
// the cycle as a whole.
type groupCalculator struct{}

func (groupCalculator) Objectives(in Inputs) ([]model.CycleTarget, error) {
	if err := validateCycleRange(in.Cycle); err != nil {
		return nil, err
	}

	availBySlot := availabilityBySlot(in.Snapshot)
	logs := logsBySlot(in.Logs)
	byPeriod := templatesByPeriod(in.Templates)

	objectives := make(map[int64]float64)
	for _, m := range in.Members {
		if m.Role == model.RoleMember {
			objectives[m.ID] = 0
		}
	}

	cycle.EachSlot(in.Cycle, func(d timeband.Date, p timeband.Period) {
		pool := slotPool(byPeriod[p], logs, d)
		available := availBySlot[slotKey{Day: d.Weekday(), Period: p}]
		if pool <= 0 || len(available) == 0 {
			return
		}
		share := pool / float64(len(available))
		for _, userID := range available {
			if _, ok := objectives[userID]; ok {
				objectives[userID] += share
			}
		}
	})

	targets := make([]model.CycleTarget, 0, len(in.Members))
	for _, m := range in.Members {
		targets = append(targets, model.CycleTarget{
			CycleID:        in.Cycle.ID,
			UserID:         m.ID,
			PointObjective: objectives[m.ID],
		})
	}
	return targets, nil
}
