// Package standings computes fair point objectives and urgency scores
// for roster members over a duty cycle. Both objective algorithms are
// pure: they consume a cycle's snapshot availability, the template
// catalog, and the cycle's task log, and produce one target per member.
package standings

import (
	"fmt"
	"math"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

// Inputs is everything an objective calculation reads. Availability must
// be the cycle's snapshot, not the live grid, so results stay
// reproducible after the grid changes.
type Inputs struct {
	Cycle     model.Cycle
	Members   []model.Member
	Snapshot  []model.AvailabilityRow
	Templates []model.TaskTemplate
	Logs      []model.TaskLogEntry
}

// Calculator converts Inputs into one CycleTarget per roster account.
// Administrative accounts always come back with a zero objective.
type Calculator interface {
	Objectives(in Inputs) ([]model.CycleTarget, error)
}

// ForMode returns the calculator for a cycle's calculation mode.
func ForMode(mode model.CalculationMode) (Calculator, error) {
	switch mode {
	case model.ModeLegacy:
		return legacyCalculator{}, nil
	case model.ModeGroup:
		return groupCalculator{}, nil
	}
	return nil, fmt.Errorf("unknown calculation mode: %q", mode)
}

type slotKey struct {
	Day    int
	Period timeband.Period
}

type logKey struct {
	TemplateID int64
	Date       timeband.Date
}

func validateCycleRange(c model.Cycle) error {
	if !c.StartPeriod.Valid() || !c.EndPeriod.Valid() {
		return fmt.Errorf("cycle %d has invalid periods", c.ID)
	}
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("cycle %d start date %s is after end date %s", c.ID, c.StartDate, c.EndDate)
	}
	return nil
}

func availabilityBySlot(rows []model.AvailabilityRow) map[slotKey][]int64 {
	m := make(map[slotKey][]int64)
	for _, r := range rows {
		k := slotKey{Day: r.DayOfWeek, Period: r.Period}
		m[k] = append(m[k], r.UserID)
	}
	return m
}

func logsBySlot(logs []model.TaskLogEntry) map[logKey][]model.TaskLogEntry {
	m := make(map[logKey][]model.TaskLogEntry)
	for _, l := range logs {
		k := logKey{TemplateID: l.TemplateID, Date: l.Date}
		m[k] = append(m[k], l)
	}
	return m
}

func templatesByPeriod(templates []model.TaskTemplate) map[timeband.Period][]model.TaskTemplate {
	m := make(map[timeband.Period][]model.TaskTemplate)
	for _, t := range templates {
		m[t.Period] = append(m[t.Period], t)
	}
	return m
}

// slotPool values the outstanding work of one (date, period) slot,
// summing over the templates active in that period:
//   - no log entries: the full workload is uncompensated, so
//     points × default headcount;
//   - one entry: zero if done by an outsider (nil user), else points;
//   - several entries: points × entry count, each logger counted
//     separately because headcount>1 tasks may be split.
func slotPool(templates []model.TaskTemplate, logs map[logKey][]model.TaskLogEntry, d timeband.Date) float64 {
	var pool float64
	for _, tpl := range templates {
		entries := logs[logKey{TemplateID: tpl.ID, Date: d}]
		switch n := len(entries); {
		case n == 0:
			headcount := tpl.DefaultHeadcount
			if headcount < 1 {
				headcount = 1
			}
			pool += tpl.Points * float64(headcount)
		case n == 1:
			if entries[0].UserID != nil {
				pool += tpl.Points
			}
		default:
			pool += tpl.Points * float64(n)
		}
	}
	return pool
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
