// Package recommend assigns a cycle's unfilled duty slots to members,
// most urgent member first, spreading each member's assignments across
// the calendar instead of letting one person claim every early slot.
package recommend

import (
	"fmt"
	"sort"

	"github.com/dukerupert/messmate/internal/cycle"
	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

// Candidate is one member's standing snapshot going into the engine.
// LastAvailableDay caps how late the member can be scheduled; nil means
// no ceiling applies.
type Candidate struct {
	ID               int64
	Name             string
	PointsRemaining  float64
	UrgencyWeight    float64
	LastAvailableDay *timeband.Date
}

// Assignment is one recommended (slot, member) pairing.
type Assignment struct {
	Date     timeband.Date   `json:"date"`
	Period   timeband.Period `json:"period"`
	TaskName string          `json:"task_name"`
	UserName string          `json:"user_name"`
}

// Inputs carries everything one recommendation run reads.
type Inputs struct {
	Cycle      model.Cycle
	Candidates []Candidate
	Snapshot   []model.AvailabilityRow
	Templates  []model.TaskTemplate
	Logs       []model.TaskLogEntry
}

// openSlot is one claimable headcount unit of a template on a date.
type openSlot struct {
	key      string
	date     timeband.Date
	day      int
	period   timeband.Period
	taskName string
	points   float64
}

type slotKey struct {
	Day    int
	Period timeband.Period
}

// Generate produces the assignment list for a cycle. Candidates with
// zero urgency are ignored; the rest are served in descending urgency
// order. Output is sorted chronologically by (date, period).
func Generate(in Inputs) ([]Assignment, error) {
	if !in.Cycle.StartPeriod.Valid() || !in.Cycle.EndPeriod.Valid() {
		return nil, fmt.Errorf("cycle %d has invalid periods", in.Cycle.ID)
	}

	candidates := make([]Candidate, 0, len(in.Candidates))
	for _, c := range in.Candidates {
		if c.UrgencyWeight > 0 {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UrgencyWeight > candidates[j].UrgencyWeight
	})

	slots := buildOpenSlots(in)
	if len(slots) == 0 || len(candidates) == 0 {
		return []Assignment{}, nil
	}

	availByUser := make(map[int64]map[slotKey]bool)
	for _, row := range in.Snapshot {
		if availByUser[row.UserID] == nil {
			availByUser[row.UserID] = make(map[slotKey]bool)
		}
		availByUser[row.UserID][slotKey{Day: row.DayOfWeek, Period: row.Period}] = true
	}

	// Advancing the cursor by jumpDistance instead of 1 after each claim
	// spreads one member's assignments across the calendar so every
	// urgent member gets temporal spread.
	jumpDistance := (len(slots) + len(candidates) - 1) / len(candidates)
	if jumpDistance < 1 {
		jumpDistance = 1
	}

	var assignments []Assignment
	claimed := make(map[string]bool)

	for _, member := range candidates {
		pointsToClear := member.PointsRemaining
		if pointsToClear <= 0 {
			continue
		}
		avail := availByUser[member.ID]

		idx := 0
		for pointsToClear > 0 && idx < len(slots) {
			found := false
			for j := idx; j < len(slots); j++ {
				s := slots[j]
				if member.LastAvailableDay != nil && s.date.After(*member.LastAvailableDay) {
					// Everything past here is too late for this member.
					idx = len(slots)
					found = true
					break
				}
				if claimed[s.key] || !avail[slotKey{Day: s.day, Period: s.period}] {
					continue
				}
				assignments = append(assignments, Assignment{
					Date:     s.date,
					Period:   s.period,
					TaskName: s.taskName,
					UserName: member.Name,
				})
				claimed[s.key] = true
				pointsToClear -= s.points
				idx = j + jumpDistance
				found = true
				break
			}
			if !found {
				break
			}
		}
	}

	sort.SliceStable(assignments, func(i, j int) bool {
		if assignments[i].Date != assignments[j].Date {
			return assignments[i].Date.Before(assignments[j].Date)
		}
		return assignments[i].Period < assignments[j].Period
	})
	if assignments == nil {
		assignments = []Assignment{}
	}
	return assignments, nil
}

// buildOpenSlots lists every unfilled slot instance in chronological
// order: one entry per default-headcount unit of each template whose
// (day, period) has at least one snapshot-available member and no log
// entries yet.
func buildOpenSlots(in Inputs) []openSlot {
	availCount := make(map[slotKey]int)
	for _, row := range in.Snapshot {
		availCount[slotKey{Day: row.DayOfWeek, Period: row.Period}]++
	}

	byPeriod := make(map[timeband.Period][]model.TaskTemplate)
	for _, t := range in.Templates {
		byPeriod[t.Period] = append(byPeriod[t.Period], t)
	}

	type logRef struct {
		TemplateID int64
		Date       timeband.Date
	}
	logged := make(map[logRef]int)
	for _, l := range in.Logs {
		logged[logRef{TemplateID: l.TemplateID, Date: l.Date}]++
	}

	var slots []openSlot
	cycle.EachSlot(in.Cycle, func(d timeband.Date, p timeband.Period) {
		if availCount[slotKey{Day: d.Weekday(), Period: p}] == 0 {
			return
		}
		for _, tpl := range byPeriod[p] {
			if logged[logRef{TemplateID: tpl.ID, Date: d}] > 0 {
				continue
			}
			headcount := tpl.DefaultHeadcount
			if headcount < 1 {
				headcount = 1
			}
			for i := 0; i < headcount; i++ {
				slots = append(slots, openSlot{
					key:      fmt.Sprintf("%d:%s:%d", tpl.ID, d, i),
					date:     d,
					day:      d.Weekday(),
					period:   p,
					taskName: tpl.Name,
					points:   tpl.Points,
				})
			}
		}
	})
	return slots
}
