// Package cycle resolves duty-cycle boundaries to absolute instants and
// plans the "surgical trim" mutations that keep cycles non-overlapping.
package cycle

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

// Boundaries resolves a cycle's (date, period) pairs into its inclusive
// absolute start and end instants.
func Boundaries(c model.Cycle) (start, end time.Time, err error) {
	start, err = timeband.Boundary(c.StartDate, c.StartPeriod, true)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("resolve start boundary: %w", err)
	}
	end, err = timeband.Boundary(c.EndDate, c.EndPeriod, false)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("resolve end boundary: %w", err)
	}
	return start, end, nil
}

// FindActive returns the first cycle whose [start, end] window contains
// now, or nil when none does. A cycle whose boundaries fail to resolve is
// logged and skipped rather than aborting the scan: one malformed
// historical cycle must not take down "what's active now".
func FindActive(cycles []model.Cycle, now time.Time) *model.Cycle {
	for i := range cycles {
		start, end, err := Boundaries(cycles[i])
		if err != nil {
			slog.Error("skipping cycle with unresolvable boundaries",
				"cycle_id", cycles[i].ID, "error", err)
			continue
		}
		if !now.Before(start) && !now.After(end) {
			return &cycles[i]
		}
	}
	return nil
}

// Overlaps reports whether two boundary windows genuinely intersect.
// The test is open-interval: windows that merely touch at an endpoint do
// not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// EachSlot walks every (date, period) slot in the cycle's range
// inclusive, clipping periods before the start period on the first day
// and after the end period on the last day.
func EachSlot(c model.Cycle, fn func(d timeband.Date, p timeband.Period)) {
	for d := c.StartDate; !d.After(c.EndDate); d = d.AddDays(1) {
		for _, p := range timeband.Periods {
			if d == c.StartDate && p < c.StartPeriod {
				continue
			}
			if d == c.EndDate && p > c.EndPeriod {
				continue
			}
			fn(d, p)
		}
	}
}

// FindOverlapping returns every cycle whose window overlaps
// [newStart, newEnd], excluding the cycle with excludeID (pass 0 when
// creating). Unlike FindActive, a boundary resolution failure here is an
// error: trimming against a cycle we cannot place would corrupt the
// timeline.
func FindOverlapping(cycles []model.Cycle, newStart, newEnd time.Time, excludeID int64) ([]model.Cycle, error) {
	var overlapping []model.Cycle
	for _, c := range cycles {
		if excludeID != 0 && c.ID == excludeID {
			continue
		}
		start, end, err := Boundaries(c)
		if err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c.ID, err)
		}
		if Overlaps(newStart, newEnd, start, end) {
			overlapping = append(overlapping, c)
		}
	}
	return overlapping, nil
}
