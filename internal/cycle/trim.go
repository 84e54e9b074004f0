package cycle

import (
	"fmt"
	"time"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

// OverlapClass names how an existing cycle intersects a new window.
type OverlapClass int

const (
	// Preceding: existing starts before the new window and ends inside it.
	Preceding OverlapClass = iota + 1
	// Succeeding: existing starts inside the new window and ends after it.
	Succeeding
	// Engulfed: everything else — the existing cycle sits fully inside the
	// new window, or fully contains it. Both resolve by deleting the
	// existing cycle, matching the roster's historical behavior.
	Engulfed
)

func (c OverlapClass) String() string {
	switch c {
	case Preceding:
		return "preceding"
	case Succeeding:
		return "succeeding"
	case Engulfed:
		return "engulfed"
	}
	return fmt.Sprintf("OverlapClass(%d)", int(c))
}

// Classify determines the overlap class of an existing cycle's window
// against the new window. Callers must have already established that the
// windows overlap.
func Classify(existingStart, existingEnd, newStart, newEnd time.Time) OverlapClass {
	startsBefore := existingStart.Before(newStart)
	endsAfter := existingEnd.After(newEnd)
	switch {
	case startsBefore && !endsAfter:
		return Preceding
	case !startsBefore && endsAfter:
		return Succeeding
	default:
		return Engulfed
	}
}

// ActionKind is the mutation a TrimAction applies.
type ActionKind int

const (
	// ShrinkEnd moves the cycle's end boundary earlier and purges logs at
	// or after the cutoff plus all targets.
	ShrinkEnd ActionKind = iota + 1
	// ShrinkStart moves the cycle's start boundary later and purges logs
	// at or before the cutoff plus all targets.
	ShrinkStart
	// DeleteCycle removes the cycle with its logs and targets.
	DeleteCycle
)

// TrimAction is one planned mutation against one overlapping cycle.
// Date/Period carry the shrunk boundary for ShrinkEnd/ShrinkStart;
// LogCutoff is the instant log entries are compared against.
type TrimAction struct {
	CycleID   int64
	Kind      ActionKind
	Date      timeband.Date
	Period    timeband.Period
	LogCutoff time.Time
}

// PlanTrim classifies every overlapping cycle against the fixed new
// window and returns the mutations that eliminate the overlaps. Each
// overlap resolves independently, so plan order is immaterial. The plan
// must be applied atomically alongside the create/update that needed it.
func PlanTrim(newStart, newEnd time.Time, overlapping []model.Cycle) ([]TrimAction, error) {
	var plan []TrimAction
	for _, c := range overlapping {
		start, end, err := Boundaries(c)
		if err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c.ID, err)
		}
		switch Classify(start, end, newStart, newEnd) {
		case Preceding:
			date, period := shrunkEnd(newStart)
			plan = append(plan, TrimAction{
				CycleID:   c.ID,
				Kind:      ShrinkEnd,
				Date:      date,
				Period:    period,
				LogCutoff: newStart,
			})
		case Succeeding:
			date, period := shrunkStart(newEnd)
			plan = append(plan, TrimAction{
				CycleID:   c.ID,
				Kind:      ShrinkStart,
				Date:      date,
				Period:    period,
				LogCutoff: newEnd,
			})
		case Engulfed:
			plan = append(plan, TrimAction{CycleID: c.ID, Kind: DeleteCycle})
		}
	}
	return plan, nil
}

// shrunkEnd computes the (date, period) a preceding cycle ends on so that
// its end instant is newStart − 1s. When that instant falls in the
// midnight gap (a Morning-start window puts it at 05:59:59), the end
// rolls back to the previous calendar day's Evening.
func shrunkEnd(newStart time.Time) (timeband.Date, timeband.Period) {
	t := newStart.Add(-time.Second)
	if p, ok := timeband.PeriodAt(t); ok {
		return timeband.DateOf(t), p
	}
	return timeband.DateOf(newStart).AddDays(-1), timeband.Evening
}

// shrunkStart computes the (date, period) a succeeding cycle starts on so
// that its start instant is newEnd + 1s. When that instant falls in the
// midnight gap (an Evening-end window puts it at 00:00:00 the next day),
// the start advances to that same calendar day's Morning.
func shrunkStart(newEnd time.Time) (timeband.Date, timeband.Period) {
	t := newEnd.Add(time.Second)
	if p, ok := timeband.PeriodAt(t); ok {
		return timeband.DateOf(t), p
	}
	return timeband.DateOf(t), timeband.Morning
}
