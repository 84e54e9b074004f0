package standings

import (
	"time"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

// maxPeriodWalk caps the period-counting walk. The walk is already
// bounded by the cycle end, but a cap this generous (~166 days of
// periods) guards against malformed input ever looping. Worth revisiting
// if cycles longer than ~21 periods become common.
const maxPeriodWalk = 500

// Priority is one member's urgency picture: how many points they still
// owe, how many eligible slots they have left before their availability
// runs out, and the resulting urgency score.
type Priority struct {
	PointsRemaining  float64        `json:"points_remaining"`
	PeriodsRemaining int            `json:"periods_remaining"`
	UrgencyWeight    float64        `json:"urgency_weight"`
	LastAvailableDay *timeband.Date `json:"last_available_day"`
}

// CalculatePriority computes the urgency picture for one member from
// their snapshot availability, outstanding points, and the cycle's end
// boundary.
func CalculatePriority(avail []model.AvailabilityRow, pointsRemaining float64, cycleEndDate timeband.Date, cycleEndPeriod timeband.Period, now time.Time) Priority {
	pr := Priority{PointsRemaining: pointsRemaining}

	lastSlotEnd, ok := lastAvailableSlot(avail, cycleEndDate, cycleEndPeriod, now)
	if !ok {
		return pr
	}

	day := timeband.DateOf(lastSlotEnd)
	pr.LastAvailableDay = &day
	pr.PeriodsRemaining = countAvailablePeriods(now, lastSlotEnd, avail)
	if pr.PointsRemaining > 0 && pr.PeriodsRemaining > 0 {
		pr.UrgencyWeight = round4(pr.PointsRemaining / float64(pr.PeriodsRemaining))
	}
	return pr
}

// lastAvailableSlot scans backward day-by-day from the cycle's end date
// to today, and within each day from Evening to Morning, for the latest
// period the member is available in that has not already fully elapsed.
// On the final cycle day, periods after the cycle's end period are
// skipped. Returns the period's end instant.
func lastAvailableSlot(avail []model.AvailabilityRow, cycleEndDate timeband.Date, cycleEndPeriod timeband.Period, now time.Time) (time.Time, bool) {
	if len(avail) == 0 {
		return time.Time{}, false
	}

	byDay := make(map[int]map[timeband.Period]bool)
	for _, row := range avail {
		if byDay[row.DayOfWeek] == nil {
			byDay[row.DayOfWeek] = make(map[timeband.Period]bool)
		}
		byDay[row.DayOfWeek][row.Period] = true
	}

	nowDay := timeband.DateOf(now)
	for cursor := cycleEndDate; !cursor.Before(nowDay); cursor = cursor.AddDays(-1) {
		periods := byDay[cursor.Weekday()]
		if len(periods) == 0 {
			continue
		}
		for i := len(timeband.Periods) - 1; i >= 0; i-- {
			p := timeband.Periods[i]
			if !periods[p] {
				continue
			}
			if cursor == cycleEndDate && p > cycleEndPeriod {
				continue
			}
			slotEnd, err := timeband.Boundary(cursor, p, false)
			if err != nil {
				continue
			}
			if !slotEnd.Before(now) {
				return slotEnd, true
			}
		}
	}
	return time.Time{}, false
}

// countAvailablePeriods walks forward from start to end in period-sized
// jumps, counting the slots the member is available for. Instants in the
// midnight gap jump straight to 06:00 that day. The walk bails out after
// maxPeriodWalk counted periods.
func countAvailablePeriods(start, end time.Time, avail []model.AvailabilityRow) int {
	if end.Before(start) {
		return 0
	}

	available := make(map[slotKey]bool, len(avail))
	for _, row := range avail {
		available[slotKey{Day: row.DayOfWeek, Period: row.Period}] = true
	}

	count := 0
	current := start.In(timeband.Location)
	current = time.Date(current.Year(), current.Month(), current.Day(),
		current.Hour(), current.Minute(), 0, 0, timeband.Location)

	for !current.After(end) {
		p, ok := timeband.PeriodAt(current)
		if !ok {
			// Midnight gap: advance to the first period of this day.
			current = time.Date(current.Year(), current.Month(), current.Day(),
				6, 0, 0, 0, timeband.Location)
			continue
		}

		day := int(current.In(timeband.Location).Weekday())
		if available[slotKey{Day: day, Period: p}] {
			count++
		}
		if count > maxPeriodWalk {
			break
		}

		switch p {
		case timeband.Morning:
			current = time.Date(current.Year(), current.Month(), current.Day(),
				11, 0, 1, 0, timeband.Location)
		case timeband.Noon:
			current = time.Date(current.Year(), current.Month(), current.Day(),
				17, 0, 1, 0, timeband.Location)
		default:
			current = time.Date(current.Year(), current.Month(), current.Day(),
				6, 0, 0, 0, timeband.Location).AddDate(0, 0, 1)
		}
	}
	return count
}
