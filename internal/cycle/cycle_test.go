package cycle

import (
	"testing"
	"time"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

func date(t *testing.T, s string) timeband.Date {
	t.Helper()
	d, err := timeband.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func testCycle(t *testing.T, id int64, startDate string, startPeriod timeband.Period, endDate string, endPeriod timeband.Period) model.Cycle {
	t.Helper()
	return model.Cycle{
		ID:          id,
		Name:        "test cycle",
		StartDate:   date(t, startDate),
		EndDate:     date(t, endDate),
		StartPeriod: startPeriod,
		EndPeriod:   endPeriod,
	}
}

func instant(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", s, timeband.Location)
	if err != nil {
		t.Fatalf("parse instant %q: %v", s, err)
	}
	return ts
}

func TestBoundaries(t *testing.T) {
	c := testCycle(t, 1, "2025-11-03", timeband.Morning, "2025-11-09", timeband.Evening)
	start, end, err := Boundaries(c)
	if err != nil {
		t.Fatalf("Boundaries: %v", err)
	}
	if !start.Equal(instant(t, "2025-11-03 06:00:00")) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(instant(t, "2025-11-09 23:59:59")) {
		t.Errorf("end = %v", end)
	}
}

func TestBoundariesInvalidPeriod(t *testing.T) {
	c := testCycle(t, 1, "2025-11-03", 0, "2025-11-09", timeband.Evening)
	if _, _, err := Boundaries(c); err == nil {
		t.Error("expected error for invalid start period")
	}
}

func TestFindActive(t *testing.T) {
	cycles := []model.Cycle{
		testCycle(t, 1, "2025-10-01", timeband.Morning, "2025-10-15", timeband.Evening),
		testCycle(t, 2, "2025-10-16", timeband.Morning, "2025-10-31", timeband.Evening),
	}

	got := FindActive(cycles, instant(t, "2025-10-20 12:00:00"))
	if got == nil || got.ID != 2 {
		t.Fatalf("FindActive = %+v, want cycle 2", got)
	}

	if got := FindActive(cycles, instant(t, "2025-11-05 12:00:00")); got != nil {
		t.Errorf("FindActive after all cycles = %+v, want nil", got)
	}

	// Boundaries are inclusive on both ends.
	if got := FindActive(cycles, instant(t, "2025-10-16 06:00:00")); got == nil || got.ID != 2 {
		t.Errorf("FindActive at exact start = %+v, want cycle 2", got)
	}
	if got := FindActive(cycles, instant(t, "2025-10-15 23:59:59")); got == nil || got.ID != 1 {
		t.Errorf("FindActive at exact end = %+v, want cycle 1", got)
	}
}

func TestFindActiveSkipsMalformedCycle(t *testing.T) {
	cycles := []model.Cycle{
		testCycle(t, 1, "2025-10-01", 0, "2025-10-15", timeband.Evening), // unresolvable
		testCycle(t, 2, "2025-10-16", timeband.Morning, "2025-10-31", timeband.Evening),
	}
	got := FindActive(cycles, instant(t, "2025-10-20 12:00:00"))
	if got == nil || got.ID != 2 {
		t.Fatalf("FindActive = %+v, want cycle 2 despite malformed cycle 1", got)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"disjoint", "2025-10-01 06:00:00", "2025-10-05 23:59:59", "2025-10-10 06:00:00", "2025-10-15 23:59:59", false},
		{"genuine intersection", "2025-10-01 06:00:00", "2025-10-12 23:59:59", "2025-10-10 06:00:00", "2025-10-15 23:59:59", true},
		{"contained", "2025-10-11 06:00:00", "2025-10-12 23:59:59", "2025-10-10 06:00:00", "2025-10-15 23:59:59", true},
		{"touching endpoints do not overlap", "2025-10-01 06:00:00", "2025-10-10 06:00:00", "2025-10-10 06:00:00", "2025-10-15 23:59:59", false},
	}

	for _, tt := range tests {
		got := Overlaps(instant(t, tt.aStart), instant(t, tt.aEnd), instant(t, tt.bStart), instant(t, tt.bEnd))
		if got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		// Symmetry.
		rev := Overlaps(instant(t, tt.bStart), instant(t, tt.bEnd), instant(t, tt.aStart), instant(t, tt.aEnd))
		if rev != tt.want {
			t.Errorf("%s: Overlaps is not symmetric", tt.name)
		}
	}
}

func TestFindOverlappingExcludesSelf(t *testing.T) {
	cycles := []model.Cycle{
		testCycle(t, 1, "2025-10-01", timeband.Morning, "2025-10-15", timeband.Evening),
		testCycle(t, 2, "2025-10-16", timeband.Morning, "2025-10-31", timeband.Evening),
	}
	newStart := instant(t, "2025-10-10 06:00:00")
	newEnd := instant(t, "2025-10-20 23:59:59")

	got, err := FindOverlapping(cycles, newStart, newEnd, 0)
	if err != nil {
		t.Fatalf("FindOverlapping: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("create overlap count = %d, want 2", len(got))
	}

	got, err = FindOverlapping(cycles, newStart, newEnd, 1)
	if err != nil {
		t.Fatalf("FindOverlapping exclude: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("edit overlap = %+v, want only cycle 2", got)
	}
}

func TestEachSlotClipsBoundaryDays(t *testing.T) {
	// Cycle runs Monday Noon through Tuesday Noon: Monday Morning and
	// Tuesday Evening fall outside the window.
	c := testCycle(t, 1, "2025-11-03", timeband.Noon, "2025-11-04", timeband.Noon)

	var seen []string
	EachSlot(c, func(d timeband.Date, p timeband.Period) {
		seen = append(seen, d.String()+" "+p.String())
	})
	want := []string{
		"2025-11-03 Noon",
		"2025-11-03 Evening",
		"2025-11-04 Morning",
		"2025-11-04 Noon",
	}
	if len(seen) != len(want) {
		t.Fatalf("slots = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("slot[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestClassify(t *testing.T) {
	newStart := instant(t, "2025-10-10 06:00:00")
	newEnd := instant(t, "2025-10-20 23:59:59")

	tests := []struct {
		name           string
		exStart, exEnd string
		want           OverlapClass
	}{
		{"preceding", "2025-10-01 06:00:00", "2025-10-12 23:59:59", Preceding},
		{"succeeding", "2025-10-15 06:00:00", "2025-10-25 23:59:59", Succeeding},
		{"engulfed inside", "2025-10-12 06:00:00", "2025-10-18 23:59:59", Engulfed},
		{"existing contains new", "2025-10-01 06:00:00", "2025-10-25 23:59:59", Engulfed},
		{"identical bounds", "2025-10-10 06:00:00", "2025-10-20 23:59:59", Engulfed},
	}

	for _, tt := range tests {
		got := Classify(instant(t, tt.exStart), instant(t, tt.exEnd), newStart, newEnd)
		if got != tt.want {
			t.Errorf("%s: Classify = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPlanTrimPreceding(t *testing.T) {
	// New cycle starts at Noon: newStart−1s = 11:00:00, still a valid
	// Morning instant on the same day.
	existing := testCycle(t, 7, "2025-10-01", timeband.Morning, "2025-10-12", timeband.Evening)
	newStart := instant(t, "2025-10-10 11:00:01")
	newEnd := instant(t, "2025-10-20 23:59:59")

	plan, err := PlanTrim(newStart, newEnd, []model.Cycle{existing})
	if err != nil {
		t.Fatalf("PlanTrim: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("plan length = %d, want 1", len(plan))
	}
	a := plan[0]
	if a.Kind != ShrinkEnd || a.CycleID != 7 {
		t.Fatalf("action = %+v", a)
	}
	if a.Date.String() != "2025-10-10" || a.Period != timeband.Morning {
		t.Errorf("shrunk end = %s %v, want 2025-10-10 Morning", a.Date, a.Period)
	}
	if !a.LogCutoff.Equal(newStart) {
		t.Errorf("log cutoff = %v, want %v", a.LogCutoff, newStart)
	}

	// The shrunk end instant must be exactly newStart − 1s.
	endInstant, err := timeband.Boundary(a.Date, a.Period, false)
	if err != nil {
		t.Fatalf("Boundary: %v", err)
	}
	if !endInstant.Equal(newStart.Add(-time.Second)) {
		t.Errorf("shrunk end instant = %v, want %v", endInstant, newStart.Add(-time.Second))
	}
}

func TestPlanTrimPrecedingGapRollsToPreviousEvening(t *testing.T) {
	// New cycle starts at Morning: newStart−1s = 05:59:59, which is in the
	// midnight gap, so the preceding cycle's end rolls back to the
	// previous day's Evening.
	existing := testCycle(t, 3, "2025-10-01", timeband.Morning, "2025-10-12", timeband.Evening)
	newStart := instant(t, "2025-10-10 06:00:00")
	newEnd := instant(t, "2025-10-20 23:59:59")

	plan, err := PlanTrim(newStart, newEnd, []model.Cycle{existing})
	if err != nil {
		t.Fatalf("PlanTrim: %v", err)
	}
	a := plan[0]
	if a.Date.String() != "2025-10-09" || a.Period != timeband.Evening {
		t.Errorf("shrunk end = %s %v, want 2025-10-09 Evening", a.Date, a.Period)
	}
}

func TestPlanTrimSucceeding(t *testing.T) {
	// New cycle ends at Morning: newEnd+1s = 11:00:01, a valid Noon start
	// on the same day.
	existing := testCycle(t, 4, "2025-10-18", timeband.Morning, "2025-10-31", timeband.Evening)
	newStart := instant(t, "2025-10-10 06:00:00")
	newEnd := instant(t, "2025-10-20 11:00:00")

	plan, err := PlanTrim(newStart, newEnd, []model.Cycle{existing})
	if err != nil {
		t.Fatalf("PlanTrim: %v", err)
	}
	a := plan[0]
	if a.Kind != ShrinkStart || a.CycleID != 4 {
		t.Fatalf("action = %+v", a)
	}
	if a.Date.String() != "2025-10-20" || a.Period != timeband.Noon {
		t.Errorf("shrunk start = %s %v, want 2025-10-20 Noon", a.Date, a.Period)
	}
	if !a.LogCutoff.Equal(newEnd) {
		t.Errorf("log cutoff = %v, want %v", a.LogCutoff, newEnd)
	}
}

func TestPlanTrimSucceedingGapAdvancesToMorning(t *testing.T) {
	// New cycle ends at Evening: newEnd+1s = 00:00:00 next day, in the
	// gap, so the succeeding cycle starts that day's Morning.
	existing := testCycle(t, 5, "2025-10-18", timeband.Morning, "2025-10-31", timeband.Evening)
	newStart := instant(t, "2025-10-10 06:00:00")
	newEnd := instant(t, "2025-10-20 23:59:59")

	plan, err := PlanTrim(newStart, newEnd, []model.Cycle{existing})
	if err != nil {
		t.Fatalf("PlanTrim: %v", err)
	}
	a := plan[0]
	if a.Date.String() != "2025-10-21" || a.Period != timeband.Morning {
		t.Errorf("shrunk start = %s %v, want 2025-10-21 Morning", a.Date, a.Period)
	}
}

func TestPlanTrimEngulfed(t *testing.T) {
	existing := testCycle(t, 6, "2025-10-12", timeband.Morning, "2025-10-15", timeband.Evening)
	plan, err := PlanTrim(instant(t, "2025-10-10 06:00:00"), instant(t, "2025-10-20 23:59:59"), []model.Cycle{existing})
	if err != nil {
		t.Fatalf("PlanTrim: %v", err)
	}
	if len(plan) != 1 || plan[0].Kind != DeleteCycle || plan[0].CycleID != 6 {
		t.Fatalf("plan = %+v, want single DeleteCycle for cycle 6", plan)
	}
}

func TestPlanTrimMultipleIndependent(t *testing.T) {
	overlapping := []model.Cycle{
		testCycle(t, 1, "2025-10-01", timeband.Morning, "2025-10-12", timeband.Evening),
		testCycle(t, 2, "2025-10-13", timeband.Morning, "2025-10-15", timeband.Evening),
		testCycle(t, 3, "2025-10-16", timeband.Morning, "2025-10-31", timeband.Evening),
	}
	plan, err := PlanTrim(instant(t, "2025-10-10 06:00:00"), instant(t, "2025-10-20 23:59:59"), overlapping)
	if err != nil {
		t.Fatalf("PlanTrim: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("plan length = %d, want 3", len(plan))
	}
	kinds := map[int64]ActionKind{}
	for _, a := range plan {
		kinds[a.CycleID] = a.Kind
	}
	if kinds[1] != ShrinkEnd || kinds[2] != DeleteCycle || kinds[3] != ShrinkStart {
		t.Errorf("plan kinds = %+v", kinds)
	}
}
