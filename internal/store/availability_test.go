package store

import (
	"testing"

	"github.com/dukerupert/messmate/internal/database"
	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/timeband"
)

func setupAvailabilityTestDB(t *testing.T) (*AvailabilityStore, *MemberStore, *CycleStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAvailabilityStore(db), NewMemberStore(db), NewCycleStore(db)
}

func TestAvailabilitySetSlot(t *testing.T) {
	as, ms, _ := setupAvailabilityTestDB(t)

	asha, _ := ms.Create("Asha", model.RoleMember, 0)
	bo, _ := ms.Create("Bo", model.RoleMember, 1)

	if err := as.SetSlot(1, timeband.Noon, []int64{asha.ID, bo.ID}); err != nil {
		t.Fatalf("set slot: %v", err)
	}

	grid, err := as.Grid()
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(grid) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(grid))
	}

	// Re-setting the slot replaces, not appends.
	if err := as.SetSlot(1, timeband.Noon, []int64{asha.ID}); err != nil {
		t.Fatalf("reset slot: %v", err)
	}
	grid, err = as.Grid()
	if err != nil {
		t.Fatalf("grid after reset: %v", err)
	}
	if len(grid) != 1 || grid[0].UserID != asha.ID {
		t.Errorf("grid after reset = %v, want single row for asha", grid)
	}
}

func TestAvailabilitySetFullDay(t *testing.T) {
	as, ms, _ := setupAvailabilityTestDB(t)

	asha, _ := ms.Create("Asha", model.RoleMember, 0)

	if err := as.SetFullDay(2, true, []int64{asha.ID}); err != nil {
		t.Fatalf("set full day: %v", err)
	}
	grid, err := as.Grid()
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if len(grid) != 3 {
		t.Fatalf("expected 3 rows (one per period), got %d", len(grid))
	}

	if err := as.SetFullDay(2, false, nil); err != nil {
		t.Fatalf("clear full day: %v", err)
	}
	grid, err = as.Grid()
	if err != nil {
		t.Fatalf("grid after clear: %v", err)
	}
	if len(grid) != 0 {
		t.Errorf("expected empty grid after clear, got %d rows", len(grid))
	}
}

func TestAvailabilitySnapshotExcludesAdmins(t *testing.T) {
	as, ms, cs := setupAvailabilityTestDB(t)

	asha, _ := ms.Create("Asha", model.RoleMember, 0)
	warden, _ := ms.Create("Warden", model.RoleAdmin, 1)

	if err := as.SetSlot(1, timeband.Noon, []int64{asha.ID, warden.ID}); err != nil {
		t.Fatalf("set slot: %v", err)
	}

	c, err := cs.CreateWithTrim(model.Cycle{
		Name:            "October",
		StartDate:       testDate(t, "2025-10-01"),
		EndDate:         testDate(t, "2025-10-10"),
		StartPeriod:     timeband.Morning,
		EndPeriod:       timeband.Evening,
		CalculationMode: model.ModeGroup,
	}, nil)
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}

	if err := as.Snapshot(c.ID); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	rows, err := as.SnapshotRows(c.ID)
	if err != nil {
		t.Fatalf("snapshot rows: %v", err)
	}
	if len(rows) != 1 || rows[0].UserID != asha.ID {
		t.Errorf("snapshot = %v, want only asha's row", rows)
	}
}

func TestAvailabilitySnapshotIsFrozen(t *testing.T) {
	as, ms, cs := setupAvailabilityTestDB(t)

	asha, _ := ms.Create("Asha", model.RoleMember, 0)
	if err := as.SetSlot(1, timeband.Noon, []int64{asha.ID}); err != nil {
		t.Fatalf("set slot: %v", err)
	}

	c, err := cs.CreateWithTrim(model.Cycle{
		Name:            "October",
		StartDate:       testDate(t, "2025-10-01"),
		EndDate:         testDate(t, "2025-10-10"),
		StartPeriod:     timeband.Morning,
		EndPeriod:       timeband.Evening,
		CalculationMode: model.ModeGroup,
	}, nil)
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}
	if err := as.Snapshot(c.ID); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	// Later edits to the live grid must not leak into the snapshot.
	if err := as.SetSlot(1, timeband.Noon, nil); err != nil {
		t.Fatalf("clear live slot: %v", err)
	}
	rows, err := as.SnapshotRows(c.ID)
	if err != nil {
		t.Fatalf("snapshot rows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("snapshot rows = %d, want 1 (frozen)", len(rows))
	}
}
