package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/store"
	"github.com/dukerupert/messmate/internal/timeband"
)

func newStandingsMux(t *testing.T, db *sql.DB) *http.ServeMux {
	t.Helper()
	h := NewStandingsHandler(
		store.NewCycleStore(db),
		store.NewMemberStore(db),
		store.NewAvailabilityStore(db),
		store.NewTaskStore(db),
		store.NewTargetStore(db),
		nil,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/standings/calculate", h.Calculate)
	mux.HandleFunc("GET /api/standings/{cycleId}", h.Get)
	return mux
}

// seedRoster creates two duty members with full weekly availability and
// one admin, returning the member records.
func seedRoster(t *testing.T, db *sql.DB) (model.Member, model.Member) {
	t.Helper()
	ms := store.NewMemberStore(db)
	asha, err := ms.Create("Asha", model.RoleMember, 0)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	bo, err := ms.Create("Bo", model.RoleMember, 1)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := ms.Create("Quartermaster", model.RoleAdmin, 2); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	as := store.NewAvailabilityStore(db)
	for day := 0; day <= 6; day++ {
		if err := as.SetFullDay(day, true, []int64{asha.ID, bo.ID}); err != nil {
			t.Fatalf("set availability: %v", err)
		}
	}
	return *asha, *bo
}

func createTestCycle(t *testing.T, db *sql.DB) model.Cycle {
	t.Helper()
	mux := newCycleMux(t, db)
	rec := postJSON(t, mux, http.MethodPost, "/api/cycles", cycleBody("October", "2030-10-01", "2030-10-14", false))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cycle: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var c model.Cycle
	if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode cycle: %v", err)
	}
	return c
}

func TestStandingsCalculate(t *testing.T) {
	db := setupHandlerTestDB(t)
	asha, bo := seedRoster(t, db)
	c := createTestCycle(t, db)

	mux := newStandingsMux(t, db)
	rec := postJSON(t, mux, http.MethodPost, "/api/standings/calculate", map[string]any{"cycle_id": c.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var entries []standingEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode standings: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (admin excluded)", len(entries))
	}

	byUser := make(map[int64]standingEntry)
	for _, e := range entries {
		byUser[e.UserID] = e
	}
	ashaEntry, ok := byUser[asha.ID]
	boEntry, ok2 := byUser[bo.ID]
	if !ok || !ok2 {
		t.Fatalf("standings missing a member: %+v", entries)
	}

	if ashaEntry.PointObjective <= 0 {
		t.Errorf("objective = %v, want > 0", ashaEntry.PointObjective)
	}
	// Identical availability must yield identical objectives.
	if ashaEntry.PointObjective != boEntry.PointObjective {
		t.Errorf("objectives differ: %v vs %v", ashaEntry.PointObjective, boEntry.PointObjective)
	}
	if ashaEntry.PointsTaken != 0 || ashaEntry.Ratio != 0 {
		t.Errorf("fresh cycle should have zero taken and ratio, got %v / %v", ashaEntry.PointsTaken, ashaEntry.Ratio)
	}
	if ashaEntry.CreditsEarned != 0 {
		t.Errorf("credits_earned = %d, want 0", ashaEntry.CreditsEarned)
	}
}

func TestStandingsCalculateUnknownCycle(t *testing.T) {
	db := setupHandlerTestDB(t)
	mux := newStandingsMux(t, db)

	rec := postJSON(t, mux, http.MethodPost, "/api/standings/calculate", map[string]any{"cycle_id": 999})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = postJSON(t, mux, http.MethodPost, "/api/standings/calculate", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing cycle_id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStandingsGetReflectsLoggedPoints(t *testing.T) {
	db := setupHandlerTestDB(t)
	asha, _ := seedRoster(t, db)
	c := createTestCycle(t, db)

	mux := newStandingsMux(t, db)
	rec := postJSON(t, mux, http.MethodPost, "/api/standings/calculate", map[string]any{"cycle_id": c.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate: status = %d", rec.Code)
	}

	ts := store.NewTaskStore(db)
	templates, err := ts.ListTemplates()
	if err != nil || len(templates) == 0 {
		t.Fatalf("list templates: %v", err)
	}
	tpl := templates[0]
	date, _ := timeband.ParseDate("2030-10-02")
	if err := ts.LogSlot(c.ID, tpl.ID, date, tpl.Period, []int64{asha.ID}, tpl.Points, ""); err != nil {
		t.Fatalf("log slot: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/standings/"+strconv.FormatInt(c.ID, 10), nil)
	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get standings: status = %d", getRec.Code)
	}

	var entries []standingEntry
	if err := json.Unmarshal(getRec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode standings: %v", err)
	}
	for _, e := range entries {
		if e.UserID != asha.ID {
			continue
		}
		if e.PointsTaken != tpl.Points {
			t.Errorf("points_taken = %v, want %v", e.PointsTaken, tpl.Points)
		}
		if e.Ratio <= 0 {
			t.Errorf("ratio = %v, want > 0", e.Ratio)
		}
		return
	}
	t.Fatalf("member missing from standings: %+v", entries)
}
