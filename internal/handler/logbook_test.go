package handler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/store"
)

func newLogbookMux(t *testing.T, db *sql.DB) *http.ServeMux {
	t.Helper()
	h := NewLogbookHandler(store.NewTaskStore(db), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/logbook/grid", h.Grid)
	mux.HandleFunc("GET /api/logbook/slot", h.Slot)
	mux.HandleFunc("GET /api/logbook/available", h.Available)
	mux.HandleFunc("POST /api/logbook", h.Log)
	return mux
}

func firstTemplate(t *testing.T, db *sql.DB) model.TaskTemplate {
	t.Helper()
	templates, err := store.NewTaskStore(db).ListTemplates()
	if err != nil {
		t.Fatalf("list templates: %v", err)
	}
	if len(templates) == 0 {
		t.Fatal("expected seeded task templates")
	}
	return templates[0]
}

func getSlot(t *testing.T, mux *http.ServeMux, cycleID, templateID int64, date string) slotResponse {
	t.Helper()
	url := fmt.Sprintf("/api/logbook/slot?cycle_id=%d&template_id=%d&date=%s", cycleID, templateID, date)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get slot: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp slotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode slot: %v", err)
	}
	return resp
}

func gridMarks(t *testing.T, mux *http.ServeMux, cycleID int64) []store.GridMark {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/logbook/grid?cycle_id=%d", cycleID), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get grid: status = %d", rec.Code)
	}
	var marks []store.GridMark
	if err := json.Unmarshal(rec.Body.Bytes(), &marks); err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	return marks
}

func TestLogbookLogAndClear(t *testing.T) {
	db := setupHandlerTestDB(t)
	asha, bo := seedRoster(t, db)
	c := createTestCycle(t, db)
	tpl := firstTemplate(t, db)
	mux := newLogbookMux(t, db)

	body := map[string]any{
		"cycle_id":    c.ID,
		"template_id": tpl.ID,
		"task_date":   "2030-10-02",
		"user_ids":    []int64{asha.ID, bo.ID},
		"notes":       "swapped with Friday",
	}
	rec := postJSON(t, mux, http.MethodPost, "/api/logbook", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("log slot: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	slot := getSlot(t, mux, c.ID, tpl.ID, "2030-10-02")
	if len(slot.Users) != 2 {
		t.Errorf("got %d logged users, want 2", len(slot.Users))
	}
	if slot.IsDoneByOther {
		t.Error("slot should not be marked done-by-other")
	}
	if slot.Notes != "swapped with Friday" {
		t.Errorf("notes = %q", slot.Notes)
	}

	if marks := gridMarks(t, mux, c.ID); len(marks) != 1 {
		t.Errorf("got %d grid marks, want 1", len(marks))
	}

	// Re-logging with no members and no done-by-other flag clears the slot.
	body["user_ids"] = []int64{}
	rec = postJSON(t, mux, http.MethodPost, "/api/logbook", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("clear slot: status = %d", rec.Code)
	}

	slot = getSlot(t, mux, c.ID, tpl.ID, "2030-10-02")
	if len(slot.Users) != 0 || slot.IsDoneByOther {
		t.Errorf("slot should be empty after clear, got %+v", slot)
	}
	if marks := gridMarks(t, mux, c.ID); len(marks) != 0 {
		t.Errorf("got %d grid marks after clear, want 0", len(marks))
	}
}

func TestLogbookDoneByOther(t *testing.T) {
	db := setupHandlerTestDB(t)
	seedRoster(t, db)
	c := createTestCycle(t, db)
	tpl := firstTemplate(t, db)
	mux := newLogbookMux(t, db)

	rec := postJSON(t, mux, http.MethodPost, "/api/logbook", map[string]any{
		"cycle_id":         c.ID,
		"template_id":      tpl.ID,
		"task_date":        "2030-10-03",
		"is_done_by_other": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("log done-by-other: status = %d", rec.Code)
	}

	slot := getSlot(t, mux, c.ID, tpl.ID, "2030-10-03")
	if !slot.IsDoneByOther {
		t.Error("slot should be marked done-by-other")
	}
	if len(slot.Users) != 0 {
		t.Errorf("done-by-other slot should list no users, got %d", len(slot.Users))
	}

	// The mark still shows on the grid even though no points were earned.
	if marks := gridMarks(t, mux, c.ID); len(marks) != 1 {
		t.Errorf("got %d grid marks, want 1", len(marks))
	}
}

func TestLogbookLogUnknownTemplate(t *testing.T) {
	db := setupHandlerTestDB(t)
	seedRoster(t, db)
	c := createTestCycle(t, db)
	mux := newLogbookMux(t, db)

	rec := postJSON(t, mux, http.MethodPost, "/api/logbook", map[string]any{
		"cycle_id":    c.ID,
		"template_id": 999,
		"task_date":   "2030-10-03",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestLogbookAvailableIncludesSnapshotMembers(t *testing.T) {
	db := setupHandlerTestDB(t)
	seedRoster(t, db)
	c := createTestCycle(t, db)
	tpl := firstTemplate(t, db)

	// The snapshot is taken when standings are calculated.
	rec := postJSON(t, newStandingsMux(t, db), http.MethodPost, "/api/standings/calculate", map[string]any{"cycle_id": c.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate: status = %d", rec.Code)
	}

	mux := newLogbookMux(t, db)
	// 2030-10-02 is a Wednesday.
	url := fmt.Sprintf("/api/logbook/available?cycle_id=%d&template_id=%d&day=3&period=%s&date=2030-10-02", c.ID, tpl.ID, tpl.Period)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("available: status = %d, body = %s", getRec.Code, getRec.Body.String())
	}

	var members []model.Member
	if err := json.Unmarshal(getRec.Body.Bytes(), &members); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("got %d available members, want 2", len(members))
	}
}
