package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/standings"
	"github.com/dukerupert/messmate/internal/store"
	"github.com/dukerupert/messmate/internal/timeband"
	"github.com/dukerupert/messmate/internal/websocket"
)

type StandingsHandler struct {
	cycleStore  *store.CycleStore
	memberStore *store.MemberStore
	availStore  *store.AvailabilityStore
	taskStore   *store.TaskStore
	targetStore *store.TargetStore
	hub         *websocket.Hub
}

func NewStandingsHandler(cs *store.CycleStore, ms *store.MemberStore, as *store.AvailabilityStore, ts *store.TaskStore, tgs *store.TargetStore, hub *websocket.Hub) *StandingsHandler {
	return &StandingsHandler{
		cycleStore:  cs,
		memberStore: ms,
		availStore:  as,
		taskStore:   ts,
		targetStore: tgs,
		hub:         hub,
	}
}

// standingEntry is one scoreboard line with its live priority attached.
type standingEntry struct {
	store.StandingRow
	standings.Priority
	Ratio float64 `json:"ratio"`
}

// Calculate locks the availability snapshot, recomputes every member's
// objective with the cycle's calculation mode, refreshes credit flags,
// and returns the resulting standings.
func (h *StandingsHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CycleID int64 `json:"cycle_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CycleID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cycle_id is required"})
		return
	}

	c, err := h.cycleStore.GetByID(req.CycleID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get cycle"})
		return
	}
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cycle not found"})
		return
	}

	if err := h.availStore.Snapshot(c.ID); err != nil {
		slog.Error("snapshot availability", "cycle_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to snapshot availability"})
		return
	}

	targets, err := h.computeObjectives(*c)
	if err != nil {
		slog.Error("calculate objectives", "cycle_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to calculate objectives"})
		return
	}
	if err := h.targetStore.ReplaceForCycle(c.ID, targets); err != nil {
		slog.Error("store objectives", "cycle_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store objectives"})
		return
	}

	entries, err := h.standingsWithPriority(*c)
	if err != nil {
		slog.Error("read standings", "cycle_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read standings"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityStandings, websocket.ActionCalculated, c.ID, nil))

	writeJSON(w, http.StatusOK, entries)
}

// Get returns the stored standings for a cycle with live priority,
// refreshing credit flags first.
func (h *StandingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cycleID, err := strconv.ParseInt(r.PathValue("cycleId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cycle id"})
		return
	}

	c, err := h.cycleStore.GetByID(cycleID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get cycle"})
		return
	}
	if c == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cycle not found"})
		return
	}

	entries, err := h.standingsWithPriority(*c)
	if err != nil {
		slog.Error("read standings", "cycle_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read standings"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *StandingsHandler) computeObjectives(c model.Cycle) ([]model.CycleTarget, error) {
	calc, err := standings.ForMode(c.CalculationMode)
	if err != nil {
		return nil, err
	}
	members, err := h.memberStore.List()
	if err != nil {
		return nil, err
	}
	snapshot, err := h.availStore.SnapshotRows(c.ID)
	if err != nil {
		return nil, err
	}
	templates, err := h.taskStore.ListTemplates()
	if err != nil {
		return nil, err
	}
	logs, err := h.taskStore.LogsForCycle(c.ID)
	if err != nil {
		return nil, err
	}
	return calc.Objectives(standings.Inputs{
		Cycle:     c,
		Members:   members,
		Snapshot:  snapshot,
		Templates: templates,
		Logs:      logs,
	})
}

func (h *StandingsHandler) standingsWithPriority(c model.Cycle) ([]standingEntry, error) {
	if err := h.targetStore.RefreshCredits(c.ID); err != nil {
		return nil, err
	}
	rows, err := h.targetStore.Standings(c.ID)
	if err != nil {
		return nil, err
	}
	snapshot, err := h.availStore.SnapshotRows(c.ID)
	if err != nil {
		return nil, err
	}

	availByUser := make(map[int64][]model.AvailabilityRow)
	for _, row := range snapshot {
		availByUser[row.UserID] = append(availByUser[row.UserID], row)
	}

	now := timeband.Now()
	entries := make([]standingEntry, 0, len(rows))
	for _, row := range rows {
		remaining := row.PointObjective - row.PointsTaken
		if remaining < 0 {
			remaining = 0
		}
		priority := standings.CalculatePriority(availByUser[row.UserID], remaining, c.EndDate, c.EndPeriod, now)

		var ratio float64
		if row.PointObjective > 0 {
			ratio = row.PointsTaken / row.PointObjective
		}

		entries = append(entries, standingEntry{
			StandingRow: row,
			Priority:    priority,
			Ratio:       ratio,
		})
	}
	return entries, nil
}

func (h *StandingsHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}
