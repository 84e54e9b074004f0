package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/recommend"
	"github.com/dukerupert/messmate/internal/standings"
	"github.com/dukerupert/messmate/internal/store"
	"github.com/dukerupert/messmate/internal/timeband"
)

type RecommendationHandler struct {
	cycleStore  *store.CycleStore
	memberStore *store.MemberStore
	availStore  *store.AvailabilityStore
	taskStore   *store.TaskStore
	targetStore *store.TargetStore
}

func NewRecommendationHandler(cs *store.CycleStore, ms *store.MemberStore, as *store.AvailabilityStore, ts *store.TaskStore, tgs *store.TargetStore) *RecommendationHandler {
	return &RecommendationHandler{
		cycleStore:  cs,
		memberStore: ms,
		availStore:  as,
		taskStore:   ts,
		targetStore: tgs,
	}
}

// Get generates slot assignments for the cycle's remaining open slots.
func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	candidates, snapshot, err := h.buildCandidates(*c)
	if err != nil {
		slog.Error("build recommendation candidates", "cycle_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to build candidates"})
		return
	}
	templates, err := h.taskStore.ListTemplates()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list templates"})
		return
	}
	logs, err := h.taskStore.LogsForCycle(c.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list logs"})
		return
	}

	assignments, err := recommend.Generate(recommend.Inputs{
		Cycle:      *c,
		Candidates: candidates,
		Snapshot:   snapshot,
		Templates:  templates,
		Logs:       logs,
	})
	if err != nil {
		slog.Error("generate recommendations", "cycle_id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate recommendations"})
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

// buildCandidates derives each roster member's remaining points and
// urgency from stored targets, logged points, and the cycle snapshot.
func (h *RecommendationHandler) buildCandidates(c model.Cycle) ([]recommend.Candidate, []model.AvailabilityRow, error) {
	members, err := h.memberStore.ListByRole(model.RoleMember)
	if err != nil {
		return nil, nil, err
	}
	targets, err := h.targetStore.ListForCycle(c.ID)
	if err != nil {
		return nil, nil, err
	}
	taken, err := h.targetStore.PointsTakenByMember(c.ID)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := h.availStore.SnapshotRows(c.ID)
	if err != nil {
		return nil, nil, err
	}

	objectives := make(map[int64]float64, len(targets))
	for _, t := range targets {
		objectives[t.UserID] = t.PointObjective
	}
	availByUser := make(map[int64][]model.AvailabilityRow)
	for _, row := range snapshot {
		availByUser[row.UserID] = append(availByUser[row.UserID], row)
	}

	now := timeband.Now()
	candidates := make([]recommend.Candidate, 0, len(members))
	for _, m := range members {
		remaining := objectives[m.ID] - taken[m.ID]
		if remaining < 0 {
			remaining = 0
		}
		priority := standings.CalculatePriority(availByUser[m.ID], remaining, c.EndDate, c.EndPeriod, now)
		candidates = append(candidates, recommend.Candidate{
			ID:               m.ID,
			Name:             m.Name,
			PointsRemaining:  priority.PointsRemaining,
			UrgencyWeight:    priority.UrgencyWeight,
			LastAvailableDay: priority.LastAvailableDay,
		})
	}
	return candidates, snapshot, nil
}
