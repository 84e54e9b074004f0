package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/messmate/internal/cycle"
	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/store"
	"github.com/dukerupert/messmate/internal/timeband"
	"github.com/dukerupert/messmate/internal/websocket"
)

type CycleHandler struct {
	cycleStore  *store.CycleStore
	memberStore *store.MemberStore
	targetStore *store.TargetStore
	hub         *websocket.Hub
}

func NewCycleHandler(cs *store.CycleStore, ms *store.MemberStore, tgs *store.TargetStore, hub *websocket.Hub) *CycleHandler {
	return &CycleHandler{cycleStore: cs, memberStore: ms, targetStore: tgs, hub: hub}
}

func (h *CycleHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type cycleRequest struct {
	Name            string                `json:"cycle_name"`
	StartDate       string                `json:"start_date"`
	EndDate         string                `json:"end_date"`
	StartPeriod     string                `json:"start_period"`
	EndPeriod       string                `json:"end_period"`
	CalculationMode model.CalculationMode `json:"calculation_mode"`
	ForceOverwrite  bool                  `json:"force_overwrite"`
}

// parse validates the request and converts it into a cycle value. The
// returned message is empty on success.
func (req *cycleRequest) parse() (model.Cycle, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return model.Cycle{}, "cycle_name is required"
	}
	startDate, err := timeband.ParseDate(req.StartDate)
	if err != nil {
		return model.Cycle{}, "start_date must be YYYY-MM-DD"
	}
	endDate, err := timeband.ParseDate(req.EndDate)
	if err != nil {
		return model.Cycle{}, "end_date must be YYYY-MM-DD"
	}
	startPeriod, err := timeband.ParsePeriod(req.StartPeriod)
	if err != nil {
		return model.Cycle{}, "start_period must be Morning, Noon or Evening"
	}
	endPeriod, err := timeband.ParsePeriod(req.EndPeriod)
	if err != nil {
		return model.Cycle{}, "end_period must be Morning, Noon or Evening"
	}
	if !req.CalculationMode.Valid() {
		return model.Cycle{}, "calculation_mode must be Legacy or Group"
	}
	if endDate.Before(startDate) {
		return model.Cycle{}, "start date cannot be after the end date"
	}
	if startDate == endDate && startPeriod > endPeriod {
		return model.Cycle{}, "start period must not be after the end period on the same day"
	}
	return model.Cycle{
		Name:            req.Name,
		StartDate:       startDate,
		EndDate:         endDate,
		StartPeriod:     startPeriod,
		EndPeriod:       endPeriod,
		CalculationMode: req.CalculationMode,
	}, ""
}

type overlapRef struct {
	CycleID   int64  `json:"cycle_id"`
	CycleName string `json:"cycle_name"`
}

func overlapRefs(cycles []model.Cycle) []overlapRef {
	refs := make([]overlapRef, 0, len(cycles))
	for _, c := range cycles {
		refs = append(refs, overlapRef{CycleID: c.ID, CycleName: c.Name})
	}
	return refs
}

type activeCycle struct {
	model.Cycle
	StartBoundary time.Time `json:"start_boundary"`
	EndBoundary   time.Time `json:"end_boundary"`
}

// Settings returns the active cycle with resolved boundaries, the most
// recently ended past cycle, and the period vocabulary.
func (h *CycleHandler) Settings(w http.ResponseWriter, r *http.Request) {
	cycles, err := h.cycleStore.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list cycles"})
		return
	}

	now := timeband.Now()

	var current *activeCycle
	if active := cycle.FindActive(cycles, now); active != nil {
		start, end, err := cycle.Boundaries(*active)
		if err == nil {
			current = &activeCycle{Cycle: *active, StartBoundary: start, EndBoundary: end}
		}
	}

	// Most recently ended cycle, by end boundary.
	var last *model.Cycle
	var lastEnd time.Time
	for i := range cycles {
		_, end, err := cycle.Boundaries(cycles[i])
		if err != nil {
			continue
		}
		if end.Before(now) && (last == nil || end.After(lastEnd)) {
			last = &cycles[i]
			lastEnd = end
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"current":      current,
		"last_cycle":   last,
		"time_periods": timeband.PeriodNames(),
	})
}

func (h *CycleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req cycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	c, msg := req.parse()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	newStart, newEnd, err := cycle.Boundaries(c)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cycle boundaries"})
		return
	}

	existing, err := h.cycleStore.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list cycles"})
		return
	}
	overlapping, err := cycle.FindOverlapping(existing, newStart, newEnd, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check for overlap"})
		return
	}

	if len(overlapping) > 0 && !req.ForceOverwrite {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":              "CYCLE_CONFLICT",
			"details":            "this cycle overlaps existing history; confirm overwrite to adjust the timeline",
			"overlapping_cycles": overlapRefs(overlapping),
		})
		return
	}

	plan, err := cycle.PlanTrim(newStart, newEnd, overlapping)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to plan trim"})
		return
	}

	created, err := h.cycleStore.CreateWithTrim(c, plan)
	if err != nil {
		slog.Error("create cycle", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create cycle"})
		return
	}

	// Seed zero objectives so the scoreboard shows every roster member
	// before the first calculation runs.
	members, err := h.memberStore.ListByRole(model.RoleMember)
	if err == nil {
		targets := make([]model.CycleTarget, 0, len(members))
		for _, m := range members {
			targets = append(targets, model.CycleTarget{CycleID: created.ID, UserID: m.ID})
		}
		if err := h.targetStore.ReplaceForCycle(created.ID, targets); err != nil {
			slog.Error("seed cycle targets", "cycle_id", created.ID, "error", err)
		}
	}

	h.broadcast(websocket.NewMessage(websocket.EntityCycle, websocket.ActionCreated, created.ID, nil))

	writeJSON(w, http.StatusCreated, created)
}

func (h *CycleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req cycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	c, msg := req.parse()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	cycles, err := h.cycleStore.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list cycles"})
		return
	}
	active := cycle.FindActive(cycles, timeband.Now())
	if active == nil || active.ID != id {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "target cycle is not the currently active cycle"})
		return
	}

	newStart, newEnd, err := cycle.Boundaries(c)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cycle boundaries"})
		return
	}
	overlapping, err := cycle.FindOverlapping(cycles, newStart, newEnd, id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check for overlap"})
		return
	}

	if len(overlapping) > 0 && !req.ForceOverwrite {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":              "EXTERNAL_CYCLE_CONFLICT",
			"details":            "this change extends the cycle into another existing cycle; confirm overwrite to trim external data",
			"overlapping_cycles": overlapRefs(overlapping),
		})
		return
	}

	plan, err := cycle.PlanTrim(newStart, newEnd, overlapping)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to plan trim"})
		return
	}

	updated, err := h.cycleStore.UpdateWithTrim(id, c, plan)
	if err != nil {
		slog.Error("update cycle", "cycle_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update cycle"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityCycle, websocket.ActionUpdated, id, nil))

	writeJSON(w, http.StatusOK, updated)
}

// SetMode switches the active cycle's calculation mode.
func (h *CycleHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewMode model.CalculationMode `json:"new_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !req.NewMode.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid calculation mode"})
		return
	}

	cycles, err := h.cycleStore.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list cycles"})
		return
	}
	active := cycle.FindActive(cycles, timeband.Now())
	if active == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active cycle to change mode for"})
		return
	}

	updated, err := h.cycleStore.SetMode(active.ID, req.NewMode)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update cycle mode"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityCycle, websocket.ActionModeChanged, active.ID, nil))

	writeJSON(w, http.StatusOK, updated)
}

func (h *CycleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.cycleStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get cycle"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cycle not found"})
		return
	}

	if err := h.cycleStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete cycle"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityCycle, websocket.ActionDeleted, id, nil))

	w.WriteHeader(http.StatusNoContent)
}
