package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/store"
	"github.com/dukerupert/messmate/internal/timeband"
	"github.com/dukerupert/messmate/internal/websocket"
)

type LogbookHandler struct {
	taskStore *store.TaskStore
	hub       *websocket.Hub
}

func NewLogbookHandler(ts *store.TaskStore, hub *websocket.Hub) *LogbookHandler {
	return &LogbookHandler{taskStore: ts, hub: hub}
}

func (h *LogbookHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func queryInt64(r *http.Request, key string) (int64, bool) {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v, err == nil
}

// Grid returns the (date, period) pairs with at least one log entry, for
// painting completion marks on the logbook grid.
func (h *LogbookHandler) Grid(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := queryInt64(r, "cycle_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cycle_id is required"})
		return
	}
	marks, err := h.taskStore.GridMarks(cycleID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load grid"})
		return
	}
	if marks == nil {
		marks = []store.GridMark{}
	}
	writeJSON(w, http.StatusOK, marks)
}

// slotResponse mirrors what the log dialog needs: who is logged, whether
// the slot was covered by an outsider, and the shared note.
type slotResponse struct {
	Users         []map[string]int64 `json:"users"`
	IsDoneByOther bool               `json:"is_done_by_other"`
	Notes         string             `json:"notes"`
}

// Slot returns the current log state of one template on one date.
func (h *LogbookHandler) Slot(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := queryInt64(r, "cycle_id")
	templateID, ok2 := queryInt64(r, "template_id")
	date, err := timeband.ParseDate(r.URL.Query().Get("date"))
	if !ok || !ok2 || err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cycle_id, template_id and date are required"})
		return
	}

	logs, err := h.taskStore.SlotLog(cycleID, templateID, date)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load slot"})
		return
	}

	resp := slotResponse{Users: []map[string]int64{}}
	if len(logs) > 0 {
		resp.Notes = logs[0].Notes
		if logs[0].UserID == nil {
			resp.IsDoneByOther = true
		} else {
			for _, l := range logs {
				if l.UserID != nil {
					resp.Users = append(resp.Users, map[string]int64{"user_id": *l.UserID})
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Available lists the members the log dialog may offer for a slot:
// snapshot-available members plus anyone already logged there.
func (h *LogbookHandler) Available(w http.ResponseWriter, r *http.Request) {
	cycleID, ok := queryInt64(r, "cycle_id")
	templateID, ok2 := queryInt64(r, "template_id")
	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	period, perr := timeband.ParsePeriod(r.URL.Query().Get("period"))
	date, derr := timeband.ParseDate(r.URL.Query().Get("date"))
	if !ok || !ok2 || err != nil || perr != nil || derr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cycle_id, template_id, day, period and date are required"})
		return
	}

	members, err := h.taskStore.SlotMembers(cycleID, templateID, day, period, date)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load available members"})
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

type logRequest struct {
	CycleID       int64   `json:"cycle_id"`
	TemplateID    int64   `json:"template_id"`
	TaskDate      string  `json:"task_date"`
	UserIDs       []int64 `json:"user_ids"`
	IsDoneByOther bool    `json:"is_done_by_other"`
	Notes         string  `json:"notes"`
}

// Log replaces a slot's entries. Each named member earns the template's
// full point value; a done-by-other slot is recorded with no member and
// zero points; naming no one simply clears the slot.
func (h *LogbookHandler) Log(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	date, err := timeband.ParseDate(req.TaskDate)
	if err != nil || req.CycleID == 0 || req.TemplateID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cycle_id, template_id and task_date are required"})
		return
	}

	tpl, err := h.taskStore.GetTemplateByID(req.TemplateID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if tpl == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task template not found"})
		return
	}

	switch {
	case req.IsDoneByOther:
		err = h.taskStore.LogSlot(req.CycleID, req.TemplateID, date, tpl.Period, nil, 0, req.Notes)
	case len(req.UserIDs) > 0:
		err = h.taskStore.LogSlot(req.CycleID, req.TemplateID, date, tpl.Period, req.UserIDs, tpl.Points, req.Notes)
	default:
		err = h.taskStore.ClearSlot(req.CycleID, req.TemplateID, date)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to log task"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityLogbook, websocket.ActionLogged, req.TemplateID, map[string]any{
		"cycle_id":  req.CycleID,
		"task_date": date.String(),
	}))

	writeJSON(w, http.StatusCreated, map[string]string{"message": "task logged"})
}
