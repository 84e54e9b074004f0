package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/messmate/internal/store"
	"github.com/dukerupert/messmate/internal/timeband"
	"github.com/dukerupert/messmate/internal/websocket"
)

type AvailabilityHandler struct {
	store *store.AvailabilityStore
	hub   *websocket.Hub
}

func NewAvailabilityHandler(s *store.AvailabilityStore, hub *websocket.Hub) *AvailabilityHandler {
	return &AvailabilityHandler{store: s, hub: hub}
}

func (h *AvailabilityHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// slotSummary is one cell of the weekly grid.
type slotSummary struct {
	Count int     `json:"count"`
	Users []int64 `json:"users"`
}

// Summary returns the live grid as day → period → {count, users}, the
// shape the grid view consumes directly.
func (h *AvailabilityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.Grid()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load availability"})
		return
	}

	summary := make(map[int]map[string]*slotSummary, 7)
	for day := 0; day <= 6; day++ {
		summary[day] = make(map[string]*slotSummary, len(timeband.Periods))
		for _, p := range timeband.Periods {
			summary[day][p.String()] = &slotSummary{Users: []int64{}}
		}
	}
	for _, row := range rows {
		cell := summary[row.DayOfWeek][row.Period.String()]
		cell.Count++
		cell.Users = append(cell.Users, row.UserID)
	}
	writeJSON(w, http.StatusOK, summary)
}

type slotUpdateRequest struct {
	Day     int     `json:"day_of_week"`
	Period  string  `json:"time_of_day"`
	UserIDs []int64 `json:"user_ids"`
}

// SetSlot replaces one grid cell's member list.
func (h *AvailabilityHandler) SetSlot(w http.ResponseWriter, r *http.Request) {
	var req slotUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Day < 0 || req.Day > 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day_of_week must be 0-6"})
		return
	}
	period, err := timeband.ParsePeriod(req.Period)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "time_of_day must be Morning, Noon or Evening"})
		return
	}

	if err := h.store.SetSlot(req.Day, period, req.UserIDs); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update slot"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityAvailability, websocket.ActionSlotUpdated, int64(req.Day), nil))

	writeJSON(w, http.StatusOK, map[string]string{"message": "slot updated"})
}

type dayUpdateRequest struct {
	Day     int     `json:"day_of_week"`
	Checked bool    `json:"checked"`
	UserIDs []int64 `json:"user_ids"`
}

// SetDay clears a weekday or marks the given members available for all
// of its periods.
func (h *AvailabilityHandler) SetDay(w http.ResponseWriter, r *http.Request) {
	var req dayUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Day < 0 || req.Day > 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day_of_week must be 0-6"})
		return
	}

	if err := h.store.SetFullDay(req.Day, req.Checked, req.UserIDs); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update day"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityAvailability, websocket.ActionDayUpdated, int64(req.Day), nil))

	writeJSON(w, http.StatusOK, map[string]string{"message": "day updated"})
}
