package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/messmate/internal/model"
	"github.com/dukerupert/messmate/internal/store"
	"github.com/dukerupert/messmate/internal/timeband"
	"github.com/dukerupert/messmate/internal/websocket"
)

type TaskHandler struct {
	store *store.TaskStore
	hub   *websocket.Hub
}

func NewTaskHandler(s *store.TaskStore, hub *websocket.Hub) *TaskHandler {
	return &TaskHandler{store: s, hub: hub}
}

func (h *TaskHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type taskRequest struct {
	Name      string  `json:"task_name"`
	Period    string  `json:"time_of_day"`
	Points    float64 `json:"points"`
	Headcount int     `json:"default_headcount"`
}

func (req *taskRequest) parse() (string, timeband.Period, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "", 0, "task_name is required"
	}
	period, err := timeband.ParsePeriod(req.Period)
	if err != nil {
		return "", 0, "time_of_day must be Morning, Noon or Evening"
	}
	if req.Points <= 0 {
		return "", 0, "points must be positive"
	}
	if req.Headcount < 1 {
		return "", 0, "default_headcount must be at least 1"
	}
	return req.Name, period, ""
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if templates == nil {
		templates = []model.TaskTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	tpl, err := h.store.GetTemplateByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if tpl == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	name, period, msg := req.parse()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	tpl, err := h.store.CreateTemplate(name, period, req.Points, req.Headcount)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionCreated, tpl.ID, nil))

	writeJSON(w, http.StatusCreated, tpl)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetTemplateByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	name, period, msg := req.parse()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	tpl, err := h.store.UpdateTemplate(id, name, period, req.Points, req.Headcount)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionUpdated, id, nil))

	writeJSON(w, http.StatusOK, tpl)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.store.GetTemplateByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	if err := h.store.DeleteTemplate(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionDeleted, id, nil))

	w.WriteHeader(http.StatusNoContent)
}
