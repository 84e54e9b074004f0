package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/messmate/internal/backup"
)

type BackupHandler struct {
	manager *backup.Manager
}

func NewBackupHandler(m *backup.Manager) *BackupHandler {
	return &BackupHandler{manager: m}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	}

	key, err := h.manager.RunNow(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backup failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key})
}

type restoreRequest struct {
	Key string `json:"key"`
}

// Restore replaces the live database with a named backup object. On
// success the process exits so the supervisor restarts it against the
// restored file, so no response is written.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return
	}

	if !h.manager.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	}

	if err := h.manager.Restore(r.Context(), req.Key); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "restore failed"})
		return
	}
}
