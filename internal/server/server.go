package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/messmate/internal/backup"
	"github.com/dukerupert/messmate/internal/handler"
	"github.com/dukerupert/messmate/internal/middleware"
	"github.com/dukerupert/messmate/internal/store"
	ws "github.com/dukerupert/messmate/internal/websocket"
)

type Server struct {
	db              *sql.DB
	hub             *ws.Hub
	memberH         *handler.MemberHandler
	cycleH          *handler.CycleHandler
	taskH           *handler.TaskHandler
	logbookH        *handler.LogbookHandler
	availabilityH   *handler.AvailabilityHandler
	standingsH      *handler.StandingsHandler
	recommendationH *handler.RecommendationHandler
	backupH         *handler.BackupHandler
	rateLimiter     *middleware.RateLimiter
	backupManager   *backup.Manager
	logger          *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	memberStore := store.NewMemberStore(db)
	cycleStore := store.NewCycleStore(db)
	taskStore := store.NewTaskStore(db)
	availabilityStore := store.NewAvailabilityStore(db)
	targetStore := store.NewTargetStore(db)

	backupMgr := backup.NewManager(backupCfg, db, func(s backup.Status) {
		hub.Broadcast(ws.NewMessage(ws.EntityBackup, ws.ActionStatus, 0, map[string]any{
			"state":       string(s.State),
			"in_progress": s.InProgress,
			"error":       s.Error,
		}))
	}, logger.With("component", "backup"))

	return &Server{
		db:              db,
		hub:             hub,
		memberH:         handler.NewMemberHandler(memberStore, hub),
		cycleH:          handler.NewCycleHandler(cycleStore, memberStore, targetStore, hub),
		taskH:           handler.NewTaskHandler(taskStore, hub),
		logbookH:        handler.NewLogbookHandler(taskStore, hub),
		availabilityH:   handler.NewAvailabilityHandler(availabilityStore, hub),
		standingsH:      handler.NewStandingsHandler(cycleStore, memberStore, availabilityStore, taskStore, targetStore, hub),
		recommendationH: handler.NewRecommendationHandler(cycleStore, memberStore, availabilityStore, taskStore, targetStore),
		backupH:         handler.NewBackupHandler(backupMgr),
		rateLimiter:     middleware.NewRateLimiter(),
		backupManager:   backupMgr,
		logger:          logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Member API routes
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)

	// Cycle API routes
	mux.HandleFunc("GET /api/cycles", s.cycleH.Settings)
	mux.HandleFunc("POST /api/cycles", s.cycleH.Create)
	mux.HandleFunc("PUT /api/cycles/mode", s.cycleH.SetMode)
	mux.HandleFunc("PUT /api/cycles/{id}", s.cycleH.Update)
	mux.HandleFunc("DELETE /api/cycles/{id}", s.cycleH.Delete)

	// Task template API routes
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// Logbook API routes
	mux.HandleFunc("GET /api/logbook/grid", s.logbookH.Grid)
	mux.HandleFunc("GET /api/logbook/slot", s.logbookH.Slot)
	mux.HandleFunc("GET /api/logbook/available", s.logbookH.Available)
	mux.HandleFunc("POST /api/logbook", s.logbookH.Log)

	// Availability API routes
	mux.HandleFunc("GET /api/availability", s.availabilityH.Summary)
	mux.HandleFunc("PUT /api/availability/slot", s.availabilityH.SetSlot)
	mux.HandleFunc("PUT /api/availability/day", s.availabilityH.SetDay)

	// Standings + recommendations. Recalculation walks the whole cycle,
	// so it is rate limited per client IP.
	mux.HandleFunc("POST /api/standings/calculate", s.rateLimitedHandler(s.standingsH.Calculate))
	mux.HandleFunc("GET /api/standings/{cycleId}", s.standingsH.Get)
	mux.HandleFunc("GET /api/recommendations/{cycleId}", s.recommendationH.Get)

	// Backup API routes
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backup/run", s.backupH.Run)
	mux.HandleFunc("POST /api/backup/restore", s.backupH.Restore)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 30, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
