package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/messmate/internal/backup"
	"github.com/dukerupert/messmate/internal/database"
	"github.com/dukerupert/messmate/internal/logging"
	"github.com/dukerupert/messmate/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("MESSMATE_LOG_LEVEL"))

	port := os.Getenv("MESSMATE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("MESSMATE_DB_PATH")
	if dbPath == "" {
		dbPath = "messmate.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("MESSMATE_S3_ENDPOINT"),
			Bucket:    os.Getenv("MESSMATE_S3_BUCKET"),
			Region:    os.Getenv("MESSMATE_S3_REGION"),
			AccessKey: os.Getenv("MESSMATE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("MESSMATE_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("MESSMATE_BACKUP_PASSPHRASE"),
	}
	if hours, err := strconv.Atoi(os.Getenv("MESSMATE_BACKUP_INTERVAL_HOURS")); err == nil && hours > 0 {
		backupCfg.Interval = time.Duration(hours) * time.Hour
	}
	if days, err := strconv.Atoi(os.Getenv("MESSMATE_BACKUP_RETENTION_DAYS")); err == nil && days > 0 {
		backupCfg.RetentionDays = days
	}

	srv := server.New(db, backupCfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backupMgr := srv.BackupManager()
	if backupMgr.Enabled() {
		backupMgr.Start(ctx)
		defer backupMgr.Stop()
	}

	// Prune stale rate limiter entries so the per-IP map doesn't grow
	// without bound.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("messmate listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
