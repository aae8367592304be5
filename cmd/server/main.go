// Package main is the entry point for the renewals analytics service.
//
// Startup order: configuration, logging, the ingest source, the initial
// catalog (falling back to the last snapshot), the HTTP server and the
// reload scheduler.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/renewals/internal/config"
	"github.com/aristath/renewals/internal/database"
	"github.com/aristath/renewals/internal/modules/analytics"
	analyticshandlers "github.com/aristath/renewals/internal/modules/analytics/handlers"
	"github.com/aristath/renewals/internal/modules/catalog"
	"github.com/aristath/renewals/internal/modules/ingest"
	"github.com/aristath/renewals/internal/scheduler"
	"github.com/aristath/renewals/internal/server"
	"github.com/aristath/renewals/pkg/logger"
)

// stagingCheckSchedule runs the staging integrity check daily at 03:00
const stagingCheckSchedule = "0 0 3 * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("source", cfg.SourceKind).
		Str("source_path", cfg.SourcePath).
		Str("data_dir", cfg.DataDir).
		Msg("Starting renewals analytics")

	source, stagingDB, err := openSource(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ingest source")
	}
	if stagingDB != nil {
		defer stagingDB.Close()
	}

	store := catalog.NewStore(log)
	snapshots := ingest.NewSnapshotStore(cfg.SnapshotPath, log)
	loader := ingest.NewLoader(source, snapshots, store, log)

	// The service starts without a catalog if both the source and the
	// snapshot fail; analytics answer 503 until a reload succeeds.
	bootCtx, bootCancel := context.WithTimeout(context.Background(), ingest.DefaultLoadTimeout)
	if _, err := loader.Bootstrap(bootCtx); err != nil {
		log.Warn().Err(err).Msg("No catalog available at startup")
	}
	bootCancel()

	service := analytics.NewService(store, cfg.AnalyticsOptions(), log)
	analyticsHandler := analyticshandlers.NewHandler(service, loader, log)

	sched := scheduler.New(log)
	if cfg.ReloadSchedule != "" {
		if err := sched.AddJob(cfg.ReloadSchedule, loader); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.ReloadSchedule).Msg("Failed to schedule catalog reload")
		}
	} else {
		log.Info().Msg("Scheduled reloads disabled")
	}
	if stagingDB != nil {
		if err := sched.AddJob(stagingCheckSchedule, scheduler.NewCheckStagingDatabaseJob(stagingDB, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule staging database check")
		}
	}

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Store:     store,
		Analytics: analyticsHandler,
		StagingDB: stagingDB,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	sched.Start()
	log.Info().Int("port", cfg.Port).Int("jobs", sched.Len()).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Waits for a running reload to finish
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openSource builds the configured ingest source. The staging database is
// returned for the sqlite source so it can be health-checked.
func openSource(cfg *config.Config, log zerolog.Logger) (ingest.Source, *database.DB, error) {
	switch cfg.SourceKind {
	case config.SourceXLSX:
		return ingest.NewXLSXSource(cfg.SourcePath, log), nil, nil
	default:
		db, err := database.New(database.Config{
			Path:     cfg.SourcePath,
			Name:     "staging",
			ReadOnly: true,
		})
		if err != nil {
			return nil, nil, err
		}
		return ingest.NewSQLiteSource(db.Conn(), log), db, nil
	}
}
