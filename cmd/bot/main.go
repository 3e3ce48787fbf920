package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fotolote/intake-bot-go/internal/config"
	"github.com/fotolote/intake-bot-go/internal/database"
	"github.com/fotolote/intake-bot-go/internal/handler"
	"github.com/fotolote/intake-bot-go/internal/jobs"
	"github.com/fotolote/intake-bot-go/internal/middleware"
	"github.com/fotolote/intake-bot-go/internal/recovery"
	"github.com/fotolote/intake-bot-go/internal/redis"
	"github.com/fotolote/intake-bot-go/internal/report"
	"github.com/fotolote/intake-bot-go/internal/repository"
	"github.com/fotolote/intake-bot-go/internal/roster"
	"github.com/fotolote/intake-bot-go/internal/session"
	"github.com/fotolote/intake-bot-go/internal/storage"
	"github.com/fotolote/intake-bot-go/internal/transport"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	pingCancel()

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure database schema")
	}
	schemaCancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	collaborators := roster.New(cfg.RosterPath, cfg.AllowAllWhenEmpty)
	if err := collaborators.Load(); err != nil {
		log.Warn().Err(err).Str("path", cfg.RosterPath).Msg("roster not loaded, starting empty")
	}
	rosterDone := make(chan struct{})
	defer close(rosterDone)
	if err := collaborators.Watch(rosterDone); err != nil {
		log.Warn().Err(err).Msg("roster hot reload disabled")
	}

	clock := clockwork.NewRealClock()

	var store storage.Store
	var storageLabel string
	if cfg.GraphConfigured() {
		store = storage.NewGraphStore(cfg.GraphClientID, cfg.GraphClientSecret, cfg.GraphTenantID, cfg.GraphDriveFolder, clock)
		storageLabel = "OneDrive"
		log.Info().Str("folder", cfg.GraphDriveFolder).Msg("storing batches on OneDrive")
	} else {
		store = storage.NewLocalStore(cfg.PhotosDir, clock)
		storageLabel = "pasta local"
		log.Info().Str("dir", cfg.PhotosDir).Msg("storing batches on the local disk")
	}

	var mailer *report.Mailer
	if cfg.MailConfigured() {
		mailer, err = report.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.ReportTo)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up report mailer")
		}
	} else {
		log.Warn().Msg("smtp not configured, daily report is log-only")
	}

	activityRepo := repository.NewActivityRepository(db.DB)
	reports := report.NewAccumulator(activityRepo, mailer, clock)

	gateway := transport.NewClient(cfg.GatewayBaseURL, cfg.GatewayToken)

	snapshots, err := recovery.NewStore(cfg.SpoolDir, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open snapshot spool")
	}

	registry := session.NewRegistry()
	timers := session.NewTimers(clock)
	machine := session.NewMachine(registry, timers, gateway, store, snapshots, reports, clock, session.Options{
		MinPhotos:        cfg.MinPhotosPerBatch,
		Reminder:         cfg.Reminder(),
		Timeout:          cfg.Timeout(),
		Debounce:         cfg.Debounce(),
		SupervisorChatID: cfg.SupervisorChatID,
		ForwardAttempts:  cfg.ForwardAttempts,
		ForwardDelay:     cfg.ForwardDelay(),
		StorageLabel:     storageLabel,
	})

	// Restore interrupted sessions before the webhook starts accepting
	// messages, so a sender's first message after a crash lands on a
	// recovered session.
	recoveryManager := recovery.NewManager(snapshots, machine, clock, config.SnapshotStaleness)
	if err := recoveryManager.Run(); err != nil {
		log.Error().Err(err).Msg("session recovery failed, starting fresh")
	}

	limiter := redis.NewRateLimiter(redisClient, cfg.RateLimitPerMin)
	webhookHandler := handler.NewWebhookHandler(machine, collaborators, gateway, gateway, limiter, reports)

	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.WebhookSecret)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(middleware.BodyLimit(0))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(signatureMiddleware.Handler)
		r.Post("/webhook", webhookHandler.Handle)
	})

	sweepJob := jobs.NewSweepJob(machine, activityRepo, config.SweepInterval, config.SessionIdleThreshold)
	sweepJob.Start()
	defer sweepJob.Stop()

	reportJob := jobs.NewReportJob(reports)
	reportJob.Start()
	defer reportJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer flushCancel()
	if err := reports.Flush(flushCtx); err != nil {
		log.Error().Err(err).Msg("final report flush failed")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
