package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etuitionbd/etuition-be/internal/api"
	"github.com/etuitionbd/etuition-be/internal/auth"
	"github.com/etuitionbd/etuition-be/internal/config"
	"github.com/etuitionbd/etuition-be/internal/database"
	"github.com/etuitionbd/etuition-be/internal/logger"
	"github.com/etuitionbd/etuition-be/internal/monitoring"
	"github.com/etuitionbd/etuition-be/internal/observability"
	"github.com/etuitionbd/etuition-be/internal/services"
	"github.com/rs/zerolog/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, cfg.Env)

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize Sentry, continuing without it")
	}
	defer flushSentry()

	// Set up database
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	cancelConnect()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := db.Close(cfg.ShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create indexes")
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("Connected to MongoDB")

	// Token verification against Google's published signing certificates
	verifier := auth.NewFirebaseVerifier(cfg.FirebaseProjectID, auth.NewCertKeySource(auth.GoogleCertsURL, nil))

	// Set up services
	userService := services.NewUserService(db)
	tuitionService := services.NewTuitionService(db)
	applicationService := services.NewApplicationService(db, tuitionService)

	// Set up and run the background counter reconciler
	var reconciler *monitoring.Reconciler
	if cfg.ReconcileSchedule != "" {
		reconciler, err = monitoring.NewReconciler(tuitionService, cfg.ReconcileSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up counter reconciler")
		}
		reconciler.Start()
	}

	// Set up router
	router := api.NewRouter(api.Deps{
		AllowedOrigins: cfg.AllowedOrigins,
		Verifier:       verifier,
		Users:          userService,
		Tuitions:       tuitionService,
		Applications:   applicationService,
		DB:             db,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if reconciler != nil {
		reconciler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
