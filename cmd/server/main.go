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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/auth"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/catalog"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/config"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/database"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/notify"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/observability"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/rfpo"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/server"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/uploads"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow"
	"github.com/luckyjohnb/rfpo-application-sub000/internal/workflow/service"
)

func main() {
	// Load configuration from config.yml and environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("rfpo-server", cfg.Log.Level, cfg.Log.Format)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info().
		Str("env", cfg.Env).
		Str("db_host", cfg.Database.Host).
		Int("db_port", cfg.Database.Port).
		Str("db_name", cfg.Database.Name).
		Str("storage", cfg.Storage.Type).
		Bool("require_documents", cfg.Approval.RequireDocuments).
		Msg("configuration loaded successfully")

	ctx := context.Background()

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	redisClient, err := database.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var cache *catalog.Cache
	if redisClient != nil {
		cache = catalog.NewCache(redisClient, time.Duration(cfg.Redis.CatalogCacheTTL)*time.Second)
	}
	store := catalog.NewStore(db, cache)
	if n, err := store.SeedIfEmpty(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed catalog")
	} else if n > 0 {
		log.Info().Int("entries", n).Msg("empty catalog seeded with defaults")
	}

	users := auth.NewAuthService(db)
	rfpos := rfpo.NewRepository(db)

	deps := workflow.Dependencies{
		DB:      db,
		Catalog: store,
		Users:   users,
		RFPOs:   rfpos,
		Config:  service.ApprovalServiceConfig{RequireDocuments: cfg.Approval.RequireDocuments},
	}
	// A nil *notify.Publisher in the interface would not read as "disabled".
	if publisher := notify.NewPublisher(redisClient); publisher != nil {
		deps.Notifier = publisher
	}
	manager := workflow.NewManager(deps)

	driver, err := uploads.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upload storage")
	}

	engine := server.NewEngine(server.Options{
		CORS:     cfg.CORS,
		DB:       db,
		Users:    users,
		Tokens:   auth.NewTokenExtractor(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		Workflow: manager,
		Uploads:  uploads.NewHTTPHandler(uploads.NewUploadService(driver, rfpos)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	} else {
		log.Info().Msg("server gracefully stopped")
	}
}
