// Command server runs the quest HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-quest-backend/internal/config"
	"github.com/tbourn/go-quest-backend/internal/generator"
	httpapi "github.com/tbourn/go-quest-backend/internal/http"
	"github.com/tbourn/go-quest-backend/internal/observability"
	"github.com/tbourn/go-quest-backend/internal/repo"
	"github.com/tbourn/go-quest-backend/internal/sysutil"
)

// @title Quest API
// @version 1.0
// @description Turns everyday tasks into gamified quests. Anonymous callers get a limited trial.
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT issued by the auth provider. Format: Bearer {token}

func main() {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		boot := sysutil.NewLogger(os.Stderr, "info", false, "quest-api")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	version := sysutil.FirstNonEmpty(os.Getenv("SERVICE_VERSION"), "dev")
	logger := sysutil.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	logger.Info().Str("version", version).Str("port", cfg.Port).Msg("starting quest api")

	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DB.Driver, cfg.DB.Path, cfg.DB.URL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	gen, err := generator.New(cfg.Generator)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Generator.Provider).Msg("generator setup failed")
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, gen, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
