package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footfall-prediction-api/config"
	"footfall-prediction-api/handlers"
	"footfall-prediction-api/logging"
	"footfall-prediction-api/middleware"
	"footfall-prediction-api/services"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.Log.SlogLevel()
	logger := logging.New(os.Stdout, level)
	slog.SetDefault(logger)

	// Redis is optional; uploads are recomputed when it is absent
	cache, err := services.NewCacheService(ctx, cfg.Redis.URL, cfg.Redis.ViewsTTL, logger)
	if err != nil {
		logging.LogError(logger, "view cache disabled", err)
	} else if cache.Available() {
		logger.Info("redis connected", "url", cfg.Redis.URL)
	}
	defer cache.Close()

	artifacts := services.NewArtifacts(cfg.Artifacts.DataPath, cfg.Artifacts.ModelPath, cfg.Artifacts.SchemaPath)
	warmUp(logger, artifacts)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.SetupCORS(cfg.CORS))

	handlers.RegisterRoutes(router,
		handlers.NewViewsHandler(artifacts, cache, cfg.Server.MaxUploadBytes(), logger),
		handlers.NewPredictionHandler(artifacts, cfg.Server.MaxUploadBytes(), logger),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError(logger, "server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "graceful shutdown failed", err)
	}
}

// warmUp loads the default dataset and the model once at startup so the
// first request does not pay for it. Failures are logged, not fatal: views
// and predictions report them per request.
func warmUp(logger *slog.Logger, artifacts *services.Artifacts) {
	start := time.Now()
	if ds, err := artifacts.Dataset(); err != nil {
		logging.LogError(logger, "default dataset unavailable", err, slog.String("path", artifacts.DataPath))
	} else {
		logging.LogOperation(logger, "default dataset loaded",
			slog.String("path", artifacts.DataPath),
			slog.Int("raw_rows", ds.Summary.RawRows),
			slog.Int("clean_rows", ds.Summary.CleanRows),
			slog.Duration("duration", time.Since(start)),
		)
	}

	if model, err := artifacts.Model(); err != nil {
		logging.LogError(logger, "prediction disabled", err, slog.String("model", artifacts.ModelPath))
	} else {
		logger.Info("model loaded", "version", model.Version, "features", len(model.Schema.Columns))
	}
}
