// @title Coupon Planner API
// @version 1.0
// @description Plans the cheapest grouping of cart items and coupon assignment across shops.
// @BasePath /
// @securityDefinitions.apikey InternalAPIKey
// @in header
// @name X-Internal-API-Key
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kosarica/coupon-planner/config"
	_ "github.com/kosarica/coupon-planner/docs"
	"github.com/kosarica/coupon-planner/internal/database"
	"github.com/kosarica/coupon-planner/internal/feed"
	"github.com/kosarica/coupon-planner/internal/handlers"
	"github.com/kosarica/coupon-planner/internal/middleware"
	"github.com/kosarica/coupon-planner/internal/plancache"
	"github.com/kosarica/coupon-planner/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().Msg("Starting coupon planner")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	var store handlers.CartStore
	if cfg.Database.URL != "" {
		if err := database.Connect(ctx, cfg.Database); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()

		s := feed.NewStore(database.Pool(), cfg.Feed.CircuitBreaker)
		if err := s.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply schema")
		}
		store = s
		logger.Info().Msg("Database connected")
	} else {
		logger.Warn().Msg("No database configured, cart routes are disabled")
	}

	planHandler, err := handlers.NewPlanHandler(handlers.PlanHandlerConfig{
		Defaults:      cfg.Planner,
		MaxConcurrent: cfg.Server.MaxConcurrentPlans,
		MaxTimeBudget: cfg.Server.MaxRequestTimeBudget,
		MaxWorkers:    cfg.Server.MaxWorkers,
		MaxTopK:       cfg.Server.MaxTopK,
	}, plancache.New(cfg.Cache), store)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create plan handler")
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	internal := router.Group("/internal")
	if cfg.Server.InternalAPIKey != "" {
		internal.Use(middleware.InternalAuth(cfg.Server.InternalAPIKey))
	} else {
		logger.Warn().Msg("Internal API key not set, /internal routes are unauthenticated")
	}
	internal.Use(middleware.RateLimit(ctx, cfg.RateLimit))
	if cfg.RateLimit.Enabled && cfg.RateLimit.GlobalRequestsPerSecond > 0 {
		internal.Use(middleware.GlobalRateLimit(cfg.RateLimit.GlobalRequestsPerSecond, cfg.RateLimit.GlobalBurstSize))
	}
	planHandler.Register(internal)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to flush telemetry")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Str("service", "coupon-planner").Logger()
}
