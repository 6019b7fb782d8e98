package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/courtside/pbp-edit-monitor-go/internal/cache"
	"github.com/courtside/pbp-edit-monitor-go/internal/config"
	"github.com/courtside/pbp-edit-monitor-go/internal/db"
	"github.com/courtside/pbp-edit-monitor-go/internal/db/repository"
	"github.com/courtside/pbp-edit-monitor-go/internal/feed"
	"github.com/courtside/pbp-edit-monitor-go/internal/handler"
	"github.com/courtside/pbp-edit-monitor-go/internal/middleware"
	"github.com/courtside/pbp-edit-monitor-go/internal/service"
	"github.com/courtside/pbp-edit-monitor-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close(pool)

	logger.Log.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
	)

	gameRepo := repository.NewGameRepository(pool)
	actionRepo := repository.NewActionRepository(pool)

	feedClient := feed.NewClient(nil, cfg.Feed.BaseURL, cfg.Feed.UserAgent, cfg.Feed.Timeout)
	syncer := service.NewSyncEngine(feedClient, actionRepo, cfg.Monitor.NoiseThreshold)

	// Alert publishing is optional; the monitor runs fine without a broker.
	var alertSink service.AlertSink
	if cfg.RabbitMQ.Enabled {
		publisher, err := service.NewAlertPublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("Failed to initialize alert publisher, edit alerts disabled",
				zap.Error(err),
			)
		} else {
			alertSink = publisher
			defer func() { _ = publisher.Close() }()
		}
	}

	// The Redis live-score mirror is optional as well.
	var liveCache service.LiveCache
	if cfg.Redis.URL != "" {
		writer, err := cache.NewLiveWriter(cfg.Redis.URL)
		if err != nil {
			logger.Log.Warn("Failed to initialize live cache, dashboard mirror disabled",
				zap.Error(err),
			)
		} else {
			liveCache = writer
			defer func() { _ = writer.Close() }()
		}
	}

	monitor := service.NewMonitor(gameRepo, actionRepo, syncer, feedClient, alertSink, liveCache, cfg.Monitor)
	reviews := service.NewReviewService(actionRepo)

	// Pull today's schedule once at boot so games exist before the first poll.
	if _, err := monitor.SyncSchedule(ctx); err != nil {
		logger.Log.Warn("Initial schedule sync failed", zap.Error(err))
	}

	if err := monitor.Start(ctx); err != nil {
		logger.Log.Fatal("Failed to start monitor", zap.Error(err))
	}

	router := buildRouter(pool, gameRepo, monitor, reviews)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("Server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		monitor.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			_ = server.Close()
		}

		logger.Log.Info("Server stopped gracefully")
	}
}

func buildRouter(
	pool *pgxpool.Pool,
	gameRepo repository.GameRepository,
	monitor *service.Monitor,
	reviews *service.ReviewService,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	healthHandler := handler.NewHealthHandler(pool)
	monitorHandler := handler.NewMonitorHandler(monitor)
	gameHandler := handler.NewGameHandler(gameRepo)
	reviewHandler := handler.NewReviewHandler(reviews)

	router.GET("/health", healthHandler.LivenessProbe)
	router.GET("/ready", healthHandler.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.NewAPIKeyAuth(parseAPIKeys(os.Getenv("API_KEYS")))

	api := router.Group("/api/v1", auth.Middleware())
	{
		api.GET("/games", gameHandler.List)
		api.GET("/games/:gameId", gameHandler.Get)

		api.POST("/games/:gameId/monitor/start", monitorHandler.StartMonitoring)
		api.POST("/games/:gameId/monitor/stop", monitorHandler.StopMonitoring)
		api.GET("/monitor/status", monitorHandler.Status)
		api.POST("/monitor/schedule-sync", monitorHandler.SyncSchedule)

		api.GET("/games/:gameId/actions", reviewHandler.ActionsByPeriod)
		api.GET("/games/:gameId/actions/edited", reviewHandler.EditedActions)
		api.POST("/games/:gameId/actions/:actionNumber/review", reviewHandler.SetReviewStatus)
		api.POST("/games/:gameId/reviews/batch-approve", reviewHandler.BatchApproveUnedited)
		api.POST("/games/:gameId/reviews/clear", reviewHandler.ClearAllReviews)
		api.GET("/games/:gameId/stats", reviewHandler.Stats)
	}

	return router
}

// requestLogger logs completed requests with zap.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Log.Info("Request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("durationMs", time.Since(start).Milliseconds()),
			zap.String("remoteAddr", c.ClientIP()),
		)
	}
}

// parseAPIKeys parses a comma-separated list of API keys.
// Empty strings and whitespace are trimmed from each key.
func parseAPIKeys(apiKeysEnv string) []string {
	if apiKeysEnv == "" {
		return nil
	}

	parts := strings.Split(apiKeysEnv, ",")
	keys := make([]string, 0, len(parts))

	for _, key := range parts {
		trimmed := strings.TrimSpace(key)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}

	return keys
}
