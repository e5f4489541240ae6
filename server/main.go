package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cineticket/api/routes"
	"cineticket/internal/catalog"
	"cineticket/internal/notifications"
	"cineticket/internal/orders"
	"cineticket/internal/payments"
	"cineticket/internal/shared/config"
	"cineticket/internal/shared/database"
	"cineticket/internal/shared/middleware"
	"cineticket/internal/tickets"
	"cineticket/pkg/logger"
	"cineticket/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg, models()...)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), &ratelimit.Config{
			Enabled:                 cfg.RateLimit.Enabled,
			WindowDuration:          cfg.RateLimit.WindowDuration,
			DefaultRequests:         cfg.RateLimit.DefaultRequests,
			PublicRequests:          cfg.RateLimit.PublicRequests,
			BookingRequests:         cfg.RateLimit.BookingRequests,
			BookingCriticalRequests: cfg.RateLimit.BookingCriticalRequests,
			PaymentCallbackRequests: cfg.RateLimit.PaymentCallbackRequests,
			CheckInRequests:         cfg.RateLimit.CheckInRequests,
			AdminRequests:           cfg.RateLimit.AdminRequests,
			UserRequests:            cfg.RateLimit.UserRequests,
			HealthRequests:          cfg.RateLimit.HealthRequests,
			WhitelistedIPs:          cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	notifier, closeNotifier := setupNotifier(cfg, appLogger)
	defer closeNotifier()

	appRouter := routes.NewRouter(cfg, db, notifier)

	// Scripts are loaded lazily on first use if this fails
	preloadCtx, preloadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := appRouter.HoldManager().PreloadScripts(preloadCtx); err != nil {
		appLogger.Error("Failed to preload Redis Lua scripts", slog.Any("error", err))
	} else {
		appLogger.Info("✅ Redis Lua scripts preloaded for seat holds")
	}
	preloadCancel()

	jobsCtx, jobsCancel := context.WithCancel(context.Background())
	defer jobsCancel()
	processor := appRouter.NewJobProcessor()
	processor.Start(jobsCtx)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        setupEngine(appRouter, rateLimiter),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("git_commit", GitCommit),
			slog.String("build_time", BuildTime),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}
	processor.Stop()

	appLogger.Info("Server exited gracefully")
}

func models() []interface{} {
	var all []interface{}
	all = append(all, catalog.Models()...)
	all = append(all, orders.Models()...)
	all = append(all, payments.Models()...)
	all = append(all, tickets.Models()...)
	return all
}

// setupNotifier returns the Kafka publisher when enabled. Bookings never
// depend on it, so a broker outage at startup falls back to a no-op.
func setupNotifier(cfg *config.Config, appLogger *logger.Logger) (notifications.Notifier, func()) {
	if !cfg.Kafka.Enabled {
		appLogger.Info("Kafka disabled, notifications will not be published")
		return notifications.NoopNotifier{}, func() {}
	}

	producer, err := notifications.NewKafkaNotificationProducer(
		notifications.DefaultKafkaProducerConfig(cfg.Kafka.Brokers, cfg.Kafka.Topic),
	)
	if err != nil {
		appLogger.Error("Failed to initialize notification producer", slog.Any("error", err))
		return notifications.NoopNotifier{}, func() {}
	}

	appLogger.Info("Notification producer initialized",
		slog.Any("brokers", cfg.Kafka.Brokers),
		slog.String("topic", cfg.Kafka.Topic),
	)
	return notifications.NewPublisher(producer), func() {
		if err := producer.Close(); err != nil {
			appLogger.Error("Error closing notification producer", slog.Any("error", err))
		}
	}
}

func setupEngine(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.HolderHeader},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
