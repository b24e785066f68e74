// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	"coursepay/internal/handlers"
	"coursepay/internal/logger"
	"coursepay/internal/metrics"
	"coursepay/internal/repositories"
	"coursepay/internal/repositories/cache"
	"coursepay/internal/repositories/memory"
	"coursepay/internal/routes"
	"coursepay/internal/services/course"
	"coursepay/internal/services/notification"
	"coursepay/internal/services/paymentlog"
	"coursepay/internal/services/purchase"
	"coursepay/internal/services/rechargecode"
	"coursepay/internal/services/risk"
	"coursepay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// main initializes and starts the HTTP server.
// It performs the following setup:
// - Loads configuration
// - Opens the ledger store
// - Sets up dependency injection
// - Configures routes
// - Starts the HTTP server
func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()
	logger.Init(config.GetBoolEnv("DEBUG", false))

	checks := map[string]handlers.HealthCheckFunc{}

	var store repositories.Store
	var db *gorm.DB
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		store = memory.NewStore()
	default:
		var err error
		db, err = repositories.InitDB(cfg.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer repositories.CloseDB(db)

		store = repositories.NewStore(db)

		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatalf("Failed to get database instance: %v", err)
		}
		checks["database"] = sqlDB.PingContext

		// Add a periodic check of connection pool stats
		go func() {
			ticker := time.NewTicker(1 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				stats := sqlDB.Stats()
				logger.Debugf("DB Stats: Open=%d, Idle=%d, InUse=%d, WaitCount=%d, WaitDuration=%s",
					stats.OpenConnections, stats.Idle, stats.InUse, stats.WaitCount, stats.WaitDuration)
			}
		}()
	}

	var cacheService *cache.CacheService
	var balances wallet.BalanceCache
	var statsCache course.StatsCache
	if cfg.Redis.Enabled {
		client := cache.NewRedisClient(cfg.Redis)
		cacheService = cache.NewCacheService(client, cfg.Ledger.WithDefaults().BalanceCacheTTL)
		if err := cacheService.HealthCheck(context.Background()); err != nil {
			logger.Warnf("Redis unavailable, continuing without cache: %v", err)
			cacheService.Close()
			cacheService = nil
		} else {
			defer cacheService.Close()
			balances = cacheService
			statsCache = cacheService
			checks["redis"] = cacheService.HealthCheck
			logger.Info("Redis cache connected")
		}
	}

	var dispatcher *notification.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := notification.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Warnf("Kafka unavailable, notifications will only be logged: %v", err)
			dispatcher = notification.NewDispatcher(nil, cfg.Kafka.Topic, nil)
		} else {
			dispatcher = notification.NewDispatcher(producer, cfg.Kafka.Topic, nil)
		}
	} else {
		dispatcher = notification.NewDispatcher(nil, cfg.Kafka.Topic, nil)
	}
	defer dispatcher.Close()

	// Initialize services in correct order
	clk := clock.RealClock{}
	collector := metrics.NewCollector()
	logs := paymentlog.NewService(store, clk, cfg.Ledger)
	detector := risk.NewDetector(store, logs, clk, cfg.Ledger)
	courseService := course.NewService(store, statsCache, logs, clk)
	walletService := wallet.NewService(store, balances, logs, clk, cfg.Ledger, collector)
	purchaseService := purchase.NewService(store, courseService, dispatcher, logs, detector, balances, clk, cfg.Ledger, collector)
	codeService := rechargecode.NewService(store, logs, detector, dispatcher, balances, clk, cfg.Ledger, collector)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: "coursepay",
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	// Middleware
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// Routes
	routes.SetupRoutes(app, routes.Dependencies{
		JWTSecret:       cfg.JWTSecret,
		WalletService:   walletService,
		PurchaseService: purchaseService,
		CodeService:     codeService,
		CourseService:   courseService,
		HealthChecks:    checks,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	// Start server
	logger.Infof("Starting server on port %s (store: %s)", cfg.Port, cfg.StoreDriver)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}
}
