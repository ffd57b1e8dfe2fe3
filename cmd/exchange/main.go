package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	cfg "github.com/sand/lbc-exchange/backend/config"
	"github.com/sand/lbc-exchange/backend/internal/core/ports"
	"github.com/sand/lbc-exchange/backend/internal/handlers"
	"github.com/sand/lbc-exchange/backend/internal/models"
	"github.com/sand/lbc-exchange/backend/internal/shared"
	"github.com/sand/lbc-exchange/backend/internal/usecases"
	"github.com/sand/lbc-exchange/backend/internal/usecases/repository"
	"github.com/sand/lbc-exchange/backend/internal/workers"
	"github.com/sand/lbc-exchange/backend/pkg/cache"
	"github.com/sand/lbc-exchange/backend/pkg/database"
	"github.com/sand/lbc-exchange/backend/pkg/logger"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
)

func main() {
	time.Local = time.UTC

	// Amounts are written as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logger.New(config)
	logger.Warn("Starting application with configuration",
		"debug", config.App.Debug,
		"environment", config.App.Environment,
		"server_port", config.HTTP.Port,
		"memory_store", config.DB.UsesMemoryStore(),
		"redis_addr", config.Redis.Addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Order store
	var ordersRepository usecases.OrdersRepository
	if config.DB.UsesMemoryStore() {
		logger.Warn("Using in-memory order store, orders will not survive a restart")
		ordersRepository = repository.NewMemoryOrdersRepository()
	} else {
		pg, err := database.New(config,
			database.MaxPoolSize(config.DB.PoolMax),
			database.ConnTimeout(config.DB.ConnectTimeout),
			database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
			database.Isolation(pgx.ReadCommitted),
		)
		if err != nil {
			logger.Error("postgres connection failed", slog.String("error", err.Error()))
			return
		}
		defer pg.Close()

		migrationsPath := database.ResolveMigrationsPath(config.DB.MigrationsPath)
		logger.Info("Running database migrations", "path", migrationsPath)
		if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
			logger.Error("Failed to run database migrations", "error", err)
			return
		}

		ordersRepository = repository.NewOrdersRepository(logger, pg)
	}

	// Rate and its live feed
	defaultRate, err := decimal.NewFromString(config.App.DefaultRate)
	if err != nil {
		logger.Error("Invalid default rate", "rate", config.App.DefaultRate, "error", err)
		return
	}
	informationalPrice, err := decimal.NewFromString(config.App.InformationalPrice)
	if err != nil {
		logger.Error("Invalid informational price", "price", config.App.InformationalPrice, "error", err)
		return
	}

	rateFeed := models.NewRateFeed(defaultRate)
	rateService, err := usecases.NewRateService(logger, defaultRate, rateFeed.Publish)
	if err != nil {
		logger.Error("Failed to create rate service", "error", err)
		return
	}

	quoteService := usecases.NewQuoteService(nil)
	orderService := usecases.NewOrderService(logger, ordersRepository, usecases.OrderOptions{
		Expiry:                  time.Duration(config.Workers.OrderExpiration) * time.Minute,
		RequireBuyerUSDCAddress: config.App.RequireBuyerUSDCAddress,
	}, nil)

	// Optional submission rate limit
	var limiter ports.RateLimiter
	if config.Redis.Addr != "" {
		redisClient, err := cache.NewRedis(ctx, config)
		if err != nil {
			logger.Error("redis connection failed", "error", err)
			return
		}
		defer redisClient.Close()

		limiter = usecases.NewOrderRateLimiter(redisClient, config.Redis.OrderLimit,
			time.Duration(config.Redis.OrderWindow)*time.Second, "orders:submit:")
		logger.Info("Order submission rate limit enabled", "limit", config.Redis.OrderLimit, "window_seconds", config.Redis.OrderWindow)
	}

	initAndRunWorkers(ctx, logger, config, orderService)

	clientIPs, err := shared.NewClientIPResolver(config.HTTP.TrustedProxies)
	if err != nil {
		logger.Error("Invalid trusted proxies", "trusted_proxies", config.HTTP.TrustedProxies, "error", err)
		return
	}

	// Create handlers
	httpHandler := handlers.NewHTTPHandler(logger, orderService, rateService, quoteService, limiter, handlers.Settings{
		OperatorToken:      config.App.OperatorToken,
		InformationalPrice: informationalPrice,
		ManagedLBCAddress:  config.App.ManagedLBCAddress,
		ManagedUSDCAddress: config.App.ManagedUSDCAddress,
		ClientIPs:          clientIPs,
	})
	wsHandler := handlers.NewWebSocketHandler(logger, rateFeed)

	router := mux.NewRouter()

	// Register WebSocket routes before HTTP routes
	wsHandler.RegisterRoutes(router)
	httpHandler.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer shutdownCancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

func initAndRunWorkers(ctx context.Context, logger *slog.Logger, config *cfg.Config, orderService *usecases.OrderService) {
	if !config.Workers.OrderSweepEnabled {
		logger.Info("Order expirer disabled, expired orders stay pending until an operator acts")
		return
	}

	interval := time.Duration(config.Workers.OrderSweepInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	orderExpirer := workers.NewOrderExpirer(logger, orderService, interval)

	go func() {
		orderExpirer.Start(ctx)
	}()

	logger.Info("All workers initialized and started")
}
