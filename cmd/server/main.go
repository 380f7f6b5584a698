package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/kilnworks/be-brick-ledger/internal/cache"
	"github.com/kilnworks/be-brick-ledger/internal/config"
	"github.com/kilnworks/be-brick-ledger/internal/database"
	"github.com/kilnworks/be-brick-ledger/internal/events"
	"github.com/kilnworks/be-brick-ledger/internal/events/kafka"
	"github.com/kilnworks/be-brick-ledger/internal/handler"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository/postgres"
	"github.com/kilnworks/be-brick-ledger/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Brick Ledger Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	accountStore := postgres.NewAccountStore(db)
	dayLedgerStore := postgres.NewDayLedgerStore(db)
	subLedgerStore := postgres.NewSubLedgerStore(db)
	loanStore := postgres.NewLoanStore(db)
	procurementStore := postgres.NewProcurementStore(db)

	// Optional Redis balance cache
	var balances *cache.BalanceCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
		}
		defer rdb.Close()
		balances = cache.New(rdb, cfg.Redis.TTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis balance cache enabled")
	}

	// Optional Kafka event publisher
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		kp := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publisher = kp
		log.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("Kafka event publisher enabled")
	}

	// Initialize services
	accountService := service.NewAccountService(accountStore, log)
	dayLedgerService := service.NewDayLedgerService(dayLedgerStore, accountStore, publisher, log)
	subLedgerService := service.NewSubLedgerService(subLedgerStore, subLedgerStore, balances, publisher, log)
	loanService := service.NewLoanService(loanStore, subLedgerStore, subLedgerService, log)
	procurementService := service.NewProcurementService(procurementStore, subLedgerStore, publisher, log)
	reportService := service.NewReportService(subLedgerStore, subLedgerStore, dayLedgerStore, log)
	directoryService := service.NewDirectoryService(subLedgerStore, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(
		accountService,
		dayLedgerService,
		subLedgerService,
		loanService,
		procurementService,
		reportService,
		directoryService,
		log,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	httpHandler.Routes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
