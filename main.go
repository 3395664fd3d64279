// Package main provides the main entry point for the Subaruffles raffle service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/subaruffles/backend/app/handlers"
	"github.com/subaruffles/backend/app/middleware"
	"github.com/subaruffles/backend/app/router"
	"github.com/subaruffles/backend/app/scheduler"
	"github.com/subaruffles/backend/app/services"
	businessflow "github.com/subaruffles/backend/business_flow"
	"github.com/subaruffles/backend/config"
	"github.com/subaruffles/backend/repository"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Subaruffles application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger to a rotating file, stdout, or both
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		log.SetOutput(rotator)
	default:
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	// TranslateError turns driver unique-violation errors into
	// gorm.ErrDuplicatedKey, which the reservation flow relies on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// initializeProofRelay wires the Telegram relay, or a no-op when unconfigured
func initializeProofRelay(cfg config.TelegramConfig) (services.ProofRelay, error) {
	if cfg.BotToken == "" {
		log.Println("Telegram relay not configured, proof uploads will not be forwarded")
		return services.NoopProofRelay{}, nil
	}

	relay, err := services.NewTelegramProofRelay(cfg.BotToken, cfg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram relay: %w", err)
	}
	return relay, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	raffleRepo := repository.NewRaffleRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	proofRelay, err := initializeProofRelay(cfg.Telegram)
	if err != nil {
		return nil, err
	}

	eventBus := services.NewEventBus(rc, cfg.Cache.EventChannel)
	exporter := services.NewExportService()

	// Initialize flows
	raffleFlow := businessflow.NewRaffleFlow(raffleRepo, selectionRepo, receiptRepo)
	reservationFlow := businessflow.NewReservationFlow(raffleRepo, selectionRepo, receiptRepo, auditRepo, eventBus, db)
	receiptFlow := businessflow.NewReceiptFlow(receiptRepo, selectionRepo, raffleRepo, auditRepo, proofRelay, db)
	raffleAdminFlow := businessflow.NewRaffleAdminFlow(raffleRepo, selectionRepo, receiptRepo, auditRepo, exporter, db)
	adminAuthFlow := businessflow.NewAdminAuthFlow(adminRepo, auditRepo, tokenService)
	auditLogFlow := businessflow.NewAuditLogFlow(auditRepo)

	// Initialize handlers
	raffleHandler := handlers.NewRaffleHandler(raffleFlow)
	reservationHandler := handlers.NewReservationHandler(reservationFlow)
	receiptHandler := handlers.NewReceiptHandler(receiptFlow)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthFlow)
	raffleAdminHandler := handlers.NewRaffleAdminHandler(raffleAdminFlow)
	receiptAdminHandler := handlers.NewReceiptAdminHandler(receiptFlow)
	auditLogHandler := handlers.NewAuditLogHandler(auditLogFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		raffleHandler,
		reservationHandler,
		receiptHandler,
		adminAuthHandler,
		raffleAdminHandler,
		receiptAdminHandler,
		auditLogHandler,
		authMiddleware,
		cfg.Security.AllowedOrigins,
	)

	// Start the expiration sweeper and cleanup loops
	sched := scheduler.NewExpirationScheduler(
		receiptRepo,
		selectionRepo,
		auditRepo,
		eventBus,
		db,
		cfg.Scheduler.SweepInterval,
		cfg.Scheduler.CleanupInterval,
	)
	stopScheduler := sched.Start(context.Background())
	stopFuncs = append(stopFuncs, stopScheduler)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
