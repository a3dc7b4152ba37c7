package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopline-labs/payment-reconciliation/internal/config"
	"github.com/shopline-labs/payment-reconciliation/internal/infrastructure/database"
	httpServer "github.com/shopline-labs/payment-reconciliation/internal/infrastructure/http"
	"github.com/shopline-labs/payment-reconciliation/internal/infrastructure/mail"
	"github.com/shopline-labs/payment-reconciliation/internal/infrastructure/provider/sepay"
	"github.com/shopline-labs/payment-reconciliation/internal/logger"
	"github.com/shopline-labs/payment-reconciliation/internal/notify"
	"github.com/shopline-labs/payment-reconciliation/internal/refcode"
	"github.com/shopline-labs/payment-reconciliation/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Service.Environment != "production",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notification hub, optionally bridged over redis for multi-instance
	// deployments.
	hub := notify.NewHub(zapLogger)
	var broadcaster notify.Broadcaster = hub
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		bridge := notify.NewRedisBridge(redisClient, hub, zapLogger)
		go bridge.Run(ctx)
		broadcaster = bridge
		zapLogger.Info("Redis notification bridge enabled", zap.String("addr", cfg.Redis.Addr))
	}

	tolerance := decimal.Zero
	if cfg.Webhook.AmountTolerance != "" {
		tolerance, err = decimal.NewFromString(cfg.Webhook.AmountTolerance)
		if err != nil {
			zapLogger.Fatal("Invalid webhook.amount_tolerance",
				zap.String("value", cfg.Webhook.AmountTolerance),
				zap.Error(err))
		}
	}

	var mailer usecase.Mailer
	if cfg.Email.Host != "" && cfg.Email.OrdersInbox != "" {
		mailer = mail.NewSMTPMailer(cfg.Email, zapLogger)
	}

	// Wire the reconciliation core
	codes := refcode.NewGenerator()
	qrProvider := sepay.NewProvider(cfg.QR)
	matcher := usecase.NewMatcher(repos.PendingPayment, codes, tolerance, zapLogger)
	engine := usecase.NewReconciliationService(repos.BankTransaction, repos.PendingPayment, matcher, broadcaster, mailer, zapLogger)
	payments := usecase.NewPaymentService(repos.PendingPayment, codes, qrProvider, zapLogger)

	sweeper := usecase.NewExpirySweeper(repos.PendingPayment, broadcaster, cfg.Webhook.PaymentTTL, cfg.Webhook.SweepInterval, zapLogger)
	go sweeper.Run(ctx)

	// Initialize server
	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, engine, payments, hub)

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down server...")
	cancel()

	if err := httpSrv.Shutdown(context.Background()); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
