package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	handlers "github.com/shopline-labs/payment-reconciliation/internal/adapter/handler/http"
	"github.com/shopline-labs/payment-reconciliation/internal/config"
	"github.com/shopline-labs/payment-reconciliation/internal/infrastructure/database"
	"github.com/shopline-labs/payment-reconciliation/internal/middleware/auth"
	"github.com/shopline-labs/payment-reconciliation/internal/notify"
	"github.com/shopline-labs/payment-reconciliation/internal/usecase"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	engine   *usecase.ReconciliationService
	payments *usecase.PaymentService
	hub      *notify.Hub
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	engine *usecase.ReconciliationService,
	payments *usecase.PaymentService,
	hub *notify.Hub,
) *Server {
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		repos:    repos,
		engine:   engine,
		payments: payments,
		hub:      hub,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	webhookHandler := handlers.NewBankWebhookHandler(s.logger, s.engine)
	paymentHandler := handlers.NewPaymentHandler(s.logger, s.payments)
	adminHandler := handlers.NewAdminHandler(s.logger, s.repos.BankTransaction)
	wsHandler := handlers.NewWSHandler(s.logger, s.hub)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.JWTSecret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhooks/bank-transaction",
		},
	}

	// Gateway webhook: API-key auth, outside API versioning. The gateway
	// retries on any non-2xx, so this path must stay reachable without JWT.
	s.echo.POST("/webhooks/bank-transaction", webhookHandler.Handle, auth.APIKeyMiddleware(auth.APIKeyConfig{
		Key:    s.config.Webhook.APIKey,
		Logger: s.logger,
	}))

	// API v1 routes (require JWT authentication)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	v1.POST("/payments", paymentHandler.CreatePayment)
	v1.GET("/payments/:orderId/status", paymentHandler.GetStatus)
	v1.GET("/payments/:orderId/qr", paymentHandler.GetQR)

	// Admin routes
	admin := v1.Group("/admin", auth.RequireAdmin(s.logger))
	admin.GET("/transactions", adminHandler.ListTransactions)

	// Realtime notifications; JWT arrives via access_token query param on
	// browser websocket clients.
	s.echo.GET("/ws/notifications", wsHandler.Subscribe, auth.JWTMiddleware(jwtConfig))
}
