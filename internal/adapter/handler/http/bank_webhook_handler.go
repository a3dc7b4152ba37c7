package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	domainErrors "github.com/shopline-labs/payment-reconciliation/internal/domain/errors"
	"github.com/shopline-labs/payment-reconciliation/internal/usecase"
)

// BankWebhookHandler handles bank-transaction webhook deliveries
type BankWebhookHandler struct {
	logger   *zap.Logger
	engine   *usecase.ReconciliationService
	validate *validator.Validate
}

// NewBankWebhookHandler creates a new BankWebhookHandler instance
func NewBankWebhookHandler(logger *zap.Logger, engine *usecase.ReconciliationService) *BankWebhookHandler {
	return &BankWebhookHandler{
		logger:   logger,
		engine:   engine,
		validate: validator.New(),
	}
}

// BankTransactionPayload is the generic webhook body the gateway posts.
type BankTransactionPayload struct {
	GatewayTransactionID string          `json:"gatewayTransactionId" validate:"required,max=255"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description" validate:"required"`
	OccurredAt           time.Time       `json:"occurredAt"`
}

// Handle processes one webhook delivery. Every recorded outcome, duplicates
// and mismatches included, answers 200: from the gateway's point of view the
// event was handled. Only storage unavailability answers 5xx, which tells the
// gateway to redeliver.
func (h *BankWebhookHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body",
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Failed to read request body",
			"code":  "INVALID_REQUEST",
		})
	}

	var payload BankTransactionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("Failed to parse webhook payload",
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Failed to parse request body",
			"code":  "INVALID_PAYLOAD",
		})
	}

	if err := h.validate.Struct(&payload); err != nil {
		h.logger.Warn("Webhook payload failed validation",
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing or invalid fields",
			"code":  "INVALID_PAYLOAD",
		})
	}
	if !payload.Amount.IsPositive() {
		h.logger.Warn("Webhook with non-positive amount",
			zap.String("gateway_transaction_id", payload.GatewayTransactionID),
			zap.String("amount", payload.Amount.String()))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Amount must be positive",
			"code":  "INVALID_AMOUNT",
		})
	}

	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	h.logger.Info("Processing bank transaction webhook",
		zap.String("gateway_transaction_id", payload.GatewayTransactionID),
		zap.String("amount", payload.Amount.String()))

	result, err := h.engine.Handle(ctx, usecase.WebhookPayload{
		GatewayTransactionID: payload.GatewayTransactionID,
		Amount:               payload.Amount,
		Description:          payload.Description,
		OccurredAt:           occurredAt,
		Raw:                  datatypes.JSON(body),
	})
	if err != nil {
		h.logger.Error("Failed to process webhook",
			zap.String("gateway_transaction_id", payload.GatewayTransactionID),
			zap.Error(err))
		if domainErrors.IsRetryable(err) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error": "Storage unavailable, please retry",
				"code":  "STORAGE_UNAVAILABLE",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to process webhook event",
			"code":  "WEBHOOK_HANDLER_ERROR",
		})
	}

	response := echo.Map{
		"outcome": string(result.Outcome),
	}
	if result.OrderID != "" {
		response["orderId"] = result.OrderID
	}
	return c.JSON(http.StatusOK, response)
}
