package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/shopline-labs/payment-reconciliation/internal/domain/errors"
	"github.com/shopline-labs/payment-reconciliation/internal/middleware/auth"
	"github.com/shopline-labs/payment-reconciliation/internal/usecase"
)

// PaymentHandler exposes the checkout-facing payment surface.
type PaymentHandler struct {
	logger   *zap.Logger
	payments *usecase.PaymentService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler instance
func NewPaymentHandler(logger *zap.Logger, payments *usecase.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		logger:   logger,
		payments: payments,
		validate: validator.New(),
	}
}

// CreatePaymentRequest opens a pending payment for an order.
type CreatePaymentRequest struct {
	OrderID string `json:"orderId" validate:"required,max=100"`
	Amount  string `json:"amount" validate:"required"`
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
			"code":  "AUTH_REQUIRED",
		})
	}

	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Failed to parse request body",
			"code":  "INVALID_REQUEST",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Missing or invalid fields",
			"code":  "INVALID_REQUEST",
		})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Amount must be a positive decimal",
			"code":  "INVALID_AMOUNT",
		})
	}

	created, err := h.payments.CreatePendingPayment(c.Request().Context(), req.OrderID, user.UserID, amount)
	if err != nil {
		h.logger.Error("Failed to create pending payment",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create pending payment",
			"code":  "CREATE_PAYMENT_FAILED",
		})
	}

	return c.JSON(http.StatusCreated, created)
}

// GetStatus handles GET /api/v1/payments/:orderId/status, the pull fallback
// for clients that missed the push notification.
func (h *PaymentHandler) GetStatus(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "orderId is required",
			"code":  "INVALID_REQUEST",
		})
	}

	status, err := h.payments.GetStatus(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "No payment for this order",
				"code":  "PAYMENT_NOT_FOUND",
			})
		}
		h.logger.Error("Failed to get payment status",
			zap.String("order_id", orderID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to get payment status",
			"code":  "GET_STATUS_FAILED",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"orderId": orderID,
		"status":  string(status),
	})
}

// GetQR handles GET /api/v1/payments/:orderId/qr for checkout page reloads.
func (h *PaymentHandler) GetQR(c echo.Context) error {
	orderID := c.Param("orderId")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "orderId is required",
			"code":  "INVALID_REQUEST",
		})
	}

	url, err := h.payments.QRImageURL(c.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "No payment for this order",
				"code":  "PAYMENT_NOT_FOUND",
			})
		}
		h.logger.Warn("Failed to build QR URL",
			zap.String("order_id", orderID),
			zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": err.Error(),
			"code":  "QR_UNAVAILABLE",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"orderId": orderID,
		"qrUrl":   url,
	})
}
