package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/shopline-labs/payment-reconciliation/internal/domain/errors"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/provider"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
	"github.com/shopline-labs/payment-reconciliation/internal/refcode"
)

// codeRerollAttempts bounds re-rolls on a reference code collision. The code
// space makes two collisions in a row vanishingly unlikely; the bound exists
// so a broken unique index cannot loop forever.
const codeRerollAttempts = 3

// PaymentService is the surface the checkout subsystem consumes: open a
// pending payment with a fresh reference code, and poll its status.
type PaymentService struct {
	payments repository.PendingPaymentRepository
	codes    *refcode.Generator
	qr       provider.QRProvider
	logger   *zap.Logger
}

// NewPaymentService creates the checkout-facing payment service.
func NewPaymentService(
	payments repository.PendingPaymentRepository,
	codes *refcode.Generator,
	qr provider.QRProvider,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		codes:    codes,
		qr:       qr,
		logger:   logger,
	}
}

// CreatedPayment is returned to checkout: the code for the transfer memo and
// the QR payload encoding it.
type CreatedPayment struct {
	OrderID       string          `json:"order_id"`
	ReferenceCode string          `json:"reference_code"`
	Amount        decimal.Decimal `json:"amount"`
	QRImageURL    string          `json:"qr_image_url,omitempty"`
}

// CreatePendingPayment opens a payment for the order with a generated
// reference code, re-rolling when the code collides with a live one.
func (s *PaymentService) CreatePendingPayment(ctx context.Context, orderID, userID string, expectedAmount decimal.Decimal) (*CreatedPayment, error) {
	if expectedAmount.IsNegative() || expectedAmount.IsZero() {
		return nil, fmt.Errorf("expected amount must be positive, got %s", expectedAmount.String())
	}

	var lastErr error
	for attempt := 0; attempt < codeRerollAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate reference code: %w", err)
		}

		payment := &model.PendingPayment{
			OrderID:        orderID,
			ReferenceCode:  code,
			ExpectedAmount: expectedAmount,
			UserID:         userID,
			Status:         model.PaymentStatusPending,
		}

		err = s.payments.Create(ctx, payment)
		if err == nil {
			s.logger.Info("Pending payment created",
				zap.String("order_id", orderID),
				zap.String("reference_code", code),
				zap.String("amount", expectedAmount.String()))
			created := &CreatedPayment{
				OrderID:       orderID,
				ReferenceCode: code,
				Amount:        expectedAmount,
			}
			if s.qr != nil {
				created.QRImageURL = s.qr.QRImageURL(expectedAmount, code)
			}
			return created, nil
		}

		if errors.Is(err, domainErrors.ErrCodeCollision) {
			s.logger.Warn("Reference code collision, re-rolling",
				zap.String("order_id", orderID),
				zap.Int("attempt", attempt+1))
			lastErr = err
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("exhausted %d reference code attempts: %w", codeRerollAttempts, lastErr)
}

// GetStatus is the pull fallback for UI polling when a push notification was
// missed.
func (s *PaymentService) GetStatus(ctx context.Context, orderID string) (model.PaymentStatus, error) {
	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	return payment.Status, nil
}

// QRImageURL rebuilds the QR payload for an open payment, for clients that
// reload the checkout page.
func (s *PaymentService) QRImageURL(ctx context.Context, orderID string) (string, error) {
	if s.qr == nil {
		return "", fmt.Errorf("no QR provider configured")
	}
	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if payment.Status != model.PaymentStatusPending {
		return "", fmt.Errorf("order %s is not awaiting payment (status %s)", orderID, payment.Status)
	}
	return s.qr.QRImageURL(payment.ExpectedAmount, payment.ReferenceCode), nil
}
