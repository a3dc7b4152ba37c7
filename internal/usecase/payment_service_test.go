package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/shopline-labs/payment-reconciliation/internal/domain/errors"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/refcode"
	"github.com/shopline-labs/payment-reconciliation/internal/usecase"
)

// fakeQRProvider builds deterministic URLs without network access.
type fakeQRProvider struct{}

func (fakeQRProvider) QRImageURL(amount decimal.Decimal, referenceCode string) string {
	return "https://qr.test/img?amount=" + amount.String() + "&des=" + referenceCode
}

func (fakeQRProvider) GetProviderName() string { return "fake" }

func newTestPaymentService(payments *MockPendingPaymentRepository) *usecase.PaymentService {
	return usecase.NewPaymentService(payments, refcode.NewGenerator(), fakeQRProvider{}, zap.NewNop())
}

func TestPaymentService_CreatePendingPayment(t *testing.T) {
	ctx := context.Background()
	amount := decimal.NewFromInt(150)

	t.Run("creates payment with generated code and QR URL", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		var captured *model.PendingPayment
		payments.On("Create", ctx, mock.AnythingOfType("*model.PendingPayment")).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*model.PendingPayment)
			}).
			Return(nil)

		created, err := service.CreatePendingPayment(ctx, "order-1", "user-1", amount)

		assert.NoError(t, err)
		assert.Equal(t, "order-1", created.OrderID)
		assert.True(t, amount.Equal(created.Amount))
		assert.Contains(t, created.QRImageURL, created.ReferenceCode)

		g := refcode.NewGenerator()
		assert.True(t, g.IsWellFormed(created.ReferenceCode))
		assert.Equal(t, model.PaymentStatusPending, captured.Status)
		assert.Equal(t, "user-1", captured.UserID)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		_, err := service.CreatePendingPayment(ctx, "order-1", "user-1", decimal.Zero)
		assert.Error(t, err)

		_, err = service.CreatePendingPayment(ctx, "order-1", "user-1", decimal.NewFromInt(-5))
		assert.Error(t, err)

		payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("re-rolls the code on collision", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		payments.On("Create", ctx, mock.AnythingOfType("*model.PendingPayment")).
			Return(domainErrors.ErrCodeCollision).Once()
		payments.On("Create", ctx, mock.AnythingOfType("*model.PendingPayment")).
			Return(nil).Once()

		created, err := service.CreatePendingPayment(ctx, "order-1", "user-1", amount)

		assert.NoError(t, err)
		assert.NotNil(t, created)
		payments.AssertNumberOfCalls(t, "Create", 2)
	})

	t.Run("gives up after exhausting re-roll attempts", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		payments.On("Create", ctx, mock.AnythingOfType("*model.PendingPayment")).
			Return(domainErrors.ErrCodeCollision)

		_, err := service.CreatePendingPayment(ctx, "order-1", "user-1", amount)

		assert.Error(t, err)
		assert.ErrorIs(t, err, domainErrors.ErrCodeCollision)
		payments.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("non-collision storage error is not retried", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		storageErr := errors.New("connection refused")
		payments.On("Create", ctx, mock.AnythingOfType("*model.PendingPayment")).
			Return(storageErr)

		_, err := service.CreatePendingPayment(ctx, "order-1", "user-1", amount)

		assert.ErrorIs(t, err, storageErr)
		payments.AssertNumberOfCalls(t, "Create", 1)
	})
}

func TestPaymentService_GetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("returns current status", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		payment := pendingPayment("order-1", "PAY_AB12CD", "user-1", "100.00")
		payment.Status = model.PaymentStatusPaid
		payments.On("GetByOrderID", ctx, "order-1").Return(payment, nil)

		status, err := service.GetStatus(ctx, "order-1")

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPaid, status)
	})

	t.Run("propagates not found", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		payments.On("GetByOrderID", ctx, "order-404").Return(nil, domainErrors.ErrPaymentNotFound)

		_, err := service.GetStatus(ctx, "order-404")

		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
	})
}

func TestPaymentService_QRImageURL(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuilds QR for open payment", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		payment := pendingPayment("order-1", "PAY_AB12CD", "user-1", "100.00")
		payments.On("GetByOrderID", ctx, "order-1").Return(payment, nil)

		url, err := service.QRImageURL(ctx, "order-1")

		assert.NoError(t, err)
		assert.Contains(t, url, "PAY_AB12CD")
		assert.Contains(t, url, "100")
	})

	t.Run("rejects settled payment", func(t *testing.T) {
		payments := new(MockPendingPaymentRepository)
		service := newTestPaymentService(payments)

		payment := pendingPayment("order-1", "PAY_AB12CD", "user-1", "100.00")
		payment.Status = model.PaymentStatusPaid
		payments.On("GetByOrderID", ctx, "order-1").Return(payment, nil)

		_, err := service.QRImageURL(ctx, "order-1")

		assert.Error(t, err)
	})
}
