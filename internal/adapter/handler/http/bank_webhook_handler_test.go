package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	handlers "github.com/shopline-labs/payment-reconciliation/internal/adapter/handler/http"
	domainErrors "github.com/shopline-labs/payment-reconciliation/internal/domain/errors"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
	"github.com/shopline-labs/payment-reconciliation/internal/notify"
	"github.com/shopline-labs/payment-reconciliation/internal/refcode"
	"github.com/shopline-labs/payment-reconciliation/internal/usecase"
)

// MockPendingPaymentRepository is a mock implementation of PendingPaymentRepository
type MockPendingPaymentRepository struct {
	mock.Mock
}

func (m *MockPendingPaymentRepository) Create(ctx context.Context, payment *model.PendingPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPendingPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*model.PendingPayment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingPayment), args.Error(1)
}

func (m *MockPendingPaymentRepository) GetPendingByReferenceCode(ctx context.Context, code string) (*model.PendingPayment, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingPayment), args.Error(1)
}

func (m *MockPendingPaymentRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, orderID, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockPendingPaymentRepository) MarkMismatched(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPendingPaymentRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]model.PendingPayment, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PendingPayment), args.Error(1)
}

// MockBankTransactionRepository is a mock implementation of BankTransactionRepository
type MockBankTransactionRepository struct {
	mock.Mock
}

func (m *MockBankTransactionRepository) RecordIfNew(ctx context.Context, tx *model.BankTransaction) (bool, *model.BankTransaction, error) {
	args := m.Called(ctx, tx)
	if args.Get(1) == nil {
		return args.Bool(0), nil, args.Error(2)
	}
	return args.Bool(0), args.Get(1).(*model.BankTransaction), args.Error(2)
}

func (m *MockBankTransactionRepository) SetOutcome(ctx context.Context, id int64, outcome model.ProcessingOutcome, extractedCode, matchedOrderID *string) error {
	args := m.Called(ctx, id, outcome, extractedCode, matchedOrderID)
	return args.Error(0)
}

func (m *MockBankTransactionRepository) List(ctx context.Context, filters repository.TransactionFilters) ([]model.BankTransaction, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.BankTransaction), args.Get(1).(int64), args.Error(2)
}

// noopBroadcaster discards events; handler tests assert on HTTP behavior only.
type noopBroadcaster struct{}

func (noopBroadcaster) Publish(ctx context.Context, channel string, event notify.Event) error {
	return nil
}

func newWebhookTestHandler(transactions *MockBankTransactionRepository, payments *MockPendingPaymentRepository) *handlers.BankWebhookHandler {
	logger := zap.NewNop()
	matcher := usecase.NewMatcher(payments, refcode.NewGenerator(), decimal.Zero, logger)
	engine := usecase.NewReconciliationService(transactions, payments, matcher, noopBroadcaster{}, nil, logger)
	return handlers.NewBankWebhookHandler(logger, engine)
}

func postWebhook(t *testing.T, handler *handlers.BankWebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/bank-transaction", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	assert.NoError(t, handler.Handle(c))
	return rec
}

func TestBankWebhookHandler_Handle(t *testing.T) {
	t.Run("matched transaction answers 200 with outcome", func(t *testing.T) {
		transactions := new(MockBankTransactionRepository)
		payments := new(MockPendingPaymentRepository)
		handler := newWebhookTestHandler(transactions, payments)

		expected, _ := decimal.NewFromString("150.00")
		payment := &model.PendingPayment{
			ID:             1,
			OrderID:        "order-1",
			ReferenceCode:  "PAY_7XK2M9QD",
			ExpectedAmount: expected,
			UserID:         "user-1",
			Status:         model.PaymentStatusPending,
		}
		stored := &model.BankTransaction{ID: 10, GatewayTransactionID: "gw-tx-1", Amount: expected, RawDescription: "transfer PAY_7XK2M9QD"}

		transactions.On("RecordIfNew", mock.Anything, mock.AnythingOfType("*model.BankTransaction")).Return(true, stored, nil)
		payments.On("GetPendingByReferenceCode", mock.Anything, "PAY_7XK2M9QD").Return(payment, nil)
		payments.On("MarkPaid", mock.Anything, "order-1", mock.AnythingOfType("time.Time")).Return(true, nil)
		transactions.On("SetOutcome", mock.Anything, int64(10), model.OutcomeMatched, mock.Anything, mock.Anything).Return(nil)

		rec := postWebhook(t, handler, `{
			"gatewayTransactionId": "gw-tx-1",
			"amount": "150.00",
			"description": "transfer PAY_7XK2M9QD"
		}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), string(model.OutcomeMatched))
		assert.Contains(t, rec.Body.String(), "order-1")
	})

	t.Run("duplicate delivery still answers 200", func(t *testing.T) {
		transactions := new(MockBankTransactionRepository)
		payments := new(MockPendingPaymentRepository)
		handler := newWebhookTestHandler(transactions, payments)

		stored := &model.BankTransaction{ID: 10, GatewayTransactionID: "gw-tx-1", ProcessingOutcome: model.OutcomeMatched}
		transactions.On("RecordIfNew", mock.Anything, mock.AnythingOfType("*model.BankTransaction")).Return(false, stored, nil)

		rec := postWebhook(t, handler, `{
			"gatewayTransactionId": "gw-tx-1",
			"amount": "150.00",
			"description": "transfer PAY_7XK2M9QD"
		}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), string(model.OutcomeDuplicateIgnored))
	})

	t.Run("storage unavailability answers 503 for redelivery", func(t *testing.T) {
		transactions := new(MockBankTransactionRepository)
		payments := new(MockPendingPaymentRepository)
		handler := newWebhookTestHandler(transactions, payments)

		storageErr := domainErrors.NewTransientStorageError("record transaction", errors.New("connection refused"))
		transactions.On("RecordIfNew", mock.Anything, mock.AnythingOfType("*model.BankTransaction")).Return(false, nil, storageErr)

		rec := postWebhook(t, handler, `{
			"gatewayTransactionId": "gw-tx-1",
			"amount": "150.00",
			"description": "transfer PAY_7XK2M9QD"
		}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "STORAGE_UNAVAILABLE")
	})

	t.Run("malformed JSON answers 400", func(t *testing.T) {
		transactions := new(MockBankTransactionRepository)
		payments := new(MockPendingPaymentRepository)
		handler := newWebhookTestHandler(transactions, payments)

		rec := postWebhook(t, handler, `{not json`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		transactions.AssertNotCalled(t, "RecordIfNew", mock.Anything, mock.Anything)
	})

	t.Run("missing required fields answer 400", func(t *testing.T) {
		transactions := new(MockBankTransactionRepository)
		payments := new(MockPendingPaymentRepository)
		handler := newWebhookTestHandler(transactions, payments)

		rec := postWebhook(t, handler, `{"amount": "150.00"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_PAYLOAD")
	})

	t.Run("non-positive amount answers 400", func(t *testing.T) {
		transactions := new(MockBankTransactionRepository)
		payments := new(MockPendingPaymentRepository)
		handler := newWebhookTestHandler(transactions, payments)

		rec := postWebhook(t, handler, `{
			"gatewayTransactionId": "gw-tx-1",
			"amount": "-5.00",
			"description": "transfer PAY_7XK2M9QD"
		}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_AMOUNT")
	})
}
