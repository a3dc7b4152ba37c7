package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/shopline-labs/payment-reconciliation/internal/domain/errors"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
)

type pendingPaymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPendingPaymentRepository creates the gorm-backed payment repository.
func NewPendingPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PendingPaymentRepository {
	return &pendingPaymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *pendingPaymentRepository) Create(ctx context.Context, payment *model.PendingPayment) error {
	err := r.db.WithContext(ctx).Create(payment).Error
	if err != nil {
		if isUniqueViolation(err, "reference_code") {
			return domainErrors.ErrCodeCollision
		}
		r.logger.Error("Failed to create pending payment",
			zap.String("order_id", payment.OrderID),
			zap.Error(err))
		return fmt.Errorf("failed to create pending payment: %w", err)
	}
	return nil
}

func (r *pendingPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*model.PendingPayment, error) {
	var payment model.PendingPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		r.logger.Error("Failed to get pending payment",
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get pending payment: %w", err)
	}
	return &payment, nil
}

func (r *pendingPaymentRepository) GetPendingByReferenceCode(ctx context.Context, code string) (*model.PendingPayment, error) {
	var payment model.PendingPayment
	err := r.db.WithContext(ctx).
		Where("reference_code = ? AND status = ?", code, model.PaymentStatusPending).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to look up payment by reference code",
			zap.String("reference_code", code),
			zap.Error(err))
		return nil, domainErrors.NewTransientStorageError("look up payment by reference code", err)
	}
	return &payment, nil
}

// MarkPaid performs the compare-and-swap on status. The WHERE clause carries
// the expected state; zero rows affected means another transaction or the
// expiry sweep got there first.
func (r *pendingPaymentRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PendingPayment{}).
		Where("order_id = ? AND status = ?", orderID, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":     model.PaymentStatusPaid,
			"paid_at":    paidAt,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark payment as paid",
			zap.String("order_id", orderID),
			zap.Error(result.Error))
		return false, domainErrors.NewTransientStorageError("mark payment paid", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *pendingPaymentRepository) MarkMismatched(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PendingPayment{}).
		Where("order_id = ? AND status = ?", orderID, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":     model.PaymentStatusMismatched,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to mark payment as mismatched",
			zap.String("order_id", orderID),
			zap.Error(result.Error))
		return false, domainErrors.NewTransientStorageError("mark payment mismatched", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// ExpireOlderThan retires stale pending payments in one guarded UPDATE and
// returns exactly the rows it transitioned. A webhook racing the sweep loses
// on the same status guard the engine uses, and a payment it settled first
// never comes back from the RETURNING clause, so no expiry notification goes
// out for it.
func (r *pendingPaymentRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]model.PendingPayment, error) {
	var expired []model.PendingPayment

	result := r.db.WithContext(ctx).
		Model(&expired).
		Clauses(clause.Returning{}).
		Where("status = ? AND created_at < ?", model.PaymentStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":     model.PaymentStatusExpired,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to expire stale payments", zap.Error(result.Error))
		return nil, domainErrors.NewTransientStorageError("expire stale payments", result.Error)
	}

	return expired, nil
}

// isUniqueViolation inspects the driver error text for a unique-constraint
// failure on the named column. gorm surfaces pgx errors without a stable
// typed wrapper across drivers, so the check is textual.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") && strings.Contains(msg, column)
}
