package repository

import (
	"context"
	"time"

	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
)

// PendingPaymentRepository is the narrow read-modify-write contract the
// reconciliation core holds on order payment rows. Status transitions out of
// pending go through the conditional updates only; there is no unguarded
// read-then-write path.
type PendingPaymentRepository interface {
	Create(ctx context.Context, payment *model.PendingPayment) error
	GetByOrderID(ctx context.Context, orderID string) (*model.PendingPayment, error)
	// GetPendingByReferenceCode returns the single pending payment carrying
	// the code, or nil when none is open. Retired codes never match.
	GetPendingByReferenceCode(ctx context.Context, code string) (*model.PendingPayment, error)

	// MarkPaid transitions pending -> paid and records paidAt. It returns
	// false without error when the row was no longer pending; the caller
	// lost the race and must not apply funds.
	MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error)

	// MarkMismatched transitions pending -> mismatched under the same guard.
	MarkMismatched(ctx context.Context, orderID string) (bool, error)

	// ExpireOlderThan transitions every pending payment created before the
	// cutoff to expired and returns the affected payments for notification.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]model.PendingPayment, error)
}
