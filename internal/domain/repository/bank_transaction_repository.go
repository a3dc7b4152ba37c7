package repository

import (
	"context"

	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
)

// TransactionFilters narrows the admin audit listing.
type TransactionFilters struct {
	Outcome *model.ProcessingOutcome
	Limit   int
	Offset  int
}

// SetDefaults applies default pagination values
func (f *TransactionFilters) SetDefaults() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// BankTransactionRepository is the idempotency ledger. Every webhook
// delivery lands here first; everything downstream is gated on isNew.
type BankTransactionRepository interface {
	// RecordIfNew atomically inserts the transaction or detects the
	// conflict on gateway_transaction_id. Exactly one concurrent caller
	// for a given id observes isNew true; all others get the stored row.
	RecordIfNew(ctx context.Context, tx *model.BankTransaction) (isNew bool, stored *model.BankTransaction, err error)

	// SetOutcome writes the processing outcome once, after matching
	// completes. Audit-only: failures are logged by the caller, never
	// propagated into the reconciliation result.
	SetOutcome(ctx context.Context, id int64, outcome model.ProcessingOutcome, extractedCode, matchedOrderID *string) error

	List(ctx context.Context, filters TransactionFilters) ([]model.BankTransaction, int64, error)
}
