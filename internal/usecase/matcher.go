package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
	"github.com/shopline-labs/payment-reconciliation/internal/refcode"
)

// MatchResult is the ephemeral outcome of matching one bank transaction
// against the open payments. It is consumed immediately by the
// reconciliation engine and never persisted.
type MatchResult struct {
	Found         bool
	Payment       *model.PendingPayment
	AmountOK      bool
	ExtractedCode string
}

// Matcher resolves a raw bank transaction to the pending payment it settles.
type Matcher struct {
	payments  repository.PendingPaymentRepository
	codes     *refcode.Generator
	tolerance decimal.Decimal
	logger    *zap.Logger
}

// NewMatcher creates a matcher. tolerance is the absolute currency-minor-unit
// delta allowed between the transferred and the expected amount; zero means
// exact match. Some gateways truncate and some customers over- or under-pay a
// processing fee, which is the only reason the knob exists.
func NewMatcher(
	payments repository.PendingPaymentRepository,
	codes *refcode.Generator,
	tolerance decimal.Decimal,
	logger *zap.Logger,
) *Matcher {
	if tolerance.IsNegative() {
		logger.Warn("Negative amount tolerance configured, using zero",
			zap.String("tolerance", tolerance.String()))
		tolerance = decimal.Zero
	}
	return &Matcher{
		payments:  payments,
		codes:     codes,
		tolerance: tolerance,
		logger:    logger,
	}
}

// Match extracts a reference code from the transaction description, looks up
// the pending payment and checks amount compatibility. When several
// candidate codes appear in the text, the first occurrence wins: gateways
// typically echo the requested memo verbatim at the start. That is a
// heuristic, so ambiguous cases are logged for manual review.
func (m *Matcher) Match(ctx context.Context, tx *model.BankTransaction) (*MatchResult, error) {
	candidates := m.codes.Extract(tx.RawDescription)
	if len(candidates) == 0 {
		return &MatchResult{}, nil
	}

	if len(candidates) > 1 {
		m.logger.Warn("Multiple reference codes in transaction description, using first occurrence",
			zap.String("gateway_transaction_id", tx.GatewayTransactionID),
			zap.Strings("candidates", candidates))
	}

	code := candidates[0]
	result := &MatchResult{ExtractedCode: code}

	payment, err := m.payments.GetPendingByReferenceCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reference code %s: %w", code, err)
	}
	if payment == nil {
		// Still report the extracted code so the unmatched ledger entry
		// is actionable.
		return result, nil
	}

	result.Found = true
	result.Payment = payment
	result.AmountOK = m.amountWithinTolerance(tx.Amount, payment.ExpectedAmount)

	if !result.AmountOK {
		m.logger.Warn("Transaction amount outside tolerance",
			zap.String("gateway_transaction_id", tx.GatewayTransactionID),
			zap.String("order_id", payment.OrderID),
			zap.String("expected", payment.ExpectedAmount.String()),
			zap.String("received", tx.Amount.String()),
			zap.String("tolerance", m.tolerance.String()))
	}

	return result, nil
}

// amountWithinTolerance compares fixed-point decimals; binary floating point
// never enters an amount comparison.
func (m *Matcher) amountWithinTolerance(received, expected decimal.Decimal) bool {
	return received.Sub(expected).Abs().Cmp(m.tolerance) <= 0
}
