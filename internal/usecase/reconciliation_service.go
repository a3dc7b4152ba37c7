package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
	"github.com/shopline-labs/payment-reconciliation/internal/notify"
)

// WebhookPayload is the generic shape of a bank-transaction webhook after
// the HTTP layer has decoded and validated it.
type WebhookPayload struct {
	GatewayTransactionID string
	Amount               decimal.Decimal
	Description          string
	OccurredAt           time.Time
	Raw                  datatypes.JSON
}

// ReconcileResult reports how one delivery was handled. Every value here is
// a success from the gateway's point of view; only errors signal redelivery.
type ReconcileResult struct {
	Outcome model.ProcessingOutcome
	OrderID string
}

// Mailer sends the order confirmation after a successful settlement.
// Failures never affect the reconciliation result.
type Mailer interface {
	SendPaymentConfirmation(ctx context.Context, orderID string, amount decimal.Decimal) error
}

// ReconciliationService turns the at-least-once webhook stream into
// exactly-once order transitions. The ledger insert is the idempotency gate;
// the status compare-and-swap is the only other atomic point, and everything
// between them is naturally serialized because only the first-seen caller
// proceeds.
type ReconciliationService struct {
	transactions repository.BankTransactionRepository
	payments     repository.PendingPaymentRepository
	matcher      *Matcher
	broadcaster  notify.Broadcaster
	mailer       Mailer
	logger       *zap.Logger
}

// NewReconciliationService creates the engine. mailer may be nil when no
// SMTP is configured.
func NewReconciliationService(
	transactions repository.BankTransactionRepository,
	payments repository.PendingPaymentRepository,
	matcher *Matcher,
	broadcaster notify.Broadcaster,
	mailer Mailer,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		transactions: transactions,
		payments:     payments,
		matcher:      matcher,
		broadcaster:  broadcaster,
		mailer:       mailer,
		logger:       logger,
	}
}

// Handle processes one webhook delivery end to end: record-or-reject, match,
// transition, notify. An error return means the gateway should redeliver;
// everything else, including duplicates and unmatched transactions, is a
// recorded outcome.
func (s *ReconciliationService) Handle(ctx context.Context, payload WebhookPayload) (*ReconcileResult, error) {
	record := &model.BankTransaction{
		GatewayTransactionID: payload.GatewayTransactionID,
		Amount:               payload.Amount,
		RawDescription:       payload.Description,
		RawPayload:           payload.Raw,
		OccurredAt:           payload.OccurredAt,
	}

	isNew, stored, err := s.transactions.RecordIfNew(ctx, record)
	if err != nil {
		return nil, err
	}

	if !isNew {
		// Dominant path on redelivery. Cheap and side-effect-free: the
		// stored row already carries whatever outcome the first delivery
		// produced.
		s.logger.Info("Duplicate webhook delivery ignored",
			zap.String("gateway_transaction_id", payload.GatewayTransactionID),
			zap.String("recorded_outcome", string(stored.ProcessingOutcome)))
		result := &ReconcileResult{Outcome: model.OutcomeDuplicateIgnored}
		if stored.MatchedOrderID != nil {
			result.OrderID = *stored.MatchedOrderID
		}
		return result, nil
	}

	match, err := s.matcher.Match(ctx, stored)
	if err != nil {
		// The transaction is safely in the ledger; matching reruns on
		// redelivery would dedupe, so surface the failure for retry via
		// manual reprocessing rather than losing the event.
		s.logger.Error("Matching failed for recorded transaction",
			zap.String("gateway_transaction_id", payload.GatewayTransactionID),
			zap.Error(err))
		return nil, err
	}

	var extractedCode *string
	if match.ExtractedCode != "" {
		extractedCode = &match.ExtractedCode
	}

	if !match.Found {
		s.setOutcome(ctx, stored.ID, model.OutcomeUnmatched, extractedCode, nil)
		s.logger.Warn("Unreconciled bank transaction",
			zap.String("gateway_transaction_id", payload.GatewayTransactionID),
			zap.String("extracted_code", match.ExtractedCode),
			zap.String("amount", payload.Amount.String()))
		s.publish(notify.AdminChannel, notify.Event{
			Type:   notify.EventUnreconciledTransaction,
			Amount: payload.Amount,
			At:     time.Now().UTC(),
		})
		return &ReconcileResult{Outcome: model.OutcomeUnmatched}, nil
	}

	orderID := match.Payment.OrderID

	if !match.AmountOK {
		won, err := s.payments.MarkMismatched(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !won {
			return s.raceLost(ctx, stored.ID, orderID, extractedCode, payload.Amount)
		}
		s.setOutcome(ctx, stored.ID, model.OutcomeAmountMismatch, extractedCode, &orderID)
		s.logger.Warn("Payment amount mismatch",
			zap.String("order_id", orderID),
			zap.String("expected", match.Payment.ExpectedAmount.String()),
			zap.String("received", payload.Amount.String()))
		event := notify.Event{
			Type:    notify.EventPaymentMismatched,
			OrderID: orderID,
			Amount:  payload.Amount,
			At:      time.Now().UTC(),
		}
		s.publish(notify.AdminChannel, event)
		s.publish(notify.UserChannel(match.Payment.UserID), event)
		return &ReconcileResult{Outcome: model.OutcomeAmountMismatch, OrderID: orderID}, nil
	}

	paidAt := time.Now().UTC()
	won, err := s.payments.MarkPaid(ctx, orderID, paidAt)
	if err != nil {
		return nil, err
	}
	if !won {
		return s.raceLost(ctx, stored.ID, orderID, extractedCode, payload.Amount)
	}

	s.setOutcome(ctx, stored.ID, model.OutcomeMatched, extractedCode, &orderID)
	s.logger.Info("Payment reconciled",
		zap.String("order_id", orderID),
		zap.String("gateway_transaction_id", payload.GatewayTransactionID),
		zap.String("amount", payload.Amount.String()))

	event := notify.Event{
		Type:    notify.EventPaymentReceived,
		OrderID: orderID,
		Amount:  payload.Amount,
		At:      paidAt,
	}
	s.publish(notify.UserChannel(match.Payment.UserID), event)
	s.publish(notify.AdminChannel, event)

	if s.mailer != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.mailer.SendPaymentConfirmation(ctx, orderID, payload.Amount); err != nil {
				s.logger.Error("Failed to send payment confirmation email",
					zap.String("order_id", orderID),
					zap.Error(err))
			}
		}()
	}

	return &ReconcileResult{Outcome: model.OutcomeMatched, OrderID: orderID}, nil
}

// raceLost records that another transaction settled the order between our
// match and our compare-and-swap. The money-in event stays in the ledger
// flagged for manual audit; funds are never applied twice.
func (s *ReconciliationService) raceLost(ctx context.Context, txID int64, orderID string, extractedCode *string, amount decimal.Decimal) (*ReconcileResult, error) {
	s.setOutcome(ctx, txID, model.OutcomeOrderAlreadySettled, extractedCode, &orderID)
	s.logger.Warn("Order settled by a concurrent transaction",
		zap.String("order_id", orderID),
		zap.Int64("transaction_id", txID))
	s.publish(notify.AdminChannel, notify.Event{
		Type:    notify.EventUnreconciledTransaction,
		OrderID: orderID,
		Amount:  amount,
		At:      time.Now().UTC(),
	})
	return &ReconcileResult{Outcome: model.OutcomeOrderAlreadySettled, OrderID: orderID}, nil
}

// setOutcome is audit-only; a failure here is logged and swallowed so it
// never turns a handled transaction into a gateway retry.
func (s *ReconciliationService) setOutcome(ctx context.Context, id int64, outcome model.ProcessingOutcome, extractedCode, orderID *string) {
	if err := s.transactions.SetOutcome(ctx, id, outcome, extractedCode, orderID); err != nil {
		s.logger.Error("Failed to record transaction outcome",
			zap.Int64("transaction_id", id),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}
}

// publish is best-effort. Payment truth lives in the database; a lost push
// is reconciled by the UI's pull fallback, so failures are only logged. The
// context is detached from the request so a gateway response never waits on
// the broadcaster.
func (s *ReconciliationService) publish(channel string, event notify.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.broadcaster.Publish(ctx, channel, event); err != nil {
		s.logger.Error("Failed to publish notification",
			zap.String("channel", channel),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
