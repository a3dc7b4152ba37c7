package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/shopline-labs/payment-reconciliation/internal/domain/errors"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
)

type bankTransactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewBankTransactionRepository creates the gorm-backed idempotency ledger.
func NewBankTransactionRepository(db *gorm.DB, logger *zap.Logger) repository.BankTransactionRepository {
	return &bankTransactionRepository{
		db:     db,
		logger: logger,
	}
}

// RecordIfNew inserts the transaction with ON CONFLICT DO NOTHING on the
// unique gateway_transaction_id. RowsAffected tells the winner apart from
// duplicate deliveries; the losers read back the stored row so every caller
// returns the same record.
func (r *bankTransactionRepository) RecordIfNew(ctx context.Context, tx *model.BankTransaction) (bool, *model.BankTransaction, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "gateway_transaction_id"}},
			DoNothing: true,
		}).
		Create(tx)

	if result.Error != nil {
		r.logger.Error("Failed to record bank transaction",
			zap.String("gateway_transaction_id", tx.GatewayTransactionID),
			zap.Error(result.Error))
		return false, nil, domainErrors.NewTransientStorageError("record bank transaction", result.Error)
	}

	if result.RowsAffected > 0 {
		return true, tx, nil
	}

	var existing model.BankTransaction
	err := r.db.WithContext(ctx).
		Where("gateway_transaction_id = ?", tx.GatewayTransactionID).
		First(&existing).Error
	if err != nil {
		r.logger.Error("Failed to load duplicate bank transaction",
			zap.String("gateway_transaction_id", tx.GatewayTransactionID),
			zap.Error(err))
		return false, nil, domainErrors.NewTransientStorageError("load duplicate bank transaction", err)
	}

	return false, &existing, nil
}

// SetOutcome writes the processing outcome exactly once. A second write for
// the same row is rejected so the ledger stays append-only beyond that
// single field.
func (r *bankTransactionRepository) SetOutcome(ctx context.Context, id int64, outcome model.ProcessingOutcome, extractedCode, matchedOrderID *string) error {
	updates := map[string]interface{}{
		"processing_outcome": outcome,
	}
	if extractedCode != nil {
		updates["extracted_code"] = extractedCode
	}
	if matchedOrderID != nil {
		updates["matched_order_id"] = matchedOrderID
	}

	result := r.db.WithContext(ctx).
		Model(&model.BankTransaction{}).
		Where("id = ? AND processing_outcome = ?", id, model.OutcomeNew).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to set transaction outcome",
			zap.Int64("transaction_id", id),
			zap.String("outcome", string(outcome)),
			zap.Error(result.Error))
		return fmt.Errorf("failed to set transaction outcome: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("transaction %d not found or outcome already set", id)
	}

	return nil
}

// List returns ledger rows for the admin audit surface, newest first.
func (r *bankTransactionRepository) List(ctx context.Context, filters repository.TransactionFilters) ([]model.BankTransaction, int64, error) {
	filters.SetDefaults()

	query := r.db.WithContext(ctx).Model(&model.BankTransaction{})
	if filters.Outcome != nil {
		query = query.Where("processing_outcome = ?", *filters.Outcome)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Error("Failed to count bank transactions", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count bank transactions: %w", err)
	}

	var transactions []model.BankTransaction
	err := query.
		Order("received_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&transactions).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []model.BankTransaction{}, 0, nil
		}
		r.logger.Error("Failed to list bank transactions", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list bank transactions: %w", err)
	}

	return transactions, total, nil
}
