package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	// Custom enum types must exist before AutoMigrate references them.
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.PendingPayment{},
		&model.BankTransaction{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomTypes creates the enum types backing the status columns.
func createCustomTypes(db *gorm.DB) error {
	statements := []string{
		`DO $$ BEGIN
			CREATE TYPE payment_status AS ENUM ('pending', 'paid', 'expired', 'mismatched');
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		`DO $$ BEGIN
			CREATE TYPE processing_outcome AS ENUM ('new', 'duplicate_ignored', 'matched', 'unmatched', 'amount_mismatch', 'order_already_settled');
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// createCustomIndexes creates indexes GORM doesn't handle automatically.
func createCustomIndexes(db *gorm.DB) error {
	// At most one pending payment per reference code; retired codes stay
	// in the table and are never reused.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_pending_reference_code ON pending_payments (reference_code) WHERE status = 'pending'`).Error; err != nil {
		return err
	}

	// The admin review queue reads unresolved ledger rows.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_bank_transactions_review ON bank_transactions (received_at) WHERE processing_outcome IN ('unmatched', 'amount_mismatch', 'order_already_settled')`).Error; err != nil {
		return err
	}

	// The expiry sweep scans open payments by age.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_pending_payments_open ON pending_payments (created_at) WHERE status = 'pending'`).Error; err != nil {
		return err
	}

	return nil
}
