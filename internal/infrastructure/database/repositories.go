package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	adapterRepo "github.com/shopline-labs/payment-reconciliation/internal/adapter/repository"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
)

// Repositories bundles every repository implementation for injection.
type Repositories struct {
	PendingPayment  repository.PendingPaymentRepository
	BankTransaction repository.BankTransactionRepository
}

// NewRepositories creates all repositories over one database connection.
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		PendingPayment:  adapterRepo.NewPendingPaymentRepository(db, logger),
		BankTransaction: adapterRepo.NewBankTransactionRepository(db, logger),
	}
}
