package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the settlement state of a pending payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusExpired    PaymentStatus = "expired"
	PaymentStatusMismatched PaymentStatus = "mismatched"
)

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		*s = PaymentStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether the status can never change again. Paid,
// expired and mismatched payments retire their reference code; codes are
// never reused.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

// PendingPayment represents one order awaiting bank-transfer settlement. The
// row is created at checkout; only the reconciliation engine moves status to
// paid or mismatched, and only the expiry sweeper moves it to expired.
type PendingPayment struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        string          `gorm:"unique;not null;size:100;index" json:"order_id"`
	ReferenceCode  string          `gorm:"not null;size:20;index" json:"reference_code"`
	ExpectedAmount decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"expected_amount"`
	UserID         string          `gorm:"not null;size:100;index" json:"user_id"`
	Status         PaymentStatus   `gorm:"type:payment_status;default:'pending';index" json:"status"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CreatedAt      time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PendingPayment) TableName() string {
	return "pending_payments"
}
