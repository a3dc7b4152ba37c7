package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProcessingOutcome records how a bank transaction was resolved. It is
// written exactly once after matching completes and never changes again; the
// ledger is the append-only audit trail for every money-in event.
type ProcessingOutcome string

const (
	OutcomeNew                 ProcessingOutcome = "new"
	OutcomeDuplicateIgnored    ProcessingOutcome = "duplicate_ignored"
	OutcomeMatched             ProcessingOutcome = "matched"
	OutcomeUnmatched           ProcessingOutcome = "unmatched"
	OutcomeAmountMismatch      ProcessingOutcome = "amount_mismatch"
	OutcomeOrderAlreadySettled ProcessingOutcome = "order_already_settled"
)

// Scan implements sql.Scanner interface
func (o *ProcessingOutcome) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*o = ProcessingOutcome(v)
	case []byte:
		*o = ProcessingOutcome(v)
	default:
		*o = OutcomeNew
	}
	return nil
}

// Value implements driver.Valuer interface
func (o ProcessingOutcome) Value() (driver.Value, error) {
	return string(o), nil
}

// IsValid reports whether the outcome is one of the known values
func (o ProcessingOutcome) IsValid() bool {
	switch o {
	case OutcomeNew, OutcomeDuplicateIgnored, OutcomeMatched,
		OutcomeUnmatched, OutcomeAmountMismatch, OutcomeOrderAlreadySettled:
		return true
	}
	return false
}

// BankTransaction is one inbound webhook event from the bank gateway. The
// unique gateway_transaction_id is the idempotency key for the whole
// pipeline: the gateway delivers at least once, unordered, possibly
// duplicated, and exactly one insert wins.
type BankTransaction struct {
	ID                   int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	GatewayTransactionID string            `gorm:"unique;not null;size:255;index" json:"gateway_transaction_id"`
	Amount               decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"amount"`
	RawDescription       string            `gorm:"not null" json:"raw_description"`
	RawPayload           datatypes.JSON    `gorm:"type:jsonb" json:"raw_payload,omitempty"`
	ProcessingOutcome    ProcessingOutcome `gorm:"type:processing_outcome;default:'new';index" json:"processing_outcome"`
	ExtractedCode        *string           `gorm:"size:20" json:"extracted_code,omitempty"`
	MatchedOrderID       *string           `gorm:"size:100;index" json:"matched_order_id,omitempty"`
	OccurredAt           time.Time         `gorm:"not null" json:"occurred_at"`
	ReceivedAt           time.Time         `gorm:"default:now()" json:"received_at"`
}

// TableName specifies the table name for GORM
func (BankTransaction) TableName() string {
	return "bank_transactions"
}
