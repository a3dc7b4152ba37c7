package errors

import (
	"errors"
	"fmt"
)

// ErrTransientStorage wraps storage failures the bank gateway should retry.
// The HTTP layer maps it to a 5xx so the gateway's at-least-once redelivery
// becomes our retry mechanism.
var ErrTransientStorage = errors.New("transient storage failure")

// ErrOrderAlreadySettled is returned when the status compare-and-swap lost:
// another transaction settled the order first. The losing transaction stays
// in the ledger for manual audit; funds are never applied twice.
var ErrOrderAlreadySettled = errors.New("order already settled")

// ErrCodeCollision is returned when a freshly generated reference code hit
// the unique constraint. Callers re-roll.
var ErrCodeCollision = errors.New("reference code collision")

// ErrPaymentNotFound is returned when no pending payment exists for the
// requested order.
var ErrPaymentNotFound = errors.New("pending payment not found")

// NewTransientStorageError wraps a driver error as retryable.
func NewTransientStorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransientStorage, op, err)
}

// IsRetryable reports whether the webhook sender should redeliver.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStorage)
}
