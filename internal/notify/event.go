// Package notify delivers reconciliation outcomes to connected browsers in
// real time. It is a convenience layer, not a message bus: events are pushed
// at most once to currently-connected sessions and dropped otherwise, and the
// UI reconciles via the pull endpoint when a push is lost.
package notify

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType identifies what happened to a payment.
type EventType string

const (
	EventPaymentReceived         EventType = "PaymentReceived"
	EventPaymentMismatched       EventType = "PaymentMismatched"
	EventUnreconciledTransaction EventType = "UnreconciledTransaction"
	EventPaymentExpired          EventType = "PaymentExpired"
)

// Event is the structure delivered to subscribers.
type Event struct {
	Type    EventType       `json:"type"`
	OrderID string          `json:"orderId,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	At      time.Time       `json:"at"`
}

// AdminChannel is the logical channel every admin console session joins.
const AdminChannel = "admin"

// UserChannel returns the logical channel for one user's sessions. A user
// with two open tabs has two sessions on the same channel and both receive
// every event.
func UserChannel(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}
