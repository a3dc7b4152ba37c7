package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopline-labs/payment-reconciliation/internal/config"
)

// SMTPMailer sends the payment confirmation to the orders inbox once a
// transaction settles an order. It implements usecase.Mailer.
type SMTPMailer struct {
	cfg    config.EmailConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a new SMTPMailer instance
func NewSMTPMailer(cfg config.EmailConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger,
	}
}

// SendPaymentConfirmation notifies the orders inbox that an order was paid.
func (m *SMTPMailer) SendPaymentConfirmation(ctx context.Context, orderID string, amount decimal.Decimal) error {
	subject := fmt.Sprintf("Payment received for order %s", orderID)
	body := fmt.Sprintf(
		"<p>Order <b>%s</b> was paid in full.</p><p>Amount: %s</p>",
		orderID, amount.StringFixed(2),
	)

	if err := m.send(m.cfg.OrdersInbox, subject, body); err != nil {
		m.logger.Error("Failed to send payment confirmation",
			zap.String("order_id", orderID),
			zap.String("to", m.cfg.OrdersInbox),
			zap.Error(err))
		return fmt.Errorf("send payment confirmation: %w", err)
	}

	m.logger.Info("Payment confirmation sent",
		zap.String("order_id", orderID),
		zap.String("to", m.cfg.OrdersInbox))
	return nil
}

func (m *SMTPMailer) send(to, subject, body string) error {
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	headers := map[string]string{
		"From":         m.cfg.From,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=\"utf-8\"",
	}

	var message string
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(message))
}
