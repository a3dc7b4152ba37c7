package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
	"github.com/shopline-labs/payment-reconciliation/internal/notify"
)

// ExpirySweeper retires pending payments whose window has passed. The
// reconciliation engine never expires anything itself; a late webhook racing
// the sweep is decided by the status guard, whichever side runs first.
type ExpirySweeper struct {
	payments    repository.PendingPaymentRepository
	broadcaster notify.Broadcaster
	ttl         time.Duration
	interval    time.Duration
	logger      *zap.Logger
}

// NewExpirySweeper creates a sweeper expiring payments older than ttl,
// checking every interval.
func NewExpirySweeper(
	payments repository.PendingPaymentRepository,
	broadcaster notify.Broadcaster,
	ttl, interval time.Duration,
	logger *zap.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		payments:    payments,
		broadcaster: broadcaster,
		ttl:         ttl,
		interval:    interval,
		logger:      logger,
	}
}

// Run sweeps on a ticker until ctx is cancelled. Run it on its own goroutine
// from main.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Expiry sweeper started",
		zap.Duration("ttl", s.ttl),
		zap.Duration("interval", s.interval))

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		}
	}
}

// SweepOnce expires everything past the window and notifies the affected
// users. Sweep failures are logged and retried on the next tick.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.ttl)

	expired, err := s.payments.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Expiry sweep failed", zap.Error(err))
		return
	}
	if len(expired) == 0 {
		return
	}

	s.logger.Info("Expired stale pending payments", zap.Int("count", len(expired)))

	for _, payment := range expired {
		event := notify.Event{
			Type:    notify.EventPaymentExpired,
			OrderID: payment.OrderID,
			Amount:  payment.ExpectedAmount,
			At:      time.Now().UTC(),
		}
		publishCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := s.broadcaster.Publish(publishCtx, notify.UserChannel(payment.UserID), event); err != nil {
			s.logger.Warn("Failed to publish expiry notification",
				zap.String("order_id", payment.OrderID),
				zap.Error(err))
		}
		cancel()
	}
}
