package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/shopline-labs/payment-reconciliation/internal/notify"
)

func drain(t *testing.T, s *notify.Session) *notify.Event {
	t.Helper()
	select {
	case payload := <-s.Outbox():
		var event notify.Event
		assert.NoError(t, json.Unmarshal(payload, &event))
		return &event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return nil
	}
}

func TestHub_Publish(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("delivers to every session on the channel", func(t *testing.T) {
		hub := notify.NewHub(logger)
		first := notify.NewSession("s1")
		second := notify.NewSession("s2")
		hub.Subscribe(notify.UserChannel("user-1"), first)
		hub.Subscribe(notify.UserChannel("user-1"), second)

		event := notify.Event{
			Type:    notify.EventPaymentReceived,
			OrderID: "order-1",
			Amount:  decimal.NewFromInt(150),
			At:      time.Now().UTC(),
		}
		assert.NoError(t, hub.Publish(ctx, notify.UserChannel("user-1"), event))

		for _, s := range []*notify.Session{first, second} {
			got := drain(t, s)
			assert.Equal(t, notify.EventPaymentReceived, got.Type)
			assert.Equal(t, "order-1", got.OrderID)
		}
	})

	t.Run("channels are isolated", func(t *testing.T) {
		hub := notify.NewHub(logger)
		buyer := notify.NewSession("buyer")
		admin := notify.NewSession("admin")
		hub.Subscribe(notify.UserChannel("user-1"), buyer)
		hub.Subscribe(notify.AdminChannel, admin)

		event := notify.Event{Type: notify.EventUnreconciledTransaction, At: time.Now().UTC()}
		assert.NoError(t, hub.Publish(ctx, notify.AdminChannel, event))

		assert.Equal(t, notify.EventUnreconciledTransaction, drain(t, admin).Type)
		assert.Empty(t, buyer.Outbox())
	})

	t.Run("publish to empty channel is a no-op", func(t *testing.T) {
		hub := notify.NewHub(logger)
		event := notify.Event{Type: notify.EventPaymentReceived, At: time.Now().UTC()}
		assert.NoError(t, hub.Publish(ctx, notify.UserChannel("nobody"), event))
	})

	t.Run("slow session misses events instead of blocking", func(t *testing.T) {
		hub := notify.NewHub(logger)
		slow := notify.NewSession("slow")
		hub.Subscribe(notify.AdminChannel, slow)

		event := notify.Event{Type: notify.EventPaymentReceived, At: time.Now().UTC()}
		// Overfill the session queue; Publish must return promptly every
		// time.
		for i := 0; i < 64; i++ {
			done := make(chan struct{})
			go func() {
				hub.Publish(ctx, notify.AdminChannel, event)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("publish blocked on a slow session")
			}
		}
	})

	t.Run("closed session receives nothing", func(t *testing.T) {
		hub := notify.NewHub(logger)
		s := notify.NewSession("s1")
		hub.Subscribe(notify.AdminChannel, s)
		s.Close()

		event := notify.Event{Type: notify.EventPaymentReceived, At: time.Now().UTC()}
		assert.NoError(t, hub.Publish(ctx, notify.AdminChannel, event))
		assert.Empty(t, s.Outbox())
	})
}

func TestHub_Membership(t *testing.T) {
	logger := zap.NewNop()

	t.Run("subscribe is idempotent", func(t *testing.T) {
		hub := notify.NewHub(logger)
		s := notify.NewSession("s1")
		hub.Subscribe(notify.AdminChannel, s)
		hub.Subscribe(notify.AdminChannel, s)
		assert.Equal(t, 1, hub.SubscriberCount(notify.AdminChannel))
	})

	t.Run("unsubscribe unknown channel is a no-op", func(t *testing.T) {
		hub := notify.NewHub(logger)
		s := notify.NewSession("s1")
		assert.NotPanics(t, func() { hub.Unsubscribe("ghost", s) })
	})

	t.Run("drop removes the session from every channel", func(t *testing.T) {
		hub := notify.NewHub(logger)
		s := notify.NewSession("s1")
		hub.Subscribe(notify.UserChannel("user-1"), s)
		hub.Subscribe(notify.AdminChannel, s)

		hub.Drop(s)

		assert.Equal(t, 0, hub.SubscriberCount(notify.UserChannel("user-1")))
		assert.Equal(t, 0, hub.SubscriberCount(notify.AdminChannel))
	})
}
