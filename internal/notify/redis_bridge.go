package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// bridgeChannel is the single redis pub/sub channel carrying all
// notification traffic between instances.
const bridgeChannel = "payments.notifications"

// publishTimeout bounds the outbound publish so a slow redis never delays
// the reconciliation result.
const publishTimeout = 2 * time.Second

// envelope wraps an event with its logical channel for transit.
type envelope struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
}

// RedisBridge fans events out across instances. Publish goes to redis; a
// background loop re-injects everything from redis into the local hub, so
// a session connected to any instance receives the event.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

// NewRedisBridge creates a bridge over an established redis client.
func NewRedisBridge(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client: client,
		hub:    hub,
		logger: logger,
	}
}

// Publish sends the event through redis. Delivery to local sessions happens
// when the subscription loop receives it back, same as for remote events.
func (b *RedisBridge) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(envelope{Channel: channel, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal notification envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := b.client.Publish(ctx, bridgeChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Run consumes the redis channel into the local hub until ctx is cancelled.
// Run it on its own goroutine from main.
func (b *RedisBridge) Run(ctx context.Context) {
	pubsub := b.client.Subscribe(ctx, bridgeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	b.logger.Info("Notification bridge subscribed", zap.String("redis_channel", bridgeChannel))

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("Discarding malformed notification envelope",
					zap.Error(err))
				continue
			}
			if err := b.hub.Publish(ctx, env.Channel, env.Event); err != nil {
				b.logger.Warn("Failed to deliver bridged notification",
					zap.String("channel", env.Channel),
					zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
