package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Broadcaster publishes an event to every session subscribed to a logical
// channel. Fire-and-forget: no subscribers means the event is dropped.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// Hub is the in-process broadcaster. It maps logical channels to sets of
// sessions; one user with several open tabs holds several sessions on the
// same channel.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Session]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Session]struct{}),
		logger: logger,
	}
}

// Subscribe joins the session to the channel. Idempotent.
func (h *Hub) Subscribe(channel string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[channel]
	if !ok {
		set = make(map[*Session]struct{})
		h.subs[channel] = set
	}
	set[s] = struct{}{}

	h.logger.Debug("Session subscribed",
		zap.String("channel", channel),
		zap.String("session_id", s.ID()))
}

// Unsubscribe removes the session from the channel. Idempotent; unknown
// channels and absent sessions are no-ops.
func (h *Hub) Unsubscribe(channel string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[channel]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, channel)
	}
}

// Drop removes the session from every channel, for connection teardown.
func (h *Hub) Drop(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel, set := range h.subs {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, channel)
		}
	}
}

// Publish marshals the event once and offers it to every subscribed session
// without blocking. Sessions with a full queue miss the event.
func (h *Hub) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.subs[channel]))
	for s := range h.subs[channel] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	if len(sessions) == 0 {
		return nil
	}

	delivered := 0
	for _, s := range sessions {
		if s.enqueue(payload) {
			delivered++
		} else {
			h.logger.Warn("Dropped notification for slow session",
				zap.String("channel", channel),
				zap.String("session_id", s.ID()),
				zap.String("event_type", string(event.Type)))
		}
	}

	h.logger.Debug("Published notification",
		zap.String("channel", channel),
		zap.String("event_type", string(event.Type)),
		zap.Int("delivered", delivered),
		zap.Int("sessions", len(sessions)))

	return nil
}

// SubscriberCount returns how many sessions are on the channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
