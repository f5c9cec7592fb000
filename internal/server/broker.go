package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/tasuki-ai/tasuki/internal/storage"
)

// Broker fans out Postgres LISTEN/NOTIFY messages to SSE subscribers.
// It runs a background goroutine that calls db.WaitForNotification in a loop
// and routes each payload to the subscribers of the user it belongs to.
type Broker struct {
	db     *storage.DB
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[chan []byte]int64 // channel -> user id
}

// NewBroker creates a new SSE broker. Call Start to begin listening.
func NewBroker(db *storage.DB, logger *slog.Logger) *Broker {
	return &Broker{
		db:          db,
		logger:      logger,
		subscribers: make(map[chan []byte]int64),
	}
}

// Start begins listening on the notifications channel.
// It blocks, so call it in a goroutine. Returns when ctx is cancelled.
func (b *Broker) Start(ctx context.Context) {
	if err := b.db.Listen(ctx, storage.ChannelNotifications); err != nil {
		b.logger.Error("broker: listen notifications", "error", err)
		return
	}

	b.logger.Info("broker: listening for notifications", "channel", storage.ChannelNotifications)

	for {
		channel, payload, err := b.db.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // Shutting down.
			}
			b.logger.Warn("broker: notification error, retrying", "error", err)
			continue
		}

		userID := payloadUserID(payload)
		if userID == 0 {
			b.logger.Warn("broker: payload without user_id, dropping", "channel", channel)
			continue
		}
		b.broadcast(userID, formatSSE(channel, payload))
	}
}

// Subscribe returns a channel that receives SSE-formatted events addressed
// to the given user. The caller must call Unsubscribe when done.
func (b *Broker) Subscribe(userID int64) chan []byte {
	ch := make(chan []byte, 64) // Buffer to avoid blocking the broadcast loop.
	b.mu.Lock()
	b.subscribers[ch] = userID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// broadcast sends an event to the user's subscribers. Slow subscribers that
// have a full buffer are skipped (their event is dropped) to prevent one slow
// client from blocking all others.
func (b *Broker) broadcast(userID int64, event []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, uid := range b.subscribers {
		if uid != userID {
			continue
		}
		select {
		case ch <- event:
		default:
			// Subscriber buffer full, drop this event for them.
		}
	}
}

// payloadUserID extracts the user_id from a notification payload.
// Returns 0 when the payload is not JSON or carries no user_id.
func payloadUserID(payload string) int64 {
	var envelope struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return 0
	}
	return envelope.UserID
}

// formatSSE formats a notification as a Server-Sent Events message.
func formatSSE(eventType, data string) []byte {
	// SSE format: "event: <type>\ndata: <payload>\n\n"
	return []byte("event: " + eventType + "\ndata: " + data + "\n\n")
}
