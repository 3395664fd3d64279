package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event names published on the bus
const (
	EventSelectionCreated = "selection:created"
	EventReceiptExpired   = "receipt:expired"
)

// SelectionCreatedEvent announces one newly claimed number. A batch claim
// emits one event per number so grid listeners can refresh incrementally.
type SelectionCreatedEvent struct {
	RaffleID   uint      `json:"raffle_id"`
	ReceiptID  string    `json:"receipt_id"`
	Number     int       `json:"number"`
	PageNumber int       `json:"page_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReceiptExpiredEvent announces a sweeper expiration and ledger release
type ReceiptExpiredEvent struct {
	RaffleID  uint      `json:"raffle_id"`
	ReceiptID string    `json:"receipt_id"`
	Released  int64     `json:"released"`
	ExpiredAt time.Time `json:"expired_at"`
}

// EventBus fans application events out to subscribers. Publishing is
// best-effort: a slow or absent subscriber never blocks the flow that
// produced the event.
type EventBus interface {
	Publish(ctx context.Context, event string, payload any)
	Subscribe(event string, buffer int) <-chan any
}

// InProcessEventBus implements EventBus with per-event channel fan-out.
// Events are dropped for subscribers whose buffer is full.
type InProcessEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan any
	rc          *redis.Client
	channelName string
}

// NewEventBus creates an in-process bus. When rc is non-nil every event is
// additionally published on the given Redis channel for external consumers.
func NewEventBus(rc *redis.Client, channelName string) *InProcessEventBus {
	return &InProcessEventBus{
		subscribers: make(map[string][]chan any),
		rc:          rc,
		channelName: channelName,
	}
}

// Publish delivers the payload to all subscribers of the event
func (b *InProcessEventBus) Publish(ctx context.Context, event string, payload any) {
	b.mu.RLock()
	subs := b.subscribers[event]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- payload:
		default:
			// subscriber is behind, drop
		}
	}

	if b.rc != nil {
		envelope, err := json.Marshal(map[string]any{"event": event, "payload": payload})
		if err != nil {
			return
		}
		if err := b.rc.Publish(ctx, b.channelName, envelope).Err(); err != nil {
			log.Printf("event bus: redis publish failed: %v", err)
		}
	}
}

// Subscribe registers a new subscriber channel for the event
func (b *InProcessEventBus) Subscribe(event string, buffer int) <-chan any {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan any, buffer)

	b.mu.Lock()
	b.subscribers[event] = append(b.subscribers[event], ch)
	b.mu.Unlock()

	return ch
}
