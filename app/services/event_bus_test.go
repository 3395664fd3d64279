package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	t.Run("FanOutToAllSubscribers", func(t *testing.T) {
		bus := NewEventBus(nil, "")
		first := bus.Subscribe(EventSelectionCreated, 4)
		second := bus.Subscribe(EventSelectionCreated, 4)

		event := SelectionCreatedEvent{RaffleID: 1, ReceiptID: "RCPTAAAAAAAAA", Number: 42, PageNumber: 1, CreatedAt: time.Now()}
		bus.Publish(context.Background(), EventSelectionCreated, event)

		select {
		case got := <-first:
			assert.Equal(t, event, got)
		default:
			t.Fatal("first subscriber received nothing")
		}
		select {
		case got := <-second:
			assert.Equal(t, event, got)
		default:
			t.Fatal("second subscriber received nothing")
		}
	})

	t.Run("EventsAreIsolatedByName", func(t *testing.T) {
		bus := NewEventBus(nil, "")
		expired := bus.Subscribe(EventReceiptExpired, 4)

		bus.Publish(context.Background(), EventSelectionCreated, SelectionCreatedEvent{Number: 7})

		select {
		case <-expired:
			t.Fatal("subscriber received an event it never subscribed to")
		default:
		}
	})

	t.Run("SlowSubscriberNeverBlocksPublish", func(t *testing.T) {
		bus := NewEventBus(nil, "")
		ch := bus.Subscribe(EventReceiptExpired, 1)

		done := make(chan struct{})
		go func() {
			for i := 0; i < 10; i++ {
				bus.Publish(context.Background(), EventReceiptExpired, ReceiptExpiredEvent{Released: int64(i)})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a full subscriber buffer")
		}

		// only the first event fit the buffer
		require.Len(t, ch, 1)
		got := <-ch
		assert.Equal(t, int64(0), got.(ReceiptExpiredEvent).Released)
	})

	t.Run("PublishWithoutSubscribersIsNoop", func(t *testing.T) {
		bus := NewEventBus(nil, "")
		assert.NotPanics(t, func() {
			bus.Publish(context.Background(), EventSelectionCreated, SelectionCreatedEvent{})
		})
	})

	t.Run("DefaultBufferApplied", func(t *testing.T) {
		bus := NewEventBus(nil, "")
		ch := bus.Subscribe(EventSelectionCreated, 0)
		for i := 0; i < 3; i++ {
			bus.Publish(context.Background(), EventSelectionCreated, SelectionCreatedEvent{Number: i})
		}
		assert.Len(t, ch, 3)
	})
}
