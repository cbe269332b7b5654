package secret

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFansOut(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.Subscribe(context.Background())
	b, cancelB := hub.Subscribe(context.Background())
	defer cancelA()
	defer cancelB()

	event := Event{Type: EventSecretSet, SecretID: uuid.New(), Name: "db-password"}
	hub.Publish(event)

	for _, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			assert.Equal(t, event.SecretID, got.SecretID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(context.Background())
	cancel()
	// Cancelling twice is safe
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe does not panic
	hub.Publish(Event{Type: EventSecretSet})
}

func TestHubContextCancellation(t *testing.T) {
	hub := NewHub()

	ctx, stop := context.WithCancel(context.Background())
	ch, cancel := hub.Subscribe(ctx)
	defer cancel()

	stop()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancellation")
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()

	slow, cancelSlow := hub.Subscribe(context.Background())
	defer cancelSlow()

	fast, cancelFast := hub.Subscribe(context.Background())
	defer cancelFast()
	received := make(chan int)
	go func() {
		count := 0
		for range fast {
			count++
		}
		received <- count
	}()

	// Overflow the undrained subscriber's buffer; publishers never block
	for i := 0; i < 32; i++ {
		hub.Publish(Event{Type: EventSecretSet, Name: "spam"})
	}

	// The slow channel is eventually closed
	for {
		if _, open := <-slow; !open {
			break
		}
	}

	cancelFast()
	select {
	case count := <-received:
		require.Greater(t, count, 0)
	case <-time.After(time.Second):
		t.Fatal("fast subscriber never finished")
	}
}
