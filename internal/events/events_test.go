package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalBus_Delivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewLocalBus(4, zap.NewNop())
	got := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(ctx, StreamLifecycle, func(e Event) { got <- e }))

	require.NoError(t, bus.Publish(ctx, StreamLifecycle, Event{
		Type:    EventCreated,
		Payload: map[string]any{"walletAddress": "0xabc"},
	}))

	select {
	case e := <-got:
		assert.Equal(t, EventCreated, e.Type)
		assert.Equal(t, "0xabc", e.Wallet())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestLocalBus_OtherStreamIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewLocalBus(4, zap.NewNop())
	got := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(ctx, "other", func(e Event) { got <- e }))
	require.NoError(t, bus.Publish(ctx, StreamLifecycle, Event{Type: EventCreated}))

	select {
	case <-got:
		t.Fatal("unexpected delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLocalBus_FullSubscriberDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewLocalBus(1, zap.NewNop())
	block := make(chan struct{})
	require.NoError(t, bus.Subscribe(ctx, StreamLifecycle, func(Event) { <-block }))
	defer close(block)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.Publish(ctx, StreamLifecycle, Event{Type: EventStatusChanged})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestEvent_WalletMissing(t *testing.T) {
	assert.Equal(t, "", Event{}.Wallet())
	assert.Equal(t, "", Event{Payload: map[string]any{"walletAddress": 12}}.Wallet())
}
