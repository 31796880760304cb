package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LocalBus is the single-process Publisher and Subscriber used when no redis
// is configured. Each subscriber gets a buffered channel; a slow subscriber
// drops events instead of blocking publishers.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*localSub]struct{}
	buffer int
	log    *zap.Logger
}

type localSub struct {
	ch chan Event
}

func NewLocalBus(buffer int, log *zap.Logger) *LocalBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &LocalBus{
		subs:   make(map[string]map[*localSub]struct{}),
		buffer: buffer,
		log:    log,
	}
}

func (b *LocalBus) Publish(_ context.Context, stream string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[stream] {
		select {
		case sub.ch <- event:
		default:
			b.log.Warn("local subscriber full, dropping event",
				zap.String("stream", stream),
				zap.String("type", event.Type),
			)
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, stream string, handler func(Event)) error {
	sub := &localSub{ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	if b.subs[stream] == nil {
		b.subs[stream] = make(map[*localSub]struct{})
	}
	b.subs[stream][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.subs[stream], sub)
			b.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-sub.ch:
				handler(event)
			}
		}
	}()

	return nil
}
