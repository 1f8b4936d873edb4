package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// Handler consumes one event. A returned error is logged and delivery continues.
type Handler func(event domain.Event) error

// Subscription represents one handler registered on a channel
type Subscription struct {
	ID      string
	Channel string
	handler Handler
	bus     *EventBus
}

// Unsubscribe removes the subscription from its bus
func (s *Subscription) Unsubscribe() {
	s.bus.Unsubscribe(s)
}

// EventBus is an in-process publish/subscribe hub with a shared cache facet.
// Handlers run synchronously on the publisher's goroutine in registration order.
type EventBus struct {
	mu       sync.RWMutex
	channels map[string][]*Subscription
	cache    ports.Cache
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewEventBus creates a new event bus backed by the given cache
func NewEventBus(cache ports.Cache, logger zerolog.Logger) *EventBus {
	return &EventBus{
		channels: make(map[string][]*Subscription),
		cache:    cache,
		logger:   logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler on channel
func (b *EventBus) Subscribe(channel string, handler Handler) *Subscription {
	b.idMu.Lock()
	id := b.generateID()
	b.idMu.Unlock()

	sub := &Subscription{
		ID:      id,
		Channel: channel,
		handler: handler,
		bus:     b,
	}

	b.mu.Lock()
	b.channels[channel] = append(b.channels[channel], sub)
	b.mu.Unlock()

	b.logger.Debug().
		Str("subscriptionId", id).
		Str("channel", channel).
		Msg("Subscription created")

	return sub
}

// Unsubscribe removes a subscription; unknown subscriptions are ignored
func (b *EventBus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.channels[sub.Channel]
	for i, s := range subs {
		if s.ID != sub.ID {
			continue
		}
		next := make([]*Subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.channels, sub.Channel)
		} else {
			b.channels[sub.Channel] = next
		}
		b.logger.Debug().
			Str("subscriptionId", sub.ID).
			Str("channel", sub.Channel).
			Msg("Subscription removed")
		return
	}
}

// Publish delivers event to every subscriber of channel. Handlers may
// subscribe or unsubscribe while being called.
func (b *EventBus) Publish(channel string, event domain.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	subs := b.channels[channel]
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}

	if len(subs) > 0 {
		b.logger.Debug().
			Str("channel", channel).
			Str("event", string(event.Kind)).
			Int("subscribers", len(subs)).
			Msg("Published event to subscribers")
	}
}

func (b *EventBus) deliver(sub *Subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("subscriptionId", sub.ID).
				Str("channel", sub.Channel).
				Interface("panic", r).
				Msg("Subscriber panicked")
		}
	}()
	if err := sub.handler(event); err != nil {
		b.logger.Warn().
			Err(err).
			Str("subscriptionId", sub.ID).
			Str("channel", sub.Channel).
			Msg("Subscriber failed")
	}
}

// Get reads from the shared cache
func (b *EventBus) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.cache.Get(ctx, key)
}

// Set writes to the shared cache
func (b *EventBus) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.cache.Set(ctx, key, value, ttl)
}

// Delete removes a key from the shared cache
func (b *EventBus) Delete(ctx context.Context, key string) error {
	return b.cache.Delete(ctx, key)
}

// generateID generates a unique subscription ID
func (b *EventBus) generateID() string {
	b.nextID++
	return fmt.Sprintf("sub-%d", b.nextID)
}

// GetStats returns pub/sub statistics
func (b *EventBus) GetStats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, subs := range b.channels {
		total += len(subs)
	}
	return map[string]interface{}{
		"channels":             len(b.channels),
		"active_subscriptions": total,
	}
}
