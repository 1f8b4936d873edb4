package graph

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"shopify-insights/internal/application"
	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

// subscriptionBuffer is how many events a slow GraphQL subscriber may lag
// behind before events are dropped for it.
const subscriptionBuffer = 64

// Resolver serves the GraphQL operations from the application services.
type Resolver struct {
	sync   *application.SyncService
	poller *application.Poller
	stats  *application.StatsService
	bus    *pubsub.EventBus
	logger zerolog.Logger
}

// NewResolver creates a new GraphQL resolver
func NewResolver(
	syncService *application.SyncService,
	poller *application.Poller,
	stats *application.StatsService,
	bus *pubsub.EventBus,
	logger zerolog.Logger,
) *Resolver {
	return &Resolver{
		sync:   syncService,
		poller: poller,
		stats:  stats,
		bus:    bus,
		logger: logger.With().Str("component", "graphql").Logger(),
	}
}

// EventMessage is one event delivered to a subscription
type EventMessage struct {
	Channel string `json:"channel"`
	domain.Event
}

func (r *Resolver) SyncStatus(ctx context.Context) domain.SyncState {
	return r.sync.Status()
}

func (r *Resolver) PollerStatus(ctx context.Context) domain.PollerStatus {
	return r.poller.Status()
}

func (r *Resolver) Summary(ctx context.Context) (*domain.StoreSummary, error) {
	return r.stats.Summary(ctx)
}

// PerformSync runs a manual sync to completion even if the client goes away.
func (r *Resolver) PerformSync(ctx context.Context, syncType string) *domain.SyncResult {
	return r.sync.PerformSync(context.WithoutCancel(ctx), domain.TriggerManual, domain.ParseSyncType(syncType))
}

func (r *Resolver) CheckForUpdates(ctx context.Context) domain.PollResult {
	return r.poller.CheckForUpdates(ctx)
}

// Events subscribes to the given bus channels until cancel is called.
// Events are dropped for a subscriber whose buffer is full.
func (r *Resolver) Events(channels []string) (<-chan EventMessage, func(), error) {
	if len(channels) == 0 {
		channels = domain.Channels
	}
	for _, channel := range channels {
		if !slices.Contains(domain.Channels, channel) {
			return nil, nil, fmt.Errorf("unknown channel %q", channel)
		}
	}

	out := make(chan EventMessage, subscriptionBuffer)
	subs := make([]*pubsub.Subscription, 0, len(channels))
	for _, channel := range channels {
		subs = append(subs, r.bus.Subscribe(channel, func(event domain.Event) error {
			select {
			case out <- EventMessage{Channel: channel, Event: event}:
			default:
				r.logger.Warn().
					Str("channel", channel).
					Str("event", string(event.Kind)).
					Msg("Subscriber buffer full, dropping event")
			}
			return nil
		}))
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		})
	}
	return out, cancel, nil
}
