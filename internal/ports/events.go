package ports

import (
	"context"

	"shopify-insights/internal/domain"
)

// EventPublisher publishes notifications on a named bus channel.
type EventPublisher interface {
	Publish(channel string, event domain.Event)
}

// Reconciler applies a verified webhook (or a synthetic one) to the store.
type Reconciler interface {
	Reconcile(ctx context.Context, event *domain.WebhookEvent, store *domain.Store) (*domain.ReconcileResult, error)
}
