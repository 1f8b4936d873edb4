package application

import (
	"context"

	"shopify-insights/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookRegistrar makes sure Shopify delivers the topics we reconcile to
// this deployment's webhook endpoint.
type WebhookRegistrar struct {
	shopify *ShopifyService
	address string
	topics  []string
	logger  zerolog.Logger
}

// NewWebhookRegistrar registers domain.DefaultWebhookTopics when topics is empty
func NewWebhookRegistrar(shopify *ShopifyService, address string, topics []string, logger zerolog.Logger) *WebhookRegistrar {
	if len(topics) == 0 {
		topics = domain.DefaultWebhookTopics
	}
	return &WebhookRegistrar{
		shopify: shopify,
		address: address,
		topics:  topics,
		logger:  logger.With().Str("component", "webhook_registrar").Logger(),
	}
}

// EnsureSubscriptions creates the missing subscriptions and returns their topics
func (r *WebhookRegistrar) EnsureSubscriptions(ctx context.Context) ([]string, error) {
	r.logger.Info().Str("address", r.address).Int("topics", len(r.topics)).Msg("Ensuring webhook subscriptions")
	return r.shopify.EnsureWebhooks(ctx, r.address, r.topics)
}
