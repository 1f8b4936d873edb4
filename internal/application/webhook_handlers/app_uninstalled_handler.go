package webhook_handlers

import (
	"context"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events.
// Store data is intentionally kept: uninstalling does not imply data loss.
type AppUninstalledHandler struct {
	publisher ports.EventPublisher
	logger    zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(publisher ports.EventPublisher, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		publisher: publisher,
		logger:    logger.With().Str("component", "app_uninstalled_handler").Logger(),
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle processes an app uninstalled webhook event
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent, store *domain.Store) (*domain.ReconcileResult, error) {
	shop, err := domain.DecodeShop(event.Payload)
	if err != nil {
		return nil, err
	}

	shopDomain := event.Shop
	if shopDomain == "" {
		shopDomain = shop.MyshopifyDomain
	}
	if shopDomain == "" {
		shopDomain = shop.Domain
	}
	if shopDomain == "" {
		shopDomain = store.ShopDomain
	}

	h.logger.Warn().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Msg("App uninstalled, keeping store data")

	h.publisher.Publish(domain.ChannelStore, domain.NewEvent(domain.EventAppUninstalled, domain.StoreNotification{
		ShopDomain: shopDomain,
		Topic:      event.Topic,
		Message:    "app uninstalled; stored data is retained",
	}))

	return domain.Succeeded(domain.ActionLogged, shop.ID.Int64()), nil
}
