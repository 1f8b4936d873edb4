package webhook_handlers

import (
	"context"

	"shopify-insights/internal/application"
	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	ingest    *application.IngestService
	publisher ports.EventPublisher
	logger    zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(ingest *application.IngestService, publisher ports.EventPublisher, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		ingest:    ingest,
		publisher: publisher,
		logger:    logger.With().Str("component", "product_handler").Logger(),
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return topic == domain.TopicProductsCreate ||
		topic == domain.TopicProductsUpdate ||
		topic == domain.TopicProductsDelete
}

// Handle processes a product webhook event. Deletions are acknowledged but
// the product row is kept for historical line items.
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent, store *domain.Store) (*domain.ReconcileResult, error) {
	payload, err := domain.DecodeProduct(event.Payload)
	if err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("productId", payload.ID.Int64()).
		Str("title", payload.Title).
		Msg("Processing product webhook event")

	if event.Topic == domain.TopicProductsDelete {
		return domain.Ignored(domain.ReasonProductsNotDeleted), nil
	}

	product, created, err := h.ingest.UpsertProduct(ctx, payload, store)
	if err != nil {
		return nil, err
	}

	notice := domain.NewEvent(domain.EventProductUpdated, domain.ProductNotification{
		ProductID: product.ID,
		ShopifyID: product.ShopifyID,
		Title:     product.Title,
		Price:     product.Price,
		Topic:     event.Topic,
	})
	h.publisher.Publish(domain.ChannelProducts, notice)
	h.publisher.Publish(domain.ChannelDataChanged, domain.DataChanged(notice))

	if created {
		return domain.Succeeded(domain.ActionCreated, product.ShopifyID), nil
	}
	return domain.Succeeded(domain.ActionUpdated, product.ShopifyID), nil
}
