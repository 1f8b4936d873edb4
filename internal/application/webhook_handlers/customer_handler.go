package webhook_handlers

import (
	"context"

	"shopify-insights/internal/application"
	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	ingest    *application.IngestService
	repo      ports.Repository
	publisher ports.EventPublisher
	logger    zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(ingest *application.IngestService, repo ports.Repository, publisher ports.EventPublisher, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		ingest:    ingest,
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "customer_handler").Logger(),
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	switch topic {
	case domain.TopicCustomersCreate,
		domain.TopicCustomersUpdate,
		domain.TopicCustomersEnable,
		domain.TopicCustomersDisable,
		domain.TopicCustomersDelete:
		return true
	}
	return false
}

// Handle processes a customer webhook event
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent, store *domain.Store) (*domain.ReconcileResult, error) {
	payload, err := domain.DecodeCustomer(event.Payload)
	if err != nil {
		return nil, err
	}
	shopifyID := payload.ID.Int64()

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("customerId", shopifyID).
		Msg("Processing customer webhook event")

	if event.Topic == domain.TopicCustomersDelete {
		found, err := h.repo.DeleteCustomerByShopifyID(ctx, shopifyID)
		if err != nil {
			return nil, err
		}
		if !found {
			return domain.Ignored(domain.ReasonCustomerNotFound), nil
		}
		h.publish(domain.NewEvent(domain.EventCustomerDeleted, domain.CustomerNotification{
			ShopifyID: shopifyID,
			Topic:     event.Topic,
		}))
		return domain.Succeeded(domain.ActionDeleted, shopifyID), nil
	}

	customer, created, err := h.ingest.UpsertCustomer(ctx, payload, store)
	if err != nil {
		return nil, err
	}
	h.publish(domain.NewEvent(domain.EventCustomerUpdated, domain.NewCustomerNotification(customer, event.Topic)))

	if created {
		return domain.Succeeded(domain.ActionCreated, shopifyID), nil
	}
	return domain.Succeeded(domain.ActionUpdated, shopifyID), nil
}

func (h *CustomerHandler) publish(event domain.Event) {
	h.publisher.Publish(domain.ChannelCustomers, event)
	h.publisher.Publish(domain.ChannelDataChanged, domain.DataChanged(event))
}
