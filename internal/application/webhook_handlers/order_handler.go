package webhook_handlers

import (
	"context"
	"fmt"

	"shopify-insights/internal/application"
	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related webhook events
type OrderHandler struct {
	ingest    *application.IngestService
	repo      ports.Repository
	publisher ports.EventPublisher
	logger    zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(ingest *application.IngestService, repo ports.Repository, publisher ports.EventPublisher, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		ingest:    ingest,
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "order_handler").Logger(),
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic string) bool {
	switch topic {
	case domain.TopicOrdersCreate,
		domain.TopicOrdersUpdated,
		domain.TopicOrdersEdited,
		domain.TopicOrdersPaid,
		domain.TopicOrdersCancelled,
		domain.TopicOrdersFulfilled,
		domain.TopicOrdersPartiallyFulfilled:
		return true
	}
	return false
}

// Handle processes an order webhook event
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent, store *domain.Store) (*domain.ReconcileResult, error) {
	payload, err := domain.DecodeOrder(event.Payload)
	if err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("orderId", payload.ID.Int64()).
		Int("orderNumber", payload.OrderNumber).
		Str("totalPrice", payload.TotalPrice.String()).
		Str("financialStatus", payload.FinancialStatus).
		Msg("Processing order webhook event")

	switch event.Topic {
	case domain.TopicOrdersCancelled:
		return h.transition(ctx, event, payload, domain.OrderStatusCancelled, domain.EventOrderCancelled, domain.ActionCancelled)
	case domain.TopicOrdersFulfilled:
		return h.transition(ctx, event, payload, domain.OrderStatusFulfilled, domain.EventOrderFulfilled, domain.ActionFulfilled)
	}

	res, err := h.ingest.UpsertOrder(ctx, payload, store)
	if err != nil {
		return nil, err
	}

	notification := domain.NewOrderNotification(res.Order, res.Customer, payload, event.Topic)
	h.publish(domain.NewEvent(upsertEventKind(event.Topic), notification))

	action := domain.ActionUpdated
	if res.Created {
		action = domain.ActionCreated
	}
	return domain.Succeeded(action, payload.ID.Int64()), nil
}

// transition applies a lifecycle change to a known order. Unknown orders are
// ignored: these topics never create rows.
func (h *OrderHandler) transition(
	ctx context.Context,
	event *domain.WebhookEvent,
	payload *domain.OrderPayload,
	status domain.OrderStatus,
	kind domain.EventKind,
	action string,
) (*domain.ReconcileResult, error) {
	order, err := h.repo.FindOrderByShopifyID(ctx, payload.ID.Int64())
	if err != nil {
		return nil, err
	}
	if order == nil {
		h.logger.Info().
			Str("topic", event.Topic).
			Int64("orderId", payload.ID.Int64()).
			Msg("Order not found, ignoring lifecycle event")
		return domain.Ignored(domain.ReasonOrderNotFound), nil
	}

	if err := h.repo.UpdateOrderStatus(ctx, order.ID, status); err != nil {
		return nil, fmt.Errorf("failed to mark order %d %s: %w", order.ShopifyID, status, err)
	}
	order.Status = status

	var customer *domain.Customer
	if payload.Customer != nil && payload.Customer.ID != 0 {
		customer, err = h.repo.FindCustomerByShopifyID(ctx, payload.Customer.ID.Int64())
		if err != nil {
			h.logger.Warn().Err(err).Int64("orderId", order.ShopifyID).Msg("Failed to load order customer")
		}
	}

	notification := domain.NewOrderNotification(order, customer, payload, event.Topic)
	h.publish(domain.NewEvent(kind, notification))
	return domain.Succeeded(action, order.ShopifyID), nil
}

func (h *OrderHandler) publish(event domain.Event) {
	h.publisher.Publish(domain.ChannelOrders, event)
	h.publisher.Publish(domain.ChannelDataChanged, domain.DataChanged(event))
}

func upsertEventKind(topic string) domain.EventKind {
	switch topic {
	case domain.TopicOrdersCreate:
		return domain.EventNewOrder
	case domain.TopicOrdersPaid:
		return domain.EventOrderPaid
	default:
		return domain.EventOrderUpdated
	}
}
