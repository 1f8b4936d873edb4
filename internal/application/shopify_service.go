package application

import (
	"context"
	"fmt"
	"strings"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// ShopifyService reads from the Admin API on behalf of the active store.
// It depends on ports (interfaces) not concrete implementations
type ShopifyService struct {
	repository ports.Repository
	client     ports.ShopifyClient
	webhookLog ports.WebhookLog
	logger     zerolog.Logger
}

// NewShopifyService creates a new Shopify application service
func NewShopifyService(
	repository ports.Repository,
	client ports.ShopifyClient,
	webhookLog ports.WebhookLog,
	logger zerolog.Logger,
) *ShopifyService {
	return &ShopifyService{
		repository: repository,
		client:     client,
		webhookLog: webhookLog,
		logger:     logger.With().Str("component", "shopify_service").Logger(),
	}
}

// ActiveStore returns the store reconciliation runs against
func (s *ShopifyService) ActiveStore(ctx context.Context) (*domain.Store, error) {
	store, err := s.repository.GetActiveStore(ctx)
	if err != nil {
		return nil, err
	}
	if store.AccessToken == "" {
		return nil, fmt.Errorf("%w: store %s has no access token", domain.ErrStoreNotConfigured, store.ShopDomain)
	}
	return store, nil
}

// GetOrders retrieves orders for a store
func (s *ShopifyService) GetOrders(ctx context.Context, store *domain.Store, filter domain.ListFilter) ([]domain.OrderPayload, error) {
	orders, err := s.client.ListOrders(ctx, store.ShopDomain, store.AccessToken, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("domain", store.ShopDomain).Msg("Failed to get orders")
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

// GetCustomers retrieves customers for a store
func (s *ShopifyService) GetCustomers(ctx context.Context, store *domain.Store, filter domain.ListFilter) ([]domain.CustomerPayload, error) {
	customers, err := s.client.ListCustomers(ctx, store.ShopDomain, store.AccessToken, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("domain", store.ShopDomain).Msg("Failed to get customers")
		return nil, fmt.Errorf("failed to get customers: %w", err)
	}
	return customers, nil
}

// GetProducts retrieves products for a store
func (s *ShopifyService) GetProducts(ctx context.Context, store *domain.Store, filter domain.ListFilter) ([]domain.ProductPayload, error) {
	products, err := s.client.ListProducts(ctx, store.ShopDomain, store.AccessToken, filter)
	if err != nil {
		s.logger.Error().Err(err).Str("domain", store.ShopDomain).Msg("Failed to get products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// EnsureWebhooks registers every topic that has no subscription pointing at
// address yet. It returns the topics it created.
func (s *ShopifyService) EnsureWebhooks(ctx context.Context, address string, topics []string) ([]string, error) {
	store, err := s.ActiveStore(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.client.ListWebhooks(ctx, store.ShopDomain, store.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	registered := make(map[string]bool, len(existing))
	for _, sub := range existing {
		if strings.EqualFold(sub.Address, address) {
			registered[sub.Topic] = true
		}
	}

	var created []string
	var failed []string
	for _, topic := range topics {
		if registered[topic] {
			continue
		}
		if _, err := s.client.CreateWebhook(ctx, store.ShopDomain, store.AccessToken, topic, address); err != nil {
			s.logger.Error().Err(err).Str("topic", topic).Str("address", address).Msg("Failed to register webhook")
			failed = append(failed, topic)
			continue
		}
		created = append(created, topic)
	}

	s.logger.Info().
		Str("shop", store.ShopDomain).
		Strs("created", created).
		Int("existing", len(registered)).
		Msg("Webhook subscriptions ensured")

	if len(failed) > 0 {
		return created, fmt.Errorf("failed to register webhooks: %s", strings.Join(failed, ", "))
	}
	return created, nil
}

// LogWebhook writes a webhook delivery to the audit log. Failures are logged,
// never returned: the audit trail must not block ingestion.
func (s *ShopifyService) LogWebhook(ctx context.Context, event *domain.WebhookEvent) {
	if s.webhookLog == nil {
		return
	}
	if err := s.webhookLog.LogWebhook(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("topic", event.Topic).Str("shop", event.Shop).Msg("Failed to log webhook")
	}
}
