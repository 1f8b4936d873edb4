package ports

import (
	"context"

	"shopify-insights/internal/domain"
)

// ShopifyClient defines the Shopify Admin API operations the pipeline needs.
// Listings are returned in the webhook payload shape so both paths share one reconciler.
type ShopifyClient interface {
	// Read API
	ListOrders(ctx context.Context, shop, accessToken string, filter domain.ListFilter) ([]domain.OrderPayload, error)
	ListCustomers(ctx context.Context, shop, accessToken string, filter domain.ListFilter) ([]domain.CustomerPayload, error)
	ListProducts(ctx context.Context, shop, accessToken string, filter domain.ListFilter) ([]domain.ProductPayload, error)

	// Webhook API
	ListWebhooks(ctx context.Context, shop, accessToken string) ([]domain.WebhookSubscription, error)
	CreateWebhook(ctx context.Context, shop, accessToken, topic, address string) (*domain.WebhookSubscription, error)
}
