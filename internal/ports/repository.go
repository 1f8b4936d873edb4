package ports

import (
	"context"

	"shopify-insights/internal/domain"
)

// Repository defines the interface for analytics persistence.
// Upserts are keyed by the Shopify id and report whether a row was created.
type Repository interface {
	// Store operations
	GetActiveStore(ctx context.Context) (*domain.Store, error)
	SaveStore(ctx context.Context, store *domain.Store) error

	// Customer operations
	UpsertCustomer(ctx context.Context, customer *domain.Customer) (created bool, err error)
	FindCustomerByShopifyID(ctx context.Context, shopifyID int64) (*domain.Customer, error)
	// DeleteCustomerByShopifyID unlinks the customer's orders and removes the customer.
	// found is false when no such customer exists.
	DeleteCustomerByShopifyID(ctx context.Context, shopifyID int64) (found bool, err error)

	// Product operations
	UpsertProduct(ctx context.Context, product *domain.Product) (created bool, err error)
	FindProductByShopifyID(ctx context.Context, shopifyID int64) (*domain.Product, error)

	// Order operations
	// UpsertOrder replaces the line items atomically when order.LineItems is non-nil.
	UpsertOrder(ctx context.Context, order *domain.Order) (created bool, err error)
	FindOrderByShopifyID(ctx context.Context, shopifyID int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status domain.OrderStatus) error
	ListLineItems(ctx context.Context, orderID uint) ([]domain.LineItem, error)

	// Summary aggregates counts and revenue for a store.
	Summary(ctx context.Context, storeID uint) (*domain.StoreSummary, error)
}

// WebhookLog records every verified webhook delivery for auditing.
type WebhookLog interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}
