package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// ClientOptions tune the Admin API adapter
type ClientOptions struct {
	APIVersion string
	Timeout    time.Duration
	Retries    int
}

// DefaultClientOptions returns the options used when none are configured
func DefaultClientOptions() ClientOptions {
	return ClientOptions{Timeout: 20 * time.Second, Retries: 3}
}

type client struct {
	app        goshopify.App
	opts       ClientOptions
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClientWithOptions creates a client with version, timeout and retry options.
// The timeout bounds each HTTP request, so paginated listings may run longer.
func NewClientWithOptions(apiKey, apiSecret string, opts ClientOptions, logger zerolog.Logger) ports.ShopifyClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultClientOptions().Timeout
	}
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger.With().Str("component", "shopify_client").Logger(),
	}
}

// listQuery is encoded by go-shopify into the REST query string
type listQuery struct {
	Limit        int       `url:"limit,omitempty"`
	CreatedAtMin time.Time `url:"created_at_min,omitempty"`
	UpdatedAtMin time.Time `url:"updated_at_min,omitempty"`
	Order        string    `url:"order,omitempty"`
	Status       string    `url:"status,omitempty"`
}

func queryFromFilter(f domain.ListFilter) *listQuery {
	q := &listQuery{
		Limit:  f.Limit,
		Order:  f.Order,
		Status: f.Status,
	}
	if !f.CreatedAtMin.IsZero() {
		q.CreatedAtMin = f.CreatedAtMin.UTC()
	}
	if !f.UpdatedAtMin.IsZero() {
		q.UpdatedAtMin = f.UpdatedAtMin.UTC()
	}
	return q
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	options := []goshopify.Option{goshopify.WithHTTPClient(c.httpClient)}
	if c.opts.APIVersion != "" {
		options = append(options, goshopify.WithVersion(c.opts.APIVersion))
	}
	if c.opts.Retries > 0 {
		options = append(options, goshopify.WithRetry(c.opts.Retries))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Order API

// ListOrders pages through every match when the filter has no limit
func (c *client) ListOrders(ctx context.Context, shopDomain, accessToken string, filter domain.ListFilter) ([]domain.OrderPayload, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	query := queryFromFilter(filter)
	if query.Status == "" {
		query.Status = "any"
	}
	var orders []goshopify.Order
	if filter.Limit > 0 {
		orders, err = client.Order.List(ctx, query)
	} else {
		orders, err = client.Order.ListAll(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var payloads []domain.OrderPayload
	if err := convert(orders, &payloads); err != nil {
		return nil, fmt.Errorf("failed to convert orders: %w", err)
	}
	c.logger.Debug().Str("shop", shopDomain).Int("count", len(payloads)).Msg("Listed orders")
	return payloads, nil
}

// Customer API

func (c *client) ListCustomers(ctx context.Context, shopDomain, accessToken string, filter domain.ListFilter) ([]domain.CustomerPayload, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var customers []goshopify.Customer
	if filter.Limit > 0 {
		customers, err = client.Customer.List(ctx, queryFromFilter(filter))
	} else {
		customers, err = client.Customer.ListAll(ctx, queryFromFilter(filter))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	var payloads []domain.CustomerPayload
	if err := convert(customers, &payloads); err != nil {
		return nil, fmt.Errorf("failed to convert customers: %w", err)
	}
	c.logger.Debug().Str("shop", shopDomain).Int("count", len(payloads)).Msg("Listed customers")
	return payloads, nil
}

// Product API

func (c *client) ListProducts(ctx context.Context, shopDomain, accessToken string, filter domain.ListFilter) ([]domain.ProductPayload, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	var products []goshopify.Product
	if filter.Limit > 0 {
		products, err = client.Product.List(ctx, queryFromFilter(filter))
	} else {
		products, err = client.Product.ListAll(ctx, queryFromFilter(filter))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var payloads []domain.ProductPayload
	if err := convert(products, &payloads); err != nil {
		return nil, fmt.Errorf("failed to convert products: %w", err)
	}
	c.logger.Debug().Str("shop", shopDomain).Int("count", len(payloads)).Msg("Listed products")
	return payloads, nil
}

// Webhook API

func (c *client) ListWebhooks(ctx context.Context, shopDomain, accessToken string) ([]domain.WebhookSubscription, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	webhooks, err := client.Webhook.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	var subs []domain.WebhookSubscription
	if err := convert(webhooks, &subs); err != nil {
		return nil, fmt.Errorf("failed to convert webhooks: %w", err)
	}
	return subs, nil
}

func (c *client) CreateWebhook(ctx context.Context, shopDomain, accessToken, topic, address string) (*domain.WebhookSubscription, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	created, err := client.Webhook.Create(ctx, webhook)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	var sub domain.WebhookSubscription
	if err := convert(created, &sub); err != nil {
		return nil, fmt.Errorf("failed to convert webhook: %w", err)
	}
	return &sub, nil
}

// convert re-reads a go-shopify value through its JSON form, which is the
// same shape the webhooks deliver.
func convert(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
