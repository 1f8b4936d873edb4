package application

import (
	"context"
	"fmt"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// IngestService turns validated Shopify payloads into stored entities.
// Both the webhook path and the sync path go through it.
type IngestService struct {
	repo   ports.Repository
	logger zerolog.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(repo ports.Repository, logger zerolog.Logger) *IngestService {
	return &IngestService{
		repo:   repo,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// OrderUpsert is the outcome of UpsertOrder. Customer is nil when the order is unlinked.
type OrderUpsert struct {
	Order    *domain.Order
	Customer *domain.Customer
	Created  bool
}

// UpsertCustomer stores a customer keyed by its Shopify id
func (s *IngestService) UpsertCustomer(ctx context.Context, payload *domain.CustomerPayload, store *domain.Store) (*domain.Customer, bool, error) {
	customer := payload.ToCustomer(store.ID)
	created, err := s.repo.UpsertCustomer(ctx, customer)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert customer %d: %w", payload.ID, err)
	}
	return customer, created, nil
}

// UpsertProduct stores a product; its price comes from the first variant
func (s *IngestService) UpsertProduct(ctx context.Context, payload *domain.ProductPayload, store *domain.Store) (*domain.Product, bool, error) {
	product := payload.ToProduct(store.ID)
	created, err := s.repo.UpsertProduct(ctx, product)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert product %d: %w", payload.ID, err)
	}
	return product, created, nil
}

// UpsertOrder stores the embedded customer first, then the order and its line items.
// A failing customer upsert is logged and the order is stored unlinked.
func (s *IngestService) UpsertOrder(ctx context.Context, payload *domain.OrderPayload, store *domain.Store) (*OrderUpsert, error) {
	result := &OrderUpsert{}

	if payload.Customer != nil && payload.Customer.ID != 0 {
		customer, _, err := s.UpsertCustomer(ctx, payload.Customer, store)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("orderId", payload.ID.Int64()).
				Int64("customerId", payload.Customer.ID.Int64()).
				Msg("Customer upsert failed, storing order unlinked")
		} else {
			result.Customer = customer
		}
	}

	order := payload.ToOrder(store.ID)
	if result.Customer != nil {
		order.CustomerID = &result.Customer.ID
	}

	created, err := s.repo.UpsertOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert order %d: %w", payload.ID, err)
	}
	result.Order = order
	result.Created = created
	return result, nil
}
