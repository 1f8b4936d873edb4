package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shopify-insights/internal/application"
	"shopify-insights/internal/application/webhook_handlers"
	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/repository"
	"shopify-insights/internal/infrastructure/shopify"
	"shopify-insights/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errShopifyDown = errors.New("shopify unavailable")

// fakeShopify stands in for the Admin API
type fakeShopify struct {
	mu        sync.Mutex
	orders    []domain.OrderPayload
	customers []domain.CustomerPayload
	products  []domain.ProductPayload
	webhooks  []domain.WebhookSubscription

	ordersErr    error
	customersErr error
	productsErr  error

	// productsGate, when set, blocks ListProducts until it is closed
	productsGate  chan struct{}
	productsEnter chan struct{}

	orderFilters    []domain.ListFilter
	customerFilters []domain.ListFilter
	created         []string
}

func (f *fakeShopify) ListOrders(ctx context.Context, shop, token string, filter domain.ListFilter) ([]domain.OrderPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orderFilters = append(f.orderFilters, filter)
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return limit(f.orders, filter.Limit), nil
}

func (f *fakeShopify) ListCustomers(ctx context.Context, shop, token string, filter domain.ListFilter) ([]domain.CustomerPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customerFilters = append(f.customerFilters, filter)
	if f.customersErr != nil {
		return nil, f.customersErr
	}
	return limit(f.customers, filter.Limit), nil
}

func (f *fakeShopify) ListProducts(ctx context.Context, shop, token string, filter domain.ListFilter) ([]domain.ProductPayload, error) {
	f.mu.Lock()
	gate, enter := f.productsGate, f.productsEnter
	f.mu.Unlock()
	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return limit(f.products, filter.Limit), nil
}

func (f *fakeShopify) ListWebhooks(ctx context.Context, shop, token string) ([]domain.WebhookSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.WebhookSubscription(nil), f.webhooks...), nil
}

func (f *fakeShopify) CreateWebhook(ctx context.Context, shop, token, topic, address string) (*domain.WebhookSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := domain.WebhookSubscription{ID: int64(len(f.webhooks) + 1), Topic: topic, Address: address}
	f.webhooks = append(f.webhooks, sub)
	f.created = append(f.created, topic)
	return &sub, nil
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return append([]T(nil), items[:n]...)
	}
	return append([]T(nil), items...)
}

type published struct {
	Channel string
	Event   domain.Event
}

// recorder is an EventPublisher that keeps everything it is given
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(channel string, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{Channel: channel, Event: event})
}

func (r *recorder) kinds(channel string) []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EventKind
	for _, p := range r.events {
		if p.Channel == channel {
			out = append(out, p.Event.Kind)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// failingCustomers makes every customer upsert fail
type failingCustomers struct {
	ports.Repository
}

func (failingCustomers) UpsertCustomer(context.Context, *domain.Customer) (bool, error) {
	return false, errors.New("customers table locked")
}

// flakyOrders fails the first `failures` order upserts
type flakyOrders struct {
	ports.Repository
	failures int
}

func (f *flakyOrders) UpsertOrder(ctx context.Context, order *domain.Order) (bool, error) {
	if f.failures > 0 {
		f.failures--
		return false, errors.New("orders table locked")
	}
	return f.Repository.UpsertOrder(ctx, order)
}

type pipeline struct {
	repo       ports.Repository
	store      *domain.Store
	shopify    *fakeShopify
	events     *recorder
	ingest     *application.IngestService
	reconciler *application.Reconciler
	service    *application.ShopifyService
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	return newPipelineWithRepo(t, newRepo(t))
}

func newRepo(t *testing.T) ports.Repository {
	t.Helper()
	gdb, err := repository.Open(repository.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewGormRepository(gdb)
}

func newPipelineWithRepo(t *testing.T, repo ports.Repository) *pipeline {
	t.Helper()
	logger := zerolog.Nop()

	store := &domain.Store{ShopDomain: "demo.myshopify.com", AccessToken: "shpat_test", Active: true}
	require.NoError(t, repo.SaveStore(context.Background(), store))

	validator, err := shopify.NewPayloadValidator()
	require.NoError(t, err)

	p := &pipeline{
		repo:    repo,
		store:   store,
		shopify: &fakeShopify{},
		events:  &recorder{},
	}
	p.ingest = application.NewIngestService(repo, logger)
	p.reconciler = application.NewReconciler(validator, nil, logger)
	p.reconciler.RegisterHandler(webhook_handlers.NewOrderHandler(p.ingest, repo, p.events, logger))
	p.reconciler.RegisterHandler(webhook_handlers.NewCustomerHandler(p.ingest, repo, p.events, logger))
	p.reconciler.RegisterHandler(webhook_handlers.NewProductHandler(p.ingest, p.events, logger))
	p.reconciler.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(p.events, logger))
	p.service = application.NewShopifyService(repo, p.shopify, nil, logger)
	return p
}

func (p *pipeline) reconcile(t *testing.T, topic, body string) (*domain.ReconcileResult, error) {
	t.Helper()
	return p.reconciler.Reconcile(context.Background(), &domain.WebhookEvent{
		Topic:    topic,
		Shop:     p.store.ShopDomain,
		Payload:  []byte(body),
		Verified: true,
	}, p.store)
}

func orderPayload(id int64, total string) domain.OrderPayload {
	return domain.OrderPayload{
		ID:              domain.ExternalID(id),
		Name:            "#1001",
		OrderNumber:     1001,
		TotalPrice:      domain.NewMoney(total),
		Currency:        "EUR",
		FinancialStatus: "pending",
	}
}

func customerPayload(id int64, first string) domain.CustomerPayload {
	return domain.CustomerPayload{ID: domain.ExternalID(id), FirstName: first}
}

// storeless reports that no store has been configured
type storeless struct {
	ports.Repository
}

func (storeless) GetActiveStore(context.Context) (*domain.Store, error) {
	return nil, domain.ErrStoreNotConfigured
}
