package application_test

import (
	"context"
	"testing"
	"time"

	"shopify-insights/internal/application"
	"shopify-insights/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderCreateBody = `{
	"id": 5001,
	"name": "#1042",
	"order_number": 1042,
	"email": "ada@example.com",
	"total_price": "100.00",
	"currency": "EUR",
	"financial_status": "pending",
	"fulfillment_status": null,
	"customer": {"id": 701, "email": "ada@example.com", "first_name": "Ada", "last_name": "Lovelace"},
	"line_items": [
		{"id": 1, "product_id": 9001, "title": "Mug", "quantity": 2, "price": "25.00"},
		{"id": 2, "product_id": null, "title": "Gift wrap", "quantity": 1, "price": "50.00"}
	]
}`

func TestReconcileOrderCreate(t *testing.T) {
	p := newPipeline(t)

	res, err := p.reconcile(t, domain.TopicOrdersCreate, orderCreateBody)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, res.Status)
	assert.Equal(t, domain.ActionCreated, res.Action)
	assert.Equal(t, int64(5001), res.EntityID)

	order, err := p.repo.FindOrderByShopifyID(context.Background(), 5001)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, order.CustomerID)

	customer, err := p.repo.FindCustomerByShopifyID(context.Background(), 701)
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, customer.ID, *order.CustomerID)

	items, err := p.repo.ListLineItems(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	assert.Equal(t, []domain.EventKind{domain.EventNewOrder}, p.events.kinds(domain.ChannelOrders))
	assert.Equal(t, []domain.EventKind{domain.EventDataChanged}, p.events.kinds(domain.ChannelDataChanged))

	p.events.mu.Lock()
	n, ok := p.events.events[0].Event.Data.(domain.OrderNotification)
	p.events.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", n.CustomerName)
	assert.Equal(t, 2, n.ItemCount)
	assert.Equal(t, domain.TopicOrdersCreate, n.Topic)
}

func TestReconcileOrderIsIdempotent(t *testing.T) {
	p := newPipeline(t)

	_, err := p.reconcile(t, domain.TopicOrdersCreate, orderCreateBody)
	require.NoError(t, err)
	res, err := p.reconcile(t, domain.TopicOrdersCreate, orderCreateBody)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUpdated, res.Action)

	summary, err := p.repo.Summary(context.Background(), p.store.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Orders)
	assert.Equal(t, int64(1), summary.Customers)
}

func TestReconcileOrderTopics(t *testing.T) {
	tests := []struct {
		topic string
		kind  domain.EventKind
	}{
		{domain.TopicOrdersCreate, domain.EventNewOrder},
		{domain.TopicOrdersPaid, domain.EventOrderPaid},
		{domain.TopicOrdersUpdated, domain.EventOrderUpdated},
		{domain.TopicOrdersEdited, domain.EventOrderUpdated},
		{domain.TopicOrdersPartiallyFulfilled, domain.EventOrderUpdated},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			p := newPipeline(t)
			_, err := p.reconcile(t, tt.topic, `{"id": 1, "total_price": "5.00"}`)
			require.NoError(t, err)
			assert.Equal(t, []domain.EventKind{tt.kind}, p.events.kinds(domain.ChannelOrders))
		})
	}
}

func TestReconcileCancelUnknownOrder(t *testing.T) {
	p := newPipeline(t)

	for _, topic := range []string{domain.TopicOrdersCancelled, domain.TopicOrdersFulfilled} {
		res, err := p.reconcile(t, topic, `{"id": 999, "total_price": "10.00"}`)
		require.NoError(t, err)
		assert.Equal(t, domain.ResultIgnored, res.Status)
		assert.Equal(t, domain.ReasonOrderNotFound, res.Reason)
	}

	order, err := p.repo.FindOrderByShopifyID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Empty(t, p.events.kinds(domain.ChannelOrders))
}

func TestReconcileCancelKnownOrder(t *testing.T) {
	p := newPipeline(t)
	_, err := p.reconcile(t, domain.TopicOrdersCreate, orderCreateBody)
	require.NoError(t, err)
	p.events.reset()

	res, err := p.reconcile(t, domain.TopicOrdersCancelled, `{"id": 5001, "total_price": "100.00", "cancelled_at": "2024-05-02T10:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCancelled, res.Action)

	order, err := p.repo.FindOrderByShopifyID(context.Background(), 5001)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, []domain.EventKind{domain.EventOrderCancelled}, p.events.kinds(domain.ChannelOrders))
	assert.Equal(t, []domain.EventKind{domain.EventDataChanged}, p.events.kinds(domain.ChannelDataChanged))

	// a late orders/updated never reopens a cancelled order
	_, err = p.reconcile(t, domain.TopicOrdersUpdated, `{"id": 5001, "total_price": "100.00", "financial_status": "paid"}`)
	require.NoError(t, err)
	order, err = p.repo.FindOrderByShopifyID(context.Background(), 5001)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
}

func TestReconcileSparseUpdateKeepsCreatedAt(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := p.reconcile(t, domain.TopicOrdersCreate, `{"id": 6001, "total_price": "30.00", "created_at": "2024-05-01T10:00:00Z"}`)
	require.NoError(t, err)
	_, err = p.reconcile(t, domain.TopicOrdersUpdated, `{"id": 6001, "total_price": "35.00", "financial_status": "paid"}`)
	require.NoError(t, err)

	order, err := p.repo.FindOrderByShopifyID(ctx, 6001)
	require.NoError(t, err)
	assert.True(t, created.Equal(order.CreatedAt), "got %s", order.CreatedAt)
	assert.Equal(t, "paid", order.FinancialStatus)

	_, err = p.reconcile(t, domain.TopicCustomersCreate, `{"id": 88, "first_name": "Lin", "created_at": "2024-05-01T10:00:00Z"}`)
	require.NoError(t, err)
	_, err = p.reconcile(t, domain.TopicCustomersUpdate, `{"id": 88, "first_name": "Lin", "last_name": "Qiao"}`)
	require.NoError(t, err)

	customer, err := p.repo.FindCustomerByShopifyID(ctx, 88)
	require.NoError(t, err)
	assert.True(t, created.Equal(customer.CreatedAt), "got %s", customer.CreatedAt)
}

func TestReconcileFulfillKnownOrder(t *testing.T) {
	p := newPipeline(t)
	_, err := p.reconcile(t, domain.TopicOrdersCreate, orderCreateBody)
	require.NoError(t, err)

	res, err := p.reconcile(t, domain.TopicOrdersFulfilled, `{"id": 5001}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionFulfilled, res.Action)

	order, err := p.repo.FindOrderByShopifyID(context.Background(), 5001)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFulfilled, order.Status)
}

func TestReconcileOrderWithFailingCustomerIsUnlinked(t *testing.T) {
	base := newPipeline(t)
	p := newPipelineWithRepo(t, failingCustomers{Repository: base.repo})

	res, err := p.reconcile(t, domain.TopicOrdersCreate, orderCreateBody)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCreated, res.Action)

	order, err := p.repo.FindOrderByShopifyID(context.Background(), 5001)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Nil(t, order.CustomerID)
}

func TestReconcileCustomers(t *testing.T) {
	p := newPipeline(t)

	res, err := p.reconcile(t, domain.TopicCustomersCreate, `{"id": 42, "email": "grace@example.com", "first_name": "Grace"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCreated, res.Action)

	// an update without email keeps the stored one
	res, err = p.reconcile(t, domain.TopicCustomersUpdate, `{"id": 42, "first_name": "Grace", "last_name": "Hopper"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUpdated, res.Action)

	customer, err := p.repo.FindCustomerByShopifyID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, customer.Email)
	assert.Equal(t, "grace@example.com", *customer.Email)
	assert.Equal(t, "Hopper", customer.LastName)

	res, err = p.reconcile(t, domain.TopicCustomersDelete, `{"id": 42}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionDeleted, res.Action)

	res, err = p.reconcile(t, domain.TopicCustomersDelete, `{"id": 42}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultIgnored, res.Status)
	assert.Equal(t, domain.ReasonCustomerNotFound, res.Reason)

	assert.Equal(t, []domain.EventKind{
		domain.EventCustomerUpdated,
		domain.EventCustomerUpdated,
		domain.EventCustomerDeleted,
	}, p.events.kinds(domain.ChannelCustomers))
}

func TestReconcileProducts(t *testing.T) {
	p := newPipeline(t)

	res, err := p.reconcile(t, domain.TopicProductsCreate, `{"id": 9001, "title": "Mug", "variants": [{"id": 1, "price": "12.50"}, {"id": 2, "price": "99.00"}]}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCreated, res.Action)

	product, err := p.repo.FindProductByShopifyID(context.Background(), 9001)
	require.NoError(t, err)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("12.50")))

	_, err = p.reconcile(t, domain.TopicProductsUpdate, `{"id": 9001, "title": "Mug", "variants": []}`)
	require.NoError(t, err)
	product, err = p.repo.FindProductByShopifyID(context.Background(), 9001)
	require.NoError(t, err)
	assert.True(t, product.Price.IsZero())

	res, err = p.reconcile(t, domain.TopicProductsDelete, `{"id": 9001}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultIgnored, res.Status)
	assert.Equal(t, domain.ReasonProductsNotDeleted, res.Reason)

	product, err = p.repo.FindProductByShopifyID(context.Background(), 9001)
	require.NoError(t, err)
	assert.NotNil(t, product)
}

func TestReconcileAppUninstalled(t *testing.T) {
	p := newPipeline(t)

	res, err := p.reconcile(t, domain.TopicAppUninstalled, `{"id": 1, "myshopify_domain": "demo.myshopify.com"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultSuccess, res.Status)
	assert.Equal(t, domain.ActionLogged, res.Action)
	assert.Equal(t, []domain.EventKind{domain.EventAppUninstalled}, p.events.kinds(domain.ChannelStore))

	store, err := p.repo.GetActiveStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p.store.ShopDomain, store.ShopDomain)
}

func TestReconcileRejectsInvalidPayload(t *testing.T) {
	p := newPipeline(t)

	tests := map[string]string{
		"missing id":       `{"total_price": "1.00"}`,
		"not json":         `{"id":`,
		"negative qty":     `{"id": 1, "line_items": [{"quantity": -1}]}`,
		"id of wrong type": `{"id": true}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := p.reconcile(t, domain.TopicOrdersCreate, body)
			require.ErrorIs(t, err, domain.ErrInvalidPayload)
		})
	}
}

func TestReconcileUnsupportedTopic(t *testing.T) {
	p := newPipeline(t)
	res, err := p.reconcile(t, "inventory_levels/update", `{}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultIgnored, res.Status)
	assert.Equal(t, domain.ReasonUnsupportedTopic, res.Reason)
}

func TestReconcileWithoutStore(t *testing.T) {
	r := application.NewReconciler(nil, nil, zerolog.Nop())
	_, err := r.Reconcile(context.Background(), &domain.WebhookEvent{Topic: domain.TopicOrdersCreate}, nil)
	require.ErrorIs(t, err, domain.ErrStoreNotConfigured)
}
