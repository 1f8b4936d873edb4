package repository

import (
	"context"
	"testing"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/repository/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := Open(DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func newTestRepo(t *testing.T) (*GormRepository, *domain.Store) {
	t.Helper()
	repo := NewGormRepository(newTestDB(t)).(*GormRepository)
	store := &domain.Store{ShopDomain: "demo.myshopify.com", AccessToken: "shpat_x", Active: true}
	require.NoError(t, repo.SaveStore(context.Background(), store))
	return repo, store
}

func strPtr(s string) *string { return &s }

func testOrder(storeID uint, shopifyID int64, total string, items ...domain.LineItem) *domain.Order {
	o := &domain.Order{
		ShopifyID:       shopifyID,
		StoreID:         storeID,
		OrderNumber:     1001,
		Name:            "#1001",
		TotalPrice:      decimal.RequireFromString(total),
		FinancialStatus: "pending",
		Status:          domain.OrderStatusOpen,
		CreatedAt:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if items != nil {
		o.LineItems = items
	}
	return o
}

func TestGetActiveStore(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRepository(newTestDB(t))

	_, err := repo.GetActiveStore(ctx)
	require.ErrorIs(t, err, domain.ErrStoreNotConfigured)

	first := &domain.Store{ShopDomain: "one.myshopify.com", Active: true}
	require.NoError(t, repo.SaveStore(ctx, first))
	second := &domain.Store{ShopDomain: "two.myshopify.com", Active: true}
	require.NoError(t, repo.SaveStore(ctx, second))

	active, err := repo.GetActiveStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two.myshopify.com", active.ShopDomain)

	// saving again updates in place
	first.AccessToken = "rotated"
	require.NoError(t, repo.SaveStore(ctx, first))
	active, err = repo.GetActiveStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one.myshopify.com", active.ShopDomain)
	assert.Equal(t, "rotated", active.AccessToken)
}

func TestUpsertOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.UpsertOrder(ctx, testOrder(store.ID, 1001, "100.00"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.UpsertOrder(ctx, testOrder(store.ID, 1001, "100.00"))
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, repo.db.Model(&entity.OrderRecord{}).Where("shopify_id = ?", 1001).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertOrderLastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	for _, total := range []string{"100.00", "150.00", "100.00"} {
		_, err := repo.UpsertOrder(ctx, testOrder(store.ID, 1001, total))
		require.NoError(t, err)
	}

	order, err := repo.FindOrderByShopifyID(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("100.00")), order.TotalPrice.String())
}

func TestUpsertOrderLineItems(t *testing.T) {
	ctx := context.Background()
	pid := int64(42)
	itemA := domain.LineItem{ShopifyProductID: &pid, Title: "A", Quantity: 2, Price: decimal.NewFromInt(10)}
	itemB := domain.LineItem{Title: "B", Quantity: 1, Price: decimal.NewFromInt(5)}

	t.Run("replaces wholesale", func(t *testing.T) {
		repo, store := newTestRepo(t)
		_, err := repo.UpsertOrder(ctx, testOrder(store.ID, 1, "20", itemA))
		require.NoError(t, err)
		order := testOrder(store.ID, 1, "5", itemB)
		_, err = repo.UpsertOrder(ctx, order)
		require.NoError(t, err)

		items, err := repo.ListLineItems(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "B", items[0].Title)
		assert.Nil(t, items[0].ShopifyProductID)
	})

	t.Run("absent items are left alone", func(t *testing.T) {
		repo, store := newTestRepo(t)
		_, err := repo.UpsertOrder(ctx, testOrder(store.ID, 1, "20", itemA))
		require.NoError(t, err)
		order := testOrder(store.ID, 1, "20")
		_, err = repo.UpsertOrder(ctx, order)
		require.NoError(t, err)

		require.Len(t, order.LineItems, 1)
		assert.Equal(t, "A", order.LineItems[0].Title)
		require.NotNil(t, order.LineItems[0].ShopifyProductID)
		assert.Equal(t, int64(42), *order.LineItems[0].ShopifyProductID)
	})

	t.Run("empty items clear", func(t *testing.T) {
		repo, store := newTestRepo(t)
		_, err := repo.UpsertOrder(ctx, testOrder(store.ID, 1, "20", itemA))
		require.NoError(t, err)
		order := testOrder(store.ID, 1, "0")
		order.LineItems = []domain.LineItem{}
		_, err = repo.UpsertOrder(ctx, order)
		require.NoError(t, err)
		assert.Empty(t, order.LineItems)
	})
}

func TestUpsertOrderKeepsStatusAndCustomer(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	customer := &domain.Customer{ShopifyID: 77, StoreID: store.ID, FirstName: "Ada"}
	_, err := repo.UpsertCustomer(ctx, customer)
	require.NoError(t, err)

	paid := testOrder(store.ID, 5, "10")
	paid.Status = domain.OrderStatusPaid
	paid.CustomerID = &customer.ID
	_, err = repo.UpsertOrder(ctx, paid)
	require.NoError(t, err)

	stale := testOrder(store.ID, 5, "12")
	_, err = repo.UpsertOrder(ctx, stale)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, stale.Status)
	require.NotNil(t, stale.CustomerID)
	assert.Equal(t, customer.ID, *stale.CustomerID)
	assert.True(t, stale.TotalPrice.Equal(decimal.NewFromInt(12)))
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)
	order := testOrder(store.ID, 9, "10")
	_, err := repo.UpsertOrder(ctx, order)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled))

	got, err := repo.FindOrderByShopifyID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, got.Status)
}

func TestFindMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	order, err := repo.FindOrderByShopifyID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, order)

	customer, err := repo.FindCustomerByShopifyID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, customer)

	product, err := repo.FindProductByShopifyID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestUpsertCustomerEmail(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	created, err := repo.UpsertCustomer(ctx, &domain.Customer{ShopifyID: 3, StoreID: store.ID, Email: strPtr("a@example.com")})
	require.NoError(t, err)
	assert.True(t, created)

	updated := &domain.Customer{ShopifyID: 3, StoreID: store.ID, FirstName: "Ann"}
	created, err = repo.UpsertCustomer(ctx, updated)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, updated.Email)
	assert.Equal(t, "a@example.com", *updated.Email)
	assert.Equal(t, "Ann", updated.FirstName)

	_, err = repo.UpsertCustomer(ctx, &domain.Customer{ShopifyID: 3, StoreID: store.ID, Email: strPtr("b@example.com")})
	require.NoError(t, err)
	got, err := repo.FindCustomerByShopifyID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", *got.Email)
}

func TestDeleteCustomerUnlinksOrders(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	customer := &domain.Customer{ShopifyID: 8, StoreID: store.ID}
	_, err := repo.UpsertCustomer(ctx, customer)
	require.NoError(t, err)
	order := testOrder(store.ID, 80, "10")
	order.CustomerID = &customer.ID
	_, err = repo.UpsertOrder(ctx, order)
	require.NoError(t, err)

	found, err := repo.DeleteCustomerByShopifyID(ctx, 8)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := repo.FindOrderByShopifyID(ctx, 80)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.CustomerID)

	found, err = repo.DeleteCustomerByShopifyID(ctx, 8)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpsertProduct(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	product := &domain.Product{ShopifyID: 12, StoreID: store.ID, Title: "Mug", Price: decimal.RequireFromString("9.50")}
	created, err := repo.UpsertProduct(ctx, product)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, product.ID)

	product = &domain.Product{ShopifyID: 12, StoreID: store.ID, Title: "Big mug", Price: decimal.Zero}
	created, err = repo.UpsertProduct(ctx, product)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Big mug", product.Title)
	assert.True(t, product.Price.IsZero())
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)

	_, err := repo.UpsertCustomer(ctx, &domain.Customer{ShopifyID: 1, StoreID: store.ID})
	require.NoError(t, err)
	_, err = repo.UpsertProduct(ctx, &domain.Product{ShopifyID: 1, StoreID: store.ID, Title: "P"})
	require.NoError(t, err)
	_, err = repo.UpsertOrder(ctx, testOrder(store.ID, 1, "100.50"))
	require.NoError(t, err)
	_, err = repo.UpsertOrder(ctx, testOrder(store.ID, 2, "49.50"))
	require.NoError(t, err)
	cancelled := testOrder(store.ID, 3, "1000")
	cancelled.Status = domain.OrderStatusCancelled
	_, err = repo.UpsertOrder(ctx, cancelled)
	require.NoError(t, err)

	summary, err := repo.Summary(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Customers)
	assert.Equal(t, int64(1), summary.Products)
	assert.Equal(t, int64(3), summary.Orders)
	assert.True(t, summary.Revenue.Equal(decimal.NewFromInt(150)), summary.Revenue.String())
}

func TestUpsertKeepsSourceCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepo(t)
	source := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.UpsertOrder(ctx, testOrder(store.ID, 1, "10.00"))
	require.NoError(t, err)

	// a re-delivery without created_at
	sparse := testOrder(store.ID, 1, "12.00")
	sparse.CreatedAt = time.Time{}
	_, err = repo.UpsertOrder(ctx, sparse)
	require.NoError(t, err)
	assert.True(t, source.Equal(sparse.CreatedAt), "got %s", sparse.CreatedAt)
	assert.True(t, decimal.RequireFromString("12.00").Equal(sparse.TotalPrice))

	customer := &domain.Customer{ShopifyID: 5, StoreID: store.ID, FirstName: "Ada", CreatedAt: source}
	_, err = repo.UpsertCustomer(ctx, customer)
	require.NoError(t, err)
	customer = &domain.Customer{ShopifyID: 5, StoreID: store.ID, FirstName: "Ada L."}
	_, err = repo.UpsertCustomer(ctx, customer)
	require.NoError(t, err)
	assert.True(t, source.Equal(customer.CreatedAt), "got %s", customer.CreatedAt)
	assert.Equal(t, "Ada L.", customer.FirstName)

	// a first sighting without created_at still gets a timestamp
	product := &domain.Product{ShopifyID: 9, StoreID: store.ID, Title: "Mug", Price: decimal.Zero}
	_, err = repo.UpsertProduct(ctx, product)
	require.NoError(t, err)
	assert.False(t, product.CreatedAt.IsZero())
}
