package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/repository/entity"
	"shopify-insights/internal/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository implements Repository on a relational database
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm-backed repository
func NewGormRepository(db *gorm.DB) ports.Repository {
	return &GormRepository{db: db}
}

var shopifyIDColumn = []clause.Column{{Name: "shopify_id"}}

// GetActiveStore returns the most recently registered active store
func (r *GormRepository) GetActiveStore(ctx context.Context) (*domain.Store, error) {
	var rec entity.StoreRecord
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id desc").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrStoreNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active store: %w", err)
	}
	return rec.ToDomain(), nil
}

// SaveStore upserts a store by shop domain. An active store deactivates every other one.
func (r *GormRepository) SaveStore(ctx context.Context, store *domain.Store) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := entity.StoreRecordFromDomain(store)
		rec.ID = 0
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop_domain"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "active", "updated_at"}),
		}).Create(rec).Error
		if err != nil {
			return fmt.Errorf("failed to save store: %w", err)
		}

		var saved entity.StoreRecord
		if err := tx.Where("shop_domain = ?", store.ShopDomain).First(&saved).Error; err != nil {
			return fmt.Errorf("failed to reload store: %w", err)
		}
		if saved.Active {
			err := tx.Model(&entity.StoreRecord{}).
				Where("id <> ? AND active = ?", saved.ID, true).
				Update("active", false).Error
			if err != nil {
				return fmt.Errorf("failed to deactivate stores: %w", err)
			}
		}
		*store = *saved.ToDomain()
		return nil
	})
}

// withSourceCreatedAt adds shopify_created_at to the update set only when the
// payload carried one, so a sparse re-delivery keeps the stored timestamp.
func withSourceCreatedAt(createdAt time.Time, columns ...string) []string {
	if createdAt.IsZero() {
		return columns
	}
	return append(columns, "shopify_created_at")
}

// UpsertCustomer inserts or updates a customer. A nil email keeps the stored one.
func (r *GormRepository) UpsertCustomer(ctx context.Context, customer *domain.Customer) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findCustomer(tx, customer.ShopifyID)
		if err != nil {
			return err
		}

		rec := entity.CustomerRecordFromDomain(customer)
		if existing != nil && rec.Email == nil {
			rec.Email = existing.Email
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: shopifyIDColumn,
			DoUpdates: clause.AssignmentColumns(withSourceCreatedAt(customer.CreatedAt,
				"store_id", "email", "first_name", "last_name", "updated_at",
			)),
		}).Create(rec).Error
		if err != nil {
			return fmt.Errorf("failed to upsert customer %d: %w", customer.ShopifyID, err)
		}

		saved, err := findCustomer(tx, customer.ShopifyID)
		if err != nil {
			return err
		}
		*customer = *saved.ToDomain()
		created = existing == nil
		return nil
	})
	return created, err
}

// FindCustomerByShopifyID returns nil when the customer is unknown
func (r *GormRepository) FindCustomerByShopifyID(ctx context.Context, shopifyID int64) (*domain.Customer, error) {
	rec, err := findCustomer(r.db.WithContext(ctx), shopifyID)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToDomain(), nil
}

// DeleteCustomerByShopifyID unlinks the customer's orders, then removes the customer
func (r *GormRepository) DeleteCustomerByShopifyID(ctx context.Context, shopifyID int64) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findCustomer(tx, shopifyID)
		if err != nil || rec == nil {
			return err
		}
		found = true

		err = tx.Model(&entity.OrderRecord{}).
			Where("customer_id = ?", rec.ID).
			Update("customer_id", nil).Error
		if err != nil {
			return fmt.Errorf("failed to unlink orders of customer %d: %w", shopifyID, err)
		}
		if err := tx.Delete(&entity.CustomerRecord{}, rec.ID).Error; err != nil {
			return fmt.Errorf("failed to delete customer %d: %w", shopifyID, err)
		}
		return nil
	})
	return found, err
}

// UpsertProduct inserts or updates a product
func (r *GormRepository) UpsertProduct(ctx context.Context, product *domain.Product) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findProduct(tx, product.ShopifyID)
		if err != nil {
			return err
		}

		rec := entity.ProductRecordFromDomain(product)
		err = tx.Clauses(clause.OnConflict{
			Columns:   shopifyIDColumn,
			DoUpdates: clause.AssignmentColumns(withSourceCreatedAt(product.CreatedAt, "store_id", "title", "price", "updated_at")),
		}).Create(rec).Error
		if err != nil {
			return fmt.Errorf("failed to upsert product %d: %w", product.ShopifyID, err)
		}

		saved, err := findProduct(tx, product.ShopifyID)
		if err != nil {
			return err
		}
		*product = *saved.ToDomain()
		created = existing == nil
		return nil
	})
	return created, err
}

func (r *GormRepository) FindProductByShopifyID(ctx context.Context, shopifyID int64) (*domain.Product, error) {
	rec, err := findProduct(r.db.WithContext(ctx), shopifyID)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.ToDomain(), nil
}

// UpsertOrder inserts or updates an order keyed by its Shopify id.
// The stored status is never downgraded and a missing customer link keeps the stored one.
// When order.LineItems is non-nil the stored items are replaced in the same transaction.
func (r *GormRepository) UpsertOrder(ctx context.Context, order *domain.Order) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findOrder(tx, order.ShopifyID)
		if err != nil {
			return err
		}

		rec := entity.OrderRecordFromDomain(order)
		if existing != nil {
			if !order.Status.Supersedes(domain.OrderStatus(existing.Status)) {
				rec.Status = existing.Status
			}
			if rec.CustomerID == nil {
				rec.CustomerID = existing.CustomerID
			}
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: shopifyIDColumn,
			DoUpdates: clause.AssignmentColumns(withSourceCreatedAt(order.CreatedAt,
				"store_id", "customer_id", "order_number", "name", "total_price",
				"financial_status", "fulfillment_status", "status", "updated_at",
			)),
		}).Create(rec).Error
		if err != nil {
			return fmt.Errorf("failed to upsert order %d: %w", order.ShopifyID, err)
		}

		saved, err := findOrder(tx, order.ShopifyID)
		if err != nil {
			return err
		}

		if order.LineItems != nil {
			if err := replaceLineItems(tx, saved.ID, order.LineItems); err != nil {
				return err
			}
		}
		items, err := listLineItems(tx, saved.ID)
		if err != nil {
			return err
		}

		*order = *saved.ToDomain()
		order.LineItems = items
		created = existing == nil
		return nil
	})
	return created, err
}

// FindOrderByShopifyID returns the order with its line items, or nil when unknown
func (r *GormRepository) FindOrderByShopifyID(ctx context.Context, shopifyID int64) (*domain.Order, error) {
	db := r.db.WithContext(ctx)
	rec, err := findOrder(db, shopifyID)
	if err != nil || rec == nil {
		return nil, err
	}
	order := rec.ToDomain()
	if order.LineItems, err = listLineItems(db, rec.ID); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *GormRepository) UpdateOrderStatus(ctx context.Context, orderID uint, status domain.OrderStatus) error {
	err := r.db.WithContext(ctx).Model(&entity.OrderRecord{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to update order %d status: %w", orderID, err)
	}
	return nil
}

func (r *GormRepository) ListLineItems(ctx context.Context, orderID uint) ([]domain.LineItem, error) {
	return listLineItems(r.db.WithContext(ctx), orderID)
}

// Summary counts the store's entities. Revenue excludes cancelled orders.
func (r *GormRepository) Summary(ctx context.Context, storeID uint) (*domain.StoreSummary, error) {
	db := r.db.WithContext(ctx)
	summary := &domain.StoreSummary{Revenue: decimal.Zero}

	counts := []struct {
		model any
		dest  *int64
	}{
		{&entity.CustomerRecord{}, &summary.Customers},
		{&entity.ProductRecord{}, &summary.Products},
		{&entity.OrderRecord{}, &summary.Orders},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where("store_id = ?", storeID).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	var revenue decimal.NullDecimal
	err := db.Model(&entity.OrderRecord{}).
		Select("SUM(total_price)").
		Where("store_id = ? AND status <> ?", storeID, string(domain.OrderStatusCancelled)).
		Row().Scan(&revenue)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if revenue.Valid {
		summary.Revenue = revenue.Decimal
	}
	return summary, nil
}

func findCustomer(db *gorm.DB, shopifyID int64) (*entity.CustomerRecord, error) {
	var rec entity.CustomerRecord
	err := db.Where("shopify_id = ?", shopifyID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %d: %w", shopifyID, err)
	}
	return &rec, nil
}

func findProduct(db *gorm.DB, shopifyID int64) (*entity.ProductRecord, error) {
	var rec entity.ProductRecord
	err := db.Where("shopify_id = ?", shopifyID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", shopifyID, err)
	}
	return &rec, nil
}

func findOrder(db *gorm.DB, shopifyID int64) (*entity.OrderRecord, error) {
	var rec entity.OrderRecord
	err := db.Where("shopify_id = ?", shopifyID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", shopifyID, err)
	}
	return &rec, nil
}

func replaceLineItems(tx *gorm.DB, orderID uint, items []domain.LineItem) error {
	if err := tx.Where("order_id = ?", orderID).Delete(&entity.LineItemRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear line items of order %d: %w", orderID, err)
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]entity.LineItemRecord, 0, len(items))
	for _, li := range items {
		rows = append(rows, entity.LineItemRecordFromDomain(orderID, li))
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert line items of order %d: %w", orderID, err)
	}
	return nil
}

func listLineItems(db *gorm.DB, orderID uint) ([]domain.LineItem, error) {
	var rows []entity.LineItemRecord
	if err := db.Where("order_id = ?", orderID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list line items of order %d: %w", orderID, err)
	}
	items := make([]domain.LineItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToDomain())
	}
	return items, nil
}
