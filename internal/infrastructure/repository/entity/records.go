package entity

import (
	"time"

	"shopify-insights/internal/domain"

	"github.com/shopspring/decimal"
)

// StoreRecord represents a store row
type StoreRecord struct {
	ID          uint   `gorm:"primaryKey"`
	ShopDomain  string `gorm:"uniqueIndex;size:255"`
	AccessToken string `gorm:"type:text"`
	Active      bool   `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (StoreRecord) TableName() string { return "stores" }

func (r *StoreRecord) ToDomain() *domain.Store {
	return &domain.Store{
		ID:          r.ID,
		ShopDomain:  r.ShopDomain,
		AccessToken: r.AccessToken,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func StoreRecordFromDomain(s *domain.Store) *StoreRecord {
	return &StoreRecord{
		ID:          s.ID,
		ShopDomain:  s.ShopDomain,
		AccessToken: s.AccessToken,
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// CustomerRecord represents a customer row. ShopifyCreatedAt is the source timestamp.
type CustomerRecord struct {
	ID               uint    `gorm:"primaryKey"`
	ShopifyID        int64   `gorm:"uniqueIndex"`
	StoreID          uint    `gorm:"index"`
	Email            *string `gorm:"size:320"`
	FirstName        string
	LastName         string
	ShopifyCreatedAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (CustomerRecord) TableName() string { return "customers" }

func (r *CustomerRecord) ToDomain() *domain.Customer {
	return &domain.Customer{
		ID:        r.ID,
		ShopifyID: r.ShopifyID,
		StoreID:   r.StoreID,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		CreatedAt: r.ShopifyCreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func CustomerRecordFromDomain(c *domain.Customer) *CustomerRecord {
	return &CustomerRecord{
		ShopifyID:        c.ShopifyID,
		StoreID:          c.StoreID,
		Email:            c.Email,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		ShopifyCreatedAt: sourceCreatedAt(c.CreatedAt),
	}
}

// ProductRecord represents a product row
type ProductRecord struct {
	ID               uint  `gorm:"primaryKey"`
	ShopifyID        int64 `gorm:"uniqueIndex"`
	StoreID          uint  `gorm:"index"`
	Title            string
	Price            decimal.Decimal `gorm:"type:decimal(12,2)"`
	ShopifyCreatedAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ProductRecord) TableName() string { return "products" }

func (r *ProductRecord) ToDomain() *domain.Product {
	return &domain.Product{
		ID:        r.ID,
		ShopifyID: r.ShopifyID,
		StoreID:   r.StoreID,
		Title:     r.Title,
		Price:     r.Price,
		CreatedAt: r.ShopifyCreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func ProductRecordFromDomain(p *domain.Product) *ProductRecord {
	return &ProductRecord{
		ShopifyID:        p.ShopifyID,
		StoreID:          p.StoreID,
		Title:            p.Title,
		Price:            p.Price,
		ShopifyCreatedAt: sourceCreatedAt(p.CreatedAt),
	}
}

// OrderRecord represents an order row. Line items live in their own table and
// are managed explicitly, never through gorm associations.
type OrderRecord struct {
	ID                uint  `gorm:"primaryKey"`
	ShopifyID         int64 `gorm:"uniqueIndex"`
	StoreID           uint  `gorm:"index"`
	CustomerID        *uint `gorm:"index"`
	OrderNumber       int
	Name              string
	TotalPrice        decimal.Decimal `gorm:"type:decimal(12,2)"`
	FinancialStatus   string          `gorm:"size:32"`
	FulfillmentStatus string          `gorm:"size:32"`
	Status            string          `gorm:"size:16;index"`
	ShopifyCreatedAt  time.Time       `gorm:"index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (OrderRecord) TableName() string { return "orders" }

func (r *OrderRecord) ToDomain() *domain.Order {
	return &domain.Order{
		ID:                r.ID,
		ShopifyID:         r.ShopifyID,
		StoreID:           r.StoreID,
		CustomerID:        r.CustomerID,
		OrderNumber:       r.OrderNumber,
		Name:              r.Name,
		TotalPrice:        r.TotalPrice,
		FinancialStatus:   r.FinancialStatus,
		FulfillmentStatus: r.FulfillmentStatus,
		Status:            domain.OrderStatus(r.Status),
		CreatedAt:         r.ShopifyCreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func OrderRecordFromDomain(o *domain.Order) *OrderRecord {
	status := o.Status
	if status == "" {
		status = domain.OrderStatusOpen
	}
	return &OrderRecord{
		ShopifyID:         o.ShopifyID,
		StoreID:           o.StoreID,
		CustomerID:        o.CustomerID,
		OrderNumber:       o.OrderNumber,
		Name:              o.Name,
		TotalPrice:        o.TotalPrice,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Status:            string(status),
		ShopifyCreatedAt:  sourceCreatedAt(o.CreatedAt),
	}
}

// sourceCreatedAt falls back to the insert time when the payload had no created_at.
// Updates leave the column alone in that case.
func sourceCreatedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// LineItemRecord represents an order line
type LineItemRecord struct {
	ID               uint   `gorm:"primaryKey"`
	OrderID          uint   `gorm:"index"`
	ShopifyProductID *int64 `gorm:"index"`
	Title            string
	Quantity         int
	Price            decimal.Decimal `gorm:"type:decimal(12,2)"`
}

func (LineItemRecord) TableName() string { return "line_items" }

func (r *LineItemRecord) ToDomain() domain.LineItem {
	return domain.LineItem{
		ID:               r.ID,
		OrderID:          r.OrderID,
		ShopifyProductID: r.ShopifyProductID,
		Title:            r.Title,
		Quantity:         r.Quantity,
		Price:            r.Price,
	}
}

func LineItemRecordFromDomain(orderID uint, li domain.LineItem) LineItemRecord {
	return LineItemRecord{
		OrderID:          orderID,
		ShopifyProductID: li.ShopifyProductID,
		Title:            li.Title,
		Quantity:         li.Quantity,
		Price:            li.Price,
	}
}

// All lists the records migrated at startup.
func All() []any {
	return []any{
		&StoreRecord{},
		&CustomerRecord{},
		&ProductRecord{},
		&OrderRecord{},
		&LineItemRecord{},
	}
}
