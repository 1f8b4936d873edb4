package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the persisted lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFulfilled OrderStatus = "fulfilled"
)

// rank orders statuses so an upsert never moves an order backwards.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPaid:
		return 1
	case OrderStatusFulfilled:
		return 2
	case OrderStatusCancelled:
		return 3
	default:
		return 0
	}
}

// Supersedes reports whether s should replace the current status.
func (s OrderStatus) Supersedes(current OrderStatus) bool {
	return s.rank() > current.rank()
}

// Order is keyed by its Shopify id; CreatedAt is the source timestamp, not ingestion time.
type Order struct {
	ID                uint            `json:"id"`
	ShopifyID         int64           `json:"shopify_id"`
	StoreID           uint            `json:"store_id"`
	CustomerID        *uint           `json:"customer_id"`
	OrderNumber       int             `json:"order_number"`
	Name              string          `json:"name"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	Status            OrderStatus     `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// LineItems nil means "leave stored items alone"; non-nil replaces them.
	LineItems []LineItem `json:"line_items,omitempty"`
}

// LineItem references a product by external id only; the product may not be synced yet.
type LineItem struct {
	ID               uint            `json:"id"`
	OrderID          uint            `json:"order_id"`
	ShopifyProductID *int64          `json:"shopify_product_id"`
	Title            string          `json:"title"`
	Quantity         int             `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
}

// StoreSummary is the aggregate the dashboard KPIs are built from.
type StoreSummary struct {
	Customers int64           `json:"customers"`
	Products  int64           `json:"products"`
	Orders    int64           `json:"orders"`
	Revenue   decimal.Decimal `json:"revenue"`
}
