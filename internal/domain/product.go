package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry. Price comes from the first variant.
type Product struct {
	ID        uint            `json:"id"`
	ShopifyID int64           `json:"shopify_id"`
	StoreID   uint            `json:"store_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
