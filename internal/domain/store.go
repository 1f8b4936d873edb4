package domain

import "time"

// Store is the tenant root: the Shopify shop this deployment ingests from.
// Only one active store is consulted by reconciliation at a time.
type Store struct {
	ID          uint      `json:"id"`
	ShopDomain  string    `json:"shop_domain"`
	AccessToken string    `json:"-"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
