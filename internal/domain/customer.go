package domain

import (
	"strings"
	"time"
)

// Customer is a shopper seen through orders, webhooks, polling or sync.
type Customer struct {
	ID        uint      `json:"id"`
	ShopifyID int64     `json:"shopify_id"`
	StoreID   uint      `json:"store_id"`
	Email     *string   `json:"email,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns "First Last", falling back to the email and then to a placeholder.
func (c *Customer) DisplayName() string {
	if c == nil {
		return ""
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name != "" {
		return name
	}
	if c.Email != nil && *c.Email != "" {
		return *c.Email
	}
	return "Guest"
}
