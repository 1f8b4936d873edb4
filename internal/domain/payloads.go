package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExternalID is a Shopify identifier. Webhooks send numbers, some tools send strings.
type ExternalID int64

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*id = 0
		return nil
	}
	// admin GraphQL ids look like gid://shopify/Order/1001
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("external id %s: %w", string(data), err)
	}
	*id = ExternalID(n)
	return nil
}

func (id ExternalID) Int64() int64 { return int64(id) }

// Money is a decimal amount that tolerates Shopify's quoted prices and empty values.
type Money struct {
	decimal.Decimal
}

func NewMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if raw == "" || raw == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("money %s: %w", string(data), err)
	}
	m.Decimal = d
	return nil
}

// OrderPayload is the order shape shared by order webhooks and the REST listing.
type OrderPayload struct {
	ID                ExternalID        `json:"id"`
	Name              string            `json:"name"`
	OrderNumber       int               `json:"order_number"`
	Email             string            `json:"email"`
	TotalPrice        Money             `json:"total_price"`
	Currency          string            `json:"currency"`
	FinancialStatus   string            `json:"financial_status"`
	FulfillmentStatus *string           `json:"fulfillment_status"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
	CreatedAt         *time.Time        `json:"created_at"`
	Customer          *CustomerPayload  `json:"customer"`
	LineItems         []LineItemPayload `json:"line_items"`
}

type LineItemPayload struct {
	ID        ExternalID  `json:"id"`
	ProductID *ExternalID `json:"product_id"`
	Title     string      `json:"title"`
	Quantity  int         `json:"quantity"`
	Price     Money       `json:"price"`
}

// CustomerPayload carries an optional email: an absent email never clears a stored one.
type CustomerPayload struct {
	ID        ExternalID `json:"id"`
	Email     *string    `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	CreatedAt *time.Time `json:"created_at"`
}

type ProductPayload struct {
	ID        ExternalID       `json:"id"`
	Title     string           `json:"title"`
	Variants  []VariantPayload `json:"variants"`
	CreatedAt *time.Time       `json:"created_at"`
}

type VariantPayload struct {
	ID    ExternalID `json:"id"`
	Price Money      `json:"price"`
}

// ShopPayload is the body of app/uninstalled.
type ShopPayload struct {
	ID              ExternalID `json:"id"`
	Name            string     `json:"name"`
	Domain          string     `json:"domain"`
	MyshopifyDomain string     `json:"myshopify_domain"`
}

func (p *OrderPayload) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("%w: order id is required", ErrInvalidPayload)
	}
	for i, item := range p.LineItems {
		if item.Quantity < 0 {
			return fmt.Errorf("%w: line item %d has negative quantity", ErrInvalidPayload, i)
		}
	}
	return nil
}

func (p *CustomerPayload) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("%w: customer id is required", ErrInvalidPayload)
	}
	return nil
}

func (p *ProductPayload) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("%w: product id is required", ErrInvalidPayload)
	}
	return nil
}

// DecodeOrder parses and validates an order body.
func DecodeOrder(raw []byte) (*OrderPayload, error) {
	var p OrderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: order: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func DecodeCustomer(raw []byte) (*CustomerPayload, error) {
	var p CustomerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: customer: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func DecodeProduct(raw []byte) (*ProductPayload, error) {
	var p ProductPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: product: %v", ErrInvalidPayload, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func DecodeShop(raw []byte) (*ShopPayload, error) {
	var p ShopPayload
	if len(bytes.TrimSpace(raw)) == 0 {
		return &p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: shop: %v", ErrInvalidPayload, err)
	}
	return &p, nil
}

// DerivedStatus folds the Shopify financial/fulfillment/cancel fields into one status.
func (p *OrderPayload) DerivedStatus() OrderStatus {
	status := OrderStatusOpen
	if p.FinancialStatus == "paid" {
		status = OrderStatusPaid
	}
	if p.FulfillmentStatus != nil && *p.FulfillmentStatus == "fulfilled" {
		status = OrderStatusFulfilled
	}
	if p.CancelledAt != nil {
		status = OrderStatusCancelled
	}
	return status
}

// ToOrder maps the payload onto a domain order for the given store.
// LineItems stays nil when the payload carried none, and CreatedAt stays zero
// without a created_at so the stored source timestamp is kept.
func (p *OrderPayload) ToOrder(storeID uint) *Order {
	order := &Order{
		ShopifyID:       p.ID.Int64(),
		StoreID:         storeID,
		OrderNumber:     p.OrderNumber,
		Name:            p.Name,
		TotalPrice:      p.TotalPrice.Decimal,
		FinancialStatus: p.FinancialStatus,
		Status:          p.DerivedStatus(),
	}
	if p.FulfillmentStatus != nil {
		order.FulfillmentStatus = *p.FulfillmentStatus
	}
	if order.Name == "" && p.OrderNumber > 0 {
		order.Name = fmt.Sprintf("#%d", p.OrderNumber)
	}
	if p.CreatedAt != nil {
		order.CreatedAt = p.CreatedAt.UTC()
	}
	if p.LineItems != nil {
		order.LineItems = make([]LineItem, 0, len(p.LineItems))
		for _, item := range p.LineItems {
			li := LineItem{
				Title:    item.Title,
				Quantity: item.Quantity,
				Price:    item.Price.Decimal,
			}
			if item.ProductID != nil && *item.ProductID != 0 {
				pid := item.ProductID.Int64()
				li.ShopifyProductID = &pid
			}
			order.LineItems = append(order.LineItems, li)
		}
	}
	return order
}

func (p *CustomerPayload) ToCustomer(storeID uint) *Customer {
	c := &Customer{
		ShopifyID: p.ID.Int64(),
		StoreID:   storeID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
	if p.Email != nil && *p.Email != "" {
		email := *p.Email
		c.Email = &email
	}
	if p.CreatedAt != nil {
		c.CreatedAt = p.CreatedAt.UTC()
	}
	return c
}

// ToProduct takes the price from the first variant, or zero without variants.
func (p *ProductPayload) ToProduct(storeID uint) *Product {
	product := &Product{
		ShopifyID: p.ID.Int64(),
		StoreID:   storeID,
		Title:     p.Title,
		Price:     decimal.Zero,
	}
	if len(p.Variants) > 0 {
		product.Price = p.Variants[0].Price.Decimal
	}
	if p.CreatedAt != nil {
		product.CreatedAt = p.CreatedAt.UTC()
	}
	return product
}
