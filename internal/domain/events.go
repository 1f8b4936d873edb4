package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind names a real-time notification pushed to dashboards.
type EventKind string

const (
	EventNewOrder        EventKind = "new-order"
	EventOrderPaid       EventKind = "order-paid"
	EventOrderUpdated    EventKind = "order-updated"
	EventOrderCancelled  EventKind = "order-cancelled"
	EventOrderFulfilled  EventKind = "order-fulfilled"
	EventCustomerUpdated EventKind = "customer-updated"
	EventCustomerDeleted EventKind = "customer-deleted"
	EventProductUpdated  EventKind = "product-updated"
	EventDataChanged     EventKind = "data-changed"
	EventSyncStarted     EventKind = "sync-started"
	EventSyncProgress    EventKind = "sync-progress"
	EventSyncCompleted   EventKind = "sync-completed"
	EventSyncError       EventKind = "sync-error"
	EventAppUninstalled  EventKind = "app-uninstalled"
)

// IsSync reports whether the kind narrates a sync pass.
func (k EventKind) IsSync() bool {
	switch k {
	case EventSyncStarted, EventSyncProgress, EventSyncCompleted, EventSyncError:
		return true
	}
	return false
}

// Event bus channels.
const (
	ChannelOrders      = "orders"
	ChannelCustomers   = "customers"
	ChannelProducts    = "products"
	ChannelSync        = "sync"
	ChannelStore       = "store"
	ChannelDataChanged = "data-changed"
)

// Channels lists every channel the broadcast layer listens on.
var Channels = []string{
	ChannelOrders,
	ChannelCustomers,
	ChannelProducts,
	ChannelSync,
	ChannelStore,
	ChannelDataChanged,
}

// Event is the wire frame pushed to sessions. Data holds one of the *Notification types.
type Event struct {
	Kind      EventKind `json:"event"`
	Origin    EventKind `json:"origin,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(kind EventKind, data any) Event {
	return Event{Kind: kind, Data: data, Timestamp: time.Now().UTC()}
}

// DataChanged wraps an event's payload in the generic data-changed kind.
func DataChanged(e Event) Event {
	return Event{Kind: EventDataChanged, Origin: e.Kind, Data: e.Data, Timestamp: e.Timestamp}
}

type OrderNotification struct {
	OrderID           uint            `json:"orderId"`
	ShopifyID         int64           `json:"shopifyId"`
	OrderNumber       int             `json:"orderNumber"`
	Name              string          `json:"name"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	Currency          string          `json:"currency,omitempty"`
	CustomerName      string          `json:"customerName"`
	CustomerEmail     string          `json:"customerEmail,omitempty"`
	FinancialStatus   string          `json:"financialStatus"`
	FulfillmentStatus string          `json:"fulfillmentStatus"`
	Status            OrderStatus     `json:"status"`
	ItemCount         int             `json:"itemCount"`
	Topic             string          `json:"topic"`
}

// NewOrderNotification normalizes an order for dashboards. customer may be nil.
func NewOrderNotification(order *Order, customer *Customer, payload *OrderPayload, topic string) OrderNotification {
	n := OrderNotification{
		OrderID:           order.ID,
		ShopifyID:         order.ShopifyID,
		OrderNumber:       order.OrderNumber,
		Name:              order.Name,
		TotalPrice:        order.TotalPrice,
		FinancialStatus:   order.FinancialStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		Status:            order.Status,
		ItemCount:         len(order.LineItems),
		Topic:             topic,
		CustomerName:      "Guest",
	}
	if payload != nil {
		n.Currency = payload.Currency
		n.CustomerEmail = payload.Email
		if payload.LineItems != nil {
			n.ItemCount = len(payload.LineItems)
		}
		if payload.Customer != nil {
			name := payload.Customer.ToCustomer(order.StoreID).DisplayName()
			if name != "" {
				n.CustomerName = name
			}
		}
	}
	if customer != nil {
		n.CustomerName = customer.DisplayName()
		if customer.Email != nil {
			n.CustomerEmail = *customer.Email
		}
	}
	return n
}

type CustomerNotification struct {
	CustomerID uint   `json:"customerId,omitempty"`
	ShopifyID  int64  `json:"shopifyId"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Topic      string `json:"topic"`
}

func NewCustomerNotification(c *Customer, topic string) CustomerNotification {
	n := CustomerNotification{CustomerID: c.ID, ShopifyID: c.ShopifyID, Name: c.DisplayName(), Topic: topic}
	if c.Email != nil {
		n.Email = *c.Email
	}
	return n
}

type ProductNotification struct {
	ProductID uint            `json:"productId"`
	ShopifyID int64           `json:"shopifyId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Topic     string          `json:"topic"`
}

type SyncNotification struct {
	SyncID     string      `json:"syncId"`
	Trigger    string      `json:"trigger"`
	Type       SyncType    `json:"type"`
	Stage      string      `json:"stage,omitempty"`
	Status     SyncStatus  `json:"status"`
	Counts     *SyncCounts `json:"counts,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type StoreNotification struct {
	ShopDomain string `json:"shopDomain"`
	Topic      string `json:"topic"`
	Message    string `json:"message"`
}
