package domain

import "time"

// Shopify webhook topics handled by the reconciler.
const (
	TopicOrdersCreate             = "orders/create"
	TopicOrdersUpdated            = "orders/updated"
	TopicOrdersEdited             = "orders/edited"
	TopicOrdersPaid               = "orders/paid"
	TopicOrdersCancelled          = "orders/cancelled"
	TopicOrdersFulfilled          = "orders/fulfilled"
	TopicOrdersPartiallyFulfilled = "orders/partially_fulfilled"
	TopicCustomersCreate          = "customers/create"
	TopicCustomersUpdate          = "customers/update"
	TopicCustomersEnable          = "customers/enable"
	TopicCustomersDisable         = "customers/disable"
	TopicCustomersDelete          = "customers/delete"
	TopicProductsCreate           = "products/create"
	TopicProductsUpdate           = "products/update"
	TopicProductsDelete           = "products/delete"
	TopicAppUninstalled           = "app/uninstalled"
)

// DefaultWebhookTopics are registered with Shopify at startup when enabled.
var DefaultWebhookTopics = []string{
	TopicOrdersCreate,
	TopicOrdersUpdated,
	TopicOrdersPaid,
	TopicOrdersCancelled,
	TopicOrdersFulfilled,
	TopicCustomersCreate,
	TopicCustomersUpdate,
	TopicCustomersDelete,
	TopicProductsCreate,
	TopicProductsUpdate,
	TopicAppUninstalled,
}

// WebhookEvent is an inbound delivery after signature verification.
type WebhookEvent struct {
	ID         string    `json:"id,omitempty" bson:"webhook_id,omitempty"`
	Topic      string    `json:"topic" bson:"topic"`
	Shop       string    `json:"shop" bson:"shop"`
	Payload    []byte    `json:"-" bson:"payload"`
	Verified   bool      `json:"verified" bson:"verified"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}

// Reconcile outcome statuses and actions.
const (
	ResultSuccess = "success"
	ResultIgnored = "ignored"

	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionCancelled = "cancelled"
	ActionFulfilled = "fulfilled"
	ActionLogged    = "logged"
	ActionSkipped   = "skipped"
	ActionDuplicate = "duplicate"

	ReasonOrderNotFound      = "order_not_found"
	ReasonCustomerNotFound   = "customer_not_found"
	ReasonUnsupportedTopic   = "unsupported_topic"
	ReasonProductsNotDeleted = "products_are_not_deleted"
	ReasonShopMismatch       = "shop_mismatch"
)

// ReconcileResult is returned to the webhook sender and to internal callers.
type ReconcileResult struct {
	Status   string `json:"status"`
	Action   string `json:"action,omitempty"`
	EntityID int64  `json:"entityId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func Succeeded(action string, entityID int64) *ReconcileResult {
	return &ReconcileResult{Status: ResultSuccess, Action: action, EntityID: entityID}
}

func Ignored(reason string) *ReconcileResult {
	return &ReconcileResult{Status: ResultIgnored, Reason: reason}
}

// WebhookSubscription is a webhook registered with Shopify for this app.
type WebhookSubscription struct {
	ID      int64  `json:"id"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
}
