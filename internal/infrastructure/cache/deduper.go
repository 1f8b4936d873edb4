package cache

import (
	"context"
	"strings"
	"time"

	"shopify-insights/internal/ports"
)

// DefaultDedupeTTL keeps webhook ids long enough to cover Shopify's retry window.
const DefaultDedupeTTL = 24 * time.Hour

// Deduper remembers processed X-Shopify-Webhook-Id values.
type Deduper struct {
	cache ports.Cache
	ttl   time.Duration
}

func NewDeduper(cache ports.Cache, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &Deduper{cache: cache, ttl: ttl}
}

func dedupeKey(webhookID string) string {
	return "webhook:" + webhookID
}

// Seen reports whether the delivery was already processed. An empty id or a
// cache failure is never a duplicate, so processing is not blocked.
func (d *Deduper) Seen(ctx context.Context, webhookID string) bool {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return false
	}
	_, ok, err := d.cache.Get(ctx, dedupeKey(webhookID))
	return err == nil && ok
}

// Mark records a successfully processed delivery.
func (d *Deduper) Mark(ctx context.Context, webhookID string) error {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return nil
	}
	return d.cache.Set(ctx, dedupeKey(webhookID), []byte("1"), d.ttl)
}
