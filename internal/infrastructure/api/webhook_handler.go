package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"shopify-insights/internal/domain"
	shopifyinfra "shopify-insights/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
)

// Shopify webhook headers
const (
	HeaderTopic     = "X-Shopify-Topic"
	HeaderShop      = "X-Shopify-Shop-Domain"
	HeaderWebhookID = "X-Shopify-Webhook-Id"
)

// webhookHandler verifies, de-duplicates, audits and reconciles one delivery
func webhookHandler(deps Dependencies, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		topic := strings.TrimSpace(r.Header.Get(HeaderTopic))
		if topic == "" {
			logger.Warn().Msg("Missing X-Shopify-Topic header")
			writeError(w, http.StatusBadRequest, "missing X-Shopify-Topic header")
			return
		}
		shop := strings.TrimSpace(r.Header.Get(HeaderShop))
		if shop == "" {
			logger.Warn().Str("topic", topic).Msg("Missing X-Shopify-Shop-Domain header")
			writeError(w, http.StatusBadRequest, "missing X-Shopify-Shop-Domain header")
			return
		}

		// Read the raw body: the signature covers the exact bytes
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, deps.MaxWebhookBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		defer r.Body.Close()

		if deps.Verifier != nil && deps.Verifier.Enabled() {
			if !deps.Verifier.Verify(payload, r.Header.Get(shopifyinfra.HeaderHmac)) {
				logger.Warn().Str("topic", topic).Msg("Webhook signature verification failed")
				deps.Metrics.Webhook(topic, "unauthorized")
				writeError(w, http.StatusUnauthorized, "invalid signature")
				return
			}
		} else {
			logger.Warn().Str("topic", topic).Msg("Webhook secret not configured, skipping verification")
		}

		webhookID := r.Header.Get(HeaderWebhookID)
		if deps.Deduper != nil && deps.Deduper.Seen(ctx, webhookID) {
			logger.Info().Str("topic", topic).Str("webhookId", webhookID).Msg("Duplicate webhook delivery")
			deps.Metrics.Webhook(topic, domain.ActionDuplicate)
			writeJSON(w, http.StatusOK, &domain.ReconcileResult{Status: domain.ResultIgnored, Action: domain.ActionDuplicate})
			return
		}

		event := &domain.WebhookEvent{
			ID:         webhookID,
			Topic:      topic,
			Shop:       shop,
			Payload:    payload,
			Verified:   deps.Verifier != nil && deps.Verifier.Enabled(),
			ReceivedAt: time.Now().UTC(),
		}

		store, err := deps.Shopify.ActiveStore(ctx)
		if err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("No active store for webhook")
			deps.Metrics.Webhook(topic, "error")
			writeError(w, statusFor(err), err.Error())
			return
		}

		// Log webhook event first
		deps.Shopify.LogWebhook(ctx, event)

		if !strings.EqualFold(shop, store.ShopDomain) {
			logger.Warn().
				Str("topic", topic).
				Str("shop", shop).
				Str("activeShop", store.ShopDomain).
				Msg("Ignoring webhook for another shop")
			deps.Metrics.Webhook(topic, domain.ResultIgnored)
			writeJSON(w, http.StatusOK, &domain.ReconcileResult{
				Status: domain.ResultIgnored,
				Action: domain.ActionSkipped,
				Reason: domain.ReasonShopMismatch,
			})
			return
		}

		result, err := deps.Reconciler.Reconcile(ctx, event, store)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusBadRequest {
				deps.Metrics.Webhook(topic, "invalid")
				writeError(w, status, err.Error())
				return
			}
			logger.Error().
				Err(err).
				Str("topic", topic).
				Str("shop", event.Shop).
				Msg("Failed to reconcile webhook event")
			deps.Metrics.Webhook(topic, "error")
			// 5xx makes Shopify retry the delivery
			writeError(w, status, "failed to process webhook event")
			return
		}

		if deps.Deduper != nil {
			if err := deps.Deduper.Mark(ctx, webhookID); err != nil {
				logger.Warn().Err(err).Str("webhookId", webhookID).Msg("Failed to record webhook id")
			}
		}
		deps.Metrics.Webhook(topic, result.Status)
		writeJSON(w, http.StatusOK, result)
	}
}
