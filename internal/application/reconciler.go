package application

import (
	"context"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// TopicHandler applies one family of webhook topics
type TopicHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent, store *domain.Store) (*domain.ReconcileResult, error)
}

// Reconciler dispatches webhook events (real or synthesized by the poller and
// sync) to the first registered handler that accepts the topic.
type Reconciler struct {
	handlers  []TopicHandler
	validator ports.PayloadValidator
	metrics   ports.PipelineMetrics
	logger    zerolog.Logger
}

// NewReconciler creates a reconciler. validator and metrics may be nil.
func NewReconciler(validator ports.PayloadValidator, metrics ports.PipelineMetrics, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		validator: validator,
		metrics:   metrics,
		logger:    logger.With().Str("component", "reconciler").Logger(),
	}
}

// RegisterHandler adds a handler; registration order decides ties
func (r *Reconciler) RegisterHandler(handler TopicHandler) {
	r.handlers = append(r.handlers, handler)
}

// Reconcile validates the payload and hands it to the matching handler.
// Handler errors are returned unchanged so the webhook sender retries.
func (r *Reconciler) Reconcile(ctx context.Context, event *domain.WebhookEvent, store *domain.Store) (*domain.ReconcileResult, error) {
	if store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	var handler TopicHandler
	for _, h := range r.handlers {
		if h.CanHandle(event.Topic) {
			handler = h
			break
		}
	}
	if handler == nil {
		r.logger.Debug().Str("topic", event.Topic).Msg("No handler for topic")
		result := domain.Ignored(domain.ReasonUnsupportedTopic)
		r.record(event.Topic, result)
		return result, nil
	}

	if r.validator != nil {
		if err := r.validator.Validate(event.Topic, event.Payload); err != nil {
			return nil, err
		}
	}

	result, err := handler.Handle(ctx, event, store)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("topic", event.Topic).
			Str("shop", event.Shop).
			Msg("Failed to reconcile event")
		if r.metrics != nil {
			r.metrics.Reconciled(event.Topic, "error", "")
		}
		return nil, err
	}

	r.record(event.Topic, result)
	r.logger.Debug().
		Str("topic", event.Topic).
		Str("status", result.Status).
		Str("action", result.Action).
		Int64("entityId", result.EntityID).
		Str("reason", result.Reason).
		Msg("Event reconciled")
	return result, nil
}

func (r *Reconciler) record(topic string, result *domain.ReconcileResult) {
	if r.metrics == nil {
		return
	}
	r.metrics.Reconciled(topic, result.Status, result.Action)
}
