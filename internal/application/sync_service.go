package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sync stages, in execution order
const (
	StageProducts  = "products"
	StageCustomers = "customers"
	StageOrders    = "orders"
	StageRefresh   = "refresh"
)

type SyncOptions struct {
	// RefreshLimit is how many recent orders and customers are replayed
	// through the webhook path after the bulk stages. Zero disables it.
	RefreshLimit    int
	ErrorResetDelay time.Duration
}

// SyncService pulls the whole catalogue from Shopify. Only one sync runs at a
// time; overlapping requests are skipped, not queued.
type SyncService struct {
	shopify    *ShopifyService
	ingest     *IngestService
	reconciler ports.Reconciler
	publisher  ports.EventPublisher
	metrics    ports.PipelineMetrics
	opts       SyncOptions
	logger     zerolog.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	mu          sync.Mutex
	status      domain.SyncStatus
	lastResult  *domain.SyncResult
	lastSuccess *time.Time
	resetTimer  *time.Timer
}

// NewSyncService creates a new sync orchestrator
func NewSyncService(
	shopify *ShopifyService,
	ingest *IngestService,
	reconciler ports.Reconciler,
	publisher ports.EventPublisher,
	metrics ports.PipelineMetrics,
	opts SyncOptions,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		shopify:    shopify,
		ingest:     ingest,
		reconciler: reconciler,
		publisher:  publisher,
		metrics:    metrics,
		opts:       opts,
		status:     domain.SyncIdle,
		logger:     logger.With().Str("component", "sync").Logger(),
	}
}

// PerformSync runs one sync to completion. It never returns an error: the
// failure is carried in the result and announced on the sync channel.
func (s *SyncService) PerformSync(ctx context.Context, trigger string, syncType domain.SyncType) *domain.SyncResult {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info().Str("trigger", trigger).Msg("Sync already running, skipping")
		return &domain.SyncResult{Status: domain.SyncSkipped, Trigger: trigger}
	}
	defer s.running.Store(false)

	result := &domain.SyncResult{
		SyncID:    uuid.NewString(),
		Status:    domain.SyncRunning,
		Trigger:   trigger,
		Type:      syncType,
		StartedAt: time.Now().UTC(),
	}
	since := s.beginRun()

	log := s.logger.With().Str("syncId", result.SyncID).Str("trigger", trigger).Logger()
	log.Info().Str("type", string(syncType)).Msg("Sync started")
	s.announce(domain.EventSyncStarted, result, "", nil)

	err := s.run(ctx, result, since, log)

	result.Duration = time.Since(result.StartedAt)
	result.DurationMs = result.Duration.Milliseconds()
	if err != nil {
		result.Status = domain.SyncFailed
		result.Error = err.Error()
		log.Error().Err(err).Dur("duration", result.Duration).Msg("Sync failed")
		s.announce(domain.EventSyncError, result, "", nil)
	} else {
		result.Status = domain.SyncCompleted
		log.Info().
			Dur("duration", result.Duration).
			Int("products", result.Counts.Products.Processed).
			Int("customers", result.Counts.Customers.Processed).
			Int("orders", result.Counts.Orders.Processed).
			Int("refreshed", result.Counts.Refreshed).
			Msg("Sync completed")
		s.announce(domain.EventSyncCompleted, result, "", &result.Counts)
	}

	s.finishRun(result)
	if s.metrics != nil {
		s.metrics.SyncRun(string(result.Status), result.Duration)
	}
	return result
}

func (s *SyncService) run(ctx context.Context, result *domain.SyncResult, since *time.Time, log zerolog.Logger) error {
	store, err := s.shopify.ActiveStore(ctx)
	if err != nil {
		return err
	}

	filter := domain.ListFilter{}
	if result.Type == domain.SyncIncremental && since != nil {
		filter.UpdatedAtMin = *since
	}

	products, err := s.shopify.GetProducts(ctx, store, filter)
	if err != nil {
		return fmt.Errorf("products stage: %w", err)
	}
	for i := range products {
		if _, _, err := s.ingest.UpsertProduct(ctx, &products[i], store); err != nil {
			log.Warn().Err(err).Int64("productId", products[i].ID.Int64()).Msg("Failed to sync product")
			result.Counts.Products.Failed++
			continue
		}
		result.Counts.Products.Processed++
	}
	s.announce(domain.EventSyncProgress, result, StageProducts, &result.Counts)

	customers, err := s.shopify.GetCustomers(ctx, store, filter)
	if err != nil {
		return fmt.Errorf("customers stage: %w", err)
	}
	for i := range customers {
		if _, _, err := s.ingest.UpsertCustomer(ctx, &customers[i], store); err != nil {
			log.Warn().Err(err).Int64("customerId", customers[i].ID.Int64()).Msg("Failed to sync customer")
			result.Counts.Customers.Failed++
			continue
		}
		result.Counts.Customers.Processed++
	}
	s.announce(domain.EventSyncProgress, result, StageCustomers, &result.Counts)

	orders, err := s.shopify.GetOrders(ctx, store, filter)
	if err != nil {
		return fmt.Errorf("orders stage: %w", err)
	}
	for i := range orders {
		if _, err := s.ingest.UpsertOrder(ctx, &orders[i], store); err != nil {
			log.Warn().Err(err).Int64("orderId", orders[i].ID.Int64()).Msg("Failed to sync order")
			result.Counts.Orders.Failed++
			continue
		}
		result.Counts.Orders.Processed++
	}
	s.announce(domain.EventSyncProgress, result, StageOrders, &result.Counts)

	result.Counts.Refreshed = s.refresh(ctx, store, log)
	if s.opts.RefreshLimit > 0 {
		s.announce(domain.EventSyncProgress, result, StageRefresh, &result.Counts)
	}
	return nil
}

// refresh replays the most recent records through the reconciler so that
// dashboards get the same per-entity events a webhook would have produced.
// It is best effort.
func (s *SyncService) refresh(ctx context.Context, store *domain.Store, log zerolog.Logger) int {
	if s.opts.RefreshLimit <= 0 {
		return 0
	}
	recent := domain.ListFilter{Limit: s.opts.RefreshLimit, Order: "updated_at desc"}
	refreshed := 0

	orders, err := s.shopify.GetOrders(ctx, store, recent)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch recent orders for refresh")
	}
	for i := range orders {
		if s.replay(ctx, store, domain.TopicOrdersUpdated, &orders[i], log) {
			refreshed++
		}
	}

	customers, err := s.shopify.GetCustomers(ctx, store, recent)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch recent customers for refresh")
	}
	for i := range customers {
		if s.replay(ctx, store, domain.TopicCustomersUpdate, &customers[i], log) {
			refreshed++
		}
	}
	return refreshed
}

func (s *SyncService) replay(ctx context.Context, store *domain.Store, topic string, payload any, log zerolog.Logger) bool {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to encode record for refresh")
		return false
	}
	if _, err := s.reconciler.Reconcile(ctx, &domain.WebhookEvent{
		Topic:    topic,
		Shop:     store.ShopDomain,
		Payload:  raw,
		Verified: true,
	}, store); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Refresh reconcile failed")
		return false
	}
	return true
}

func (s *SyncService) announce(kind domain.EventKind, result *domain.SyncResult, stage string, counts *domain.SyncCounts) {
	if s.publisher == nil {
		return
	}
	n := domain.SyncNotification{
		SyncID:     result.SyncID,
		Trigger:    result.Trigger,
		Type:       result.Type,
		Stage:      stage,
		Status:     result.Status,
		DurationMs: result.DurationMs,
		Error:      result.Error,
	}
	if counts != nil {
		c := *counts
		n.Counts = &c
	}
	s.publisher.Publish(domain.ChannelSync, domain.NewEvent(kind, n))
}

// beginRun marks the service running and returns the start of the last
// successful sync, the lower bound of an incremental sync.
func (s *SyncService) beginRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.status = domain.SyncRunning
	return s.lastSuccess
}

func (s *SyncService) finishRun(result *domain.SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = result
	if result.Status != domain.SyncFailed {
		started := result.StartedAt
		s.lastSuccess = &started
		s.status = domain.SyncIdle
		return
	}

	s.status = domain.SyncFailed
	delay := s.opts.ErrorResetDelay
	if delay <= 0 {
		s.status = domain.SyncIdle
		return
	}
	s.resetTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.status == domain.SyncFailed {
			s.status = domain.SyncIdle
		}
	})
}

func (s *SyncService) Status() domain.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := domain.SyncState{
		Status:     s.status,
		Running:    s.running.Load(),
		LastResult: s.lastResult,
	}
	if s.lastSuccess != nil {
		t := *s.lastSuccess
		state.LastSuccess = &t
	}
	return state
}

// Trigger starts a sync in the background and returns immediately. It
// reports false when a sync is already running.
func (s *SyncService) Trigger(ctx context.Context, trigger string, syncType domain.SyncType) bool {
	if s.running.Load() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.PerformSync(ctx, trigger, syncType)
	}()
	return true
}

// StartSchedule runs a full sync every interval until ctx is cancelled
func (s *SyncService) StartSchedule(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.PerformSync(ctx, domain.TriggerScheduled, domain.SyncFull)
			}
		}
	}()
	s.logger.Info().Dur("interval", interval).Msg("Scheduled sync enabled")
}

// Wait blocks until background syncs have returned
func (s *SyncService) Wait() {
	s.wg.Wait()
}
