package application

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

// Poller catches orders and customers whose webhooks never arrived. Each
// check asks Shopify for records created since the last successful check
// and feeds the unseen ones through the reconciler as create events.
type Poller struct {
	shopify    *ShopifyService
	repo       ports.Repository
	reconciler ports.Reconciler
	metrics    ports.PipelineMetrics
	logger     zerolog.Logger
	interval   time.Duration
	now        func() time.Time

	mu                sync.Mutex
	running           bool
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	lastOrderCheck    time.Time
	lastCustomerCheck time.Time

	// checkMu serializes checks so a manual check never races the ticker
	checkMu sync.Mutex
}

// NewPoller creates a poller whose first check looks back lookback from now
func NewPoller(
	shopify *ShopifyService,
	repo ports.Repository,
	reconciler ports.Reconciler,
	metrics ports.PipelineMetrics,
	interval, lookback time.Duration,
	logger zerolog.Logger,
) *Poller {
	p := &Poller{
		shopify:    shopify,
		repo:       repo,
		reconciler: reconciler,
		metrics:    metrics,
		logger:     logger.With().Str("component", "poller").Logger(),
		interval:   interval,
		now:        func() time.Time { return time.Now().UTC() },
	}
	start := p.now().Add(-lookback)
	p.lastOrderCheck = start
	p.lastCustomerCheck = start
	return p
}

// Start launches the polling loop. It is a no-op when already running.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	p.mu.Unlock()

	p.logger.Info().Dur("interval", p.interval).Msg("Poller started")
	go p.loop(ctx)
}

// Stop cancels the loop and waits for an in-flight check to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Poller stopped")
}

func (p *Poller) Status() domain.PollerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PollerStatus{
		Running:           p.running,
		Interval:          p.interval.String(),
		LastOrderCheck:    p.lastOrderCheck,
		LastCustomerCheck: p.lastCustomerCheck,
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	// first check right away
	p.CheckForUpdates(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CheckForUpdates(ctx)
		}
	}
}

// CheckForUpdates runs one order check and one customer check. A check that
// fails leaves its watermark alone so the window is retried next time.
func (p *Poller) CheckForUpdates(ctx context.Context) domain.PollResult {
	p.checkMu.Lock()
	defer p.checkMu.Unlock()

	var result domain.PollResult
	store, err := p.shopify.ActiveStore(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Skipping poll, no active store")
		return result
	}

	result.NewOrders = p.checkOrders(ctx, store)
	result.NewCustomers = p.checkCustomers(ctx, store)

	if result.NewOrders > 0 || result.NewCustomers > 0 {
		p.logger.Info().
			Int("newOrders", result.NewOrders).
			Int("newCustomers", result.NewCustomers).
			Msg("Poll found missed records")
	}
	return result
}

func (p *Poller) checkOrders(ctx context.Context, store *domain.Store) int {
	p.mu.Lock()
	since := p.lastOrderCheck
	p.mu.Unlock()
	started := p.now()

	orders, err := p.shopify.GetOrders(ctx, store, domain.ListFilter{CreatedAtMin: since})
	if err != nil {
		p.logger.Error().Err(err).Time("since", since).Msg("Order poll failed")
		return 0
	}

	found := 0
	failed := false
	for i := range orders {
		payload := &orders[i]
		existing, err := p.repo.FindOrderByShopifyID(ctx, payload.ID.Int64())
		if err != nil {
			p.logger.Error().Err(err).Int64("orderId", payload.ID.Int64()).Msg("Failed to look up polled order")
			failed = true
			continue
		}
		if existing != nil {
			continue
		}
		ok, err := p.reconcile(ctx, store, domain.TopicOrdersCreate, payload)
		if err != nil {
			failed = true
			continue
		}
		if ok {
			found++
		}
	}

	// a failed record is fetched again from the same window on the next poll
	if failed {
		p.logger.Warn().Time("since", since).Msg("Keeping order watermark after failed records")
	} else {
		p.mu.Lock()
		p.lastOrderCheck = started
		p.mu.Unlock()
	}
	if p.metrics != nil {
		p.metrics.PollRecords("orders", found)
	}
	return found
}

func (p *Poller) checkCustomers(ctx context.Context, store *domain.Store) int {
	p.mu.Lock()
	since := p.lastCustomerCheck
	p.mu.Unlock()
	started := p.now()

	customers, err := p.shopify.GetCustomers(ctx, store, domain.ListFilter{CreatedAtMin: since})
	if err != nil {
		p.logger.Error().Err(err).Time("since", since).Msg("Customer poll failed")
		return 0
	}

	found := 0
	failed := false
	for i := range customers {
		payload := &customers[i]
		existing, err := p.repo.FindCustomerByShopifyID(ctx, payload.ID.Int64())
		if err != nil {
			p.logger.Error().Err(err).Int64("customerId", payload.ID.Int64()).Msg("Failed to look up polled customer")
			failed = true
			continue
		}
		if existing != nil {
			continue
		}
		ok, err := p.reconcile(ctx, store, domain.TopicCustomersCreate, payload)
		if err != nil {
			failed = true
			continue
		}
		if ok {
			found++
		}
	}

	// a failed record is fetched again from the same window on the next poll
	if failed {
		p.logger.Warn().Time("since", since).Msg("Keeping customer watermark after failed records")
	} else {
		p.mu.Lock()
		p.lastCustomerCheck = started
		p.mu.Unlock()
	}
	if p.metrics != nil {
		p.metrics.PollRecords("customers", found)
	}
	return found
}

// reconcile reports whether the record was stored. An error means it should be retried.
func (p *Poller) reconcile(ctx context.Context, store *domain.Store, topic string, payload any) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("Failed to encode polled record")
		return false, err
	}
	result, err := p.reconciler.Reconcile(ctx, &domain.WebhookEvent{
		Topic:    topic,
		Shop:     store.ShopDomain,
		Payload:  raw,
		Verified: true,
	}, store)
	if err != nil {
		return false, err
	}
	return result.Status == domain.ResultSuccess, nil
}
