package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
)

const summaryCacheKey = "stats:summary"

// StatsService serves the dashboard summary, memoized until data changes
type StatsService struct {
	repo   ports.Repository
	cache  ports.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewStatsService(repo ports.Repository, cache ports.Cache, ttl time.Duration, logger zerolog.Logger) *StatsService {
	return &StatsService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// Summary returns counts and revenue for the active store
func (s *StatsService) Summary(ctx context.Context) (*domain.StoreSummary, error) {
	if cached, ok := s.cached(ctx); ok {
		return cached, nil
	}

	store, err := s.repo.GetActiveStore(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to build summary: %w", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, summaryCacheKey, raw, s.ttl); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to cache summary")
			}
		}
	}
	return summary, nil
}

func (s *StatsService) cached(ctx context.Context) (*domain.StoreSummary, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, summaryCacheKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read cached summary")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var summary domain.StoreSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

// Invalidate drops the memoized summary
func (s *StatsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, summaryCacheKey)
}

// HandleEvent is subscribed to the data-changed and sync channels
func (s *StatsService) HandleEvent(event domain.Event) error {
	switch event.Kind {
	case domain.EventDataChanged, domain.EventSyncCompleted:
		return s.Invalidate(context.Background())
	}
	return nil
}
