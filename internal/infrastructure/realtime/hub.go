package realtime

import (
	"sync"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/metrics"
	"shopify-insights/internal/infrastructure/pubsub"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GroupSyncUpdates receives the sync-* lifecycle events.
const GroupSyncUpdates = "sync-updates"

// GroupAll addresses every connected session.
const GroupAll = ""

const defaultBufferSize = 32

// Session is one connected dashboard. Events is closed on Disconnect.
type Session struct {
	ID          string
	Events      chan domain.Event
	ConnectedAt time.Time
	groups      map[string]struct{}
}

// Hub tracks sessions and fans events out to them without blocking the publisher.
type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	bufferSize int
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewHub(bufferSize int, m *metrics.Metrics, logger zerolog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		sessions:   make(map[string]*Session),
		bufferSize: bufferSize,
		metrics:    m,
		logger:     logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// Connect registers a new session
func (h *Hub) Connect() *Session {
	s := &Session{
		ID:          uuid.NewString(),
		Events:      make(chan domain.Event, h.bufferSize),
		ConnectedAt: time.Now().UTC(),
		groups:      make(map[string]struct{}),
	}

	h.mu.Lock()
	h.sessions[s.ID] = s
	count := len(h.sessions)
	h.mu.Unlock()

	h.metrics.Sessions(count)
	h.logger.Info().Str("sessionId", s.ID).Int("sessions", count).Msg("Session connected")
	return s
}

// Disconnect removes the session and closes its event channel
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
		close(s.Events)
	}
	count := len(h.sessions)
	h.mu.Unlock()

	if ok {
		h.metrics.Sessions(count)
		h.logger.Info().Str("sessionId", id).Int("sessions", count).Msg("Session disconnected")
	}
}

func (h *Hub) Join(id, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[id]
	if !ok {
		return domain.ErrUnknownSession
	}
	s.groups[group] = struct{}{}
	return nil
}

func (h *Hub) Leave(id, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[id]
	if !ok {
		return domain.ErrUnknownSession
	}
	delete(s.groups, group)
	return nil
}

// Broadcast queues event for every session in group (GroupAll for everyone)
// and returns how many sessions accepted it. Full buffers drop the event.
func (h *Hub) Broadcast(group string, event domain.Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.sessions {
		if group != GroupAll {
			if _, ok := s.groups[group]; !ok {
				continue
			}
		}
		select {
		case s.Events <- event:
			delivered++
		default:
			h.metrics.DroppedEvent()
			h.logger.Warn().
				Str("sessionId", s.ID).
				Str("event", string(event.Kind)).
				Msg("Session buffer full, dropping event")
		}
	}
	return delivered
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Route picks the audience of an event: sync lifecycle events go to the
// sync-updates group, everything else to all sessions.
func (h *Hub) Route(event domain.Event) int {
	if event.Kind.IsSync() {
		return h.Broadcast(GroupSyncUpdates, event)
	}
	return h.Broadcast(GroupAll, event)
}

// Attach subscribes the hub to every bus channel.
func (h *Hub) Attach(bus *pubsub.EventBus) []*pubsub.Subscription {
	subs := make([]*pubsub.Subscription, 0, len(domain.Channels))
	for _, channel := range domain.Channels {
		subs = append(subs, bus.Subscribe(channel, func(event domain.Event) error {
			h.Route(event)
			return nil
		}))
	}
	return subs
}
