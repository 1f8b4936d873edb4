package realtime

import (
	"testing"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/cache"
	"shopify-insights/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteSyncEventsToGroup(t *testing.T) {
	hub := NewHub(4, nil, zerolog.Nop())
	watcher := hub.Connect()
	bystander := hub.Connect()
	require.NoError(t, hub.Join(watcher.ID, GroupSyncUpdates))

	assert.Equal(t, 1, hub.Route(domain.NewEvent(domain.EventSyncStarted, nil)))
	assert.Equal(t, 2, hub.Route(domain.NewEvent(domain.EventNewOrder, nil)))

	assert.Len(t, watcher.Events, 2)
	assert.Len(t, bystander.Events, 1)
	assert.Equal(t, domain.EventNewOrder, (<-bystander.Events).Kind)

	require.NoError(t, hub.Leave(watcher.ID, GroupSyncUpdates))
	assert.Equal(t, 0, hub.Route(domain.NewEvent(domain.EventSyncCompleted, nil)))
}

func TestUnknownSession(t *testing.T) {
	hub := NewHub(4, nil, zerolog.Nop())
	assert.ErrorIs(t, hub.Join("nope", GroupSyncUpdates), domain.ErrUnknownSession)
	assert.ErrorIs(t, hub.Leave("nope", GroupSyncUpdates), domain.ErrUnknownSession)
}

func TestFullBufferDropsEvent(t *testing.T) {
	hub := NewHub(1, nil, zerolog.Nop())
	slow := hub.Connect()

	assert.Equal(t, 1, hub.Broadcast(GroupAll, domain.NewEvent(domain.EventNewOrder, nil)))
	assert.Equal(t, 0, hub.Broadcast(GroupAll, domain.NewEvent(domain.EventOrderPaid, nil)))
	assert.Equal(t, domain.EventNewOrder, (<-slow.Events).Kind)
}

func TestDisconnectClosesSession(t *testing.T) {
	hub := NewHub(1, nil, zerolog.Nop())
	s := hub.Connect()
	assert.Equal(t, 1, hub.SessionCount())

	hub.Disconnect(s.ID)
	hub.Disconnect(s.ID)
	assert.Equal(t, 0, hub.SessionCount())
	_, open := <-s.Events
	assert.False(t, open)
	assert.Equal(t, 0, hub.Broadcast(GroupAll, domain.NewEvent(domain.EventNewOrder, nil)))
}

func TestAttachForwardsBusChannels(t *testing.T) {
	bus := pubsub.NewEventBus(cache.NewMemoryCache(0), zerolog.Nop())
	hub := NewHub(8, nil, zerolog.Nop())
	subs := hub.Attach(bus)
	assert.Len(t, subs, len(domain.Channels))

	s := hub.Connect()
	event := domain.NewEvent(domain.EventOrderCancelled, nil)
	bus.Publish(domain.ChannelOrders, event)
	bus.Publish(domain.ChannelDataChanged, domain.DataChanged(event))

	require.Len(t, s.Events, 2)
	assert.Equal(t, domain.EventOrderCancelled, (<-s.Events).Kind)
	changed := <-s.Events
	assert.Equal(t, domain.EventDataChanged, changed.Kind)
	assert.Equal(t, domain.EventOrderCancelled, changed.Origin)
}
