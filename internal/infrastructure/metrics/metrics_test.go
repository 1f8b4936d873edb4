package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Webhook("orders/create", "ok")
	m.Webhook("orders/create", "ok")
	m.Reconciled("orders/create", "success", "created")
	m.PollRecords("orders", 3)
	m.PollRecords("customers", 0)
	m.SyncRun("completed", 2*time.Second)
	m.Sessions(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhooks.WithLabelValues("orders/create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciles.WithLabelValues("orders/create", "success", "created")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pollRecords.WithLabelValues("orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncRuns.WithLabelValues("completed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.sessions))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Webhook("x", "y")
		m.Reconciled("x", "y", "z")
		m.PollRecords("orders", 1)
		m.SyncRun("failed", time.Second)
		m.Sessions(1)
		m.DroppedEvent()
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Webhook("orders/paid", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `shopify_insights_webhooks_total{result="ok",topic="orders/paid"} 1`)
}
