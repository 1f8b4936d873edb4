package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/repository/entity"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoWebhookDocFromDomain(t *testing.T) {
	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := entity.MongoWebhookDocFromDomain(&domain.WebhookEvent{
		ID:         "wh-1",
		Topic:      domain.TopicOrdersPaid,
		Shop:       "demo.myshopify.com",
		Payload:    []byte(`{"id":1}`),
		Verified:   true,
		ReceivedAt: received,
	})

	assert.True(t, doc.ID.IsZero())
	assert.Equal(t, "wh-1", doc.WebhookID)
	assert.Equal(t, `{"id":1}`, doc.Payload)
	assert.Equal(t, received, doc.ReceivedAt)
	assert.True(t, doc.Verified)
}

func TestLoggerWebhookLog(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWebhookLog(zerolog.New(&buf))

	require.NoError(t, log.LogWebhook(context.Background(), &domain.WebhookEvent{
		ID:      "wh-2",
		Topic:   domain.TopicCustomersCreate,
		Shop:    "demo.myshopify.com",
		Payload: []byte(`{"id":7}`),
	}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "webhook_log", line["component"])
	assert.Equal(t, "wh-2", line["webhookId"])
	assert.Equal(t, domain.TopicCustomersCreate, line["topic"])
	assert.Equal(t, float64(8), line["bytes"])
}
