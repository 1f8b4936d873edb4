package application_test

import (
	"context"
	"testing"

	"shopify-insights/internal/application"
	"shopify-insights/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSubscriptions(t *testing.T) {
	p := newPipeline(t)
	address := "https://insights.example.com/webhooks/shopify"
	p.shopify.webhooks = []domain.WebhookSubscription{
		{ID: 1, Topic: domain.TopicOrdersCreate, Address: address},
		{ID: 2, Topic: domain.TopicOrdersPaid, Address: "https://elsewhere.example.com/hook"},
	}

	registrar := application.NewWebhookRegistrar(p.service, address,
		[]string{domain.TopicOrdersCreate, domain.TopicOrdersPaid, domain.TopicAppUninstalled}, zerolog.Nop())

	created, err := registrar.EnsureSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{domain.TopicOrdersPaid, domain.TopicAppUninstalled}, created)

	created, err = registrar.EnsureSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEnsureSubscriptionsDefaultsTopics(t *testing.T) {
	p := newPipeline(t)
	registrar := application.NewWebhookRegistrar(p.service, "https://x.example.com/webhooks/shopify", nil, zerolog.Nop())

	created, err := registrar.EnsureSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultWebhookTopics, created)
}
