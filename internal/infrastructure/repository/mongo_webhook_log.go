package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-insights/internal/domain"
	"shopify-insights/internal/infrastructure/repository/entity"
	"shopify-insights/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWebhookLog implements WebhookLog using MongoDB
type MongoWebhookLog struct {
	webhooksCollection *mongo.Collection
}

// NewMongoWebhookLog creates a webhook audit log on the given database
func NewMongoWebhookLog(db *mongo.Database) ports.WebhookLog {
	return &MongoWebhookLog{
		webhooksCollection: db.Collection("webhook_events"),
	}
}

// ConnectMongo connects and pings the server
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// LogWebhook logs a webhook event
func (r *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookDocFromDomain(event)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.webhooksCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}

	return nil
}

// LoggerWebhookLog writes the audit trail to the application log when no MongoDB is configured
type LoggerWebhookLog struct {
	logger zerolog.Logger
}

func NewLoggerWebhookLog(logger zerolog.Logger) ports.WebhookLog {
	return &LoggerWebhookLog{logger: logger.With().Str("component", "webhook_log").Logger()}
}

func (l *LoggerWebhookLog) LogWebhook(_ context.Context, event *domain.WebhookEvent) error {
	l.logger.Info().
		Str("webhookId", event.ID).
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Bool("verified", event.Verified).
		Int("bytes", len(event.Payload)).
		Msg("Webhook received")
	return nil
}
