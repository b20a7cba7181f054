package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/lifemetrics/internal/models"
)

// InsightRefreshedEvent is published when a user's bundle is regenerated.
// Subscribers fetch the full bundle separately.
type InsightRefreshedEvent struct {
	Type            string    `json:"type"`
	UserID          string    `json:"user_id"`
	BundleID        string    `json:"bundle_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	Correlations    int       `json:"correlations"`
	Trends          int       `json:"trends"`
	Patterns        int       `json:"patterns"`
	Recommendations int       `json:"recommendations"`
}

const insightRefreshedEventType = "insights.refreshed"

// RedisInsightBroadcaster publishes refresh events on a per-user Pub/Sub channel.
type RedisInsightBroadcaster struct {
	redis  redis.Cmdable
	prefix string
	logger *logrus.Logger
}

// NewRedisInsightBroadcaster creates a broadcaster publishing on prefix+userID.
func NewRedisInsightBroadcaster(client redis.Cmdable, prefix string, logger *logrus.Logger) *RedisInsightBroadcaster {
	return &RedisInsightBroadcaster{
		redis:  client,
		prefix: prefix,
		logger: logger,
	}
}

// Channel returns the channel carrying the user's events.
func (b *RedisInsightBroadcaster) Channel(userID string) string {
	return b.prefix + userID
}

// BroadcastInsights publishes a summary of the bundle.
func (b *RedisInsightBroadcaster) BroadcastInsights(ctx context.Context, bundle *models.InsightBundle) error {
	event := InsightRefreshedEvent{
		Type:            insightRefreshedEventType,
		UserID:          bundle.UserID,
		BundleID:        bundle.ID,
		GeneratedAt:     bundle.GeneratedAt,
		Correlations:    len(bundle.Correlations),
		Trends:          len(bundle.Trends),
		Patterns:        len(bundle.Patterns),
		Recommendations: len(bundle.Recommendations),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode insight event: %w", err)
	}

	receivers, err := b.redis.Publish(ctx, b.Channel(bundle.UserID), payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish insights for user %s: %w", bundle.UserID, err)
	}

	b.logger.WithFields(logrus.Fields{
		"user_id":   bundle.UserID,
		"bundle_id": bundle.ID,
		"receivers": receivers,
	}).Debug("Insight refresh broadcast")
	return nil
}
