package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/lifemetrics/internal/models"
)

func TestRedisInsightBroadcaster_BroadcastInsights(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "insights:user-1")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	broadcaster := NewRedisInsightBroadcaster(client, "insights:", quietLogger())
	bundle := &models.InsightBundle{
		ID:           "bundle-1",
		UserID:       "user-1",
		Correlations: []models.CorrelationResult{{MetricA: "a", MetricB: "b"}},
		Patterns:     []models.Pattern{{Type: models.PatternStreak, Streak: &models.Streak{MetricID: "a"}}, {Type: models.PatternStreak, Streak: &models.Streak{MetricID: "b"}}},
		GeneratedAt:  time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC),
	}

	require.NoError(t, broadcaster.BroadcastInsights(ctx, bundle))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "insights:user-1", msg.Channel)

		var event InsightRefreshedEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, "insights.refreshed", event.Type)
		assert.Equal(t, "bundle-1", event.BundleID)
		assert.Equal(t, 1, event.Correlations)
		assert.Equal(t, 2, event.Patterns)
		assert.Equal(t, 0, event.Recommendations)
		assert.True(t, bundle.GeneratedAt.Equal(event.GeneratedAt))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestRedisInsightBroadcaster_PublishFailure(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	broadcaster := NewRedisInsightBroadcaster(client, "insights:", quietLogger())

	err = broadcaster.BroadcastInsights(context.Background(), &models.InsightBundle{ID: "b", UserID: "user-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish insights for user user-1")
}
