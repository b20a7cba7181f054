package cache

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/lifemetrics/internal/models"
)

// setupTestRedis creates a test Redis instance using miniredis
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type MockInsightStore struct {
	mock.Mock
}

func (m *MockInsightStore) SaveInsights(ctx context.Context, bundle *models.InsightBundle) error {
	args := m.Called(ctx, bundle)
	return args.Error(0)
}

func (m *MockInsightStore) GetInsights(ctx context.Context, userID string) (*models.InsightBundle, bool, error) {
	args := m.Called(ctx, userID)
	bundle, _ := args.Get(0).(*models.InsightBundle)
	return bundle, args.Bool(1), args.Error(2)
}

func testBundle(userID string) *models.InsightBundle {
	return &models.InsightBundle{
		ID:              "bundle-" + userID,
		UserID:          userID,
		Range:           models.DateRange{Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)},
		Correlations:    []models.CorrelationResult{},
		Trends:          []models.MetricTrend{},
		Patterns:        []models.Pattern{},
		Recommendations: []models.Recommendation{},
		GeneratedAt:     time.Date(2024, 5, 31, 9, 0, 0, 0, time.UTC),
	}
}

func TestRedisInsightCache_SetAndGet(t *testing.T) {
	s, client := setupTestRedis(t)
	c := NewRedisInsightCache(client, nil, time.Hour, quietLogger())
	ctx := context.Background()

	_, ok := c.Get(ctx, "user-1")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, testBundle("user-1")))
	assert.True(t, s.Exists("insight_cache:user-1"))
	assert.Equal(t, time.Hour, s.TTL("insight_cache:user-1"))

	bundle, ok := c.Get(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, testBundle("user-1"), bundle)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestRedisInsightCache_Expiry(t *testing.T) {
	s, client := setupTestRedis(t)
	c := NewRedisInsightCache(client, nil, time.Minute, quietLogger())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testBundle("user-1")))
	s.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestRedisInsightCache_CorruptEntry(t *testing.T) {
	s, client := setupTestRedis(t)
	c := NewRedisInsightCache(client, nil, time.Hour, quietLogger())

	require.NoError(t, s.Set("insight_cache:user-1", "{not json"))

	_, ok := c.Get(context.Background(), "user-1")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.GetStats().Errors)
}

func TestRedisInsightCache_Invalidate(t *testing.T) {
	s, client := setupTestRedis(t)
	c := NewRedisInsightCache(client, nil, time.Hour, quietLogger())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testBundle("user-1")))
	require.NoError(t, c.Invalidate(ctx, "user-1"))
	assert.False(t, s.Exists("insight_cache:user-1"))
}

func TestRedisInsightCache_SaveInsights(t *testing.T) {
	_, client := setupTestRedis(t)
	store := new(MockInsightStore)
	c := NewRedisInsightCache(client, store, time.Hour, quietLogger())
	ctx := context.Background()
	bundle := testBundle("user-1")

	store.On("SaveInsights", ctx, bundle).Return(nil).Once()

	require.NoError(t, c.SaveInsights(ctx, bundle))
	cached, ok := c.Get(ctx, "user-1")
	require.True(t, ok)
	assert.Equal(t, bundle.ID, cached.ID)
	store.AssertExpectations(t)
}

func TestRedisInsightCache_SaveInsights_StoreFailure(t *testing.T) {
	_, client := setupTestRedis(t)
	store := new(MockInsightStore)
	c := NewRedisInsightCache(client, store, time.Hour, quietLogger())
	ctx := context.Background()
	bundle := testBundle("user-1")
	storeErr := errors.New("database unavailable")

	store.On("SaveInsights", ctx, bundle).Return(storeErr).Once()

	err := c.SaveInsights(ctx, bundle)
	assert.ErrorIs(t, err, storeErr)

	_, ok := c.Get(ctx, "user-1")
	assert.True(t, ok, "the cache still holds the freshest bundle")
}

func TestRedisInsightCache_GetInsights_ReadThrough(t *testing.T) {
	_, client := setupTestRedis(t)
	store := new(MockInsightStore)
	c := NewRedisInsightCache(client, store, time.Hour, quietLogger())
	ctx := context.Background()
	bundle := testBundle("user-1")

	store.On("GetInsights", ctx, "user-1").Return(bundle, true, nil).Once()

	got, found, err := c.GetInsights(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, bundle, got)

	// The second read is served from Redis.
	got, found, err = c.GetInsights(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, bundle.ID, got.ID)

	store.AssertExpectations(t)
}

func TestRedisInsightCache_GetInsights_Miss(t *testing.T) {
	_, client := setupTestRedis(t)
	store := new(MockInsightStore)
	c := NewRedisInsightCache(client, store, time.Hour, quietLogger())
	ctx := context.Background()

	store.On("GetInsights", ctx, "user-1").Return(nil, false, nil).Once()

	got, found, err := c.GetInsights(ctx, "user-1")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)

	withoutStore := NewRedisInsightCache(client, nil, time.Hour, quietLogger())
	_, found, err = withoutStore.GetInsights(ctx, "user-2")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestRedisInsightCache_RedisDown(t *testing.T) {
	s, client := setupTestRedis(t)
	c := NewRedisInsightCache(client, nil, time.Hour, quietLogger())
	s.Close()

	_, ok := c.Get(context.Background(), "user-1")
	assert.False(t, ok)
	assert.Error(t, c.Set(context.Background(), testBundle("user-1")))
	assert.Equal(t, int64(2), c.GetStats().Errors)

	c.LogStats()
}
