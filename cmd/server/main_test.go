package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/irfndi/lifemetrics/internal/config"
)

func TestNewTimeoutConfig(t *testing.T) {
	cfg := newTimeoutConfig(config.AnalyticsConfig{
		InsightTimeout:   "45s",
		LoadTimeout:      "15s",
		PersistTimeout:   "5s",
		BroadcastTimeout: "500ms",
	})

	assert.Equal(t, 45*time.Second, cfg.InsightGeneration)
	assert.Equal(t, 15*time.Second, cfg.ObservationLoad)
	assert.Equal(t, 5*time.Second, cfg.Persistence)
	assert.Equal(t, 500*time.Millisecond, cfg.Broadcast)
}
