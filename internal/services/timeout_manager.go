package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Operation types with their own deadline.
const (
	OperationInsightGeneration = "insight_generation"
	OperationObservationLoad   = "observation_load"
	OperationPersistence       = "persistence"
	OperationBroadcast         = "broadcast"
)

// TimeoutConfig defines deadlines for the stages of an insight run.
type TimeoutConfig struct {
	InsightGeneration time.Duration
	ObservationLoad   time.Duration
	Persistence       time.Duration
	Broadcast         time.Duration
}

// TimeoutManager hands out deadline-bound contexts and remembers their cancel
// functions so shutdown can release every in-flight operation.
type TimeoutManager struct {
	config         *TimeoutConfig
	logger         *logrus.Logger
	activeContexts map[string]context.CancelFunc
	mu             sync.RWMutex
	defaultTimeout time.Duration
}

// OperationContext wraps a context with timeout and cancellation
type OperationContext struct {
	Ctx         context.Context
	Cancel      context.CancelFunc
	OperationID string
	StartTime   time.Time
	Timeout     time.Duration
}

// NewTimeoutManager creates a new timeout manager
func NewTimeoutManager(config *TimeoutConfig, logger *logrus.Logger) *TimeoutManager {
	if config == nil {
		config = DefaultTimeoutConfig()
	}

	return &TimeoutManager{
		config:         config,
		logger:         logger,
		activeContexts: make(map[string]context.CancelFunc),
		defaultTimeout: 30 * time.Second,
	}
}

// DefaultTimeoutConfig bounds a full insight generation at 30 seconds.
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		InsightGeneration: 30 * time.Second,
		ObservationLoad:   10 * time.Second,
		Persistence:       5 * time.Second,
		Broadcast:         2 * time.Second,
	}
}

// CreateOperationContextWithParent derives a deadline-bound context from parent.
func (tm *TimeoutManager) CreateOperationContextWithParent(parent context.Context, operationType string, operationID string) *OperationContext {
	timeout := tm.getTimeoutForOperation(operationType)
	ctx, cancel := context.WithTimeout(parent, timeout)

	tm.mu.Lock()
	tm.activeContexts[operationID] = cancel
	tm.mu.Unlock()

	return &OperationContext{
		Ctx:         ctx,
		Cancel:      cancel,
		OperationID: operationID,
		StartTime:   time.Now(),
		Timeout:     timeout,
	}
}

func (tm *TimeoutManager) getTimeoutForOperation(operationType string) time.Duration {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	var timeout time.Duration
	switch operationType {
	case OperationInsightGeneration:
		timeout = tm.config.InsightGeneration
	case OperationObservationLoad:
		timeout = tm.config.ObservationLoad
	case OperationPersistence:
		timeout = tm.config.Persistence
	case OperationBroadcast:
		timeout = tm.config.Broadcast
	}
	if timeout <= 0 {
		return tm.defaultTimeout
	}
	return timeout
}

// CompleteOperation releases the context of a finished operation.
func (tm *TimeoutManager) CompleteOperation(operationID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if cancel, exists := tm.activeContexts[operationID]; exists {
		cancel()
		delete(tm.activeContexts, operationID)
	}
}

// CancelAllOperations cancels all active operations
func (tm *TimeoutManager) CancelAllOperations() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for operationID, cancel := range tm.activeContexts {
		cancel()
		tm.logger.WithField("operation_id", operationID).Info("Operation cancelled during shutdown")
	}

	tm.activeContexts = make(map[string]context.CancelFunc)
}

// GetActiveOperationCount returns the number of active operations
func (tm *TimeoutManager) GetActiveOperationCount() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.activeContexts)
}

// IsOperationActive checks if an operation is currently active
func (tm *TimeoutManager) IsOperationActive(operationID string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	_, exists := tm.activeContexts[operationID]
	return exists
}

// Shutdown gracefully shuts down the timeout manager
func (tm *TimeoutManager) Shutdown() {
	tm.logger.Info("Shutting down timeout manager")
	tm.CancelAllOperations()
}
