package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen is returned without calling the collaborator while a breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of the circuit breaker
type CircuitBreakerState int

const (
	Closed CircuitBreakerState = iota
	Open
	HalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive failures before opening
	SuccessThreshold int           `json:"success_threshold"` // half-open successes before closing
	OpenTimeout      time.Duration `json:"open_timeout"`      // time spent open before probing
	MaxProbes        int           `json:"max_probes"`        // concurrent calls allowed half-open
}

// DefaultCircuitBreakerConfig opens after five straight failures and probes
// again after a minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
		MaxProbes:        1,
	}
}

// CircuitBreakerStats holds statistics for the circuit breaker
type CircuitBreakerStats struct {
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	RejectedRequests   int64     `json:"rejected_requests"`
	LastFailureTime    time.Time `json:"last_failure_time"`
	StateChanges       int64     `json:"state_changes"`
}

// CircuitBreaker stops calling a failing collaborator for a while. It guards
// the detached persistence and broadcast calls so an unreachable store does
// not cost a full deadline on every refresh.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	logger *logrus.Logger
	now    func() time.Time

	mu             sync.Mutex
	state          CircuitBreakerState
	failures       int
	successes      int
	inFlightProbes int
	openedAt       time.Time
	stats          CircuitBreakerStats
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = defaults.OpenTimeout
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = defaults.MaxProbes
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: logger,
		now:    time.Now,
		state:  Closed,
	}
}

// Execute runs fn unless the breaker is open. The lock is not held while fn
// runs.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := cb.acquire()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.release(probe, err)
	return err
}

func (cb *CircuitBreaker) acquire() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalRequests++

	if cb.state == Open && cb.now().Sub(cb.openedAt) >= cb.config.OpenTimeout {
		cb.setState(HalfOpen)
	}

	switch cb.state {
	case Closed:
		return false, nil
	case HalfOpen:
		if cb.inFlightProbes < cb.config.MaxProbes {
			cb.inFlightProbes++
			return true, nil
		}
	}

	cb.stats.RejectedRequests++
	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.state.String(),
	}).Debug("Circuit breaker rejected call")
	return false, ErrCircuitOpen
}

func (cb *CircuitBreaker) release(probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.inFlightProbes--
	}

	if err != nil {
		cb.stats.FailedRequests++
		cb.stats.LastFailureTime = cb.now()
		cb.successes = 0
		cb.failures++
		if cb.state == HalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.trip()
		}
		return
	}

	cb.stats.SuccessfulRequests++
	cb.failures = 0
	if cb.state == HalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.setState(Closed)
			cb.successes = 0
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.now()
	cb.setState(Open)
}

// setState changes the circuit breaker state
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.stats.StateChanges++

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"old_state":       oldState.String(),
		"new_state":       newState.String(),
		"failure_count":   cb.failures,
	}).Info("Circuit breaker state changed")
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns the current statistics
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(Closed)
	cb.failures = 0
	cb.successes = 0
}
