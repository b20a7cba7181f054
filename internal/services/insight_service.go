package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/lifemetrics/internal/models"
	"github.com/irfndi/lifemetrics/pkg/interfaces"
)

const (
	// Correlations reported by the orchestrator must clear a stricter bar than
	// the n>=3 floor of PearsonCorrelation.
	minReportedCorrelation = 0.3
	minReportedSampleSize  = 5

	tracerName = "github.com/irfndi/lifemetrics/internal/services"
)

// ErrInsightTimeout is returned when a generation exceeds its deadline. No
// partial bundle accompanies it.
var ErrInsightTimeout = errors.New("insight generation timed out")

// CorrelationMethod selects the coefficient used for metric pairs.
type CorrelationMethod string

const (
	CorrelationPearson  CorrelationMethod = "pearson"
	CorrelationSpearman CorrelationMethod = "spearman"
)

// ParseCorrelationMethod maps a query value to a method; empty means Pearson.
func ParseCorrelationMethod(s string) (CorrelationMethod, bool) {
	switch CorrelationMethod(s) {
	case "", CorrelationPearson:
		return CorrelationPearson, true
	case CorrelationSpearman:
		return CorrelationSpearman, true
	default:
		return "", false
	}
}

// InsightServiceConfig holds the tunables of the orchestrator.
type InsightServiceConfig struct {
	DefaultRangeDays int
	ForecastDays     int
}

// DefaultInsightServiceConfig analyses the trailing 30 days and forecasts a week ahead.
func DefaultInsightServiceConfig() InsightServiceConfig {
	return InsightServiceConfig{
		DefaultRangeDays: 30,
		ForecastDays:     7,
	}
}

// InsightService orchestrates correlation, trend and pattern analysis for a
// user. It keeps no analysis state between calls.
type InsightService struct {
	source      interfaces.ObservationSource
	persister   interfaces.InsightPersister
	broadcaster interfaces.InsightBroadcaster
	reader      interfaces.InsightReader
	timeouts    *TimeoutManager
	logger      *logrus.Logger
	tracer      trace.Tracer
	config      InsightServiceConfig
	now         func() time.Time
	breakers    map[string]*CircuitBreaker
	wg          sync.WaitGroup
}

// InsightServiceOption configures optional collaborators.
type InsightServiceOption func(*InsightService)

// WithPersister stores every refreshed bundle.
func WithPersister(p interfaces.InsightPersister) InsightServiceOption {
	return func(s *InsightService) { s.persister = p }
}

// WithBroadcaster announces every refreshed bundle.
func WithBroadcaster(b interfaces.InsightBroadcaster) InsightServiceOption {
	return func(s *InsightService) { s.broadcaster = b }
}

// WithInsightReader serves previously stored bundles from CachedInsights.
func WithInsightReader(r interfaces.InsightReader) InsightServiceOption {
	return func(s *InsightService) { s.reader = r }
}

// WithCircuitBreakers guards persistence and broadcast with one breaker each.
func WithCircuitBreakers(config CircuitBreakerConfig) InsightServiceOption {
	return func(s *InsightService) {
		s.breakers = map[string]*CircuitBreaker{
			OperationPersistence: NewCircuitBreaker(OperationPersistence, config, s.logger),
			OperationBroadcast:   NewCircuitBreaker(OperationBroadcast, config, s.logger),
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) InsightServiceOption {
	return func(s *InsightService) { s.now = now }
}

// NewInsightService creates a new insight orchestrator
func NewInsightService(
	source interfaces.ObservationSource,
	timeouts *TimeoutManager,
	logger *logrus.Logger,
	config InsightServiceConfig,
	opts ...InsightServiceOption,
) *InsightService {
	if timeouts == nil {
		timeouts = NewTimeoutManager(nil, logger)
	}
	if config.DefaultRangeDays <= 0 {
		config.DefaultRangeDays = DefaultInsightServiceConfig().DefaultRangeDays
	}
	if config.ForecastDays <= 0 {
		config.ForecastDays = DefaultInsightServiceConfig().ForecastDays
	}

	s := &InsightService{
		source:   source,
		timeouts: timeouts,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		config:   config,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolveRange applies the default trailing window and validates explicit ranges.
func (s *InsightService) resolveRange(dateRange *models.DateRange) (models.DateRange, error) {
	if dateRange == nil {
		return models.TrailingDays(s.now(), s.config.DefaultRangeDays), nil
	}
	return models.NewDateRange(dateRange.Start, dateRange.End)
}

// snapshot is the immutable input shared by every analysis of one run.
type snapshot struct {
	observations []models.NormalizedObservation
	metrics      []models.Metric
	names        metricNames
}

func (s *InsightService) loadSnapshot(ctx context.Context, userID string, dateRange models.DateRange) (*snapshot, error) {
	opCtx := s.timeouts.CreateOperationContextWithParent(ctx, OperationObservationLoad, uuid.NewString())
	defer s.timeouts.CompleteOperation(opCtx.OperationID)

	var (
		observations []models.Observation
		metrics      []models.Metric
	)
	g, gctx := errgroup.WithContext(opCtx.Ctx)
	g.Go(func() error {
		var err error
		observations, err = s.source.LoadObservationsForAnalytics(gctx, userID, dateRange)
		if err != nil {
			return fmt.Errorf("failed to load observations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		metrics, err = s.source.ListMetrics(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list metrics: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics = append([]models.Metric(nil), metrics...)
	sort.SliceStable(metrics, func(i, j int) bool { return metrics[i].ID < metrics[j].ID })
	return &snapshot{
		observations: NormalizeObservations(observations),
		metrics:      metrics,
		names:        newMetricNames(metrics),
	}, nil
}

// CalculateCorrelations returns the Pearson correlations between the user's
// metrics that clear |r| >= 0.3 with at least five samples. A nil range means
// the trailing default window.
func (s *InsightService) CalculateCorrelations(ctx context.Context, userID string, dateRange *models.DateRange) ([]models.CorrelationResult, error) {
	return s.CalculateCorrelationsWithMethod(ctx, userID, dateRange, CorrelationPearson)
}

// CalculateCorrelationsWithMethod is CalculateCorrelations with a selectable coefficient.
func (s *InsightService) CalculateCorrelationsWithMethod(ctx context.Context, userID string, dateRange *models.DateRange, method CorrelationMethod) ([]models.CorrelationResult, error) {
	r, err := s.resolveRange(dateRange)
	if err != nil {
		return nil, err
	}

	snap, err := s.loadSnapshot(ctx, userID, r)
	if err != nil {
		return nil, s.wrapContextError(ctx, err)
	}
	return calculateCorrelations(snap.observations, snap.names, method), nil
}

// calculateCorrelations evaluates every unordered metric pair a<b.
func calculateCorrelations(observations []models.NormalizedObservation, names metricNames, method CorrelationMethod) []models.CorrelationResult {
	grouped := valuesByMetric(observations)
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	coefficient := PearsonCorrelation
	if method == CorrelationSpearman {
		coefficient = SpearmanCorrelation
	}

	results := make([]models.CorrelationResult, 0)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			xs, ys := grouped[a], grouped[b]
			if len(xs) < minCorrelationSamples || len(ys) < minCorrelationSamples {
				continue
			}

			n := len(xs)
			if len(ys) < n {
				n = len(ys)
			}
			r := coefficient(xs, ys)
			if math.Abs(r) < minReportedCorrelation || n < minReportedSampleSize {
				continue
			}
			results = append(results, newCorrelationResult(a, b, names.label(a), names.label(b), r, n))
		}
	}
	return results
}

// DetectTrends fits the trend of one metric over the range and assesses its
// significance.
func (s *InsightService) DetectTrends(ctx context.Context, userID, metricID string, dateRange *models.DateRange) (models.TrendResult, error) {
	r, err := s.resolveRange(dateRange)
	if err != nil {
		return models.TrendResult{}, err
	}

	opCtx := s.timeouts.CreateOperationContextWithParent(ctx, OperationObservationLoad, uuid.NewString())
	defer s.timeouts.CompleteOperation(opCtx.OperationID)

	observations, err := s.source.LoadObservationsForMetric(opCtx.Ctx, userID, metricID, r)
	if err != nil {
		return models.TrendResult{}, s.wrapContextError(ctx, fmt.Errorf("failed to load observations for metric %s: %w", metricID, err))
	}

	series := numericSeries(NormalizeObservations(observations), metricID)
	return AssessSignificance(CalculateTrend(series)), nil
}

// calculateMetricTrends analyses every metric the user owns.
func (s *InsightService) calculateMetricTrends(snap *snapshot) []models.MetricTrend {
	seriesByMetric := make(map[string][]models.NumericPoint)
	for _, obs := range snap.observations {
		if obs.Value != nil {
			seriesByMetric[obs.MetricID] = append(seriesByMetric[obs.MetricID],
				models.NumericPoint{Date: obs.Date, Value: *obs.Value})
		}
	}

	trends := make([]models.MetricTrend, 0, len(snap.metrics))
	for _, m := range snap.metrics {
		series := seriesByMetric[m.ID]
		tr := AssessSignificance(CalculateTrend(series))
		trends = append(trends, models.MetricTrend{
			MetricID:       m.ID,
			MetricName:     snap.names.label(m.ID),
			Trend:          tr,
			Forecast:       ForecastTrend(tr, s.config.ForecastDays),
			SeriesPatterns: DetectSeriesPatterns(series),
			MovingAverage:  MovingAverage(series, movingAveragePeriod),
		})
	}
	return trends
}

// GenerateInsights builds a complete bundle for the user and range. The
// correlation, trend and pattern analyses run concurrently over one snapshot;
// recommendations follow once correlations and trends are done. Exceeding the
// generation deadline fails the whole call.
func (s *InsightService) GenerateInsights(ctx context.Context, userID string, dateRange *models.DateRange) (*models.InsightBundle, error) {
	ctx, span := s.tracer.Start(ctx, "InsightService.GenerateInsights",
		trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	r, err := s.resolveRange(dateRange)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	opCtx := s.timeouts.CreateOperationContextWithParent(ctx, OperationInsightGeneration, uuid.NewString())
	defer s.timeouts.CompleteOperation(opCtx.OperationID)

	snap, err := s.loadSnapshot(opCtx.Ctx, userID, r)
	if err != nil {
		err = s.wrapContextError(opCtx.Ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var (
		correlations    []models.CorrelationResult
		trends          []models.MetricTrend
		patterns        []models.Pattern
		recommendations []models.Recommendation
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.Go(func() error {
			correlations = calculateCorrelations(snap.observations, snap.names, CorrelationPearson)
			return nil
		})
		g.Go(func() error {
			trends = s.calculateMetricTrends(snap)
			return nil
		})
		g.Go(func() error {
			patterns = DetectPatterns(snap.observations)
			return nil
		})
		_ = g.Wait()
		recommendations = GenerateRecommendations(correlations, trends)
	}()

	select {
	case <-done:
	case <-opCtx.Ctx.Done():
		err := s.wrapContextError(opCtx.Ctx, opCtx.Ctx.Err())
		s.logger.WithFields(logrus.Fields{
			"user_id":     userID,
			"operation":   OperationInsightGeneration,
			"timeout":     opCtx.Timeout,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Warn("Insight generation abandoned")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	bundle := &models.InsightBundle{
		ID:              uuid.NewString(),
		UserID:          userID,
		Range:           r,
		Correlations:    correlations,
		Trends:          trends,
		Patterns:        patterns,
		Recommendations: recommendations,
		GeneratedAt:     s.now().UTC(),
	}

	span.SetAttributes(
		attribute.Int("insights.correlations", len(correlations)),
		attribute.Int("insights.trends", len(trends)),
		attribute.Int("insights.patterns", len(patterns)),
		attribute.Int("insights.recommendations", len(recommendations)),
	)
	s.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"bundle_id":       bundle.ID,
		"observations":    len(snap.observations),
		"correlations":    len(correlations),
		"trends":          len(trends),
		"patterns":        len(patterns),
		"recommendations": len(recommendations),
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Info("Insights generated")

	return bundle, nil
}

// RefreshInsights generates a bundle over the default range and hands it to
// the persistence and broadcast collaborators without waiting for them. Their
// failures are logged, not retried.
func (s *InsightService) RefreshInsights(ctx context.Context, userID string) (*models.InsightBundle, error) {
	bundle, err := s.GenerateInsights(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, bundle)
	return bundle, nil
}

// CachedInsights returns the last stored bundle when one exists and refreshes
// otherwise.
func (s *InsightService) CachedInsights(ctx context.Context, userID string) (*models.InsightBundle, error) {
	if s.reader != nil {
		bundle, found, err := s.reader.GetInsights(ctx, userID)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Failed to read stored insights, regenerating")
		} else if found {
			return bundle, nil
		}
	}
	return s.RefreshInsights(ctx, userID)
}

func (s *InsightService) dispatch(ctx context.Context, bundle *models.InsightBundle) {
	// Collaborators outlive the request that triggered the refresh.
	base := context.WithoutCancel(ctx)

	if s.persister != nil {
		s.runDetached(base, OperationPersistence, bundle, s.persister.SaveInsights)
	}
	if s.broadcaster != nil {
		s.runDetached(base, OperationBroadcast, bundle, s.broadcaster.BroadcastInsights)
	}
}

func (s *InsightService) runDetached(base context.Context, operation string, bundle *models.InsightBundle, fn func(context.Context, *models.InsightBundle) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		opCtx := s.timeouts.CreateOperationContextWithParent(base, operation, uuid.NewString())
		defer s.timeouts.CompleteOperation(opCtx.OperationID)

		call := func(ctx context.Context) error { return fn(ctx, bundle) }
		if breaker := s.breakers[operation]; breaker != nil {
			guarded := call
			call = func(ctx context.Context) error { return breaker.Execute(ctx, guarded) }
		}

		if err := call(opCtx.Ctx); err != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id":   bundle.UserID,
				"bundle_id": bundle.ID,
				"operation": operation,
				"error":     err.Error(),
			}).Warn("Insight dispatch failed")
		}
	}()
}

// BreakerStats reports the dispatch circuit breakers by operation.
func (s *InsightService) BreakerStats() map[string]CircuitBreakerStats {
	stats := make(map[string]CircuitBreakerStats, len(s.breakers))
	for operation, breaker := range s.breakers {
		stats[operation] = breaker.GetStats()
	}
	return stats
}

// Wait blocks until every dispatched persistence and broadcast call returns.
func (s *InsightService) Wait() {
	s.wg.Wait()
}

// wrapContextError turns an expired deadline into ErrInsightTimeout.
func (s *InsightService) wrapContextError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrInsightTimeout, err)
	}
	return err
}
