package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anushreehmm/nodedown/internal/cache"
	"github.com/anushreehmm/nodedown/internal/engine"
	"github.com/anushreehmm/nodedown/internal/metrics"
	"github.com/anushreehmm/nodedown/internal/models"
	"github.com/anushreehmm/nodedown/internal/utils"
)

// ErrDatasetNotReady is returned by queries before the first successful build.
var ErrDatasetNotReady = errors.New("dataset not loaded")

// Query operation labels.
const (
	OpRecords = "records"
	OpReport  = "report"
	OpNodes   = "nodes"
	OpSeries  = "series"
	OpBounds  = "bounds"
	OpStats   = "stats"
)

// DatasetBuilder produces a fresh dataset from the configured sources.
type DatasetBuilder interface {
	Build(ctx context.Context) (*engine.Dataset, error)
}

// ReportService serves report queries from the live dataset and swaps in a
// new one on reload.
type ReportService struct {
	logger    *slog.Logger
	builder   DatasetBuilder
	cache     cache.Provider
	cacheTTL  time.Duration
	latencies *utils.LatencyTracker

	current  atomic.Pointer[engine.Dataset]
	reloadMu sync.Mutex

	listenersMu sync.Mutex
	listeners   []func(models.DatasetStats)
}

// NewReportService constructs the report service facade. A nil cache disables
// result caching.
func NewReportService(logger *slog.Logger, builder DatasetBuilder, provider cache.Provider, cacheTTL time.Duration) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &ReportService{
		logger:    logger,
		builder:   builder,
		cache:     provider,
		cacheTTL:  cacheTTL,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// OnReload registers fn to run after every successful swap.
func (s *ReportService) OnReload(fn func(models.DatasetStats)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload builds a complete new dataset and makes it live. On failure the
// previous dataset keeps serving.
func (s *ReportService) Reload(ctx context.Context) (models.DatasetStats, error) {
	if s.builder == nil {
		return models.DatasetStats{}, utils.NewAppError("reload", utils.KindInternal, "pipeline not configured", nil)
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	dataset, err := s.builder.Build(ctx)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveIngestion(duration, metrics.OutcomeError)
		s.logger.Error("dataset build failed", slog.Any("error", err), slog.Bool("serving_previous", s.Ready()))
		return models.DatasetStats{}, utils.NewAppError("reload", utils.KindInternal, "dataset build failed", err)
	}
	metrics.ObserveIngestion(duration, metrics.OutcomeSuccess)

	previous := s.current.Swap(dataset)
	stats := dataset.Stats()
	metrics.ObserveDataset(stats)

	attrs := []any{
		slog.String("generation", stats.Generation),
		slog.Int("records", stats.Records),
		slog.Duration("took", duration),
	}
	if previous != nil {
		attrs = append(attrs, slog.String("replaced", previous.Generation()))
	}
	s.logger.Info("dataset live", attrs...)

	s.listenersMu.Lock()
	listeners := append(([]func(models.DatasetStats))(nil), s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(stats)
	}
	return stats, nil
}

// Ready reports whether a dataset is live.
func (s *ReportService) Ready() bool {
	return s.current.Load() != nil
}

// Dataset returns the live dataset, or nil before the first build.
func (s *ReportService) Dataset() *engine.Dataset {
	return s.current.Load()
}

// Generation returns the generation of the live dataset, or "" before the
// first build.
func (s *ReportService) Generation() string {
	if ds := s.current.Load(); ds != nil {
		return ds.Generation()
	}
	return ""
}

// Records returns the whole unified table.
func (s *ReportService) Records(ctx context.Context) (models.RecordSet, error) {
	var set models.RecordSet
	err := s.observe(OpRecords, func(ds *engine.Dataset) error {
		set = models.RecordSet{Generation: ds.Generation(), Records: ds.Records()}
		return nil
	})
	return set, err
}

// Report filters by date range and then by downtime bucket.
func (s *ReportService) Report(ctx context.Context, q models.ReportQuery) (models.ReportResult, error) {
	var result models.ReportResult
	err := s.observe(OpReport, func(ds *engine.Dataset) error {
		bucket, err := engine.ParseBucket(q.Bucket)
		if err != nil {
			return utils.NewAppError(OpReport, utils.KindInvalidArgument, "invalid bucket", err)
		}
		if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
			return utils.NewAppError(OpReport, utils.KindInvalidArgument, "end is before start", nil)
		}
		q.Bucket = string(bucket)

		key := cache.Key(OpReport, ds.Generation(), utils.FormatTime(q.Start), utils.FormatTime(q.End), q.Bucket)
		if s.cached(ctx, key, &result) {
			return nil
		}

		view, err := ds.View().Report(q)
		if err != nil {
			return utils.NewAppError(OpReport, utils.KindInvalidArgument, "invalid query", err)
		}
		result = models.ReportResult{
			Generation: ds.Generation(),
			Query:      q,
			Records:    view.Records(),
			Nodes:      view.DowntimeCounts(),
		}
		s.store(ctx, key, result)
		return nil
	})
	return result, err
}

// Nodes returns every node alias with its downtime count over the whole table.
func (s *ReportService) Nodes(ctx context.Context) (models.NodeSet, error) {
	var set models.NodeSet
	err := s.observe(OpNodes, func(ds *engine.Dataset) error {
		set = models.NodeSet{Generation: ds.Generation(), Nodes: ds.View().DowntimeCounts()}
		return nil
	})
	return set, err
}

// NodeSeries returns the drill-down series of one node. An unknown alias
// yields an empty series.
func (s *ReportService) NodeSeries(ctx context.Context, alias string) (models.NodeSeries, error) {
	var series models.NodeSeries
	err := s.observe(OpSeries, func(ds *engine.Dataset) error {
		key := cache.Key(OpSeries, ds.Generation(), alias)
		if s.cached(ctx, key, &series) {
			return nil
		}
		series = ds.View().TimeSeriesForNode(alias)
		s.store(ctx, key, series)
		return nil
	})
	return series, err
}

// Bounds returns the earliest and latest alarm time. It reports false when
// the table is empty.
func (s *ReportService) Bounds(ctx context.Context) (models.TimeRange, bool, error) {
	var (
		bounds models.TimeRange
		ok     bool
	)
	err := s.observe(OpBounds, func(ds *engine.Dataset) error {
		bounds, ok = ds.View().DateBounds()
		return nil
	})
	return bounds, ok, err
}

// Stats returns the cleaning and join statistics of the live dataset.
func (s *ReportService) Stats(ctx context.Context) (models.DatasetStats, error) {
	var stats models.DatasetStats
	err := s.observe(OpStats, func(ds *engine.Dataset) error {
		stats = ds.Stats()
		return nil
	})
	return stats, err
}

// LatencyP95 returns the current p95 query latency.
func (s *ReportService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// observe runs fn against the live dataset and records its latency and outcome.
func (s *ReportService) observe(op string, fn func(*engine.Dataset) error) error {
	dataset := s.current.Load()
	if dataset == nil {
		metrics.ObserveQuery(op, 0, metrics.OutcomeError)
		return utils.NewAppError(op, utils.KindUnavailable, "no dataset", ErrDatasetNotReady)
	}

	start := time.Now()
	err := fn(dataset)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveQuery(op, duration, metrics.OutcomeError)
		s.logger.Debug("query failed", slog.String("operation", op), slog.Any("error", err))
		return err
	}
	metrics.ObserveQuery(op, duration, metrics.OutcomeSuccess)
	if total := s.latencies.Observe(duration); total%100 == 0 {
		s.logger.Info("query latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", s.latencies.Count()),
			slog.Int("total", total),
		)
	}
	return nil
}

func (s *ReportService) cached(ctx context.Context, key string, v any) bool {
	if _, noop := s.cache.(cache.NoopProvider); noop {
		return false
	}
	err := cache.GetJSON(ctx, s.cache, key, v)
	switch {
	case err == nil:
		metrics.ObserveCache("hit")
		return true
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.ObserveCache("miss")
	default:
		metrics.ObserveCache("error")
		s.logger.Warn("cache lookup failed", slog.String("key", key), slog.Any("error", err))
	}
	return false
}

func (s *ReportService) store(ctx context.Context, key string, v any) {
	if err := cache.SetJSON(ctx, s.cache, key, v, s.cacheTTL); err != nil {
		s.logger.Warn("cache store failed", slog.String("key", key), slog.Any("error", err))
	}
}
