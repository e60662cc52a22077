package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushreehmm/nodedown/internal/cache"
	"github.com/anushreehmm/nodedown/internal/engine"
	"github.com/anushreehmm/nodedown/internal/models"
	"github.com/anushreehmm/nodedown/internal/utils"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type builderStub struct {
	mu       sync.Mutex
	datasets []*engine.Dataset
	err      error
	calls    int
}

func (b *builderStub) Build(ctx context.Context) (*engine.Dataset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	ds := b.datasets[0]
	if len(b.datasets) > 1 {
		b.datasets = b.datasets[1:]
	}
	return ds, nil
}

type countingCache struct {
	*cache.MemoryProvider
	hits int
	sets int
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.MemoryProvider.Get(ctx, key)
	if err == nil {
		c.hits++
	}
	return data, err
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets++
	return c.MemoryProvider.Set(ctx, key, value, ttl)
}

type failingCache struct{ cache.NoopProvider }

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func dataset(counts map[string]int) *engine.Dataset {
	var records []models.UnifiedRecord
	avail := 99.0
	for alias, n := range counts {
		for i := 0; i < n; i++ {
			records = append(records, models.UnifiedRecord{
				NodeAlias:    alias,
				IPAddress:    "10.0.0.1",
				Event:        "Node Down",
				AlarmTime:    t0.Add(time.Duration(i) * 24 * time.Hour),
				Availability: &avail,
			})
		}
	}
	return engine.NewDataset(records, models.CleanStats{Source: models.SourceEventLog}, models.CleanStats{Source: models.SourceMetricSamples}, models.JoinStats{Matched: len(records)}, t0)
}

func TestQueriesBeforeLoad(t *testing.T) {
	svc := NewReportService(nil, &builderStub{}, nil, 0)

	_, err := svc.Report(context.Background(), models.ReportQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatasetNotReady)
	assert.Equal(t, utils.KindUnavailable, utils.KindOf(err))
	assert.False(t, svc.Ready())

	_, err = svc.NodeSeries(context.Background(), "A")
	assert.ErrorIs(t, err, ErrDatasetNotReady)
}

func TestReloadAndReport(t *testing.T) {
	builder := &builderStub{datasets: []*engine.Dataset{dataset(map[string]int{"A": 2, "B": 6, "C": 12})}}
	svc := NewReportService(nil, builder, nil, 0)

	var notified models.DatasetStats
	svc.OnReload(func(stats models.DatasetStats) { notified = stats })

	stats, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, svc.Ready())
	assert.Equal(t, 20, stats.Records)
	assert.Equal(t, stats.Generation, notified.Generation)

	result, err := svc.Report(context.Background(), models.ReportQuery{Bucket: ">5"})
	require.NoError(t, err)
	assert.Equal(t, []models.NodeDowntime{{NodeAlias: "B", DowntimeCount: 6}, {NodeAlias: "C", DowntimeCount: 12}}, result.Nodes)
	assert.Len(t, result.Records, 18)

	// Default bucket, restricted to the first three days.
	result, err = svc.Report(context.Background(), models.ReportQuery{End: t0.Add(2 * 24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "1-3", result.Query.Bucket)
	assert.Len(t, result.Nodes, 3)

	_, err = svc.Report(context.Background(), models.ReportQuery{Bucket: "many"})
	assert.ErrorIs(t, err, engine.ErrUnknownBucket)
	assert.Equal(t, utils.KindInvalidArgument, utils.KindOf(err))

	_, err = svc.Report(context.Background(), models.ReportQuery{Start: t0.Add(time.Hour), End: t0})
	assert.Equal(t, utils.KindInvalidArgument, utils.KindOf(err))
}

func TestFailedReloadKeepsPreviousDataset(t *testing.T) {
	first := dataset(map[string]int{"A": 1})
	builder := &builderStub{datasets: []*engine.Dataset{first}}
	svc := NewReportService(nil, builder, nil, 0)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	builder.err = errors.New("source unreadable")
	_, err = svc.Reload(context.Background())
	require.Error(t, err)

	assert.Same(t, first, svc.Dataset())
	nodes, err := svc.Nodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Generation(), nodes.Generation)
	assert.Equal(t, []models.NodeDowntime{{NodeAlias: "A", DowntimeCount: 1}}, nodes.Nodes)
}

func TestReloadSwapsDataset(t *testing.T) {
	builder := &builderStub{datasets: []*engine.Dataset{
		dataset(map[string]int{"A": 1}),
		dataset(map[string]int{"B": 4}),
	}}
	svc := NewReportService(nil, builder, nil, 0)

	_, err := svc.Reload(context.Background())
	require.NoError(t, err)
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, svc.Generation(), records.Generation)
	require.Len(t, records.Records, 4)
	assert.Equal(t, "B", records.Records[0].NodeAlias)
}

func TestNodeSeriesUnknownAliasIsEmpty(t *testing.T) {
	svc := NewReportService(nil, &builderStub{datasets: []*engine.Dataset{dataset(map[string]int{"A": 3})}}, nil, 0)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	series, err := svc.NodeSeries(context.Background(), "GHOST")
	require.NoError(t, err)
	assert.True(t, series.Empty())

	series, err = svc.NodeSeries(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, series.Points, 3)
	assert.Len(t, series.DowntimeTimeline, 3)
}

func TestResultsAreCachedPerGeneration(t *testing.T) {
	provider := &countingCache{MemoryProvider: cache.NewMemoryProvider()}
	builder := &builderStub{datasets: []*engine.Dataset{
		dataset(map[string]int{"A": 2}),
		dataset(map[string]int{"A": 5}),
	}}
	svc := NewReportService(nil, builder, provider, time.Minute)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	first, err := svc.NodeSeries(context.Background(), "A")
	require.NoError(t, err)
	second, err := svc.NodeSeries(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.hits)
	require.Len(t, second.Points, len(first.Points))
	assert.True(t, first.Points[1].AlarmTime.Equal(second.Points[1].AlarmTime))
	require.NotNil(t, second.Points[0].Availability)
	assert.Equal(t, 99.0, *second.Points[0].Availability)

	_, err = svc.Report(context.Background(), models.ReportQuery{})
	require.NoError(t, err)
	cachedReport, err := svc.Report(context.Background(), models.ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, provider.hits)
	assert.Len(t, cachedReport.Records, 2)

	_, err = svc.Reload(context.Background())
	require.NoError(t, err)
	series, err := svc.NodeSeries(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, series.Points, 5, "a reload must not serve stale entries")
	assert.Equal(t, 2, provider.hits)
}

func TestCacheFailuresAreBypassed(t *testing.T) {
	svc := NewReportService(nil, &builderStub{datasets: []*engine.Dataset{dataset(map[string]int{"A": 2})}}, failingCache{}, time.Minute)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	result, err := svc.Report(context.Background(), models.ReportQuery{Bucket: "1-3"})
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
}

func TestConcurrentQueriesDuringReload(t *testing.T) {
	builder := &builderStub{datasets: []*engine.Dataset{
		dataset(map[string]int{"A": 3}),
		dataset(map[string]int{"A": 3}),
	}}
	svc := NewReportService(nil, builder, nil, 0)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				records, err := svc.Records(context.Background())
				assert.NoError(t, err)
				assert.Len(t, records.Records, 3)
				assert.NotEmpty(t, records.Generation)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := svc.Reload(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestStatsAndBounds(t *testing.T) {
	svc := NewReportService(nil, &builderStub{datasets: []*engine.Dataset{dataset(map[string]int{"A": 3})}}, nil, 0)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Join.Matched)
	assert.Equal(t, 1, stats.Nodes)

	bounds, ok, err := svc.Bounds(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, bounds.Start.Equal(t0))
	assert.True(t, bounds.End.Equal(t0.Add(48*time.Hour)))
}

func TestLatencyLogKeepsFiringPastTheWindow(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := NewReportService(logger, &builderStub{datasets: []*engine.Dataset{dataset(map[string]int{"A": 1})}}, nil, 0)
	_, err := svc.Reload(context.Background())
	require.NoError(t, err)

	for i := 0; i < 1200; i++ {
		_, err := svc.Nodes(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 12, strings.Count(buf.String(), `msg="query latency"`))
}
