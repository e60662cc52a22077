package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anushreehmm/nodedown/internal/models"
)

// Cleaner turns raw exports into typed, validated rows. It holds no mutable
// state, so both entry points may run concurrently.
type Cleaner struct {
	logger      *slog.Logger
	descriptors Descriptors
}

// NewCleaner constructs a cleaner for the given source profiles.
func NewCleaner(logger *slog.Logger, descriptors Descriptors) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger, descriptors: descriptors}
}

// CleanEventLog reads, normalizes and validates an alarm/event export.
func (c *Cleaner) CleanEventLog(ctx context.Context, src Source) ([]models.EventLogRow, models.CleanStats, error) {
	table, err := c.load(ctx, c.descriptors.EventLog, src)
	if err != nil {
		return nil, models.CleanStats{Source: models.SourceEventLog}, err
	}
	rows, stats := ValidateEventLog(table, c.logger)
	c.logStats(src, stats)
	return rows, stats, nil
}

// CleanMetricSamples reads, normalizes and validates an availability export.
func (c *Cleaner) CleanMetricSamples(ctx context.Context, src Source) ([]models.MetricSampleRow, models.CleanStats, error) {
	table, err := c.load(ctx, c.descriptors.MetricSamples, src)
	if err != nil {
		return nil, models.CleanStats{Source: models.SourceMetricSamples}, err
	}
	rows, stats := ValidateMetricSamples(table, c.logger)
	c.logStats(src, stats)
	return rows, stats, nil
}

func (c *Cleaner) load(ctx context.Context, d Descriptor, src Source) (*NormalizedTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := ReadFile(d.Kind, src)
	if err != nil {
		return nil, err
	}
	table, err := Normalize(raw, d)
	if err != nil {
		var srcErr *SourceError
		if errors.As(err, &srcErr) {
			srcErr.Path = src.Path
		}
		return nil, err
	}
	return table, nil
}

func (c *Cleaner) logStats(src Source, stats models.CleanStats) {
	attrs := []any{
		slog.String("source", string(stats.Source)),
		slog.String("path", src.Path),
		slog.Int("read", stats.RowsRead),
		slog.Int("kept", stats.RowsKept),
		slog.Int("dropped", stats.RowsDropped),
	}
	if stats.RowsDropped > 0 {
		attrs = append(attrs, slog.Any("reasons", stats.DropReasons))
	}
	c.logger.Info("source cleaned", attrs...)
}
