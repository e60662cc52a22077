package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anushreehmm/nodedown/internal/ingest"
	"github.com/anushreehmm/nodedown/internal/models"
)

// DatasetCleaner defines the cleaning behaviour used by the pipeline.
type DatasetCleaner interface {
	CleanEventLog(ctx context.Context, src ingest.Source) ([]models.EventLogRow, models.CleanStats, error)
	CleanMetricSamples(ctx context.Context, src ingest.Source) ([]models.MetricSampleRow, models.CleanStats, error)
}

// Sources locates the two exports a dataset is built from.
type Sources struct {
	EventLog      ingest.Source
	MetricSamples ingest.Source
}

// Pipeline cleans both exports and reconciles them into a Dataset.
type Pipeline struct {
	logger  *slog.Logger
	cleaner DatasetCleaner
	sources Sources
	now     func() time.Time
}

// NewPipeline constructs a pipeline over the given sources.
func NewPipeline(logger *slog.Logger, cleaner DatasetCleaner, sources Sources) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:  logger,
		cleaner: cleaner,
		sources: sources,
		now:     time.Now,
	}
}

// Sources returns the sources the pipeline reads.
func (p *Pipeline) Sources() Sources {
	return p.sources
}

// Build runs one full ingestion. The two exports are cleaned concurrently; a
// fatal error from either aborts the build and no dataset is returned.
func (p *Pipeline) Build(ctx context.Context) (*Dataset, error) {
	if p.cleaner == nil {
		return nil, fmt.Errorf("cleaner not configured")
	}

	var (
		events       []models.EventLogRow
		samples      []models.MetricSampleRow
		eventStats   models.CleanStats
		samplesStats models.CleanStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, eventStats, err = p.cleaner.CleanEventLog(gctx, p.sources.EventLog)
		if err != nil {
			return fmt.Errorf("clean event log: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		samples, samplesStats, err = p.cleaner.CleanMetricSamples(gctx, p.sources.MetricSamples)
		if err != nil {
			return fmt.Errorf("clean metric samples: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records, join := Reconcile(events, samples)
	if join.AmbiguousKeys > 0 {
		p.logger.Warn("metric samples share an ip address; first row used",
			slog.Int("ambiguous_keys", join.AmbiguousKeys),
		)
	}

	dataset := NewDataset(records, eventStats, samplesStats, join, p.now())
	p.logger.Info("dataset built",
		slog.String("generation", dataset.Generation()),
		slog.Int("records", len(records)),
		slog.Int("matched", join.Matched),
		slog.Int("unmatched", join.Unmatched),
	)
	return dataset, nil
}
