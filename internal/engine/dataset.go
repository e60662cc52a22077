package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/anushreehmm/nodedown/internal/models"
)

// CSVHeader is the column order of the unified table export.
var CSVHeader = []string{
	string(models.FieldNodeAlias),
	string(models.FieldIPAddress),
	string(models.FieldEvent),
	string(models.FieldAlarmTime),
	string(models.FieldAvailability),
	string(models.FieldLatencyMS),
	string(models.FieldPacketLossPct),
}

// Dataset is the immutable result of one pipeline run. It is safe for
// concurrent use; nothing mutates it after construction.
type Dataset struct {
	generation string
	loadedAt   time.Time
	view       View
	stats      models.DatasetStats
}

// NewDataset assembles a dataset from reconciled records and the statistics
// of the passes that produced them.
func NewDataset(records []models.UnifiedRecord, events, samples models.CleanStats, join models.JoinStats, loadedAt time.Time) *Dataset {
	view := NewView(records)
	d := &Dataset{
		generation: uuid.NewString(),
		loadedAt:   loadedAt.UTC(),
		view:       view,
	}
	d.stats = models.DatasetStats{
		Generation:    d.generation,
		LoadedAt:      d.loadedAt,
		Records:       view.Len(),
		Nodes:         len(view.NodeAliases()),
		EventLog:      copyCleanStats(events),
		MetricSamples: copyCleanStats(samples),
		Join:          join,
	}
	return d
}

// Generation identifies this dataset. Every build gets a new one.
func (d *Dataset) Generation() string {
	return d.generation
}

// LoadedAt is when the dataset was built.
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// View returns a view over every record.
func (d *Dataset) View() View {
	return d.view
}

// Records returns a copy of the unified table.
func (d *Dataset) Records() []models.UnifiedRecord {
	return d.view.Records()
}

// Stats returns the cleaning and join statistics of the build.
func (d *Dataset) Stats() models.DatasetStats {
	stats := d.stats
	stats.EventLog = copyCleanStats(stats.EventLog)
	stats.MetricSamples = copyCleanStats(stats.MetricSamples)
	return stats
}

// WriteCSV writes the unified table with a header row. The encoding depends
// only on the records, so identical inputs give identical bytes.
func (d *Dataset) WriteCSV(w io.Writer) error {
	return WriteRecordsCSV(w, d.view.records)
}

// WriteRecordsCSV encodes records as CSV. Missing metrics are empty cells.
func WriteRecordsCSV(w io.Writer, records []models.UnifiedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		row := []string{
			r.NodeAlias,
			r.IPAddress,
			r.Event,
			r.AlarmTime.UTC().Format(time.RFC3339Nano),
			formatMetric(r.Availability),
			formatMetric(r.LatencyMS),
			formatMetric(r.PacketLossPct),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMetric(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func copyCleanStats(s models.CleanStats) models.CleanStats {
	if s.DropReasons == nil {
		return s
	}
	reasons := make(map[string]int, len(s.DropReasons))
	for k, v := range s.DropReasons {
		reasons[k] = v
	}
	s.DropReasons = reasons
	return s
}
