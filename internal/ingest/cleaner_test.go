package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushreehmm/nodedown/internal/fixtures"
	"github.com/anushreehmm/nodedown/internal/models"
)

func TestCleanEventLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alarms.xlsx")
	require.NoError(t, fixtures.WriteEventLog(path, []fixtures.Event{
		{NodeAlias: "RTR-1", IPAddress: "10.0.0.1", Event: "Node Down", AlarmTime: "2024-01-01 10:00"},
		{NodeAlias: "RTR-1", IPAddress: "10.0.0.1", Event: "Node Down", AlarmTime: time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)},
		{NodeAlias: "", IPAddress: "10.0.0.5", Event: "Node Down", AlarmTime: "2024-01-01 12:00"},
		{NodeAlias: "RTR-2", IPAddress: "10.0.0.2", Event: "Node Down", AlarmTime: ""},
		{NodeAlias: "RTR-3", IPAddress: "10.0.0.3", Event: "Node Down", AlarmTime: "yesterday"},
	}))

	cleaner := NewCleaner(nil, DefaultDescriptors())
	rows, stats, err := cleaner.CleanEventLog(context.Background(), Source{Path: path})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "RTR-1", rows[0].NodeAlias)
	assert.Equal(t, "10.0.0.1", rows[0].IPAddress)
	assert.Equal(t, "Node Down", rows[0].Event)
	assert.True(t, rows[1].AlarmTime.Equal(time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)))

	assert.Equal(t, models.SourceEventLog, stats.Source)
	assert.Equal(t, 5, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsKept)
	assert.Equal(t, 3, stats.RowsDropped)
	assert.Equal(t, map[string]int{
		ReasonMissingNodeAlias: 1,
		ReasonMissingAlarmTime: 1,
		ReasonInvalidAlarmTime: 1,
	}, stats.DropReasons)
}

func TestCleanMetricSamplesDropsUnparseableRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "availability.xlsx")
	require.NoError(t, fixtures.WriteMetricSamples(path, []fixtures.Sample{
		{NodeAlias: "RTR-1", IPAddress: "10.0.0.1", Availability: 99.5, LatencyMS: 4, PacketLossPct: 0},
		{NodeAlias: "RTR-2", IPAddress: "10.0.0.2", Availability: "97.25%", LatencyMS: "12", PacketLossPct: "0.5"},
		{NodeAlias: "RTR-3", IPAddress: "10.0.0.3", Availability: 98, LatencyMS: 3, PacketLossPct: "N/A"},
		{NodeAlias: "RTR-4", IPAddress: "10.0.0.4", Availability: "-", LatencyMS: "N/A", PacketLossPct: 0},
	}))

	cleaner := NewCleaner(nil, DefaultDescriptors())
	rows, stats, err := cleaner.CleanMetricSamples(context.Background(), Source{Path: path})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, models.MetricSampleRow{
		NodeAlias: "RTR-1", IPAddress: "10.0.0.1", Availability: 99.5, LatencyMS: 4, PacketLossPct: 0,
	}, rows[0])
	assert.Equal(t, 97.25, rows[1].Availability)

	assert.Equal(t, 4, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsKept)
	assert.Equal(t, stats.RowsRead, stats.RowsKept+stats.RowsDropped)
	assert.Equal(t, map[string]int{
		ReasonInvalidPacketLoss:   1,
		ReasonInvalidAvailability: 1,
	}, stats.DropReasons)
}

func TestCleanerCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "availability.csv")
	content := ",,Availability Report\nPeriod,30d\n,\nHours,24x7\n,\nNode Alias,IP Address,,,Availability,Latency(msec),Packet Loss(%)\nRTR-1,10.0.0.1,,,99,4,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rows, stats, err := NewCleaner(nil, DefaultDescriptors()).CleanMetricSamples(context.Background(), Source{Path: path})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, stats.RowsKept)
}

func TestCleanerSchemaMismatchCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narrow.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\nc,d\n"), 0o600))

	_, _, err := NewCleaner(nil, DefaultDescriptors()).CleanMetricSamples(context.Background(), Source{Path: path})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, path, srcErr.Path)
	assert.Equal(t, models.SourceMetricSamples, srcErr.Kind)
}

func TestCleanerHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewCleaner(nil, DefaultDescriptors()).CleanEventLog(ctx, Source{Path: "unused.xlsx"})
	assert.ErrorIs(t, err, context.Canceled)
}
