package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushreehmm/nodedown/internal/models"
)

func TestValidateMetricSamplesAllOrNothing(t *testing.T) {
	raw := rawTable(
		[]string{"", "", "Availability Report"},
		[]string{}, []string{}, []string{}, []string{},
		[]string{"Node Alias", "IP Address", "", "", "Availability", "Latency(msec)", "Packet Loss(%)"},
		[]string{"RTR-1", "10.0.0.1", "", "", "99.5", "4", "0"},
		[]string{"RTR-2", "10.0.0.2", "", "", "99.1", "bad", "0"},
		[]string{"RTR-3", "10.0.0.3", "", "", "98", "7", "N/A"},
	)
	table, err := Normalize(raw, DefaultMetricSampleDescriptor())
	require.NoError(t, err)

	rows, stats := ValidateMetricSamples(table, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, models.MetricSampleRow{
		NodeAlias: "RTR-1", IPAddress: "10.0.0.1", Availability: 99.5, LatencyMS: 4, PacketLossPct: 0,
	}, rows[0])
	assert.Equal(t, 3, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsKept)
	assert.Equal(t, 2, stats.RowsDropped)
	assert.Equal(t, map[string]int{ReasonInvalidLatency: 1, ReasonInvalidPacketLoss: 1}, stats.DropReasons)
	assert.LessOrEqual(t, stats.RowsKept, stats.RowsRead)
}

func TestValidateEventLogKeepsOnlyParsedTimes(t *testing.T) {
	table, err := Normalize(eventLogRaw(
		[]string{"1", "10.0.0.1", " RTR-1 ", "", "Node Down", "", "2024-01-01 10:00"},
		[]string{"2", "10.0.0.2", "RTR-2", "", "Node Down", "", "yesterday"},
		[]string{"3", "", "RTR-3", "", "", "", "01/02/2024 08:00"},
	), DefaultEventLogDescriptor())
	require.NoError(t, err)

	rows, stats := ValidateEventLog(table, nil)

	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.False(t, r.AlarmTime.IsZero())
		assert.NotEmpty(t, r.NodeAlias)
	}
	assert.Equal(t, "RTR-1", rows[0].NodeAlias, "aliases are trimmed")
	assert.Empty(t, rows[1].IPAddress, "an IP address is not required")
	assert.Equal(t, 1, stats.DropReasons[ReasonInvalidAlarmTime])
}

func TestRowRejectedError(t *testing.T) {
	err := &RowRejected{Row: 7, Field: models.FieldLatencyMS, Reason: ReasonInvalidLatency, Value: "x"}
	assert.Equal(t, `row 7 rejected: invalid_latency (latency_ms="x")`, err.Error())
}
