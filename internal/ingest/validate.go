package ingest

import (
	"log/slog"
	"strings"

	"github.com/anushreehmm/nodedown/internal/models"
)

// ValidateEventLog coerces a normalized event log and drops rows without a
// node alias or a parseable alarm time.
func ValidateEventLog(t *NormalizedTable, logger *slog.Logger) ([]models.EventLogRow, models.CleanStats) {
	stats := models.CleanStats{Source: models.SourceEventLog, RowsRead: t.Len()}
	rows := make([]models.EventLogRow, 0, t.Len())

	for i := 0; i < t.Len(); i++ {
		row, rejected := eventLogRow(t, i)
		if rejected != nil {
			rejected.Row = t.FirstRow + i
			stats.Reject(rejected.Reason)
			logRejected(logger, models.SourceEventLog, rejected)
			continue
		}
		rows = append(rows, row)
	}
	stats.RowsKept = len(rows)
	return rows, stats
}

func eventLogRow(t *NormalizedTable, i int) (models.EventLogRow, *RowRejected) {
	alias := strings.TrimSpace(t.Value(i, models.FieldNodeAlias))
	if alias == "" {
		return models.EventLogRow{}, &RowRejected{Field: models.FieldNodeAlias, Reason: ReasonMissingNodeAlias}
	}
	rawTime := t.Value(i, models.FieldAlarmTime)
	if strings.TrimSpace(rawTime) == "" {
		return models.EventLogRow{}, &RowRejected{Field: models.FieldAlarmTime, Reason: ReasonMissingAlarmTime}
	}
	alarmTime, ok := ParseTimestamp(rawTime)
	if !ok {
		return models.EventLogRow{}, &RowRejected{Field: models.FieldAlarmTime, Reason: ReasonInvalidAlarmTime, Value: rawTime}
	}
	return models.EventLogRow{
		NodeAlias: alias,
		IPAddress: strings.TrimSpace(t.Value(i, models.FieldIPAddress)),
		Event:     strings.TrimSpace(t.Value(i, models.FieldEvent)),
		AlarmTime: alarmTime,
	}, nil
}

// ValidateMetricSamples coerces the three numeric fields of a normalized
// metric sample table. A row failing any coercion is dropped whole.
func ValidateMetricSamples(t *NormalizedTable, logger *slog.Logger) ([]models.MetricSampleRow, models.CleanStats) {
	stats := models.CleanStats{Source: models.SourceMetricSamples, RowsRead: t.Len()}
	rows := make([]models.MetricSampleRow, 0, t.Len())

	for i := 0; i < t.Len(); i++ {
		row, rejected := metricSampleRow(t, i)
		if rejected != nil {
			rejected.Row = t.FirstRow + i
			stats.Reject(rejected.Reason)
			logRejected(logger, models.SourceMetricSamples, rejected)
			continue
		}
		rows = append(rows, row)
	}
	stats.RowsKept = len(rows)
	return rows, stats
}

func metricSampleRow(t *NormalizedTable, i int) (models.MetricSampleRow, *RowRejected) {
	checks := []struct {
		field  models.Field
		reason string
	}{
		{models.FieldAvailability, ReasonInvalidAvailability},
		{models.FieldLatencyMS, ReasonInvalidLatency},
		{models.FieldPacketLossPct, ReasonInvalidPacketLoss},
	}
	values := make([]float64, len(checks))
	for n, check := range checks {
		raw := t.Value(i, check.field)
		v, ok := ParseNumber(raw)
		if !ok {
			return models.MetricSampleRow{}, &RowRejected{Field: check.field, Reason: check.reason, Value: raw}
		}
		values[n] = v
	}
	return models.MetricSampleRow{
		NodeAlias:     strings.TrimSpace(t.Value(i, models.FieldNodeAlias)),
		IPAddress:     strings.TrimSpace(t.Value(i, models.FieldIPAddress)),
		Availability:  values[0],
		LatencyMS:     values[1],
		PacketLossPct: values[2],
	}, nil
}

func logRejected(logger *slog.Logger, kind models.SourceKind, rejected *RowRejected) {
	if logger == nil {
		return
	}
	logger.Debug("row rejected",
		slog.String("source", string(kind)),
		slog.Int("row", rejected.Row),
		slog.String("field", string(rejected.Field)),
		slog.String("reason", rejected.Reason),
		slog.String("value", rejected.Value),
	)
}
