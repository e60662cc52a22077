package models

import "time"

// SourceKind identifies one of the two spreadsheet exports.
type SourceKind string

const (
	SourceEventLog      SourceKind = "event_log"
	SourceMetricSamples SourceKind = "metric_samples"
)

// Field is a semantic column name shared by both sources.
type Field string

const (
	FieldNodeAlias     Field = "node_alias"
	FieldIPAddress     Field = "ip_address"
	FieldEvent         Field = "event"
	FieldAlarmTime     Field = "alarm_time"
	FieldAvailability  Field = "availability"
	FieldLatencyMS     Field = "latency_ms"
	FieldPacketLossPct Field = "packet_loss_pct"
)

// EventLogRow is one cleaned alarm/event instance.
type EventLogRow struct {
	NodeAlias string
	IPAddress string
	Event     string
	AlarmTime time.Time
}

// MetricSampleRow is one cleaned availability/latency/packet-loss snapshot.
type MetricSampleRow struct {
	NodeAlias     string
	IPAddress     string
	Availability  float64
	LatencyMS     float64
	PacketLossPct float64
}

// UnifiedRecord is an event row enriched with the metrics of its node.
// The metric pointers are nil when no sample shares the IP address.
type UnifiedRecord struct {
	NodeAlias     string
	IPAddress     string
	Event         string
	AlarmTime     time.Time
	Availability  *float64
	LatencyMS     *float64
	PacketLossPct *float64
}

// Matched reports whether the record was joined to a metric sample.
func (r UnifiedRecord) Matched() bool {
	return r.Availability != nil
}
