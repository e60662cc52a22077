// Package reportapi holds the wire types of the node downtime report HTTP API
// and a typed client for it.
package reportapi

import "time"

// Record is one unified node record. Metric fields are null when the node had
// no metric sample.
type Record struct {
	NodeAlias     string    `json:"node_alias"`
	IPAddress     string    `json:"ip_address"`
	Event         string    `json:"event"`
	AlarmTime     time.Time `json:"alarm_time"`
	Availability  *float64  `json:"availability"`
	LatencyMS     *float64  `json:"latency_ms"`
	PacketLossPct *float64  `json:"packet_loss_pct"`
}

// RecordsResponse is returned by GET /api/v1/records.
type RecordsResponse struct {
	Generation string   `json:"generation"`
	Count      int      `json:"count"`
	Records    []Record `json:"records"`
}

// NodeDowntime pairs a node with its distinct alarm time count.
type NodeDowntime struct {
	NodeAlias     string `json:"node_alias"`
	DowntimeCount int    `json:"downtime_count"`
}

// ReportResponse is returned by GET /api/v1/report.
type ReportResponse struct {
	Generation string         `json:"generation"`
	Start      *time.Time     `json:"start,omitempty"`
	End        *time.Time     `json:"end,omitempty"`
	Bucket     string         `json:"bucket"`
	Count      int            `json:"count"`
	Nodes      []NodeDowntime `json:"nodes"`
	Records    []Record       `json:"records"`
}

// NodesResponse is returned by GET /api/v1/nodes.
type NodesResponse struct {
	Generation string         `json:"generation"`
	Nodes      []NodeDowntime `json:"nodes"`
}

// SeriesPoint is one charting sample of a node drill-down.
type SeriesPoint struct {
	AlarmTime     time.Time `json:"alarm_time"`
	Event         string    `json:"event"`
	Availability  *float64  `json:"availability"`
	LatencyMS     *float64  `json:"latency_ms"`
	PacketLossPct *float64  `json:"packet_loss_pct"`
}

// SeriesResponse is returned by GET /api/v1/nodes/{alias}/series. An unknown
// alias yields empty slices.
type SeriesResponse struct {
	NodeAlias        string        `json:"node_alias"`
	Points           []SeriesPoint `json:"points"`
	DowntimeTimeline []time.Time   `json:"downtime_timeline"`
}

// BoundsResponse is returned by GET /api/v1/bounds. Start and End are absent
// when the table is empty.
type BoundsResponse struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// CleanStats reports one cleaning pass.
type CleanStats struct {
	Source      string         `json:"source" yaml:"source"`
	RowsRead    int            `json:"rows_read" yaml:"rows_read"`
	RowsKept    int            `json:"rows_kept" yaml:"rows_kept"`
	RowsDropped int            `json:"rows_dropped" yaml:"rows_dropped"`
	DropReasons map[string]int `json:"drop_reasons,omitempty" yaml:"drop_reasons,omitempty"`
}

// JoinStats reports the reconciliation pass.
type JoinStats struct {
	Matched       int `json:"matched" yaml:"matched"`
	Unmatched     int `json:"unmatched" yaml:"unmatched"`
	AmbiguousKeys int `json:"ambiguous_keys" yaml:"ambiguous_keys"`
}

// StatsResponse is returned by GET /api/v1/stats and POST /api/v1/reload.
type StatsResponse struct {
	Generation    string     `json:"generation" yaml:"generation"`
	LoadedAt      time.Time  `json:"loaded_at" yaml:"loaded_at"`
	Records       int        `json:"records" yaml:"records"`
	Nodes         int        `json:"nodes" yaml:"nodes"`
	EventLog      CleanStats `json:"event_log" yaml:"event_log"`
	MetricSamples CleanStats `json:"metric_samples" yaml:"metric_samples"`
	Join          JoinStats  `json:"join" yaml:"join"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status     string `json:"status"`
	Generation string `json:"generation,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
