package models

import "time"

// TimeRange bounds a report window. Both ends are inclusive.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ReportQuery carries the filters of the main report view.
// A zero Start or End leaves that side of the range open.
type ReportQuery struct {
	Start  time.Time
	End    time.Time
	Bucket string
}

// NodeDowntime pairs a node with its distinct alarm timestamp count.
type NodeDowntime struct {
	NodeAlias     string
	DowntimeCount int
}

// SeriesPoint is one charting sample for a node drill-down.
type SeriesPoint struct {
	AlarmTime     time.Time
	Event         string
	Availability  *float64
	LatencyMS     *float64
	PacketLossPct *float64
}

// NodeSeries is the ordered drill-down view for one node.
type NodeSeries struct {
	NodeAlias        string
	Points           []SeriesPoint
	DowntimeTimeline []time.Time
}

// Empty reports whether the node had no rows.
func (s NodeSeries) Empty() bool {
	return len(s.Points) == 0
}

// RecordSet is the whole unified table of one dataset generation.
type RecordSet struct {
	Generation string
	Records    []UnifiedRecord
}

// NodeSet is the downtime count of every node in one dataset generation.
type NodeSet struct {
	Generation string
	Nodes      []NodeDowntime
}

// ReportResult is the filtered unified table of a report query together with
// the downtime count of every node it contains.
type ReportResult struct {
	Generation string
	Query      ReportQuery
	Records    []UnifiedRecord
	Nodes      []NodeDowntime
}
