package models

import "time"

// CleanStats reports how many rows a cleaning pass read, kept and dropped.
type CleanStats struct {
	Source      SourceKind
	RowsRead    int
	RowsKept    int
	RowsDropped int
	// DropReasons counts rejected rows by the first failing check.
	DropReasons map[string]int
}

// Reject records one dropped row.
func (s *CleanStats) Reject(reason string) {
	if s.DropReasons == nil {
		s.DropReasons = make(map[string]int)
	}
	s.DropReasons[reason]++
	s.RowsDropped++
}

// JoinStats summarises a reconciliation pass.
type JoinStats struct {
	Matched   int
	Unmatched int
	// AmbiguousKeys counts IP addresses shared by more than one metric sample.
	AmbiguousKeys int
}

// DatasetStats describes the dataset currently being served.
type DatasetStats struct {
	Generation    string
	LoadedAt      time.Time
	Records       int
	Nodes         int
	EventLog      CleanStats
	MetricSamples CleanStats
	Join          JoinStats
}
