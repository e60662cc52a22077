package engine

import (
	"github.com/anushreehmm/nodedown/internal/models"
)

// Reconcile left-joins events to metric samples on IP address. Every event
// yields exactly one record, in event order. When several samples share an IP
// the first one in source order is used; such keys are counted as ambiguous.
// An empty IP address never matches.
func Reconcile(events []models.EventLogRow, samples []models.MetricSampleRow) ([]models.UnifiedRecord, models.JoinStats) {
	byIP := make(map[string]models.MetricSampleRow, len(samples))
	seen := make(map[string]int, len(samples))
	var stats models.JoinStats

	for _, s := range samples {
		if s.IPAddress == "" {
			continue
		}
		seen[s.IPAddress]++
		switch seen[s.IPAddress] {
		case 1:
			byIP[s.IPAddress] = s
		case 2:
			stats.AmbiguousKeys++
		}
	}

	records := make([]models.UnifiedRecord, len(events))
	for i, e := range events {
		rec := models.UnifiedRecord{
			NodeAlias: e.NodeAlias,
			IPAddress: e.IPAddress,
			Event:     e.Event,
			AlarmTime: e.AlarmTime,
		}
		if s, ok := byIP[e.IPAddress]; ok && e.IPAddress != "" {
			rec.Availability = float64Ptr(s.Availability)
			rec.LatencyMS = float64Ptr(s.LatencyMS)
			rec.PacketLossPct = float64Ptr(s.PacketLossPct)
			stats.Matched++
		} else {
			stats.Unmatched++
		}
		records[i] = rec
	}
	return records, stats
}

func float64Ptr(v float64) *float64 {
	return &v
}
