package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/anushreehmm/nodedown/internal/models"
)

// ErrUnknownBucket is returned for a bucket label outside the fixed set.
var ErrUnknownBucket = errors.New("unknown downtime bucket")

// Bucket is a downtime count range used to group nodes in the report.
type Bucket string

const (
	Bucket1To3   Bucket = "1-3"
	Bucket4To5   Bucket = "4-5"
	BucketOver5  Bucket = ">5"
	BucketOver10 Bucket = ">10"
)

// DefaultBucket is the bucket the report opens with.
const DefaultBucket = Bucket1To3

// Buckets lists every bucket in display order.
func Buckets() []Bucket {
	return []Bucket{Bucket1To3, Bucket4To5, BucketOver5, BucketOver10}
}

// ParseBucket validates a bucket label. An empty label selects DefaultBucket.
func ParseBucket(label string) (Bucket, error) {
	if label == "" {
		return DefaultBucket, nil
	}
	for _, b := range Buckets() {
		if string(b) == label {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBucket, label)
}

// Contains reports whether a downtime count falls in the bucket. The ">5" and
// ">10" buckets overlap: a count of 12 is in both.
func (b Bucket) Contains(count int) bool {
	switch b {
	case Bucket1To3:
		return count >= 1 && count <= 3
	case Bucket4To5:
		return count >= 4 && count <= 5
	case BucketOver5:
		return count > 5
	case BucketOver10:
		return count > 10
	default:
		return false
	}
}

// View is a read-only selection of unified records. Filters return new views
// and never modify the receiver.
type View struct {
	records []models.UnifiedRecord
}

// NewView wraps records in a view. The slice is copied.
func NewView(records []models.UnifiedRecord) View {
	return View{records: append([]models.UnifiedRecord(nil), records...)}
}

// Len returns the number of records in the view.
func (v View) Len() int {
	return len(v.records)
}

// Records returns a copy of the view's records in table order.
func (v View) Records() []models.UnifiedRecord {
	return append([]models.UnifiedRecord(nil), v.records...)
}

// FilterByDateRange keeps records with start <= AlarmTime <= end. A zero
// bound leaves that side open.
func (v View) FilterByDateRange(start, end time.Time) View {
	out := make([]models.UnifiedRecord, 0, len(v.records))
	for _, r := range v.records {
		if !start.IsZero() && r.AlarmTime.Before(start) {
			continue
		}
		if !end.IsZero() && r.AlarmTime.After(end) {
			continue
		}
		out = append(out, r)
	}
	return View{records: out}
}

// FilterByDowntimeBucket keeps the records of nodes whose downtime count,
// computed over this view, falls in the bucket.
func (v View) FilterByDowntimeBucket(b Bucket) View {
	counts := v.downtimeByAlias()
	out := make([]models.UnifiedRecord, 0, len(v.records))
	for _, r := range v.records {
		if b.Contains(counts[r.NodeAlias]) {
			out = append(out, r)
		}
	}
	return View{records: out}
}

// Report applies the date range and then the downtime bucket of q.
func (v View) Report(q models.ReportQuery) (View, error) {
	bucket, err := ParseBucket(q.Bucket)
	if err != nil {
		return View{}, err
	}
	return v.FilterByDateRange(q.Start, q.End).FilterByDowntimeBucket(bucket), nil
}

// DowntimeCounts returns the distinct alarm time count of each node, sorted
// by alias.
func (v View) DowntimeCounts() []models.NodeDowntime {
	counts := v.downtimeByAlias()
	out := make([]models.NodeDowntime, 0, len(counts))
	for alias, n := range counts {
		out = append(out, models.NodeDowntime{NodeAlias: alias, DowntimeCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeAlias < out[j].NodeAlias })
	return out
}

// NodeAliases returns the distinct node aliases in the view, sorted.
func (v View) NodeAliases() []string {
	seen := make(map[string]struct{})
	aliases := make([]string, 0)
	for _, r := range v.records {
		if _, ok := seen[r.NodeAlias]; ok {
			continue
		}
		seen[r.NodeAlias] = struct{}{}
		aliases = append(aliases, r.NodeAlias)
	}
	sort.Strings(aliases)
	return aliases
}

// TimeSeriesForNode returns the node's records ordered by alarm time, with
// ties kept in table order, plus the distinct alarm times. An unknown alias
// yields an empty series.
func (v View) TimeSeriesForNode(alias string) models.NodeSeries {
	series := models.NodeSeries{NodeAlias: alias, Points: []models.SeriesPoint{}, DowntimeTimeline: []time.Time{}}
	for _, r := range v.records {
		if r.NodeAlias != alias {
			continue
		}
		series.Points = append(series.Points, models.SeriesPoint{
			AlarmTime:     r.AlarmTime,
			Event:         r.Event,
			Availability:  r.Availability,
			LatencyMS:     r.LatencyMS,
			PacketLossPct: r.PacketLossPct,
		})
	}
	sort.SliceStable(series.Points, func(i, j int) bool {
		return series.Points[i].AlarmTime.Before(series.Points[j].AlarmTime)
	})
	for i, p := range series.Points {
		if i > 0 && p.AlarmTime.Equal(series.Points[i-1].AlarmTime) {
			continue
		}
		series.DowntimeTimeline = append(series.DowntimeTimeline, p.AlarmTime)
	}
	return series
}

// DateBounds returns the earliest and latest alarm time in the view. It
// reports false for an empty view.
func (v View) DateBounds() (models.TimeRange, bool) {
	if len(v.records) == 0 {
		return models.TimeRange{}, false
	}
	bounds := models.TimeRange{Start: v.records[0].AlarmTime, End: v.records[0].AlarmTime}
	for _, r := range v.records[1:] {
		if r.AlarmTime.Before(bounds.Start) {
			bounds.Start = r.AlarmTime
		}
		if r.AlarmTime.After(bounds.End) {
			bounds.End = r.AlarmTime
		}
	}
	return bounds, true
}

func (v View) downtimeByAlias() map[string]int {
	distinct := make(map[string]map[time.Time]struct{})
	for _, r := range v.records {
		times, ok := distinct[r.NodeAlias]
		if !ok {
			times = make(map[time.Time]struct{})
			distinct[r.NodeAlias] = times
		}
		times[r.AlarmTime.UTC()] = struct{}{}
	}
	counts := make(map[string]int, len(distinct))
	for alias, times := range distinct {
		counts[alias] = len(times)
	}
	return counts
}
