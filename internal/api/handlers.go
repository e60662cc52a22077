package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/anushreehmm/nodedown/internal/models"
	"github.com/anushreehmm/nodedown/internal/utils"
	"github.com/anushreehmm/nodedown/pkg/reportapi"
)

// ReportQuerier is the report service behaviour the HTTP API depends on.
type ReportQuerier interface {
	Ready() bool
	Generation() string
	Records(ctx context.Context) (models.RecordSet, error)
	Report(ctx context.Context, q models.ReportQuery) (models.ReportResult, error)
	Nodes(ctx context.Context) (models.NodeSet, error)
	NodeSeries(ctx context.Context, alias string) (models.NodeSeries, error)
	Bounds(ctx context.Context) (models.TimeRange, bool, error)
	Stats(ctx context.Context) (models.DatasetStats, error)
	Reload(ctx context.Context) (models.DatasetStats, error)
}

// Handler serves the report API.
type Handler struct {
	logger  *slog.Logger
	querier ReportQuerier
}

// NewHandler constructs the report API handlers.
func NewHandler(logger *slog.Logger, querier ReportQuerier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, querier: querier}
}

// Health reports 200 once a dataset is live and 503 before.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.querier.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, reportapi.HealthResponse{Status: "NOT_SERVING"})
		return
	}
	writeJSON(w, http.StatusOK, reportapi.HealthResponse{Status: "SERVING", Generation: h.querier.Generation()})
}

// Records returns the whole unified table.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	set, err := h.querier.Records(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportapi.RecordsResponse{
		Generation: set.Generation,
		Count:      len(set.Records),
		Records:    ToAPIRecords(set.Records),
	})
}

// Report filters by start/end date and then by downtime bucket.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	q, err := FromQueryParams(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.querier.Report(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToAPIReport(result))
}

// Nodes lists every node with its downtime count.
func (h *Handler) Nodes(w http.ResponseWriter, r *http.Request) {
	set, err := h.querier.Nodes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportapi.NodesResponse{
		Generation: set.Generation,
		Nodes:      toAPINodes(set.Nodes),
	})
}

// Series returns the drill-down series of one node.
func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	alias, err := url.PathUnescape(mux.Vars(r)["alias"])
	if err != nil {
		h.writeError(w, r, utils.NewAppError("series", utils.KindInvalidArgument, "invalid node alias", err))
		return
	}
	series, err := h.querier.NodeSeries(r.Context(), alias)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToAPISeries(series))
}

// Bounds returns the earliest and latest alarm time.
func (h *Handler) Bounds(w http.ResponseWriter, r *http.Request) {
	bounds, ok, err := h.querier.Bounds(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var resp reportapi.BoundsResponse
	if ok {
		resp.Start = timePtr(bounds.Start)
		resp.End = timePtr(bounds.End)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats returns the statistics of the live dataset.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.querier.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToAPIStats(stats))
}

// Reload re-ingests the sources and returns the new dataset's statistics.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	stats, err := h.querier.Reload(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToAPIStats(stats))
}

// FromQueryParams converts start, end and bucket query parameters. A
// date-only end includes the whole day.
func FromQueryParams(values url.Values) (models.ReportQuery, error) {
	start, err := utils.ParseDateBound(values.Get("start"), false)
	if err != nil {
		return models.ReportQuery{}, utils.NewAppError("report", utils.KindInvalidArgument, "invalid start", err)
	}
	end, err := utils.ParseDateBound(values.Get("end"), true)
	if err != nil {
		return models.ReportQuery{}, utils.NewAppError("report", utils.KindInvalidArgument, "invalid end", err)
	}
	return models.ReportQuery{Start: start, End: end, Bucket: values.Get("bucket")}, nil
}

// ToAPIRecords maps unified records to their wire form.
func ToAPIRecords(records []models.UnifiedRecord) []reportapi.Record {
	out := make([]reportapi.Record, 0, len(records))
	for _, r := range records {
		out = append(out, reportapi.Record{
			NodeAlias:     r.NodeAlias,
			IPAddress:     r.IPAddress,
			Event:         r.Event,
			AlarmTime:     r.AlarmTime.UTC(),
			Availability:  r.Availability,
			LatencyMS:     r.LatencyMS,
			PacketLossPct: r.PacketLossPct,
		})
	}
	return out
}

// ToAPIReport maps a report result to its wire form.
func ToAPIReport(result models.ReportResult) reportapi.ReportResponse {
	resp := reportapi.ReportResponse{
		Generation: result.Generation,
		Bucket:     result.Query.Bucket,
		Count:      len(result.Records),
		Nodes:      toAPINodes(result.Nodes),
		Records:    ToAPIRecords(result.Records),
	}
	if !result.Query.Start.IsZero() {
		resp.Start = timePtr(result.Query.Start)
	}
	if !result.Query.End.IsZero() {
		resp.End = timePtr(result.Query.End)
	}
	return resp
}

// ToAPISeries maps a node series to its wire form.
func ToAPISeries(series models.NodeSeries) reportapi.SeriesResponse {
	resp := reportapi.SeriesResponse{
		NodeAlias:        series.NodeAlias,
		Points:           make([]reportapi.SeriesPoint, 0, len(series.Points)),
		DowntimeTimeline: make([]time.Time, 0, len(series.DowntimeTimeline)),
	}
	for _, p := range series.Points {
		resp.Points = append(resp.Points, reportapi.SeriesPoint{
			AlarmTime:     p.AlarmTime.UTC(),
			Event:         p.Event,
			Availability:  p.Availability,
			LatencyMS:     p.LatencyMS,
			PacketLossPct: p.PacketLossPct,
		})
	}
	for _, t := range series.DowntimeTimeline {
		resp.DowntimeTimeline = append(resp.DowntimeTimeline, t.UTC())
	}
	return resp
}

// ToAPIStats maps dataset statistics to their wire form.
func ToAPIStats(stats models.DatasetStats) reportapi.StatsResponse {
	return reportapi.StatsResponse{
		Generation:    stats.Generation,
		LoadedAt:      stats.LoadedAt,
		Records:       stats.Records,
		Nodes:         stats.Nodes,
		EventLog:      toAPICleanStats(stats.EventLog),
		MetricSamples: toAPICleanStats(stats.MetricSamples),
		Join: reportapi.JoinStats{
			Matched:       stats.Join.Matched,
			Unmatched:     stats.Join.Unmatched,
			AmbiguousKeys: stats.Join.AmbiguousKeys,
		},
	}
}

func toAPICleanStats(s models.CleanStats) reportapi.CleanStats {
	return reportapi.CleanStats{
		Source:      string(s.Source),
		RowsRead:    s.RowsRead,
		RowsKept:    s.RowsKept,
		RowsDropped: s.RowsDropped,
		DropReasons: s.DropReasons,
	}
}

func toAPINodes(nodes []models.NodeDowntime) []reportapi.NodeDowntime {
	out := make([]reportapi.NodeDowntime, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, reportapi.NodeDowntime{NodeAlias: n.NodeAlias, DowntimeCount: n.DowntimeCount})
	}
	return out
}

func timePtr(t time.Time) *time.Time {
	utc := t.UTC()
	return &utc
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch utils.KindOf(err) {
	case utils.KindInvalidArgument:
		status = http.StatusBadRequest
	case utils.KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody reads the body.
		return
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	writeJSON(w, status, reportapi.ErrorResponse{Error: utils.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
