package reportapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("report api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("report api returned %d: %s", e.StatusCode, e.Message)
}

// ReportParams filters a report. Dates are YYYY-MM-DD or RFC 3339; empty
// values leave the range open and an empty bucket selects the default.
type ReportParams struct {
	Start  string
	End    string
	Bucket string
}

// Client calls a running report server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client targeting baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Records fetches the whole unified table.
func (c *Client) Records(ctx context.Context) (RecordsResponse, error) {
	var out RecordsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/records", nil, &out)
	return out, err
}

// Report fetches a date and bucket filtered report.
func (c *Client) Report(ctx context.Context, params ReportParams) (ReportResponse, error) {
	query := url.Values{}
	if params.Start != "" {
		query.Set("start", params.Start)
	}
	if params.End != "" {
		query.Set("end", params.End)
	}
	if params.Bucket != "" {
		query.Set("bucket", params.Bucket)
	}
	var out ReportResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/report", query, &out)
	return out, err
}

// Nodes fetches every node with its downtime count.
func (c *Client) Nodes(ctx context.Context) (NodesResponse, error) {
	var out NodesResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/nodes", nil, &out)
	return out, err
}

// Series fetches the drill-down series of one node.
func (c *Client) Series(ctx context.Context, alias string) (SeriesResponse, error) {
	var out SeriesResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/nodes/"+url.PathEscape(alias)+"/series", nil, &out)
	return out, err
}

// Bounds fetches the earliest and latest alarm time.
func (c *Client) Bounds(ctx context.Context) (BoundsResponse, error) {
	var out BoundsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/bounds", nil, &out)
	return out, err
}

// Stats fetches the statistics of the live dataset.
func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var out StatsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &out)
	return out, err
}

// Reload asks the server to re-ingest its sources.
func (c *Client) Reload(ctx context.Context) (StatsResponse, error) {
	var out StatsResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/reload", nil, &out)
	return out, err
}

// Health reports the server status.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	if c == nil {
		return fmt.Errorf("report client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("report server URL not configured")
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload ErrorResponse
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
