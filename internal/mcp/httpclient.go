package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

// HTTPClient implements DataSource by calling the Strength Journeys REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// getJSON fetches path and decodes the response into out.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

// QueryLiftRecords returns every record the server holds for the caller.
// The server resolves the user from the tailnet identity, so userID is unused.
func (c *HTTPClient) QueryLiftRecords(ctx context.Context, _ int) ([]models.LiftRecord, error) {
	var records []models.LiftRecord
	if err := c.getJSON(ctx, "/api/v1/lifts", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) QueryLiftTypeFrequencies(ctx context.Context, _ int) ([]models.LiftTypeFrequency, error) {
	var resp struct {
		Frequencies []models.LiftTypeFrequency `json:"frequencies"`
	}
	if err := c.getJSON(ctx, "/api/v1/lifts/frequency", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Frequencies, nil
}

func (c *HTTPClient) GetTonnageSummary(ctx context.Context, _ int, start, end time.Time, bucket, liftType string, unit models.Unit) ([]models.TonnagePeriod, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	params.Set("bucket", bucket)
	if liftType != "" {
		params.Set("type", liftType)
	}
	if unit != "" {
		params.Set("unit", string(unit))
	}

	var periods []models.TonnagePeriod
	if err := c.getJSON(ctx, "/api/v1/tonnage/summary", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *HTTPClient) GetSelectedLifts(ctx context.Context, _ int) ([]string, error) {
	var resp struct {
		Lifts []string `json:"lifts"`
	}
	if err := c.getJSON(ctx, "/api/v1/preferences/lifts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lifts, nil
}
