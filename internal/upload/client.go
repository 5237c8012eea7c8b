package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/strengthjourneys/internal/ingest"
)

// maxAttempts is how many times a batch is sent before giving up.
const maxAttempts = 3

// Client sends sheet rows to the Strength Journeys server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the Strength Journeys server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// statusError is a non-200 response from the server.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ingest failed (status %d): %s", e.code, e.body)
}

// retryable reports whether a failed request may succeed when repeated.
// Client errors such as a bad API key are final.
func retryable(err error) bool {
	se, ok := err.(*statusError)
	if !ok {
		return true
	}
	return se.code >= 500 || se.code == http.StatusTooManyRequests
}

// SendRows POSTs raw sheet rows to the server's ingest endpoint, which
// replaces the user's stored log. Retries up to 3 times with exponential
// backoff on network and server errors.
func (c *Client) SendRows(ctx context.Context, rows [][]string) (*ingest.Result, error) {
	data, err := json.Marshal(map[string][][]string{"rows": rows})
	if err != nil {
		return nil, fmt.Errorf("marshaling rows: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		result, err := c.post(ctx, "/api/v1/ingest/rows", data)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, path string, data []byte) (*ingest.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var result ingest.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding ingest result: %w", err)
	}
	return &result, nil
}
