package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/strengthjourneys/internal/ingest"
)

var testRows = [][]string{
	{"Date", "Lift Type", "Reps", "Weight"},
	{"2024-01-01", "Back Squat", "5", "100kg"},
	{"2024-01-03", "Deadlift", "5", "140kg"},
}

// fakeSource returns fixed rows.
type fakeSource struct {
	rows [][]string
	err  error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Rows(context.Context) ([][]string, error) { return f.rows, f.err }

// ingestServer fails the first failFirst requests with status, then accepts.
func ingestServer(t *testing.T, failFirst int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/api/v1/ingest/rows" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		if n <= failFirst {
			http.Error(w, "try later", status)
			return
		}
		var body struct {
			Rows [][]string `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ingest.Result{
			ImportID:        uuid.New(),
			Source:          ingest.SourceRows,
			RowsReceived:    len(body.Rows) - 1,
			RecordsParsed:   len(body.Rows) - 1,
			RecordsInserted: int64(len(body.Rows) - 1),
		})
	}))
	return ts, &calls
}

func testClient(url string) *Client {
	c := NewClient(url+"/", "secret")
	c.backoff = time.Millisecond
	return c
}

func testUploader(t *testing.T, c *Client, dryRun, force bool) *Uploader {
	t.Helper()
	st, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return New(c, st, dryRun, force, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestSendRowsRetries verifies server errors are retried with the API key sent.
func TestSendRowsRetries(t *testing.T) {
	ts, calls := ingestServer(t, 2, http.StatusServiceUnavailable)
	defer ts.Close()

	result, err := testClient(ts.URL).SendRows(context.Background(), testRows)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if result.RecordsInserted != 2 {
		t.Errorf("RecordsInserted = %d, want 2", result.RecordsInserted)
	}
}

// TestSendRowsNoRetryOnClientError verifies a 401 fails immediately.
func TestSendRowsNoRetryOnClientError(t *testing.T) {
	ts, calls := ingestServer(t, 10, http.StatusUnauthorized)
	defer ts.Close()

	_, err := testClient(ts.URL).SendRows(context.Background(), testRows)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want 401", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

// TestSendRowsGivesUp verifies the attempt limit.
func TestSendRowsGivesUp(t *testing.T) {
	ts, calls := ingestServer(t, 10, http.StatusBadGateway)
	defer ts.Close()

	_, err := testClient(ts.URL).SendRows(context.Background(), testRows)
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v, want attempt limit", err)
	}
	if calls.Load() != maxAttempts {
		t.Errorf("calls = %d, want %d", calls.Load(), maxAttempts)
	}
}

// TestUploaderSkipsUnchanged verifies the second run of an unchanged source
// sends nothing, and a changed source is sent again.
func TestUploaderSkipsUnchanged(t *testing.T) {
	ts, calls := ingestServer(t, 0, 0)
	defer ts.Close()

	u := testUploader(t, testClient(ts.URL), false, false)
	src := &fakeSource{rows: testRows}
	ctx := context.Background()

	for range 2 {
		if err := u.Run(ctx, src); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls after unchanged rerun = %d, want 1", calls.Load())
	}

	src.rows = append(testRows, []string{"2024-01-05", "Bench Press", "5", "80kg"})
	if err := u.Run(ctx, src); err != nil {
		t.Fatal(err)
	}
	stats := u.Stats()
	if calls.Load() != 2 || stats.Uploaded != 2 || stats.Skipped != 1 {
		t.Errorf("calls=%d stats=%+v, want 2 uploads 1 skip", calls.Load(), stats)
	}
	if stats.RecordsInserted != 5 {
		t.Errorf("RecordsInserted = %d, want 5", stats.RecordsInserted)
	}
}

// TestUploaderForce verifies force ignores the state database.
func TestUploaderForce(t *testing.T) {
	ts, calls := ingestServer(t, 0, 0)
	defer ts.Close()

	u := testUploader(t, testClient(ts.URL), false, true)
	src := &fakeSource{rows: testRows}
	for range 2 {
		if err := u.Run(context.Background(), src); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

// TestUploaderDryRun verifies a dry run parses locally and sends nothing.
func TestUploaderDryRun(t *testing.T) {
	u := testUploader(t, NewClient("http://127.0.0.1:0", "secret"), true, false)
	if err := u.Run(context.Background(), &fakeSource{rows: testRows}); err != nil {
		t.Fatal(err)
	}
	stats := u.Stats()
	if stats.Uploaded != 0 || stats.RecordsParsed != 2 {
		t.Errorf("stats = %+v, want 0 uploads 2 parsed", stats)
	}
}

// TestUploaderSourceError verifies a failing source is counted and reported.
func TestUploaderSourceError(t *testing.T) {
	u := testUploader(t, NewClient("http://127.0.0.1:0", "secret"), false, false)
	err := u.Run(context.Background(), &fakeSource{err: errors.New("403 from sheets")})
	if err == nil {
		t.Fatal("expected error")
	}
	if u.Stats().Errored != 1 {
		t.Errorf("Errored = %d, want 1", u.Stats().Errored)
	}
}

// TestCSVSource verifies CSV files are read with ragged rows allowed.
func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifts.csv")
	data := "Date,Lift Type,Reps,Weight,Notes\n2024-01-01,Back Squat,5,100kg\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	src := CSVSource{Path: path}
	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || len(rows[1]) != 4 || rows[1][1] != "Back Squat" {
		t.Errorf("rows = %q", rows)
	}
	if !strings.HasPrefix(src.Name(), "csv:") {
		t.Errorf("Name = %q", src.Name())
	}
}

// TestSheetSourceDefaultRange verifies the default range is used and cells
// are stringified.
func TestSheetSourceDefaultRange(t *testing.T) {
	f := &fakeFetcher{values: [][]any{{"Date", "Reps"}, {"2024-01-01", float64(5)}}}
	src := SheetSource{Fetcher: f, SpreadsheetID: "abc"}
	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.gotRange != "A:Z" {
		t.Errorf("range = %q, want A:Z", f.gotRange)
	}
	if rows[1][1] != "5" {
		t.Errorf("cell = %q, want 5", rows[1][1])
	}
	if src.Name() != "sheet:abc!A:Z" {
		t.Errorf("Name = %q", src.Name())
	}
}

type fakeFetcher struct {
	values   [][]any
	gotRange string
}

func (f *fakeFetcher) FetchValues(_ context.Context, _, readRange string) ([][]any, error) {
	f.gotRange = readRange
	return f.values, nil
}
