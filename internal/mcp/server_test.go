package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/strengthjourneys/internal/models"
)

// fakeSource is an in-memory DataSource.
type fakeSource struct {
	records  []models.LiftRecord
	selected []string
	periods  []models.TonnagePeriod
	err      error

	gotBucket string
	gotUnit   models.Unit
}

func (f *fakeSource) QueryLiftRecords(_ context.Context, _ int) ([]models.LiftRecord, error) {
	out := make([]models.LiftRecord, len(f.records))
	copy(out, f.records)
	return out, f.err
}

func (f *fakeSource) QueryLiftTypeFrequencies(_ context.Context, _ int) ([]models.LiftTypeFrequency, error) {
	counts := map[string]int{}
	var order []string
	for _, r := range f.records {
		if counts[r.LiftType] == 0 {
			order = append(order, r.LiftType)
		}
		counts[r.LiftType]++
	}
	freqs := make([]models.LiftTypeFrequency, len(order))
	for i, lt := range order {
		freqs[i] = models.LiftTypeFrequency{LiftType: lt, Frequency: counts[lt]}
	}
	return freqs, f.err
}

func (f *fakeSource) GetTonnageSummary(_ context.Context, _ int, _, _ time.Time, bucket, _ string, unit models.Unit) ([]models.TonnagePeriod, error) {
	f.gotBucket = bucket
	f.gotUnit = unit
	return f.periods, f.err
}

func (f *fakeSource) GetSelectedLifts(_ context.Context, _ int) ([]string, error) {
	return f.selected, nil
}

func set(date, lift string, reps int, weight float64) models.LiftRecord {
	return models.LiftRecord{Kind: models.KindLogged, Date: date, LiftType: lift, Reps: reps, Weight: weight, Unit: models.UnitKg}
}

// liftLog is out of order on purpose; handlers must sort before marking PRs.
func liftLog() []models.LiftRecord {
	return []models.LiftRecord{
		set("2024-01-08", "Back Squat", 5, 110),
		set("2024-01-01", "Back Squat", 5, 100),
		set("2024-01-01", "Deadlift", 5, 140),
		set("2024-01-04", "Back Squat", 5, 95),
		set("2024-01-08", "Deadlift", 3, 160),
	}
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{
		ds:  ds,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) },
	}
}

func callTool(t *testing.T, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("tool returned Go error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("tool returned no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return text.Text, res.IsError
}

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestDefaultTimeRange verifies the default lookback and explicit parsing.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := end.Sub(start); diff.Hours() < 167 || diff.Hours() > 169 {
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Format(models.DateLayout) != "2024-01-01" || end.Format(models.DateLayout) != "2024-01-31" {
		t.Errorf("range = %v..%v, want 2024-01-01..2024-01-31", start, end)
	}

	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	if _, _, err = defaultTimeRange("not-a-date", "", 7); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestSplitLifts verifies comma-separated lift lists are trimmed and empties dropped.
func TestSplitLifts(t *testing.T) {
	got := splitLifts(" Back Squat, ,Deadlift ")
	if len(got) != 2 || got[0] != "Back Squat" || got[1] != "Deadlift" {
		t.Errorf("splitLifts = %q", got)
	}
	if got := splitLifts(""); got != nil {
		t.Errorf("splitLifts(\"\") = %q, want nil", got)
	}
}

// TestGetLiftRecordsPRsOnly verifies records come back sorted with PRs
// marked against the full history.
func TestGetLiftRecordsPRsOnly(t *testing.T) {
	h := newHandlers(&fakeSource{records: liftLog()})
	text, isErr := callTool(t, h.getLiftRecords, map[string]any{"lift_type": "Back Squat", "prs_only": true})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var got []models.LiftRecord
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %s", len(got), text)
	}
	if got[0].Date != "2024-01-01" || got[1].Date != "2024-01-08" {
		t.Errorf("dates = %s, %s; want 2024-01-01, 2024-01-08", got[0].Date, got[1].Date)
	}
}

// TestGetLiftRecordsDateFilter verifies start/end bounds and the limit.
func TestGetLiftRecordsDateFilter(t *testing.T) {
	h := newHandlers(&fakeSource{records: liftLog()})
	text, _ := callTool(t, h.getLiftRecords, map[string]any{"start": "2024-01-02", "limit": 1})
	var got []models.LiftRecord
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].LiftType != "Deadlift" || got[0].Date != "2024-01-08" {
		t.Errorf("got %+v, want the 2024-01-08 deadlift", got)
	}

	if text, isErr := callTool(t, h.getLiftRecords, map[string]any{"start": "Jan 2"}); !isErr {
		t.Errorf("expected error for bad date, got %s", text)
	}
}

// TestGetLiftRecordsQueryError verifies a data source failure becomes a tool error.
func TestGetLiftRecordsQueryError(t *testing.T) {
	h := newHandlers(&fakeSource{err: errors.New("connection refused")})
	text, isErr := callTool(t, h.getLiftRecords, nil)
	if !isErr || !strings.Contains(text, "connection refused") {
		t.Errorf("result = %q (isError=%v), want query failure", text, isErr)
	}
}

// TestGetTopLiftsUsesSavedSelection verifies the saved selection is used when
// no lifts are given.
func TestGetTopLiftsUsesSavedSelection(t *testing.T) {
	h := newHandlers(&fakeSource{records: liftLog(), selected: []string{"Deadlift"}})
	text, isErr := callTool(t, h.getTopLifts, nil)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var got struct {
		Lifts []string                          `json:"lifts"`
		Top   map[string][][]models.LiftRecord `json:"top"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Lifts) != 1 || got.Lifts[0] != "Deadlift" {
		t.Errorf("lifts = %v, want [Deadlift]", got.Lifts)
	}
	if _, ok := got.Top["Back Squat"]; ok {
		t.Error("top lifts include unselected Back Squat")
	}
	if dl := got.Top["Deadlift"]; len(dl) < 5 || len(dl[2]) != 1 || dl[2][0].Weight != 160 {
		t.Errorf("deadlift triples = %+v, want one 160 set", dl)
	}
}

// TestGetTopLiftsBadWindow verifies an unknown window is rejected.
func TestGetTopLiftsBadWindow(t *testing.T) {
	h := newHandlers(&fakeSource{records: liftLog()})
	if text, isErr := callTool(t, h.getTopLifts, map[string]any{"window": "month"}); !isErr {
		t.Errorf("expected error, got %s", text)
	}
}

// TestGetSessionLatest verifies the default session is the latest date.
func TestGetSessionLatest(t *testing.T) {
	h := newHandlers(&fakeSource{records: liftLog()})
	text, isErr := callTool(t, h.getSession, nil)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if !strings.Contains(text, `"date":"2024-01-08"`) {
		t.Errorf("session = %s, want 2024-01-08", text)
	}
}

// TestGetTonnageSummaryDefaults verifies bucket and unit defaults reach the
// data source and a bad unit is rejected.
func TestGetTonnageSummaryDefaults(t *testing.T) {
	src := &fakeSource{periods: []models.TonnagePeriod{{Period: "2024-01-01", Tonnage: 1500, Unit: models.UnitKg}}}
	h := newHandlers(src)
	text, isErr := callTool(t, h.getTonnageSummary, nil)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if src.gotBucket != "1 month" || src.gotUnit != models.UnitKg {
		t.Errorf("bucket=%q unit=%q, want '1 month' kg", src.gotBucket, src.gotUnit)
	}

	if text, isErr := callTool(t, h.getTonnageSummary, map[string]any{"unit": "stone"}); !isErr {
		t.Errorf("expected error for unit, got %s", text)
	}
}

// TestGetE1RMSingleSet verifies the one-off estimate path.
func TestGetE1RMSingleSet(t *testing.T) {
	h := newHandlers(&fakeSource{})
	text, isErr := callTool(t, h.getE1RM, map[string]any{"reps": 5, "weight": 100})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var got struct {
		E1RM float64 `json:"e1rm"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if want := 100 * (1 + 5.0/30); got.E1RM < want-0.001 || got.E1RM > want+0.001 {
		t.Errorf("e1rm = %v, want %v", got.E1RM, want)
	}

	if _, isErr := callTool(t, h.getE1RM, map[string]any{"reps": 5, "weight": 100, "formula": "lander"}); !isErr {
		t.Error("expected error for unknown formula")
	}
}

// TestGetE1RMBest verifies per-lift best estimates from the log.
func TestGetE1RMBest(t *testing.T) {
	h := newHandlers(&fakeSource{records: liftLog()})
	text, _ := callTool(t, h.getE1RM, map[string]any{"formula": "brzycki"})
	var got []struct {
		LiftType string `json:"lift_type"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].LiftType != "Back Squat" || got[1].LiftType != "Deadlift" {
		t.Errorf("estimates = %+v, want Back Squat and Deadlift", got)
	}
}

// TestLiftCatalogResource verifies the catalog merges counts and shares.
func TestLiftCatalogResource(t *testing.T) {
	h := newHandlers(&fakeSource{records: liftLog()})
	var req mcp.ReadResourceRequest
	req.Params.URI = resLiftCatalog.URI
	contents, err := h.liftCatalog(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `{"lift_type":"Back Squat","sets":3,"percentage":60}`) {
		t.Errorf("catalog = %s", text)
	}
}
