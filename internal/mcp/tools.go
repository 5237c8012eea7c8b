package mcp

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/strengthjourneys/internal/analysis"
	"github.com/claude/strengthjourneys/internal/models"
)

// defaultRecordLimit bounds get_lift_records output when no limit is given.
const defaultRecordLimit = 200

// defaultTimeRange returns start/end defaulting to the last `days` days.
func defaultTimeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(models.DateLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

func splitLifts(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- Tool definitions ---

var toolGetLiftRecords = mcp.NewTool("get_lift_records",
	mcp.WithDescription("List logged sets in chronological order. Each set carries is_historical_pr: true when it was the heaviest ever for that lift and rep count at the time."),
	mcp.WithString("lift_type", mcp.Description("Only return this lift type (e.g. 'Back Squat', 'Deadlift')")),
	mcp.WithString("start", mcp.Description("First date to include (YYYY-MM-DD)")),
	mcp.WithString("end", mcp.Description("Last date to include (YYYY-MM-DD)")),
	mcp.WithBoolean("prs_only", mcp.Description("Only return sets that were personal records when lifted")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sets, most recent kept. Defaults to 200.")),
)

var toolGetTopLifts = mcp.NewTool("get_top_lifts",
	mcp.WithDescription("Heaviest sets per lift type and rep count (1-10 reps), best first. Ties keep the earliest set."),
	mcp.WithString("lifts", mcp.Description("Comma-separated lift types. Defaults to the user's saved selection or their most frequent lifts.")),
	mcp.WithString("window", mcp.Description("'all' for all-time, 'year' for the trailing 12 months. Defaults to 'all'."), mcp.Enum("all", "year")),
	mcp.WithNumber("cap", mcp.Description("Sets kept per rep count. Defaults to 5.")),
)

var toolGetConsistency = mcp.NewTool("get_consistency",
	mcp.WithDescription("Training consistency grades (A+ to C-) over lookback windows from one week to ten years, plus the current weekly streak."),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("All sets of one training day grouped by lift type, with personal records flagged."),
	mcp.WithString("date", mcp.Description("Session date (YYYY-MM-DD). Defaults to the most recent session.")),
)

var toolGetLiftFrequency = mcp.NewTool("get_lift_frequency",
	mcp.WithDescription("Every lift type with its number of logged sets and percentage share, most frequent first."),
)

var toolGetTonnageSummary = mcp.NewTool("get_tonnage_summary",
	mcp.WithDescription("Total volume (weight x reps) per week, month or year, with set and session counts. Newest period first."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to one year ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 month'."), mcp.Enum("1 week", "1 month", "1 year")),
	mcp.WithString("lift_type", mcp.Description("Only count this lift type")),
	mcp.WithString("unit", mcp.Description("Unit for tonnage. Defaults to kg."), mcp.Enum("kg", "lb")),
)

var toolGetE1RM = mcp.NewTool("get_e1rm",
	mcp.WithDescription("Estimated one-rep max. With reps and weight, estimates that single set; otherwise returns the best estimate per lift type from sets of 10 reps or fewer."),
	mcp.WithString("formula", mcp.Description("Estimation formula. Defaults to epley."), mcp.Enum(analysis.FormulaEpley, analysis.FormulaBrzycki)),
	mcp.WithNumber("reps", mcp.Description("Reps of a single set to estimate")),
	mcp.WithNumber("weight", mcp.Description("Weight of a single set to estimate")),
)

// --- Tool handlers ---

// records loads the user's sets in chronological order with historical PRs marked.
func (h *handlers) records(ctx context.Context) ([]models.LiftRecord, error) {
	records, err := h.ds.QueryLiftRecords(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date < records[j].Date })
	if err := analysis.MarkHistoricalPRs(records); err != nil {
		return nil, err
	}
	return records, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

func (h *handlers) getLiftRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	liftType := req.GetString("lift_type", "")
	start := req.GetString("start", "")
	end := req.GetString("end", "")
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return mcp.NewToolResultError("invalid date format, want YYYY-MM-DD: " + d), nil
		}
	}
	prsOnly := req.GetBool("prs_only", false)
	limit := req.GetInt("limit", defaultRecordLimit)
	if limit <= 0 {
		limit = defaultRecordLimit
	}

	records, err := h.records(ctx)
	if err != nil {
		h.log.Error("mcp get_lift_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := make([]models.LiftRecord, 0, len(records))
	for _, r := range records {
		switch {
		case liftType != "" && r.LiftType != liftType:
		case start != "" && r.Date < start:
		case end != "" && r.Date > end:
		case prsOnly && !r.IsHistoricalPR:
		default:
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return jsonResult(out), nil
}

func (h *handlers) getTopLifts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	window := req.GetString("window", "all")
	if window != "all" && window != "year" {
		return mcp.NewToolResultError("window must be 'all' or 'year'"), nil
	}
	limit := req.GetInt("cap", analysis.CardTopCap)

	records, err := h.records(ctx)
	if err != nil {
		h.log.Error("mcp get_top_lifts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	lifts := splitLifts(req.GetString("lifts", ""))
	if len(lifts) == 0 {
		lifts, err = h.ds.GetSelectedLifts(ctx, UserIDFromContext(ctx))
		if err != nil {
			h.log.Warn("mcp get_top_lifts: selected lifts", "error", err)
		}
	}
	if len(lifts) == 0 {
		lifts = analysis.DefaultSelectedLifts(analysis.LiftTypeFrequencies(records), 0)
	}

	if window == "year" {
		records = analysis.TrailingYear(records, h.now())
	}
	return jsonResult(map[string]any{
		"window": window,
		"lifts":  lifts,
		"top":    analysis.BuildTopLifts(records, lifts, limit),
	}), nil
}

func (h *handlers) getConsistency(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.records(ctx)
	if err != nil {
		h.log.Error("mcp get_consistency", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	now := h.now()
	return jsonResult(map[string]any{
		"consistency":   analysis.Consistency(records, now),
		"weekly_streak": analysis.WeeklyStreak(records, now),
	}), nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := req.GetString("date", "")
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return mcp.NewToolResultError("invalid date format, want YYYY-MM-DD"), nil
		}
	}

	records, err := h.records(ctx)
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(analysis.GroupSession(records, date)), nil
}

func (h *handlers) getLiftFrequency(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	freqs, err := h.ds.QueryLiftTypeFrequencies(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_lift_frequency", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"frequencies": freqs,
		"shares":      analysis.LiftShares(freqs),
	}), nil
}

func (h *handlers) getTonnageSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 365)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	unit := models.Unit(req.GetString("unit", string(models.UnitKg)))
	if unit != models.UnitKg && unit != models.UnitLb {
		return mcp.NewToolResultError("unit must be kg or lb"), nil
	}
	bucket := req.GetString("bucket", "1 month")

	uid := UserIDFromContext(ctx)
	periods, err := h.ds.GetTonnageSummary(ctx, uid, start, end, bucket, req.GetString("lift_type", ""), unit)
	if err != nil {
		h.log.Error("mcp get_tonnage_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(periods), nil
}

func (h *handlers) getE1RM(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	formula := req.GetString("formula", analysis.FormulaEpley)

	reps := req.GetInt("reps", 0)
	weight := req.GetFloat("weight", 0)
	if reps > 0 || weight > 0 {
		e1rm, err := analysis.EstimateE1RM(reps, weight, formula)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"reps":    reps,
			"weight":  weight,
			"formula": formula,
			"e1rm":    e1rm,
		}), nil
	}

	records, err := h.records(ctx)
	if err != nil {
		h.log.Error("mcp get_e1rm", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	best, err := analysis.BestE1RMs(records, formula)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(best), nil
}
