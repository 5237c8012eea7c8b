package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

// Options tunes Analyze. Zero values fall back to the package defaults.
type Options struct {
	Now           time.Time
	SelectedLifts []string
	TopCap        int
	CardCap       int
	SelectedCount int
	HeatmapMonths int
}

// Insights is everything the dashboard renders from one set of records.
type Insights struct {
	Records       []models.LiftRecord        `json:"-"`
	RecordCount   int                        `json:"record_count"`
	FirstDate     string                     `json:"first_date,omitempty"`
	LastDate      string                     `json:"last_date,omitempty"`
	Frequencies   []models.LiftTypeFrequency `json:"frequencies"`
	SelectedLifts []string                   `json:"selected_lifts"`
	TopLifts      models.TopLiftsTable       `json:"top_lifts"`
	TopLiftsYear  models.TopLiftsTable       `json:"top_lifts_year"`
	Consistency   []ConsistencyScore         `json:"consistency"`
	WeeklyStreak  int                        `json:"weekly_streak"`
	Heatmap       []HeatmapBucket            `json:"heatmap"`
	LatestSession Session                    `json:"latest_session"`
}

// Analyze copies records into chronological order, marks historical PRs on the
// copy and derives every dashboard statistic from it. The input is not modified.
func Analyze(records []models.LiftRecord, opts Options) (Insights, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.CardCap <= 0 {
		opts.CardCap = CardTopCap
	}
	if opts.HeatmapMonths <= 0 {
		opts.HeatmapMonths = 24
	}

	sorted := make([]models.LiftRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
	if err := MarkHistoricalPRs(sorted); err != nil {
		return Insights{}, fmt.Errorf("marking historical PRs: %w", err)
	}

	freqs := LiftTypeFrequencies(sorted)
	selected := opts.SelectedLifts
	if len(selected) == 0 {
		selected = DefaultSelectedLifts(freqs, opts.SelectedCount)
	}

	in := Insights{
		Records:       sorted,
		RecordCount:   len(sorted),
		Frequencies:   freqs,
		SelectedLifts: selected,
		TopLifts:      BuildTopLifts(sorted, selected, opts.TopCap),
		TopLiftsYear:  BuildTopLifts(TrailingYear(sorted, opts.Now), selected, opts.CardCap),
		Consistency:   Consistency(sorted, opts.Now),
		WeeklyStreak:  WeeklyStreak(sorted, opts.Now),
		Heatmap:       Heatmap(sorted, opts.Now, opts.HeatmapMonths, ""),
		LatestSession: GroupSession(sorted, ""),
	}
	if n := len(sorted); n > 0 {
		in.FirstDate = sorted[0].Date
		in.LastDate = sorted[n-1].Date
	}
	return in, nil
}
