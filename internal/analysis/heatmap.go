package analysis

import (
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

// HeatmapBucket marks activity on one calendar day.
type HeatmapBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Heatmap returns one bucket per day with a logged session in the months
// before now, optionally restricted to one lift type. When the first active day
// falls after the window start, a zero-count bucket for the start date is
// prepended so calendar views have a fixed left edge.
func Heatmap(records []models.LiftRecord, now time.Time, months int, liftType string) []HeatmapBucket {
	start := now.AddDate(0, -months, 0).Format(models.DateLayout)
	today := now.Format(models.DateLayout)

	var buckets []HeatmapBucket
	for _, r := range records {
		if r.IsGoal() || r.Date < start || r.Date > today {
			continue
		}
		if liftType != "" && r.LiftType != liftType {
			continue
		}
		// Only the first activity of each day counts.
		if n := len(buckets); n > 0 && buckets[n-1].Date == r.Date {
			continue
		}
		buckets = append(buckets, HeatmapBucket{Date: r.Date, Count: 1})
	}

	if len(buckets) > 0 && buckets[0].Date > start {
		buckets = append([]HeatmapBucket{{Date: start, Count: 0}}, buckets...)
	}
	return buckets
}
