package analysis

import (
	"sort"
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

const (
	// DefaultTopCap is the ranked list length used for full PR tables.
	DefaultTopCap = 20
	// CardTopCap is the shorter list length used for summary cards.
	CardTopCap = 5
)

// BuildTopLifts ranks, for each requested lift type and each rep count from 1
// to MaxTopReps, the heaviest logged sets with full hindsight. Ties on weight go
// to the earlier date. Each list holds at most limit entries (DefaultTopCap when
// limit <= 0). The table points into records; it does not copy them.
func BuildTopLifts(records []models.LiftRecord, liftTypes []string, limit int) models.TopLiftsTable {
	if limit <= 0 {
		limit = DefaultTopCap
	}

	wanted := make(map[string]bool, len(liftTypes))
	table := make(models.TopLiftsTable, len(liftTypes))
	for _, lt := range liftTypes {
		wanted[lt] = true
		table[lt] = make([][]*models.LiftRecord, models.MaxTopReps)
		for i := range table[lt] {
			table[lt][i] = []*models.LiftRecord{}
		}
	}

	for i := range records {
		r := &records[i]
		if r.IsGoal() || !wanted[r.LiftType] || r.Reps < 1 || r.Reps > models.MaxTopReps {
			continue
		}
		table[r.LiftType][r.Reps-1] = append(table[r.LiftType][r.Reps-1], r)
	}

	for _, buckets := range table {
		for reps, bucket := range buckets {
			sort.SliceStable(bucket, func(i, j int) bool {
				if bucket[i].Weight != bucket[j].Weight {
					return bucket[i].Weight > bucket[j].Weight
				}
				return bucket[i].Date < bucket[j].Date
			})
			if len(bucket) > limit {
				buckets[reps] = bucket[:limit]
			}
		}
	}
	return table
}

// TrailingYear returns the records dated within the 365 days before now.
// The result shares no backing array with records.
func TrailingYear(records []models.LiftRecord, now time.Time) []models.LiftRecord {
	return Since(records, now.AddDate(0, 0, -365))
}

// Since returns the records dated on or after start.
func Since(records []models.LiftRecord, start time.Time) []models.LiftRecord {
	from := start.Format(models.DateLayout)
	var out []models.LiftRecord
	for _, r := range records {
		if r.Date >= from {
			out = append(out, r)
		}
	}
	return out
}
