package analysis

import (
	"errors"

	"github.com/claude/strengthjourneys/internal/models"
)

// ErrNotChronological is returned when records are not sorted ascending by date.
var ErrNotChronological = errors.New("lift records are not in chronological order")

// liftKey identifies a (lift type, reps) combination.
type liftKey struct {
	liftType string
	reps     int
}

// IsChronological reports whether records are sorted ascending by date.
func IsChronological(records []models.LiftRecord) bool {
	for i := 1; i < len(records); i++ {
		if records[i-1].Date > records[i].Date {
			return false
		}
	}
	return true
}

// MarkHistoricalPRs sets IsHistoricalPR on every record: true when the set was
// heavier than anything lifted before it for the same lift type and reps.
// Equal weight is not a PR. Goals are never PRs and do not move the bar.
//
// records must be in chronological order; otherwise ErrNotChronological is
// returned and nothing is modified.
func MarkHistoricalPRs(records []models.LiftRecord) error {
	if !IsChronological(records) {
		return ErrNotChronological
	}

	best := make(map[liftKey]float64)
	for i := range records {
		r := &records[i]
		r.IsHistoricalPR = false
		if r.IsGoal() {
			continue
		}
		k := liftKey{r.LiftType, r.Reps}
		prev, seen := best[k]
		if !seen || r.Weight > prev {
			r.IsHistoricalPR = true
			best[k] = r.Weight
		}
	}
	return nil
}
