package analysis

import (
	"sort"

	"github.com/claude/strengthjourneys/internal/models"
)

// DefaultSelectedCount is how many lift types are selected on first use.
const DefaultSelectedCount = 4

// LiftTypeFrequencies counts records per lift type, most frequent first.
// Ties are ordered by name so the result is stable across calls.
func LiftTypeFrequencies(records []models.LiftRecord) []models.LiftTypeFrequency {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.LiftType]++
	}

	freqs := make([]models.LiftTypeFrequency, 0, len(counts))
	for lt, n := range counts {
		freqs = append(freqs, models.LiftTypeFrequency{LiftType: lt, Frequency: n})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Frequency != freqs[j].Frequency {
			return freqs[i].Frequency > freqs[j].Frequency
		}
		return freqs[i].LiftType < freqs[j].LiftType
	})
	return freqs
}

// DefaultSelectedLifts returns the n most frequent lift types.
func DefaultSelectedLifts(freqs []models.LiftTypeFrequency, n int) []string {
	if n <= 0 {
		n = DefaultSelectedCount
	}
	if n > len(freqs) {
		n = len(freqs)
	}
	selected := make([]string, n)
	for i := range selected {
		selected[i] = freqs[i].LiftType
	}
	return selected
}

// LiftShare is a lift type's share of all records, for proportion charts.
type LiftShare struct {
	LiftType   string  `json:"lift_type"`
	Percentage float64 `json:"percentage"`
}

// LiftShares converts frequencies into percentages of the total.
func LiftShares(freqs []models.LiftTypeFrequency) []LiftShare {
	total := 0
	for _, f := range freqs {
		total += f.Frequency
	}
	if total == 0 {
		return nil
	}
	shares := make([]LiftShare, len(freqs))
	for i, f := range freqs {
		shares[i] = LiftShare{LiftType: f.LiftType, Percentage: float64(f.Frequency) / float64(total) * 100}
	}
	return shares
}
