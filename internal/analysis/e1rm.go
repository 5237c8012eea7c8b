package analysis

import (
	"fmt"
	"sort"

	"github.com/claude/strengthjourneys/internal/models"
)

// E1RM formula names.
const (
	FormulaEpley   = "epley"
	FormulaBrzycki = "brzycki"
)

// EstimateE1RM estimates a one-rep max from a set of reps at weight.
// A single rep is returned unchanged.
func EstimateE1RM(reps int, weight float64, formula string) (float64, error) {
	if reps < 1 {
		return 0, fmt.Errorf("reps must be positive, got %d", reps)
	}
	if reps == 1 {
		return weight, nil
	}
	switch formula {
	case "", FormulaEpley:
		return weight * (1 + float64(reps)/30), nil
	case FormulaBrzycki:
		if reps >= 37 {
			return 0, fmt.Errorf("brzycki is undefined for %d reps", reps)
		}
		return weight * 36 / float64(37-reps), nil
	default:
		return 0, fmt.Errorf("unknown e1rm formula %q", formula)
	}
}

// E1RMEstimate is the best estimated one-rep max for a lift type.
type E1RMEstimate struct {
	LiftType string            `json:"lift_type"`
	E1RM     float64           `json:"e1rm"`
	Unit     models.Unit       `json:"unit"`
	Formula  string            `json:"formula"`
	Source   models.LiftRecord `json:"source"`
}

// BestE1RMs returns the highest estimate per lift type among sets of at most
// models.MaxTopReps reps, sorted by lift type. Goals are ignored. Sets are
// compared in kg; each estimate is reported in the unit of its source set.
func BestE1RMs(records []models.LiftRecord, formula string) ([]E1RMEstimate, error) {
	if formula == "" {
		formula = FormulaEpley
	}
	best := make(map[string]E1RMEstimate)
	bestKg := make(map[string]float64)
	for _, r := range records {
		if r.IsGoal() || r.Reps > models.MaxTopReps {
			continue
		}
		v, err := EstimateE1RM(r.Reps, r.Weight, formula)
		if err != nil {
			return nil, err
		}
		kg := r.Unit.Convert(v, models.UnitKg)
		if cur, ok := bestKg[r.LiftType]; ok && cur >= kg {
			continue
		}
		bestKg[r.LiftType] = kg
		best[r.LiftType] = E1RMEstimate{LiftType: r.LiftType, E1RM: v, Unit: r.Unit, Formula: formula, Source: r}
	}

	out := make([]E1RMEstimate, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LiftType < out[j].LiftType })
	return out, nil
}
