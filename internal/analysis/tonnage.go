package analysis

import "github.com/claude/strengthjourneys/internal/models"

// TonnagePoint is the total load moved for one lift type in one session.
type TonnagePoint struct {
	Date    string      `json:"date"`
	Tonnage float64     `json:"tonnage"`
	Sets    int         `json:"sets"`
	Unit    models.Unit `json:"unit"`
}

// SessionTonnage sums weight x reps per session for liftType, converting every
// set to unit. An empty liftType includes every lift.
func SessionTonnage(records []models.LiftRecord, liftType string, unit models.Unit) []TonnagePoint {
	if unit == "" {
		unit = models.UnitKg
	}
	var points []TonnagePoint
	for _, r := range records {
		if r.IsGoal() || (liftType != "" && r.LiftType != liftType) {
			continue
		}
		n := len(points)
		if n == 0 || points[n-1].Date != r.Date {
			points = append(points, TonnagePoint{Date: r.Date, Unit: unit})
			n++
		}
		points[n-1].Tonnage += r.WeightIn(unit) * float64(r.Reps)
		points[n-1].Sets++
	}
	return points
}
