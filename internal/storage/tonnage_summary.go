package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

// lbPerKg matches the conversion factor used by models.Unit.
const lbPerKg = 2.2046226218

// GetTonnageSummary returns working volume per period for logged sets in
// [start, end), with every set converted to unit. liftType filters to one
// lift when non-empty. Periods are returned newest first.
func (db *DB) GetTonnageSummary(ctx context.Context, userID int, start, end time.Time, bucket, liftType string, unit models.Unit) ([]models.TonnagePeriod, error) {
	if unit != models.UnitLb {
		unit = models.UnitKg
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, date)::date AS period,
		        COUNT(*)::int AS sets,
		        COALESCE(SUM(reps), 0)::int AS total_reps,
		        COALESCE(SUM(weight * reps * CASE
		            WHEN unit = $6 THEN 1
		            WHEN unit = 'lb' THEN 1 / $7::float8
		            ELSE $7::float8 END), 0) AS tonnage,
		        COUNT(DISTINCT date)::int AS sessions
		 FROM lift_records
		 WHERE user_id = $2 AND kind = 'logged'
		   AND date >= $3 AND date < $4
		   AND ($5 = '' OR lift_type = $5)
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), userID, start, end, liftType, string(unit), lbPerKg)
	if err != nil {
		return nil, fmt.Errorf("querying tonnage summary: %w", err)
	}
	defer rows.Close()

	var result []models.TonnagePeriod
	for rows.Next() {
		var periodTime time.Time
		p := models.TonnagePeriod{Unit: unit}
		if err := rows.Scan(&periodTime, &p.Sets, &p.Reps, &p.Tonnage, &p.Sessions); err != nil {
			return nil, fmt.Errorf("scanning tonnage summary: %w", err)
		}
		if p.Sessions > 0 {
			p.AvgSetsPerSession = float64(p.Sets) / float64(p.Sessions)
		}
		p.Period = periodTime.Format(models.DateLayout)
		result = append(result, p)
	}
	return result, rows.Err()
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 week", "week":
		return "week"
	case "1 year", "year":
		return "year"
	default:
		return "month"
	}
}
