package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's stored records.
type DataStats struct {
	TotalRecords int64          `json:"total_records"`
	TotalGoals   int64          `json:"total_goals"`
	Sessions     int64          `json:"sessions"`
	EarliestData *time.Time     `json:"earliest_data"`
	LatestData   *time.Time     `json:"latest_data"`
	LiftsByType  []LiftTypeStat `json:"lifts_by_type"`
}

// LiftTypeStat holds summary stats for a single lift type.
type LiftTypeStat struct {
	Name      string    `json:"name"`
	Sets      int64     `json:"sets"`
	TotalReps int64     `json:"total_reps"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
}

// GetDataStats returns aggregate statistics for a user's stored records.
// Goals are counted separately and excluded from the per-lift stats.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE kind = 'logged'),
		        COUNT(*) FILTER (WHERE kind = 'goal'),
		        COUNT(DISTINCT date) FILTER (WHERE kind = 'logged'),
		        MIN(date) FILTER (WHERE kind = 'logged'),
		        MAX(date) FILTER (WHERE kind = 'logged')
		 FROM lift_records WHERE user_id = $1`, userID,
	).Scan(&stats.TotalRecords, &stats.TotalGoals, &stats.Sessions, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting lift records: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT lift_type, COUNT(*), COALESCE(SUM(reps), 0), MIN(date), MAX(date)
		 FROM lift_records
		 WHERE user_id = $1 AND kind = 'logged'
		 GROUP BY lift_type
		 ORDER BY COUNT(*) DESC, lift_type ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying lifts by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s LiftTypeStat
		if err := rows.Scan(&s.Name, &s.Sets, &s.TotalReps, &s.FirstDate, &s.LastDate); err != nil {
			return nil, fmt.Errorf("scanning lift type stat: %w", err)
		}
		stats.LiftsByType = append(stats.LiftsByType, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
