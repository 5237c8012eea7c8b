package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetSelectedLifts returns the lift types a user picked for the dashboard.
// A user who never saved a selection gets nil.
func (db *DB) GetSelectedLifts(ctx context.Context, userID int) ([]string, error) {
	var lifts []string
	err := db.Pool.QueryRow(ctx,
		`SELECT selected_lifts FROM lift_preferences WHERE user_id = $1`, userID,
	).Scan(&lifts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying selected lifts: %w", err)
	}
	return lifts, nil
}

// SetSelectedLifts stores a user's dashboard lift selection.
func (db *DB) SetSelectedLifts(ctx context.Context, userID int, lifts []string) error {
	if lifts == nil {
		lifts = []string{}
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO lift_preferences (user_id, selected_lifts)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 	SET selected_lifts = EXCLUDED.selected_lifts, updated_at = NOW()`,
		userID, lifts)
	if err != nil {
		return fmt.Errorf("saving selected lifts: %w", err)
	}
	return nil
}
