package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportLog represents a single import operation's outcome.
type ImportLog struct {
	ID              int64            `json:"id"`
	UserID          int              `json:"user_id"`
	CreatedAt       time.Time        `json:"created_at"`
	ImportID        *uuid.UUID       `json:"import_id,omitempty"`
	Source          string           `json:"source"`
	Status          string           `json:"status"`
	RowsReceived    int              `json:"rows_received"`
	RecordsParsed   int              `json:"records_parsed"`
	RowsDropped     int              `json:"rows_dropped"`
	RecordsInserted int64            `json:"records_inserted"`
	DurationMs      *int             `json:"duration_ms"`
	ErrorMessage    *string          `json:"error_message"`
	Metadata        *json.RawMessage `json:"metadata"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (user_id, import_id, source, status, rows_received,
		 records_parsed, rows_dropped, records_inserted, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id`,
		log.UserID, log.ImportID, log.Source, log.Status, log.RowsReceived,
		log.RecordsParsed, log.RowsDropped, log.RecordsInserted,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// UpdateImportLog updates an existing import log entry (typically from "running" to "success" or "error").
func (db *DB) UpdateImportLog(ctx context.Context, id int64, log ImportLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE import_logs SET
		 import_id = COALESCE($2, import_id), status = $3, rows_received = $4,
		 records_parsed = $5, rows_dropped = $6, records_inserted = $7,
		 duration_ms = $8, error_message = $9, metadata = COALESCE($10, metadata)
		 WHERE id = $1`,
		id, log.ImportID, log.Status, log.RowsReceived,
		log.RecordsParsed, log.RowsDropped, log.RecordsInserted,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import logs for a user.
func (db *DB) QueryImportLogs(ctx context.Context, userID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, created_at, import_id, source, status, rows_received,
		 records_parsed, rows_dropped, records_inserted, duration_ms, error_message, metadata
		 FROM import_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.ImportID, &l.Source, &l.Status,
			&l.RowsReceived, &l.RecordsParsed, &l.RowsDropped, &l.RecordsInserted,
			&l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
