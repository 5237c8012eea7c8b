package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/claude/strengthjourneys/internal/models"
)

// liftRecordColumns is the number of bound parameters per inserted row.
const liftRecordColumns = 12

// insertBatchSize keeps a single INSERT under PostgreSQL's 65535 parameter limit.
const insertBatchSize = 1000

// ReplaceLiftRecords swaps a user's stored records for rows in one
// transaction. A sheet is the source of truth, so every import is a full
// replacement. Returns the number of rows inserted.
func (db *DB) ReplaceLiftRecords(ctx context.Context, userID int, rows []models.LiftRecordRow) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM lift_records WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("deleting lift records: %w", err)
	}

	var inserted int64
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		n, err := insertLiftRecords(ctx, tx, userID, rows[start:end])
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing lift records: %w", err)
	}
	return inserted, nil
}

func insertLiftRecords(ctx context.Context, tx pgx.Tx, userID int, rows []models.LiftRecordRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO lift_records (user_id, import_id, row_index, date, kind,
		lift_type, reps, weight, unit, url, notes, extra) VALUES `
	args := make([]any, 0, len(rows)*liftRecordColumns)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		valueStrings = append(valueStrings, placeholders(i*liftRecordColumns, liftRecordColumns))
		var extra any
		if len(r.Extra) > 0 {
			extra = r.Extra
		}
		args = append(args, userID, r.ImportID, r.RowIndex, r.Date, string(r.Kind),
			r.LiftType, r.Reps, r.Weight, string(r.Unit), r.URL, r.Notes, extra)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT (user_id, row_index) DO NOTHING"

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting lift records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// placeholders renders "($base+1,...,$base+n)".
func placeholders(base, n int) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", base+i)
	}
	b.WriteByte(')')
	return b.String()
}

// QueryLiftRecords returns all of a user's records in chronological order,
// same-date records in the order they were imported.
func (db *DB) QueryLiftRecords(ctx context.Context, userID int) ([]models.LiftRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, import_id, row_index, date, kind, lift_type, reps, weight,
		 unit, url, notes, COALESCE(extra, '{}'::jsonb)
		 FROM lift_records
		 WHERE user_id = $1
		 ORDER BY date ASC, row_index ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying lift records: %w", err)
	}
	defer rows.Close()

	var result []models.LiftRecord
	for rows.Next() {
		var r models.LiftRecordRow
		var kind, unit string
		if err := rows.Scan(&r.UserID, &r.ImportID, &r.RowIndex, &r.Date, &kind,
			&r.LiftType, &r.Reps, &r.Weight, &unit, &r.URL, &r.Notes, &r.Extra); err != nil {
			return nil, fmt.Errorf("scanning lift record: %w", err)
		}
		r.Kind = models.RecordKind(kind)
		r.Unit = models.Unit(unit)
		result = append(result, r.Record())
	}
	return result, rows.Err()
}

// QueryLiftTypeFrequencies counts a user's records per lift type, most frequent first.
func (db *DB) QueryLiftTypeFrequencies(ctx context.Context, userID int) ([]models.LiftTypeFrequency, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT lift_type, COUNT(*)::int
		 FROM lift_records
		 WHERE user_id = $1
		 GROUP BY lift_type
		 ORDER BY COUNT(*) DESC, lift_type ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying lift type frequencies: %w", err)
	}
	defer rows.Close()

	var result []models.LiftTypeFrequency
	for rows.Next() {
		var f models.LiftTypeFrequency
		if err := rows.Scan(&f.LiftType, &f.Frequency); err != nil {
			return nil, fmt.Errorf("scanning lift type frequency: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
