package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// StateDB remembers the last successfully synced snapshot of each source so
// an unchanged sheet is not sent again.
type StateDB struct {
	db *sql.DB
}

// SyncRecord is the stored state of one source.
type SyncRecord struct {
	Source   string
	Rows     int
	Hash     string
	SyncedAt time.Time
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS synced_sources (
		source    TEXT PRIMARY KEY,
		rows      INTEGER NOT NULL,
		hash      TEXT NOT NULL,
		synced_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsSynced reports whether source was last synced with exactly this hash.
func (s *StateDB) IsSynced(source, hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM synced_sources WHERE source = ? AND hash = ?`,
		source, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkSynced records a successful sync of source.
func (s *StateDB) MarkSynced(source string, rows int, hash string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO synced_sources (source, rows, hash, synced_at) VALUES (?, ?, ?, ?)`,
		source, rows, hash, time.Now().UTC(),
	)
	return err
}

// Last returns the stored state of source, or nil if it was never synced.
func (s *StateDB) Last(source string) (*SyncRecord, error) {
	rec := SyncRecord{Source: source}
	err := s.db.QueryRow(
		`SELECT rows, hash, synced_at FROM synced_sources WHERE source = ?`, source,
	).Scan(&rec.Rows, &rec.Hash, &rec.SyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync state for %s: %w", source, err)
	}
	return &rec, nil
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashRows computes a SHA-256 over the cell values. Cells and rows are
// length-prefixed so ["ab","c"] and ["a","bc"] hash differently.
func HashRows(rows [][]string) string {
	h := sha256.New()
	for _, row := range rows {
		fmt.Fprintf(h, "%d\n", len(row))
		for _, c := range row {
			fmt.Fprintf(h, "%d:%s", len(c), c)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
