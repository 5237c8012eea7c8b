package upload

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/strengthjourneys/internal/ingest/gsheet"
)

// Source yields the raw rows of a lifting sheet, header first.
type Source interface {
	// Name identifies the source in the state database.
	Name() string
	Rows(ctx context.Context) ([][]string, error)
}

// SheetSource reads a Google Sheet through the Sheets API.
type SheetSource struct {
	Fetcher       gsheet.Fetcher
	SpreadsheetID string
	Range         string
}

func (s SheetSource) Name() string {
	return "sheet:" + s.SpreadsheetID + "!" + s.readRange()
}

func (s SheetSource) readRange() string {
	if s.Range == "" {
		return gsheet.DefaultRange
	}
	return s.Range
}

func (s SheetSource) Rows(ctx context.Context) ([][]string, error) {
	values, err := s.Fetcher.FetchValues(ctx, s.SpreadsheetID, s.readRange())
	if err != nil {
		return nil, err
	}
	return gsheet.StringifyValues(values), nil
}

// CSVSource reads a CSV export of the sheet from disk.
type CSVSource struct {
	Path string
}

func (s CSVSource) Name() string {
	if abs, err := filepath.Abs(s.Path); err == nil {
		return "csv:" + abs
	}
	return "csv:" + s.Path
}

func (s CSVSource) Rows(_ context.Context) ([][]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return rows, nil
}

// Stats tracks sync progress across runs.
type Stats struct {
	Runs     int
	Uploaded int
	Skipped  int
	Errored  int

	RowsSent        int
	RecordsParsed   int
	RowsDropped     int
	RecordsInserted int64
}

// Uploader reads a source, skips it when unchanged since the last sync, and
// POSTs its rows to the Strength Journeys server.
type Uploader struct {
	client *Client
	state  *StateDB
	dryRun bool
	force  bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. With dryRun, rows are parsed locally and
// nothing is sent or recorded. With force, the state database is ignored.
func New(client *Client, state *StateDB, dryRun, force bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dryRun: dryRun,
		force:  force,
		log:    log,
	}
}

// Stats returns the totals accumulated so far.
func (u *Uploader) Stats() Stats {
	return u.stats
}

// Run syncs src once.
func (u *Uploader) Run(ctx context.Context, src Source) error {
	u.stats.Runs++
	name := src.Name()

	rows, err := src.Rows(ctx)
	if err != nil {
		u.stats.Errored++
		return fmt.Errorf("reading %s: %w", name, err)
	}
	hash := HashRows(rows)

	if !u.force {
		synced, err := u.state.IsSynced(name, hash)
		if err != nil {
			u.log.Warn("state check failed", "source", name, "error", err)
		}
		if synced {
			u.stats.Skipped++
			u.log.Info("unchanged since last sync", "source", name, "rows", len(rows))
			return nil
		}
	}

	if u.dryRun {
		records, stats := gsheet.Parse(rows)
		u.stats.RecordsParsed += len(records)
		u.stats.RowsDropped += stats.Dropped
		u.log.Info("dry-run: would send",
			"source", name,
			"rows", len(rows),
			"records", len(records),
			"goals", stats.Goals,
			"dropped", stats.Dropped,
		)
		return nil
	}

	result, err := u.client.SendRows(ctx, rows)
	if err != nil {
		u.stats.Errored++
		return fmt.Errorf("sending %s: %w", name, err)
	}
	u.stats.Uploaded++
	u.stats.RowsSent += len(rows)
	u.stats.RecordsParsed += result.RecordsParsed
	u.stats.RowsDropped += result.RowsDropped
	u.stats.RecordsInserted += result.RecordsInserted

	if err := u.state.MarkSynced(name, len(rows), hash); err != nil {
		u.log.Warn("failed to mark synced", "source", name, "error", err)
	}

	u.log.Info("synced",
		"source", name,
		"rows", len(rows),
		"inserted", result.RecordsInserted,
		"dropped", result.RowsDropped,
		"import_id", result.ImportID,
	)
	return nil
}

// Watch runs src every interval until ctx is canceled. Failed runs are
// logged and retried on the next tick.
func (u *Uploader) Watch(ctx context.Context, src Source, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := u.Run(ctx, src); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			u.log.Error("sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
