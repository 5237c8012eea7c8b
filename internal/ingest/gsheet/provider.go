package gsheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/strengthjourneys/internal/ingest"
	"github.com/claude/strengthjourneys/internal/models"
	"github.com/google/uuid"
)

// ErrNoFetcher is returned by IngestSheet when the provider was built without Sheets access.
var ErrNoFetcher = errors.New("sheet fetching is not configured")

// RecordStore persists a user's parsed lift records.
type RecordStore interface {
	ReplaceLiftRecords(ctx context.Context, userID int, rows []models.LiftRecordRow) (int64, error)
}

// Provider turns lifting sheets into stored lift records. Each ingest replaces
// the user's previous records: the sheet is the source of truth.
type Provider struct {
	db      RecordStore
	fetcher Fetcher
	log     *slog.Logger
}

// NewProvider creates a new sheet ingest provider. fetcher may be nil, in
// which case IngestSheet returns ErrNoFetcher.
func NewProvider(store RecordStore, fetcher Fetcher, log *slog.Logger) *Provider {
	return &Provider{db: store, fetcher: fetcher, log: log}
}

// IngestRows stores rows already split into cells (first row = headers).
func (p *Provider) IngestRows(ctx context.Context, rows [][]string, userID int) (*ingest.Result, error) {
	records, stats := Parse(rows)
	return p.store(ctx, ingest.SourceRows, records, stats, userID)
}

// IngestCSV parses and stores a CSV export of the sheet.
func (p *Provider) IngestCSV(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	records, stats, err := ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return p.store(ctx, ingest.SourceCSV, records, stats, userID)
}

// IngestSheet fetches a spreadsheet range through the Sheets API and stores it.
func (p *Provider) IngestSheet(ctx context.Context, spreadsheetID, readRange string, userID int) (*ingest.Result, error) {
	if p.fetcher == nil {
		return nil, ErrNoFetcher
	}
	values, err := p.fetcher.FetchValues(ctx, spreadsheetID, readRange)
	if err != nil {
		return nil, err
	}
	records, stats := ParseValues(values)
	return p.store(ctx, ingest.SourceSheet, records, stats, userID)
}

func (p *Provider) store(ctx context.Context, source string, records []models.LiftRecord, stats ParseStats, userID int) (*ingest.Result, error) {
	importID := uuid.New()
	if stats.Dropped > 0 {
		p.log.Debug("dropped malformed rows", "source", source, "dropped", stats.Dropped, "import_id", importID)
	}

	rows, skipped := models.NewLiftRecordRows(userID, importID, records)
	result := &ingest.Result{
		ImportID:       importID,
		Source:         source,
		RowsReceived:   stats.RowsRead,
		RecordsParsed:  stats.Parsed,
		RowsDropped:    stats.Dropped,
		GoalsParsed:    stats.Goals,
		RecordsSkipped: skipped,
	}

	inserted, err := p.db.ReplaceLiftRecords(ctx, userID, rows)
	if err != nil {
		return nil, fmt.Errorf("storing lift records: %w", err)
	}
	result.RecordsInserted = inserted
	if len(rows) == 0 {
		result.Message = "no lift records found"
	}

	p.log.Info("sheet ingested",
		"source", source,
		"user_id", userID,
		"rows", stats.RowsRead,
		"inserted", inserted,
		"dropped", stats.Dropped,
		"skipped", skipped,
	)
	return result, nil
}
