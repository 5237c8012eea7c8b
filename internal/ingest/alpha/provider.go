package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/strengthjourneys/internal/ingest"
	"github.com/claude/strengthjourneys/internal/models"
	"github.com/google/uuid"
)

// RecordStore persists a user's parsed lift records.
type RecordStore interface {
	ReplaceLiftRecords(ctx context.Context, userID int, rows []models.LiftRecordRow) (int64, error)
}

// Provider stores Alpha Progression exports as lift records. Like a sheet
// ingest, each import replaces the user's previous records.
type Provider struct {
	db  RecordStore
	log *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(store RecordStore, log *slog.Logger) *Provider {
	return &Provider{db: store, log: log}
}

// IngestAlpha parses an export and stores its working sets.
func (p *Provider) IngestAlpha(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	records, stats, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing Alpha Progression export: %w", err)
	}

	importID := uuid.New()
	rows, skipped := models.NewLiftRecordRows(userID, importID, records)
	result := &ingest.Result{
		ImportID:       importID,
		Source:         ingest.SourceAlpha,
		RowsReceived:   stats.Sets,
		RecordsParsed:  len(records),
		RowsDropped:    stats.Dropped + stats.Bodyweight,
		RecordsSkipped: skipped,
	}

	inserted, err := p.db.ReplaceLiftRecords(ctx, userID, rows)
	if err != nil {
		return nil, fmt.Errorf("storing lift records: %w", err)
	}
	result.RecordsInserted = inserted
	if len(rows) == 0 {
		result.Message = "no working sets found"
	}

	p.log.Info("alpha export ingested",
		"user_id", userID,
		"sessions", stats.Sessions,
		"sets", stats.Sets,
		"warmups", stats.Warmups,
		"bodyweight", stats.Bodyweight,
		"inserted", inserted,
		"import_id", importID,
	)
	return result, nil
}
