package ingest

import "github.com/google/uuid"

// Result holds the outcome of an ingest operation.
type Result struct {
	ImportID uuid.UUID `json:"import_id"`
	Source   string    `json:"source"`

	RowsReceived    int   `json:"rows_received"`
	RecordsParsed   int   `json:"records_parsed"`
	RowsDropped     int   `json:"rows_dropped"`
	GoalsParsed     int   `json:"goals_parsed"`
	RecordsInserted int64 `json:"records_inserted"`
	RecordsSkipped  int   `json:"records_skipped"`

	Message string `json:"message,omitempty"`
}

// Source names recorded in import logs.
const (
	SourceRows  = "rows"
	SourceCSV   = "csv"
	SourceSheet = "sheet"
	SourceAlpha = "alpha"
)
