package mcp

import (
	"context"
	"time"

	"github.com/claude/strengthjourneys/internal/models"
	"github.com/claude/strengthjourneys/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryLiftRecords(ctx context.Context, userID int) ([]models.LiftRecord, error)
	QueryLiftTypeFrequencies(ctx context.Context, userID int) ([]models.LiftTypeFrequency, error)
	GetTonnageSummary(ctx context.Context, userID int, start, end time.Time, bucket, liftType string, unit models.Unit) ([]models.TonnagePeriod, error)
	GetSelectedLifts(ctx context.Context, userID int) ([]string, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
