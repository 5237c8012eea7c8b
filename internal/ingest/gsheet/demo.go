package gsheet

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

//go:embed demo.csv
var demoCSV []byte

// DemoRecords returns the bundled sample sheet, with every date shifted so the
// most recent session falls on now. Used when a user has no data yet.
func DemoRecords(now time.Time) []models.LiftRecord {
	records, _, err := ParseCSV(bytes.NewReader(demoCSV))
	if err != nil || len(records) == 0 {
		return nil
	}

	last, ok := records[len(records)-1].Time()
	if !ok {
		return records
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	shift := int(today.Sub(last).Hours() / 24)

	for i := range records {
		if t, ok := records[i].Time(); ok {
			records[i].Date = t.AddDate(0, 0, shift).Format(models.DateLayout)
		}
	}
	return records
}
