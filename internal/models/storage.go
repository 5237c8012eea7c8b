package models

import (
	"time"

	"github.com/google/uuid"
)

// LiftRecordRow is a row ready for insertion into the lift_records table.
type LiftRecordRow struct {
	UserID   int
	ImportID uuid.UUID
	RowIndex int
	Date     time.Time
	Kind     RecordKind
	LiftType string
	Reps     int
	Weight   float64
	Unit     Unit
	URL      string
	Notes    string
	Extra    map[string]string
}

// NewLiftRecordRows converts parsed records into storage rows. RowIndex keeps
// the parsed order so same-date records read back in the order they were logged.
// Records whose Date is not a calendar date are skipped and counted.
func NewLiftRecordRows(userID int, importID uuid.UUID, records []LiftRecord) (rows []LiftRecordRow, skipped int) {
	rows = make([]LiftRecordRow, 0, len(records))
	for i, r := range records {
		d, ok := r.Time()
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, LiftRecordRow{
			UserID:   userID,
			ImportID: importID,
			RowIndex: i,
			Date:     d,
			Kind:     r.Kind,
			LiftType: r.LiftType,
			Reps:     r.Reps,
			Weight:   r.Weight,
			Unit:     r.Unit,
			URL:      r.URL,
			Notes:    r.Notes,
			Extra:    r.Extra,
		})
	}
	return rows, skipped
}

// Record converts a stored row back into a LiftRecord. IsHistoricalPR is
// derived data and is left false.
func (r LiftRecordRow) Record() LiftRecord {
	kind := r.Kind
	if kind == "" {
		kind = KindLogged
	}
	return LiftRecord{
		Kind:     kind,
		Date:     r.Date.Format(DateLayout),
		LiftType: r.LiftType,
		Reps:     r.Reps,
		Weight:   r.Weight,
		Unit:     r.Unit,
		URL:      r.URL,
		Notes:    r.Notes,
		Extra:    r.Extra,
	}
}

// TonnagePeriod is total working volume for one time bucket.
type TonnagePeriod struct {
	Period   string  `json:"period"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	Tonnage  float64 `json:"tonnage"`
	Unit     Unit    `json:"unit"`
	Sessions int     `json:"sessions"`

	AvgSetsPerSession float64 `json:"avg_sets_per_session"`
}
