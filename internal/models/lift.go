package models

import "time"

// DateLayout is the calendar date format used for LiftRecord.Date.
const DateLayout = "2006-01-02"

// MaxTopReps is the highest rep count tracked by TopLiftsTable.
const MaxTopReps = 10

// RecordKind distinguishes logged sets from aspirational goal entries.
type RecordKind string

const (
	KindLogged RecordKind = "logged"
	KindGoal   RecordKind = "goal"
)

// Unit is the load unit of a lift record.
type Unit string

const (
	UnitKg Unit = "kg"
	UnitLb Unit = "lb"
)

// lbPerKg is the conversion factor between pounds and kilograms.
const lbPerKg = 2.2046226218

// Convert returns weight w (expressed in u) in the target unit.
func (u Unit) Convert(w float64, target Unit) float64 {
	switch {
	case u == target:
		return w
	case u == UnitKg && target == UnitLb:
		return w * lbPerKg
	case u == UnitLb && target == UnitKg:
		return w / lbPerKg
	}
	return w
}

// LiftRecord is one logged set (or goal) from the user's lifting sheet.
type LiftRecord struct {
	Kind     RecordKind        `json:"kind"`
	Date     string            `json:"date"`
	LiftType string            `json:"lift_type"`
	Reps     int               `json:"reps"`
	Weight   float64           `json:"weight"`
	Unit     Unit              `json:"unit"`
	URL      string            `json:"url,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`

	IsHistoricalPR bool `json:"is_historical_pr"`
}

// IsGoal reports whether the record is an aspirational entry rather than a logged set.
func (r LiftRecord) IsGoal() bool {
	return r.Kind == KindGoal
}

// Time parses Date. ok is false when Date is not in DateLayout.
func (r LiftRecord) Time() (t time.Time, ok bool) {
	t, err := time.Parse(DateLayout, r.Date)
	return t, err == nil
}

// WeightIn returns the record's weight converted to the target unit.
func (r LiftRecord) WeightIn(target Unit) float64 {
	return r.Unit.Convert(r.Weight, target)
}

// LiftTypeFrequency counts how many records exist for one lift type.
type LiftTypeFrequency struct {
	LiftType  string `json:"lift_type"`
	Frequency int    `json:"frequency"`
}

// TopLiftsTable maps a lift type to its ranked records per rep count.
// Index reps-1 holds the list for that rep count (1..MaxTopReps). Entries
// point into the record slice the table was built from.
type TopLiftsTable map[string][][]*LiftRecord

// At returns the ranked records for liftType at the given rep count.
func (t TopLiftsTable) At(liftType string, reps int) []*LiftRecord {
	if reps < 1 || reps > MaxTopReps {
		return nil
	}
	buckets, ok := t[liftType]
	if !ok || len(buckets) < reps {
		return nil
	}
	return buckets[reps-1]
}
