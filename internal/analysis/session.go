package analysis

import "github.com/claude/strengthjourneys/internal/models"

// SessionLift is the sets of one lift type performed in a session.
type SessionLift struct {
	LiftType string              `json:"lift_type"`
	Sets     []models.LiftRecord `json:"sets"`
	HasPR    bool                `json:"has_pr"`
}

// Session groups the logged sets of a single date by lift type.
type Session struct {
	Date            string        `json:"date"`
	Lifts           []SessionLift `json:"lifts"`
	HasHistoricalPR bool          `json:"has_historical_pr"`
}

// LatestSessionDate returns the most recent date with a logged set, or "".
func LatestSessionDate(records []models.LiftRecord) string {
	latest := ""
	for _, r := range records {
		if !r.IsGoal() && r.Date > latest {
			latest = r.Date
		}
	}
	return latest
}

// GroupSession collects the logged sets on date (the latest session when date
// is empty), grouped by lift type in the order each lift first appears.
// HasHistoricalPR is set when any grouped set was a PR at the time, so records
// should already have been through MarkHistoricalPRs.
func GroupSession(records []models.LiftRecord, date string) Session {
	if date == "" {
		date = LatestSessionDate(records)
	}
	s := Session{Date: date}
	if date == "" {
		return s
	}

	index := make(map[string]int)
	for _, r := range records {
		if r.IsGoal() || r.Date != date {
			continue
		}
		i, ok := index[r.LiftType]
		if !ok {
			i = len(s.Lifts)
			index[r.LiftType] = i
			s.Lifts = append(s.Lifts, SessionLift{LiftType: r.LiftType})
		}
		s.Lifts[i].Sets = append(s.Lifts[i].Sets, r)
		if r.IsHistoricalPR {
			s.Lifts[i].HasPR = true
			s.HasHistoricalPR = true
		}
	}
	return s
}
