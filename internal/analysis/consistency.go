package analysis

import (
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

// TargetSessionsPerWeek is the workout frequency that scores 100%.
const TargetSessionsPerWeek = 3

// ConsistencyWindow is one lookback period of the consistency card.
type ConsistencyWindow struct {
	Label string
	Days  int
}

// ConsistencyWindows are the lookback periods scored by Consistency.
var ConsistencyWindows = []ConsistencyWindow{
	{"Week", 7},
	{"Month", 31},
	{"6 Months", 183},
	{"Year", 365},
	{"2 Years", 730},
	{"5 Years", 1825},
	{"Decade", 3650},
}

// ConsistencyScore is the workout frequency over one lookback window.
type ConsistencyScore struct {
	Label      string  `json:"label"`
	Days       int     `json:"days"`
	Workouts   int     `json:"workouts"`
	Expected   float64 `json:"expected"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
	// FullHistory is true when the lifter's first session predates the window start.
	FullHistory bool `json:"full_history"`
}

// gradeThresholds map minimum percentages to letter grades, best first.
var gradeThresholds = []struct {
	min   float64
	grade string
}{
	{92, "A+"},
	{84, "A"},
	{76, "A-"},
	{68, "B+"},
	{60, "B"},
	{52, "B-"},
	{44, "C+"},
	{36, "C"},
	{30, "C-"},
}

// Grade maps a consistency percentage to a letter grade. Anything below 30% is ".".
func Grade(percentage float64) string {
	for _, t := range gradeThresholds {
		if percentage >= t.min {
			return t.grade
		}
	}
	return "."
}

// Consistency counts distinct workout dates inside each lookback window ending
// at now and compares them to TargetSessionsPerWeek. Percentages are not
// clamped and can exceed 100.
func Consistency(records []models.LiftRecord, now time.Time) []ConsistencyScore {
	dates := sessionDates(records)
	if len(dates) == 0 {
		return nil
	}
	today := now.Format(models.DateLayout)
	first := dates[0]

	scores := make([]ConsistencyScore, 0, len(ConsistencyWindows))
	for _, w := range ConsistencyWindows {
		start := now.AddDate(0, 0, -w.Days).Format(models.DateLayout)
		workouts := 0
		for _, d := range dates {
			if d >= start && d <= today {
				workouts++
			}
		}
		expected := float64(w.Days) / 7 * TargetSessionsPerWeek
		pct := float64(workouts) / expected * 100
		scores = append(scores, ConsistencyScore{
			Label:       w.Label,
			Days:        w.Days,
			Workouts:    workouts,
			Expected:    expected,
			Percentage:  pct,
			Grade:       Grade(pct),
			FullHistory: first <= start,
		})
	}
	return scores
}

// WeeklyStreak counts consecutive Monday-start weeks, ending with the current
// week, that contain at least one session. A current week without a session
// yet does not break the streak; counting starts from the week before.
func WeeklyStreak(records []models.LiftRecord, now time.Time) int {
	active := make(map[string]bool)
	for _, d := range sessionDates(records) {
		t, err := time.Parse(models.DateLayout, d)
		if err != nil {
			continue
		}
		active[weekStart(t).Format(models.DateLayout)] = true
	}
	if len(active) == 0 {
		return 0
	}

	week := weekStart(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	if !active[week.Format(models.DateLayout)] {
		week = week.AddDate(0, 0, -7)
	}
	streak := 0
	for active[week.Format(models.DateLayout)] {
		streak++
		week = week.AddDate(0, 0, -7)
	}
	return streak
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// sessionDates returns the distinct dates of logged records in ascending order.
// records must be chronological.
func sessionDates(records []models.LiftRecord) []string {
	var dates []string
	for _, r := range records {
		if r.IsGoal() {
			continue
		}
		if n := len(dates); n == 0 || dates[n-1] != r.Date {
			dates = append(dates, r.Date)
		}
	}
	return dates
}
