package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/claude/strengthjourneys/internal/models"
)

var testNow = time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC) // a Friday

// TestConsistencyFullWeek verifies three sessions in the last week scores 100%.
func TestConsistencyFullWeek(t *testing.T) {
	records := []models.LiftRecord{
		logged("2024-03-11", "Back Squat", 5, 100),
		logged("2024-03-11", "Bench Press", 5, 80),
		logged("2024-03-13", "Deadlift", 5, 140),
		logged("2024-03-15", "Back Squat", 5, 102.5),
	}
	scores := Consistency(records, testNow)
	if len(scores) != len(ConsistencyWindows) {
		t.Fatalf("len = %d, want %d", len(scores), len(ConsistencyWindows))
	}
	week := scores[0]
	if week.Label != "Week" || week.Workouts != 3 {
		t.Errorf("week = %+v, want 3 workouts", week)
	}
	if math.Abs(week.Percentage-100) > 1e-9 {
		t.Errorf("week percentage = %f, want 100", week.Percentage)
	}
	if week.Grade != "A+" {
		t.Errorf("week grade = %q, want A+", week.Grade)
	}
	if week.FullHistory {
		t.Error("week FullHistory = true, want false (history starts inside the window)")
	}
	year := scores[3]
	if year.Workouts != 3 || year.Grade != "." {
		t.Errorf("year = %+v, want 3 workouts graded \".\"", year)
	}
}

// TestConsistencyIgnoresGoalsAndFuture verifies goals and future dates are not sessions.
func TestConsistencyIgnoresGoalsAndFuture(t *testing.T) {
	records := []models.LiftRecord{
		logged("2024-01-01", "Back Squat", 5, 100),
		logged("2024-03-14", "Back Squat", 5, 100),
		goal("2024-03-15", "Back Squat", 1, 180),
		logged("2024-03-20", "Back Squat", 5, 100),
	}
	scores := Consistency(records, testNow)
	if scores[0].Workouts != 1 {
		t.Errorf("week workouts = %d, want 1", scores[0].Workouts)
	}
	if scores[2].Workouts != 2 {
		t.Errorf("6 month workouts = %d, want 2", scores[2].Workouts)
	}
	if !scores[1].FullHistory {
		t.Error("month FullHistory = false, want true")
	}
}

// TestConsistencyEmpty verifies no records yield no scores.
func TestConsistencyEmpty(t *testing.T) {
	if got := Consistency(nil, testNow); got != nil {
		t.Errorf("Consistency(nil) = %v, want nil", got)
	}
}

// TestGrade verifies the grade thresholds at their boundaries.
func TestGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{150, "A+"},
		{92, "A+"},
		{91.9, "A"},
		{84, "A"},
		{76, "A-"},
		{68, "B+"},
		{60, "B"},
		{52, "B-"},
		{44, "C+"},
		{36, "C"},
		{30, "C-"},
		{29.9, "."},
		{0, "."},
	}
	for _, tt := range tests {
		if got := Grade(tt.pct); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

// TestWeeklyStreak verifies consecutive Monday-start weeks are counted.
func TestWeeklyStreak(t *testing.T) {
	records := []models.LiftRecord{
		logged("2024-02-12", "Back Squat", 5, 100), // isolated, gap week after
		logged("2024-02-26", "Back Squat", 5, 100),
		logged("2024-03-03", "Back Squat", 5, 100), // Sunday, same week as 02-26
		logged("2024-03-04", "Back Squat", 5, 100),
		logged("2024-03-11", "Back Squat", 5, 100),
	}
	if got := WeeklyStreak(records, testNow); got != 3 {
		t.Errorf("WeeklyStreak = %d, want 3", got)
	}

	// Nothing yet this week still counts last week's streak.
	if got := WeeklyStreak(records[:4], testNow); got != 2 {
		t.Errorf("WeeklyStreak without current week = %d, want 2", got)
	}
	if got := WeeklyStreak(records[:1], testNow); got != 0 {
		t.Errorf("WeeklyStreak with stale history = %d, want 0", got)
	}
}

// TestHeatmap verifies one bucket per active day plus the start anchor.
func TestHeatmap(t *testing.T) {
	records := []models.LiftRecord{
		logged("2023-01-05", "Back Squat", 5, 100),
		logged("2024-02-01", "Back Squat", 5, 100),
		logged("2024-02-01", "Bench Press", 5, 80),
		logged("2024-03-01", "Deadlift", 5, 140),
		goal("2024-03-10", "Deadlift", 1, 200),
	}
	got := Heatmap(records, testNow, 3, "")
	want := []HeatmapBucket{
		{Date: "2023-12-15", Count: 0},
		{Date: "2024-02-01", Count: 1},
		{Date: "2024-03-01", Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Heatmap mismatch (-want +got):\n%s", diff)
	}

	filtered := Heatmap(records, testNow, 3, "Deadlift")
	if len(filtered) != 2 || filtered[1].Date != "2024-03-01" {
		t.Errorf("filtered heatmap = %v, want anchor plus 2024-03-01", filtered)
	}
}

// TestHeatmapNoAnchorAtStart verifies no anchor is added when activity begins on the start date.
func TestHeatmapNoAnchorAtStart(t *testing.T) {
	records := []models.LiftRecord{logged("2023-12-15", "Back Squat", 5, 100)}
	got := Heatmap(records, testNow, 3, "")
	if len(got) != 1 || got[0].Count != 1 {
		t.Errorf("Heatmap = %v, want a single active bucket", got)
	}
	if got := Heatmap(nil, testNow, 3, ""); got != nil {
		t.Errorf("Heatmap(nil) = %v, want nil", got)
	}
}

// TestLiftTypeFrequencies verifies counting, ordering, and default selection.
func TestLiftTypeFrequencies(t *testing.T) {
	records := []models.LiftRecord{
		logged("2024-01-01", "Back Squat", 5, 100),
		logged("2024-01-01", "Back Squat", 5, 100),
		logged("2024-01-01", "Bench Press", 5, 80),
		logged("2024-01-02", "Deadlift", 5, 140),
		logged("2024-01-02", "Deadlift", 5, 140),
		logged("2024-01-02", "Deadlift", 5, 140),
		logged("2024-01-03", "Arnold Press", 8, 20),
	}
	freqs := LiftTypeFrequencies(records)
	want := []models.LiftTypeFrequency{
		{LiftType: "Deadlift", Frequency: 3},
		{LiftType: "Back Squat", Frequency: 2},
		{LiftType: "Arnold Press", Frequency: 1},
		{LiftType: "Bench Press", Frequency: 1},
	}
	if diff := cmp.Diff(want, freqs); diff != "" {
		t.Errorf("frequencies mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"Deadlift", "Back Squat"}, DefaultSelectedLifts(freqs, 2)); diff != "" {
		t.Errorf("selected mismatch (-want +got):\n%s", diff)
	}
	if got := DefaultSelectedLifts(freqs[:3], 0); len(got) != 3 {
		t.Errorf("DefaultSelectedLifts(n=0) len = %d, want 3", len(got))
	}

	shares := LiftShares(freqs)
	total := 0.0
	for _, s := range shares {
		total += s.Percentage
	}
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("shares sum = %f, want 100", total)
	}
	if LiftShares(nil) != nil {
		t.Error("LiftShares(nil) should be nil")
	}
}

// TestGroupSession verifies grouping by first-seen lift type on the latest date.
func TestGroupSession(t *testing.T) {
	records := []models.LiftRecord{
		logged("2024-03-10", "Back Squat", 5, 100),
		logged("2024-03-12", "Bench Press", 5, 80),
		logged("2024-03-12", "Back Squat", 5, 110),
		logged("2024-03-12", "Bench Press", 5, 82.5),
		goal("2024-03-20", "Back Squat", 1, 200),
	}
	if err := MarkHistoricalPRs(records); err != nil {
		t.Fatalf("MarkHistoricalPRs: %v", err)
	}

	s := GroupSession(records, "")
	if s.Date != "2024-03-12" {
		t.Fatalf("Date = %s, want 2024-03-12", s.Date)
	}
	var order []string
	for _, l := range s.Lifts {
		order = append(order, l.LiftType)
	}
	if diff := cmp.Diff([]string{"Bench Press", "Back Squat"}, order); diff != "" {
		t.Errorf("lift order mismatch (-want +got):\n%s", diff)
	}
	if len(s.Lifts[0].Sets) != 2 {
		t.Errorf("bench sets = %d, want 2", len(s.Lifts[0].Sets))
	}
	if !s.HasHistoricalPR || !s.Lifts[1].HasPR {
		t.Error("expected the 110kg squat to flag a PR")
	}

	older := GroupSession(records, "2024-03-10")
	if len(older.Lifts) != 1 || older.Lifts[0].Sets[0].Weight != 100 {
		t.Errorf("GroupSession(2024-03-10) = %+v", older)
	}
	if empty := GroupSession(nil, ""); empty.Date != "" || empty.Lifts != nil {
		t.Errorf("GroupSession(nil) = %+v, want zero", empty)
	}
}

// TestSessionTonnage verifies per-session tonnage with unit conversion.
func TestSessionTonnage(t *testing.T) {
	lb := logged("2024-01-02", "Back Squat", 5, 220.46226218)
	lb.Unit = models.UnitLb
	records := []models.LiftRecord{
		logged("2024-01-01", "Back Squat", 5, 100),
		logged("2024-01-01", "Back Squat", 3, 110),
		logged("2024-01-01", "Bench Press", 5, 80),
		lb,
	}
	points := SessionTonnage(records, "Back Squat", models.UnitKg)
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[0].Tonnage != 830 || points[0].Sets != 2 {
		t.Errorf("first session = %+v, want 830kg over 2 sets", points[0])
	}
	if math.Abs(points[1].Tonnage-500) > 1e-6 {
		t.Errorf("second session tonnage = %f, want 500", points[1].Tonnage)
	}

	all := SessionTonnage(records, "", "")
	if all[0].Tonnage != 1230 || all[0].Unit != models.UnitKg {
		t.Errorf("all lifts first session = %+v, want 1230kg", all[0])
	}
}

// TestEstimateE1RM verifies both formulas and their guards.
func TestEstimateE1RM(t *testing.T) {
	if got, _ := EstimateE1RM(1, 150, FormulaBrzycki); got != 150 {
		t.Errorf("single rep = %f, want 150", got)
	}
	if got, _ := EstimateE1RM(5, 100, ""); math.Abs(got-116.6666667) > 1e-6 {
		t.Errorf("epley 5x100 = %f, want 116.67", got)
	}
	if got, _ := EstimateE1RM(5, 100, FormulaBrzycki); math.Abs(got-112.5) > 1e-9 {
		t.Errorf("brzycki 5x100 = %f, want 112.5", got)
	}
	if _, err := EstimateE1RM(0, 100, FormulaEpley); err == nil {
		t.Error("expected error for zero reps")
	}
	if _, err := EstimateE1RM(40, 100, FormulaBrzycki); err == nil {
		t.Error("expected error for brzycki beyond 36 reps")
	}
	if _, err := EstimateE1RM(3, 100, "lombardi"); err == nil {
		t.Error("expected error for unknown formula")
	}
}

// TestBestE1RMs verifies the best estimate per lift type is chosen.
func TestBestE1RMs(t *testing.T) {
	records := []models.LiftRecord{
		logged("2024-01-01", "Deadlift", 1, 180),
		logged("2024-01-02", "Deadlift", 5, 160),
		logged("2024-01-03", "Back Squat", 3, 120),
		logged("2024-01-04", "Back Squat", 15, 80),
		goal("2024-01-05", "Back Squat", 1, 250),
	}
	best, err := BestE1RMs(records, FormulaEpley)
	if err != nil {
		t.Fatalf("BestE1RMs: %v", err)
	}
	if len(best) != 2 {
		t.Fatalf("len = %d, want 2", len(best))
	}
	if best[0].LiftType != "Back Squat" || math.Abs(best[0].E1RM-132) > 1e-9 {
		t.Errorf("squat = %+v, want 132", best[0])
	}
	if best[1].LiftType != "Deadlift" || best[1].Source.Reps != 5 {
		t.Errorf("deadlift = %+v, want the 5-rep set", best[1])
	}
}

// TestBestE1RMsMixedUnits verifies kg and lb sets of one lift are compared by
// load, not by the raw number.
func TestBestE1RMsMixedUnits(t *testing.T) {
	lb := func(date, lift string, reps int, weight float64) models.LiftRecord {
		r := logged(date, lift, reps, weight)
		r.Unit = models.UnitLb
		return r
	}
	records := []models.LiftRecord{
		logged("2024-01-01", "Back Squat", 1, 150),
		lb("2024-01-02", "Back Squat", 1, 200),
		logged("2024-01-01", "Deadlift", 1, 100),
		lb("2024-01-02", "Deadlift", 1, 250),
	}
	best, err := BestE1RMs(records, FormulaEpley)
	if err != nil {
		t.Fatalf("BestE1RMs: %v", err)
	}
	if len(best) != 2 {
		t.Fatalf("len = %d, want 2", len(best))
	}
	if sq := best[0]; sq.E1RM != 150 || sq.Unit != models.UnitKg || sq.Source.Date != "2024-01-01" {
		t.Errorf("squat = %+v, want 150 kg", sq)
	}
	if dl := best[1]; dl.E1RM != 250 || dl.Unit != models.UnitLb || dl.Source.Date != "2024-01-02" {
		t.Errorf("deadlift = %+v, want 250 lb", dl)
	}
}

// TestAnalyze verifies the bundled insights on unsorted input without mutating it.
func TestAnalyze(t *testing.T) {
	records := []models.LiftRecord{
		logged("2024-03-13", "Back Squat", 5, 95),
		logged("2024-03-11", "Back Squat", 5, 100),
		logged("2024-03-11", "Back Squat", 5, 105),
		logged("2024-03-15", "Bench Press", 5, 80),
	}
	in, err := Analyze(records, Options{Now: testNow})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if records[0].IsHistoricalPR || records[0].Date != "2024-03-13" {
		t.Error("Analyze modified its input")
	}
	if in.RecordCount != 4 || in.FirstDate != "2024-03-11" || in.LastDate != "2024-03-15" {
		t.Errorf("range = %d %s..%s", in.RecordCount, in.FirstDate, in.LastDate)
	}
	if diff := cmp.Diff([]string{"Back Squat", "Bench Press"}, in.SelectedLifts); diff != "" {
		t.Errorf("selected mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{105, 100, 95}, weights(in.TopLifts.At("Back Squat", 5))); diff != "" {
		t.Errorf("top lifts mismatch (-want +got):\n%s", diff)
	}
	if in.LatestSession.Date != "2024-03-15" || !in.LatestSession.HasHistoricalPR {
		t.Errorf("latest session = %+v", in.LatestSession)
	}
	if in.Consistency[0].Workouts != 3 {
		t.Errorf("week workouts = %d, want 3", in.Consistency[0].Workouts)
	}
	if in.WeeklyStreak != 1 {
		t.Errorf("streak = %d, want 1", in.WeeklyStreak)
	}

	empty, err := Analyze(nil, Options{Now: testNow})
	if err != nil {
		t.Fatalf("Analyze(nil): %v", err)
	}
	if empty.RecordCount != 0 || len(empty.SelectedLifts) != 0 || empty.Consistency != nil {
		t.Errorf("empty insights = %+v", empty)
	}
}
