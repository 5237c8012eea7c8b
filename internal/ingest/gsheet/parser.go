package gsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/claude/strengthjourneys/internal/models"
)

// Column headers recognized by name. Any other header is passed through into
// LiftRecord.Extra under its camel-cased name.
const (
	headerDate     = "Date"
	headerLiftType = "Lift Type"
	headerReps     = "Reps"
	headerWeight   = "Weight"
	headerURL      = "URL"
	headerNotes    = "Notes"
	headerGoal     = "Goal"
	headerIsGoal   = "Is Goal"
)

var (
	// leadingNumberRe matches the numeric prefix of a weight cell: "102.5kg", "225 lb", "102,5".
	leadingNumberRe = regexp.MustCompile(`^[+-]?(\d+(?:[.,]\d+)?|[.,]\d+)`)

	// dateLayouts are tried in order when normalizing a date cell. Sheets
	// returns formatted values, so US-locale and spelled-out forms show up too.
	dateLayouts = []string{
		models.DateLayout,
		"2006/01/02",
		"2006-1-2",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"1/2/2006",
		"1/2/2006 15:04:05",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"Mon, Jan 2, 2006",
	}
)

// ParseStats counts what happened to the data rows of a sheet.
type ParseStats struct {
	RowsRead int `json:"rows_read"`
	Parsed   int `json:"parsed"`
	Dropped  int `json:"dropped"`
	Goals    int `json:"goals"`
}

// columns holds the positions of the recognized headers (-1 when absent).
type columns struct {
	date, liftType, reps, weight, url, notes, goal int
	extra                                          map[int]string
}

func resolveColumns(header []string) columns {
	c := columns{date: -1, liftType: -1, reps: -1, weight: -1, url: -1, notes: -1, goal: -1, extra: map[int]string{}}
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == "":
			continue
		case strings.EqualFold(h, headerDate):
			c.date = i
		case strings.EqualFold(h, headerLiftType):
			c.liftType = i
		case strings.EqualFold(h, headerReps):
			c.reps = i
		case strings.EqualFold(h, headerWeight):
			c.weight = i
		case strings.EqualFold(h, headerURL):
			c.url = i
		case strings.EqualFold(h, headerNotes):
			c.notes = i
		case strings.EqualFold(h, headerGoal), strings.EqualFold(h, headerIsGoal):
			c.goal = i
		default:
			c.extra[i] = camelCase(h)
		}
	}
	return c
}

// Parse converts spreadsheet rows (first row = headers) into lift records
// sorted ascending by date. Rows without a usable reps or weight value are
// dropped and counted in the returned stats; malformed rows never produce an error.
func Parse(rows [][]string) ([]models.LiftRecord, ParseStats) {
	var stats ParseStats
	if len(rows) == 0 {
		return nil, stats
	}

	cols := resolveColumns(rows[0])
	var records []models.LiftRecord
	var prevDate, prevLiftType string

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		stats.RowsRead++

		// Blank date / lift type cells inherit from the row above. An
		// unreadable date is dropped along with the rows that inherit it.
		date := prevDate
		if raw := cell(row, cols.date); raw != "" {
			date = normalizeDate(raw)
		}
		prevDate = date

		liftType := cell(row, cols.liftType)
		if liftType == "" {
			liftType = prevLiftType
		}
		prevLiftType = liftType

		reps, repsOK := parseReps(cell(row, cols.reps))
		weight, unit, weightOK := parseWeight(cell(row, cols.weight))
		if !repsOK || !weightOK || date == "" || liftType == "" {
			stats.Dropped++
			continue
		}

		rec := models.LiftRecord{
			Kind:     models.KindLogged,
			Date:     date,
			LiftType: liftType,
			Reps:     reps,
			Weight:   weight,
			Unit:     unit,
			URL:      cell(row, cols.url),
			Notes:    cell(row, cols.notes),
		}
		if isTruthy(cell(row, cols.goal)) {
			rec.Kind = models.KindGoal
			stats.Goals++
		}
		for i, key := range cols.extra {
			if v := cell(row, i); v != "" {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[key] = v
			}
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
	stats.Parsed = len(records)
	return records, stats
}

// ParseValues parses cells as returned by the Sheets values API, where each
// cell may be a string, a number or a bool.
func ParseValues(values [][]any) ([]models.LiftRecord, ParseStats) {
	return Parse(StringifyValues(values))
}

// StringifyValues converts Sheets API cells to strings.
func StringifyValues(values [][]any) [][]string {
	rows := make([][]string, len(values))
	for i, vr := range values {
		row := make([]string, len(vr))
		for j, v := range vr {
			switch x := v.(type) {
			case nil:
			case string:
				row[j] = x
			case float64:
				row[j] = strconv.FormatFloat(x, 'f', -1, 64)
			default:
				row[j] = fmt.Sprint(x)
			}
		}
		rows[i] = row
	}
	return rows
}

// ParseCSV reads a CSV export of the lifting sheet.
func ParseCSV(r io.Reader) ([]models.LiftRecord, ParseStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("reading CSV: %w", err)
	}
	records, stats := Parse(rows)
	return records, stats, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseReps accepts only a whole integer; "5x", "five" and "" are rejected.
func parseReps(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// parseWeight extracts the leading number of a weight cell. The unit is kg
// when the cell mentions "kg", lb otherwise.
// "102.5kg" -> (102.5, kg), "225" -> (225, lb), "102,5 KG" -> (102.5, kg)
func parseWeight(s string) (float64, models.Unit, bool) {
	if s == "" {
		return 0, "", false
	}
	m := leadingNumberRe.FindString(s)
	if m == "" {
		return 0, "", false
	}
	w, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil || w < 0 {
		return 0, "", false
	}
	unit := models.UnitLb
	if strings.Contains(strings.ToLower(s), "kg") {
		unit = models.UnitKg
	}
	return w, unit, true
}

// normalizeDate rewrites recognizable dates as YYYY-MM-DD. It returns ""
// when no layout matches.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	return ""
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "x", "goal":
		return true
	}
	return false
}

// camelCase turns a header like "Body Weight" into "bodyWeight".
func camelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return s
	}
	var b strings.Builder
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if i > 0 {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}
