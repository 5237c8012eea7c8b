// Package alpha imports Alpha Progression CSV exports as lift records.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/claude/strengthjourneys/internal/models"
)

var (
	// sessionHeaderRe matches: "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// exerciseHeaderRe matches: "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// setRe matches a working set row: 1;115;8;1
	setRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// warmupRe matches one warmup entry: WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU\d+\s+·\s+.+?\s+kg\s+·\s+\d+\s+reps`)
)

// Stats counts what the parser kept and skipped.
type Stats struct {
	Sessions   int `json:"sessions"`
	Sets       int `json:"sets"`
	Warmups    int `json:"warmups"`
	Bodyweight int `json:"bodyweight"`
	Dropped    int `json:"dropped"`
}

// parser holds the session and exercise the next set row belongs to.
type parser struct {
	date      string
	session   string
	exercise  string
	equipment string

	records []models.LiftRecord
	stats   Stats
}

// Parse reads an Alpha Progression export. Each working set becomes a logged
// record in kg, named by its exercise. Warmups and bodyweight-plus sets
// ("+35") are counted but not kept, since their load is not the bar weight.
// Records are returned in ascending date order.
func Parse(r io.Reader) ([]models.LiftRecord, Stats, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, p.stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, p.stats, fmt.Errorf("reading export: %w", err)
	}

	// Exports list the newest session first.
	sort.SliceStable(p.records, func(i, j int) bool { return p.records[i].Date < p.records[j].Date })
	return p.records, p.stats, nil
}

func (p *parser) line(line string) error {
	// A blank line closes the session.
	if line == "" {
		p.date, p.session, p.exercise = "", "", ""
		return nil
	}

	if m := sessionHeaderRe.FindStringSubmatch(line); m != nil {
		date, err := parseSessionDate(m[2])
		if err != nil {
			return err
		}
		p.date = date.Format(models.DateLayout)
		p.session = m[1]
		p.exercise = ""
		p.stats.Sessions++
		return nil
	}

	if m := exerciseHeaderRe.FindStringSubmatch(line); m != nil {
		if p.date == "" {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.exercise = strings.TrimSpace(m[2])
		p.equipment = strings.TrimSpace(m[3])
		p.stats.Warmups += len(warmupRe.FindAllString(m[6], -1))
		return nil
	}

	if m := setRe.FindStringSubmatch(line); m != nil {
		if p.exercise == "" {
			return fmt.Errorf("set data without exercise: %q", line)
		}
		p.set(m[2], m[3], m[4])
		return nil
	}

	// Column headers ("#;KG;REPS;RIR") and notes.
	return nil
}

func (p *parser) set(weightStr, repsStr, rirStr string) {
	p.stats.Sets++
	if strings.HasPrefix(strings.TrimSpace(weightStr), "+") {
		p.stats.Bodyweight++
		return
	}
	weight, werr := parseEuropeanFloat(weightStr)
	reps, rerr := strconv.Atoi(repsStr)
	if werr != nil || rerr != nil || reps < 1 || weight < 0 {
		p.stats.Dropped++
		return
	}

	extra := map[string]string{"session": p.session}
	if p.equipment != "" {
		extra["equipment"] = p.equipment
	}
	if rir, err := parseEuropeanFloat(rirStr); err == nil {
		extra["rir"] = strconv.FormatFloat(rir, 'f', -1, 64)
	}
	p.records = append(p.records, models.LiftRecord{
		Kind:     models.KindLogged,
		Date:     p.date,
		LiftType: p.exercise,
		Reps:     reps,
		Weight:   weight,
		Unit:     models.UnitKg,
		Extra:    extra,
	})
}

// parseSessionDate parses "2026-02-19 4:54" or "2026-02-19 16:54".
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing session date %q", s)
}

// parseEuropeanFloat accepts comma decimals: "102,5" -> 102.5.
func parseEuropeanFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
