package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claude/strengthjourneys/internal/analysis"
	"github.com/claude/strengthjourneys/internal/ingest"
	"github.com/claude/strengthjourneys/internal/ingest/gsheet"
	"github.com/claude/strengthjourneys/internal/models"
)

// maxUploadBytes bounds ingest request bodies.
const maxUploadBytes = 32 << 20

type ingestRowsRequest struct {
	Rows [][]string `json:"rows"`
}

type ingestSheetRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
}

func (s *Server) handleIngestRows(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req ingestRowsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	start := time.Now()
	result, err := s.sheets.IngestRows(r.Context(), req.Rows, uid)
	s.logImport(uid, ingest.SourceRows, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("rows ingest error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestCSV(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := s.sheets.IngestCSV(r.Context(), http.MaxBytesReader(w, r.Body, maxUploadBytes), uid)
	s.logImport(uid, ingest.SourceCSV, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("csv ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestAlpha(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	if s.alpha == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "alpha import is not configured"})
		return
	}

	start := time.Now()
	result, err := s.alpha.IngestAlpha(r.Context(), http.MaxBytesReader(w, r.Body, maxUploadBytes), uid)
	s.logImport(uid, ingest.SourceAlpha, result, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngestSheet(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req ingestSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.SpreadsheetID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "spreadsheet_id is required"})
		return
	}
	if req.Range == "" {
		req.Range = s.readRange
	}

	start := time.Now()
	result, err := s.sheets.IngestSheet(r.Context(), req.SpreadsheetID, req.Range, uid)
	s.logImport(uid, ingest.SourceSheet, result, err, int(time.Since(start).Milliseconds()))
	if errors.Is(err, gsheet.ErrNoFetcher) {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("sheet ingest error", "spreadsheet", req.SpreadsheetID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLifts(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	lt, start, end := q.Get("type"), q.Get("start"), q.Get("end")
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date " + d + ", want YYYY-MM-DD"})
			return
		}
	}
	if lt == "" && start == "" && end == "" {
		writeJSON(w, http.StatusOK, records)
		return
	}
	// Filtering happens after PR marking so flags reflect the full history.
	filtered := make([]models.LiftRecord, 0, len(records))
	for _, rec := range records {
		switch {
		case lt != "" && rec.LiftType != lt:
		case start != "" && rec.Date < start:
		case end != "" && rec.Date > end:
		default:
			filtered = append(filtered, rec)
		}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (s *Server) handleLiftFrequency(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	freqs, err := s.db.QueryLiftTypeFrequencies(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(freqs) == 0 && s.insights.DemoFallback {
		w.Header().Set("X-Demo-Data", "true")
		freqs = analysis.LiftTypeFrequencies(gsheet.DemoRecords(s.now()))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"frequencies":      freqs,
		"shares":           analysis.LiftShares(freqs),
		"default_selected": analysis.DefaultSelectedLifts(freqs, s.insights.DefaultSelected),
	})
}

func (s *Server) handleTopLifts(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	limit := s.insights.TopCap
	if c := q.Get("cap"); c != "" {
		parsed, err := strconv.Atoi(c)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cap"})
			return
		}
		limit = parsed
	}

	switch q.Get("window") {
	case "", "all":
	case "year":
		records = analysis.TrailingYear(records, s.now())
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be all or year"})
		return
	}

	selected := splitList(q.Get("types"))
	if len(selected) == 0 {
		var err error
		if selected, err = s.selectedLifts(r, records); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, analysis.BuildTopLifts(records, selected, limit))
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	selected, err := s.savedLifts(r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	insights, err := analysis.Analyze(records, analysis.Options{
		Now:           s.now(),
		SelectedLifts: selected,
		TopCap:        s.insights.TopCap,
		CardCap:       s.insights.CardCap,
		SelectedCount: s.insights.DefaultSelected,
		HeatmapMonths: s.insights.HeatmapMonths,
	})
	if err != nil {
		s.log.Error("analyzing records", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, insights)
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"scores":        analysis.Consistency(records, now),
		"weekly_streak": analysis.WeeklyStreak(records, now),
	})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	months := s.insights.HeatmapMonths
	if m := r.URL.Query().Get("months"); m != "" {
		parsed, err := strconv.Atoi(m)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "months must be a positive integer"})
			return
		}
		months = parsed
	}
	writeJSON(w, http.StatusOK, analysis.Heatmap(records, s.now(), months, r.URL.Query().Get("type")))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
	}
	writeJSON(w, http.StatusOK, analysis.GroupSession(records, date))
}

func (s *Server) handleTonnage(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	unit, err := parseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, analysis.SessionTonnage(records, r.URL.Query().Get("type"), unit))
}

func (s *Server) handleTonnageSummary(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	start, end, err := parseTimeRange(r, 365)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	unit, err := parseUnit(r.URL.Query().Get("unit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = "1 month"
	}
	summary, err := s.db.GetTonnageSummary(r.Context(), uid, start, end, bucket, r.URL.Query().Get("type"), unit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleE1RM(w http.ResponseWriter, r *http.Request) {
	records, ok := s.userRecords(w, r)
	if !ok {
		return
	}
	best, err := analysis.BestE1RMs(records, r.URL.Query().Get("formula"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, best)
}

// userRecords loads the caller's records with historical PRs marked. When the
// user has none and demo fallback is on, the bundled demo sheet is served
// instead and flagged with an X-Demo-Data header.
func (s *Server) userRecords(w http.ResponseWriter, r *http.Request) ([]models.LiftRecord, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return nil, false
	}
	records, err := s.db.QueryLiftRecords(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if len(records) == 0 && s.insights.DemoFallback {
		w.Header().Set("X-Demo-Data", "true")
		records = gsheet.DemoRecords(s.now())
	}
	if err := analysis.MarkHistoricalPRs(records); err != nil {
		s.log.Error("marking PRs", "user_id", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	return records, true
}

// savedLifts returns the caller's saved lift selection, or nil.
func (s *Server) savedLifts(r *http.Request) ([]string, error) {
	return s.db.GetSelectedLifts(r.Context(), userIDFromContext(r))
}

// selectedLifts returns the saved selection, falling back to the most
// frequent lift types in records.
func (s *Server) selectedLifts(r *http.Request, records []models.LiftRecord) ([]string, error) {
	saved, err := s.savedLifts(r)
	if err != nil {
		return nil, err
	}
	if len(saved) > 0 {
		return saved, nil
	}
	return analysis.DefaultSelectedLifts(analysis.LiftTypeFrequencies(records), s.insights.DefaultSelected), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// parseTimeRange reads start/end query params (RFC 3339 or YYYY-MM-DD).
// Without start, the range is the last defaultDays days.
func parseTimeRange(r *http.Request, defaultDays int) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		end = time.Now()
		start = end.AddDate(0, 0, -defaultDays)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse(models.DateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse(models.DateLayout, endStr)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}

func parseUnit(s string) (models.Unit, error) {
	switch strings.ToLower(s) {
	case "", "kg":
		return models.UnitKg, nil
	case "lb", "lbs":
		return models.UnitLb, nil
	}
	return "", fmt.Errorf("unit must be kg or lb")
}

// splitList splits a comma-separated query value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
