package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/strengthjourneys/internal/ingest"
	"github.com/claude/strengthjourneys/internal/storage"
)

// maxSelectedLifts bounds the saved dashboard selection.
const maxSelectedLifts = 50

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := s.db.GetDataStats(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type selectedLiftsBody struct {
	Lifts []string `json:"lifts"`
}

func (s *Server) handleGetSelectedLifts(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	lifts, err := s.db.GetSelectedLifts(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if lifts == nil {
		lifts = []string{}
	}
	writeJSON(w, http.StatusOK, selectedLiftsBody{Lifts: lifts})
}

func (s *Server) handlePutSelectedLifts(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var body selectedLiftsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(body.Lifts) > maxSelectedLifts {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many lifts selected"})
		return
	}
	seen := make(map[string]bool, len(body.Lifts))
	lifts := make([]string, 0, len(body.Lifts))
	for _, l := range body.Lifts {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		lifts = append(lifts, l)
	}
	if err := s.db.SetSelectedLifts(r.Context(), uid, lifts); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, selectedLiftsBody{Lifts: lifts})
}

// logImport records an import operation's result to the import_logs table.
// result may be nil when the import failed before producing one.
func (s *Server) logImport(uid int, source string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}

	entry := storage.ImportLog{
		UserID:       uid,
		Source:       source,
		Status:       status,
		DurationMs:   &durationMs,
		ErrorMessage: errMsg,
	}
	if result != nil {
		id := result.ImportID
		entry.ImportID = &id
		entry.RowsReceived = result.RowsReceived
		entry.RecordsParsed = result.RecordsParsed
		entry.RowsDropped = result.RowsDropped
		entry.RecordsInserted = result.RecordsInserted
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for import logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
