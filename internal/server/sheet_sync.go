package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/claude/strengthjourneys/internal/ingest"
	"github.com/claude/strengthjourneys/internal/ingest/gsheet"
	"github.com/claude/strengthjourneys/internal/storage"
)

var errSyncCanceled = errors.New("sync canceled by user")

// syncState tracks a running background sheet sync.
type syncState struct {
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	doneCh    chan struct{} // closed when the goroutine exits
	attempt   int
	total     int
	done      bool
	err       error
	result    *ingest.Result
	logID     int64
	startedAt time.Time

	spreadsheetID string
	readRange     string

	subs   map[chan sseEvent]struct{}
	subsMu sync.Mutex
}

// sseEvent is an SSE message to send to subscribers.
type sseEvent struct {
	Event string
	Data  string
}

func (st *syncState) broadcast(event sseEvent) {
	st.subsMu.Lock()
	defer st.subsMu.Unlock()
	for ch := range st.subs {
		select {
		case ch <- event:
		default:
			// slow subscriber, skip
		}
	}
}

func (st *syncState) subscribe() chan sseEvent {
	ch := make(chan sseEvent, 32)
	st.subsMu.Lock()
	st.subs[ch] = struct{}{}
	st.subsMu.Unlock()
	return ch
}

func (st *syncState) unsubscribe(ch chan sseEvent) {
	st.subsMu.Lock()
	delete(st.subs, ch)
	st.subsMu.Unlock()
}

// sheetSyncRequest is the JSON body for starting a background sheet sync.
type sheetSyncRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	Range         string `json:"range"`
	MaxAttempts   int    `json:"max_attempts"`
}

func (s *Server) handleStartSheetSync(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}

	var req sheetSyncRequest
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
	if req.MaxAttempts <= 0 {
		req.MaxAttempts = 3
	}

	s.syncMu.Lock()
	if s.activeSync != nil && s.activeSync.isRunning() {
		s.syncMu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a sync is already running"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &syncState{
		running:       true,
		cancel:        cancel,
		doneCh:        make(chan struct{}),
		total:         req.MaxAttempts,
		startedAt:     time.Now(),
		spreadsheetID: req.SpreadsheetID,
		readRange:     req.Range,
		subs:          make(map[chan sseEvent]struct{}),
	}

	rawMeta := json.RawMessage(mustJSON(map[string]any{
		"spreadsheet_id": req.SpreadsheetID,
		"range":          req.Range,
		"max_attempts":   req.MaxAttempts,
	}))
	logID, logErr := s.db.InsertImportLog(r.Context(), storage.ImportLog{
		UserID:   uid,
		Source:   ingest.SourceSheet,
		Status:   "running",
		Metadata: &rawMeta,
	})
	if logErr != nil {
		s.log.Error("failed to create import log", "error", logErr)
	}
	state.logID = logID

	s.activeSync = state
	s.syncMu.Unlock()

	go s.runSheetSync(ctx, state, uid)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "started",
		"max_attempts": req.MaxAttempts,
		"log_id":       logID,
	})
}

func (st *syncState) isRunning() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.running
}

// runSheetSync ingests the sheet, retrying transient fetch failures with a
// linear backoff. A missing fetcher is not retried.
func (s *Server) runSheetSync(ctx context.Context, state *syncState, userID int) {
	defer func() {
		state.mu.Lock()
		state.running = false
		state.done = true
		state.mu.Unlock()
		close(state.doneCh)
	}()

	var lastErr error
	for attempt := 1; attempt <= state.total; attempt++ {
		if ctx.Err() != nil {
			lastErr = errSyncCanceled
			break
		}

		state.mu.Lock()
		state.attempt = attempt
		state.mu.Unlock()
		state.broadcast(sseEvent{
			Event: "progress",
			Data:  mustJSON(map[string]any{"attempt": attempt, "total": state.total}),
		})

		result, err := s.sheets.IngestSheet(ctx, state.spreadsheetID, state.readRange, userID)
		if err == nil {
			state.mu.Lock()
			state.result = result
			state.mu.Unlock()
			lastErr = nil
			break
		}
		lastErr = err
		if ctx.Err() != nil {
			lastErr = errSyncCanceled
			break
		}
		if errors.Is(err, gsheet.ErrNoFetcher) {
			break
		}
		s.log.Warn("sheet sync attempt failed", "attempt", attempt, "spreadsheet", state.spreadsheetID, "error", err)

		if attempt < state.total {
			select {
			case <-ctx.Done():
				lastErr = errSyncCanceled
			case <-time.After(time.Duration(attempt) * s.retryDelay):
			}
		}
		if errors.Is(lastErr, errSyncCanceled) {
			break
		}
	}

	state.mu.Lock()
	state.err = lastErr
	result := state.result
	state.mu.Unlock()

	if lastErr != nil {
		state.broadcast(sseEvent{Event: "error", Data: mustJSON(map[string]string{"error": lastErr.Error()})})
	} else {
		state.broadcast(sseEvent{Event: "complete", Data: mustJSON(result)})
	}
	s.finalizeSync(state)
}

// finalizeSync updates the import_logs row with final results.
func (s *Server) finalizeSync(state *syncState) {
	if state.logID == 0 {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	durationMs := int(time.Since(state.startedAt).Milliseconds())
	entry := storage.ImportLog{Status: "success", DurationMs: &durationMs}
	if state.err != nil {
		msg := state.err.Error()
		entry.ErrorMessage = &msg
		entry.Status = "error"
		if errors.Is(state.err, errSyncCanceled) {
			entry.Status = "cancelled"
		}
	}
	if res := state.result; res != nil {
		id := res.ImportID
		entry.ImportID = &id
		entry.RowsReceived = res.RowsReceived
		entry.RecordsParsed = res.RecordsParsed
		entry.RowsDropped = res.RowsDropped
		entry.RecordsInserted = res.RecordsInserted
	}
	rawMeta := json.RawMessage(mustJSON(map[string]any{
		"spreadsheet_id": state.spreadsheetID,
		"range":          state.readRange,
		"attempts":       state.attempt,
	}))
	entry.Metadata = &rawMeta

	ctx, cancel := contextWithTimeout()
	defer cancel()
	if err := s.db.UpdateImportLog(ctx, state.logID, entry); err != nil {
		s.log.Error("failed to finalize import log", "log_id", state.logID, "error", err)
	}
}

func (s *Server) handleCancelSheetSync(w http.ResponseWriter, r *http.Request) {
	s.syncMu.Lock()
	state := s.activeSync
	s.syncMu.Unlock()
	if state == nil || !state.isRunning() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync running"})
		return
	}

	state.cancel()
	select {
	case <-state.doneCh:
	case <-time.After(3 * time.Second):
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleSheetSyncStatus(w http.ResponseWriter, r *http.Request) {
	s.syncMu.Lock()
	state := s.activeSync
	s.syncMu.Unlock()

	if state == nil {
		writeJSON(w, http.StatusOK, map[string]any{"running": false})
		return
	}

	state.mu.Lock()
	resp := map[string]any{
		"running":        state.running,
		"done":           state.done,
		"attempt":        state.attempt,
		"total":          state.total,
		"spreadsheet_id": state.spreadsheetID,
		"log_id":         state.logID,
	}
	if state.result != nil {
		resp["result"] = state.result
	}
	if state.err != nil {
		resp["error"] = state.err.Error()
	}
	state.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSheetSyncEvents(w http.ResponseWriter, r *http.Request) {
	s.syncMu.Lock()
	state := s.activeSync
	s.syncMu.Unlock()

	if state == nil || !state.isRunning() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sync running"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := state.subscribe()
	defer state.unsubscribe(ch)

	state.mu.Lock()
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(map[string]any{
		"attempt": state.attempt,
		"total":   state.total,
	}))
	state.mu.Unlock()
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-state.doneCh:
			// Drain anything broadcast before the goroutine exited.
			for {
				select {
				case evt := <-ch:
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data)
				default:
					flusher.Flush()
					return
				}
			}
		case evt := <-ch:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data)
			flusher.Flush()
			if evt.Event == "complete" || evt.Event == "error" {
				return
			}
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
