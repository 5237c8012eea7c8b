package server

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/strengthjourneys/internal/config"
	"github.com/claude/strengthjourneys/internal/ingest"
	"github.com/claude/strengthjourneys/internal/models"
	"github.com/claude/strengthjourneys/internal/storage"
)

// Store is the persistence the HTTP handlers need. *storage.DB implements it.
type Store interface {
	UserStore
	QueryLiftRecords(ctx context.Context, userID int) ([]models.LiftRecord, error)
	QueryLiftTypeFrequencies(ctx context.Context, userID int) ([]models.LiftTypeFrequency, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	GetTonnageSummary(ctx context.Context, userID int, start, end time.Time, bucket, liftType string, unit models.Unit) ([]models.TonnagePeriod, error)
	GetSelectedLifts(ctx context.Context, userID int) ([]string, error)
	SetSelectedLifts(ctx context.Context, userID int, lifts []string) error
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Ingester turns sheet data into stored records. *gsheet.Provider implements it.
type Ingester interface {
	IngestRows(ctx context.Context, rows [][]string, userID int) (*ingest.Result, error)
	IngestCSV(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
	IngestSheet(ctx context.Context, spreadsheetID, readRange string, userID int) (*ingest.Result, error)
}

// AlphaIngester stores Alpha Progression exports. *alpha.Provider implements it.
type AlphaIngester interface {
	IngestAlpha(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db        Store
	sheets    Ingester
	alpha     AlphaIngester
	log       *slog.Logger
	apiKey    string
	insights  config.InsightsConfig
	readRange string
	tailscale WhoIsClient
	now       func() time.Time
	router    chi.Router

	// Background sheet sync; at most one runs at a time.
	syncMu     sync.Mutex
	activeSync *syncState
	retryDelay time.Duration
}

// New creates a new Server with all routes configured. alpha may be nil, in
// which case Alpha Progression uploads are rejected.
func New(db Store, sheets Ingester, alpha AlphaIngester, cfg *config.Config, log *slog.Logger) *Server {
	s := &Server{
		db:         db,
		sheets:     sheets,
		alpha:      alpha,
		log:        log,
		apiKey:     cfg.Auth.APIKey,
		insights:   cfg.Insights,
		readRange:  cfg.Sheets.DefaultRange,
		now:        time.Now,
		router:     chi.NewRouter(),
		retryDelay: 2 * time.Second,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches request identity from the dev user to Tailscale WhoIs.
// Call before serving.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.tailscale = lc
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		// Ingest endpoints (API key required)
		r.Route("/ingest", func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/rows", s.handleIngestRows)
			r.Post("/csv", s.handleIngestCSV)
			r.Post("/sheet", s.handleIngestSheet)
			r.Post("/alpha", s.handleIngestAlpha)
		})

		r.Route("/sync", func(r chi.Router) {
			r.With(APIKeyAuth(s.apiKey)).Post("/sheet", s.handleStartSheetSync)
			r.Post("/cancel", s.handleCancelSheetSync)
			r.Get("/status", s.handleSheetSyncStatus)
			r.Get("/events", s.handleSheetSyncEvents)
		})

		r.Get("/me", s.handleMe)
		r.Get("/stats", s.handleStats)
		r.Get("/import-logs", s.handleImportLogs)

		r.Get("/lifts", s.handleLifts)
		r.Get("/lifts/frequency", s.handleLiftFrequency)
		r.Get("/lifts/top", s.handleTopLifts)
		r.Get("/insights", s.handleInsights)
		r.Get("/consistency", s.handleConsistency)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/sessions/latest", s.handleSession)
		r.Get("/tonnage", s.handleTonnage)
		r.Get("/tonnage/summary", s.handleTonnageSummary)
		r.Get("/e1rm", s.handleE1RM)

		r.Get("/preferences/lifts", s.handleGetSelectedLifts)
		r.Put("/preferences/lifts", s.handlePutSelectedLifts)
	})
}

// identity picks Tailscale or dev identity per request, so SetTailscale can
// be called after routes are built.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tailscale == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.tailscale, s.db, s.log)(next).ServeHTTP(w, r)
	})
}

// SetMCP mounts an MCP HTTP transport at /mcp behind request identity.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(s.identity).Handle("/mcp", h)
}

// SetFrontend mounts a static dashboard build.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
