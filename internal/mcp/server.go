package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("StrengthJourneys", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Strength Journeys barbell log server. Query logged sets, personal records, "+
			"top lifts per rep count, training consistency, sessions, tonnage and estimated one-rep maxes. "+
			"All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log, now: time.Now}

	s.AddTools(
		server.ServerTool{Tool: toolGetLiftRecords, Handler: h.getLiftRecords},
		server.ServerTool{Tool: toolGetTopLifts, Handler: h.getTopLifts},
		server.ServerTool{Tool: toolGetConsistency, Handler: h.getConsistency},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetLiftFrequency, Handler: h.getLiftFrequency},
		server.ServerTool{Tool: toolGetTonnageSummary, Handler: h.getTonnageSummary},
		server.ServerTool{Tool: toolGetE1RM, Handler: h.getE1RM},
	)

	s.AddResources(
		server.ServerResource{Resource: resLatestSession, Handler: h.latestSession},
		server.ServerResource{Resource: resLiftCatalog, Handler: h.liftCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
	now func() time.Time
}

var resLatestSession = mcp.NewResource(
	"strengthjourneys://latest_session",
	"Latest Session",
	mcp.WithResourceDescription("Sets of the most recent training day, grouped by lift type, with personal records flagged"),
	mcp.WithMIMEType("application/json"),
)

var resLiftCatalog = mcp.NewResource(
	"strengthjourneys://lift_catalog",
	"Lift Catalog",
	mcp.WithResourceDescription("Every lift type in the log with its set count and share of all sets"),
	mcp.WithMIMEType("application/json"),
)
