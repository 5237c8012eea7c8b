package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/strengthjourneys/internal/analysis"
)

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) latestSession(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	records, err := h.records(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, analysis.GroupSession(records, ""))
}

// liftCatalog merges per-type counts with shares so clients can pick lift
// names for the other tools.
func (h *handlers) liftCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	freqs, err := h.ds.QueryLiftTypeFrequencies(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	type entry struct {
		LiftType   string  `json:"lift_type"`
		Sets       int     `json:"sets"`
		Percentage float64 `json:"percentage"`
	}
	shares := analysis.LiftShares(freqs)
	catalog := make([]entry, len(freqs))
	for i, f := range freqs {
		catalog[i] = entry{LiftType: f.LiftType, Sets: f.Frequency, Percentage: shares[i].Percentage}
	}
	return jsonContents(req.Params.URI, catalog)
}
