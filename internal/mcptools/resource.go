package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inquesthq/inquest/internal/store"
)

// recentTurnsLimit caps the resource payload.
const recentTurnsLimit = 20

// ResourceHandler serves read-only MCP resources over the analysis
// history. Resources use URI-based addressing (rca://...) following
// MCP conventions.
type ResourceHandler struct {
	store *store.Store
}

// NewResourceHandler creates a ResourceHandler backed by the given store.
func NewResourceHandler(st *store.Store) *ResourceHandler {
	return &ResourceHandler{store: st}
}

// RecentTurnsResource returns the MCP resource definition for the
// recent-analyses listing.
func (h *ResourceHandler) RecentTurnsResource() mcp.Resource {
	return mcp.NewResource(
		"rca://turns/recent",
		"Recent Analyses",
		mcp.WithResourceDescription("The most recent root-cause analyses across all chat sessions"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRecentTurns returns the recent turns as JSON.
func (h *ResourceHandler) HandleRecentTurns(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	turns, err := h.store.RecentTurns(recentTurnsLimit)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling turns: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource carrying an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
