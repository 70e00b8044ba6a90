package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inquesthq/inquest/internal/store"
)

// StepSearchTool handles the rca_search_steps MCP tool.
type StepSearchTool struct {
	store *store.Store
}

// NewStepSearchTool creates a StepSearchTool backed by the given store.
func NewStepSearchTool(st *store.Store) *StepSearchTool {
	return &StepSearchTool{store: st}
}

// Definition returns the MCP tool definition for rca_search_steps.
func (t *StepSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("rca_search_steps",
		mcp.WithDescription(
			"Full-text search across all persisted investigation steps. "+
				"Matches step content and tool names, ranked by relevance. "+
				"Use this to find past analyses that touched a service, error, "+
				"or deployment.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search terms to match against step content"),
		),
		mcp.WithString("session_id",
			mcp.Description("Limit results to one chat session"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default 10)"),
		),
	)
}

// Handle processes the rca_search_steps tool call.
func (t *StepSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	sessionID := req.GetString("session_id", "")
	limit := intArg(req, "limit", 10)

	results, err := t.store.SearchSteps(query, sessionID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No steps match %q.", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %d step(s) matching %q\n\n", len(results), query)
	for _, r := range results {
		fmt.Fprintf(&b, "## Turn %s (session %s)\n", r.TurnID, r.SessionID)
		formatStep(&b, r.Step)
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
