package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inquesthq/inquest/internal/store"
)

// TurnStatusTool handles the rca_turn_status MCP tool.
type TurnStatusTool struct {
	store *store.Store
}

// NewTurnStatusTool creates a TurnStatusTool backed by the given store.
func NewTurnStatusTool(st *store.Store) *TurnStatusTool {
	return &TurnStatusTool{store: st}
}

// Definition returns the MCP tool definition for rca_turn_status.
func (t *TurnStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("rca_turn_status",
		mcp.WithDescription(
			"Get the current state of one analysis turn: lifecycle status, "+
				"timestamps, the attached background job, and the final response "+
				"once the analysis has completed.",
		),
		mcp.WithString("turn_id",
			mcp.Required(),
			mcp.Description("The turn ID to inspect"),
		),
	)
}

// Handle processes the rca_turn_status tool call.
func (t *TurnStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("turn_id", "")
	if id == "" {
		return mcp.NewToolResultError("'turn_id' is required"), nil
	}

	turn, err := t.store.GetTurn(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("turn %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load turn: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Turn %s\n\n", turn.ID)
	fmt.Fprintf(&b, "**Session:** %s\n", turn.SessionID)
	fmt.Fprintf(&b, "**Status:** %s\n", turn.Status)
	fmt.Fprintf(&b, "**Created:** %s\n", turn.CreatedAt)
	fmt.Fprintf(&b, "**Updated:** %s\n", turn.UpdatedAt)
	if turn.JobID != nil {
		fmt.Fprintf(&b, "**Job:** %s\n", *turn.JobID)
	}
	fmt.Fprintf(&b, "\n**Question:** %s\n", turn.UserMessage)
	if turn.FinalResponse != nil {
		fmt.Fprintf(&b, "\n## Final response\n\n%s\n", *turn.FinalResponse)
	}

	return mcp.NewToolResultText(b.String()), nil
}
