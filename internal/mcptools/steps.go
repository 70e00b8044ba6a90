package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inquesthq/inquest/internal/store"
)

// TurnStepsTool handles the rca_turn_steps MCP tool.
type TurnStepsTool struct {
	store *store.Store
}

// NewTurnStepsTool creates a TurnStepsTool backed by the given store.
func NewTurnStepsTool(st *store.Store) *TurnStepsTool {
	return &TurnStepsTool{store: st}
}

// Definition returns the MCP tool definition for rca_turn_steps.
func (t *TurnStepsTool) Definition() mcp.Tool {
	return mcp.NewTool("rca_turn_steps",
		mcp.WithDescription(
			"List the persisted investigation trace of one analysis turn in "+
				"order: status updates, tool calls with their outcome, and "+
				"captured reasoning. Useful to review what an analysis did.",
		),
		mcp.WithString("turn_id",
			mcp.Required(),
			mcp.Description("The turn ID whose steps to list"),
		),
	)
}

// Handle processes the rca_turn_steps tool call.
func (t *TurnStepsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("turn_id", "")
	if id == "" {
		return mcp.NewToolResultError("'turn_id' is required"), nil
	}

	if _, err := t.store.GetTurn(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("turn %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load turn: %v", err)), nil
	}

	steps, err := t.store.ListSteps(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list steps: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Steps for turn %s\n\n", id)
	if len(steps) == 0 {
		b.WriteString("No steps recorded yet.\n")
		return mcp.NewToolResultText(b.String()), nil
	}
	for _, s := range steps {
		formatStep(&b, s)
	}
	return mcp.NewToolResultText(b.String()), nil
}
