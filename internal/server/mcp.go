package server

import (
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inquesthq/inquest/internal/config"
	"github.com/inquesthq/inquest/internal/mcptools"
	"github.com/inquesthq/inquest/internal/store"
)

// NewMCP creates the MCP server that exposes the investigation history
// as read-only tools, for agents that want to inspect past analyses
// from another session.
//
// The returned cleanup function closes the store's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even if initialization failed.
func NewMCP(cfg config.Config, log *slog.Logger) (*mcpserver.MCPServer, func(), error) {
	if log == nil {
		log = slog.Default()
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir, MaxSearchResults: 50})
	if err != nil {
		return nil, func() {}, fmt.Errorf("server: open store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Warn("store close", "error", err)
		}
	}

	s := mcpserver.NewMCPServer(
		"inquest",
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(
			"Read-only access to Inquest's root-cause analyses. "+
				"Use rca_turn_status to check one analysis, rca_turn_steps to "+
				"review its investigation trace, and rca_search_steps to find "+
				"past analyses by service, error text or deployment.",
		),
	)

	statusTool := mcptools.NewTurnStatusTool(st)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	stepsTool := mcptools.NewTurnStepsTool(st)
	s.AddTool(stepsTool.Definition(), stepsTool.Handle)

	searchTool := mcptools.NewStepSearchTool(st)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	resourceHandler := mcptools.NewResourceHandler(st)
	s.AddResource(resourceHandler.RecentTurnsResource(), resourceHandler.HandleRecentTurns)

	return s, cleanup, nil
}
