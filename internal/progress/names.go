package progress

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Registry resolves raw tool identifiers to user-facing display names.
// The agent framework reports tools by their wire names (fetch_logs,
// query_traces); the chat UI shows a human phrase instead.
type Registry struct {
	names map[string]string
}

// defaultToolNames covers the built-in RCA toolset.
var defaultToolNames = map[string]string{
	"fetch_logs":       "Fetching service logs",
	"search_metrics":   "Searching metrics",
	"query_traces":     "Querying distributed traces",
	"list_deployments": "Listing recent deployments",
	"search_code":      "Searching the codebase",
	"read_runbook":     "Reading the runbook",
}

// NewRegistry creates a registry with the built-in RCA tool names.
func NewRegistry() *Registry {
	names := make(map[string]string, len(defaultToolNames))
	for k, v := range defaultToolNames {
		names[k] = v
	}
	return &Registry{names: names}
}

// FromMCPTools builds a registry from MCP tool definitions, preferring a
// tool's annotation title and falling back to the generic phrase. Tools the
// agent discovers at runtime get display names without a code change here.
func FromMCPTools(tools []mcp.Tool) *Registry {
	r := NewRegistry()
	for _, tool := range tools {
		if tool.Annotations.Title != "" {
			r.names[tool.Name] = tool.Annotations.Title
		}
	}
	return r
}

// Resolve returns the display name for a raw tool identifier. Unknown tools
// get a generic "Using <tool>..." phrase rather than failing.
func (r *Registry) Resolve(raw string) string {
	if name, ok := r.names[raw]; ok {
		return name
	}
	return fmt.Sprintf("Using %s...", raw)
}
