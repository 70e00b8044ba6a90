// Package mcptools exposes the investigation history over MCP.
//
// Each tool follows the same pattern: a struct with the store injected
// via constructor, Definition() returning the mcp.Tool schema, and
// Handle() processing the request. The tools are read-only views over
// persisted turns and steps so an agent in another session can inspect
// a running or finished analysis.
package mcptools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/inquesthq/inquest/internal/chat"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// formatStep renders one step as a markdown list item.
func formatStep(b *strings.Builder, s chat.Step) {
	switch s.Type {
	case chat.StepToolCall:
		name := ""
		if s.ToolName != nil {
			name = *s.ToolName
		}
		fmt.Fprintf(b, "%d. [%s] tool %q (%s)", s.Sequence, s.Status, name, s.CreatedAt)
	default:
		fmt.Fprintf(b, "%d. [%s] %s (%s)", s.Sequence, s.Status, strings.ToLower(string(s.Type)), s.CreatedAt)
	}
	if s.Content != "" {
		fmt.Fprintf(b, "\n   %s", s.Content)
	}
	b.WriteString("\n")
}
