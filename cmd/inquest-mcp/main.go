// Inquest-mcp: MCP access to Inquest's analysis history.
//
// An MCP server (stdio transport) that lets AI coding tools inspect
// root-cause analyses recorded by the Inquest backend: check a turn's
// status, review its investigation trace, and search past analyses.
//
// Usage:
//
//	inquest-mcp serve [-config path]   # Start MCP server (stdio transport)
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inquesthq/inquest/internal/config"
	"github.com/inquesthq/inquest/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("inquest-mcp v%s\n", server.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Logs go to stderr so they don't interfere with MCP's stdio
	// transport on stdout.
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	s, cleanup, err := server.NewMCP(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return mcpserver.ServeStdio(s)
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".inquest", "config.yaml")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Inquest-mcp v%s — MCP access to Inquest analyses

Usage:
  inquest-mcp serve [-config path]   Start the MCP server (stdio transport)
  inquest-mcp version                Print the version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "inquest": {
        "command": "inquest-mcp",
        "args": ["serve"]
      }
    }
  }
`, server.Version)
}
