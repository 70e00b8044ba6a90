// Inquestd: the Inquest chat backend daemon.
//
// Serves the HTTP API for the root-cause-analysis chat: accepting user
// messages, running analyses in the background, streaming progress over
// SSE, and searching past investigations.
//
// Usage:
//
//	inquestd serve [-config path]   # Start the HTTP server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/inquesthq/inquest/internal/agent"
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
		fmt.Printf("inquestd v%s\n", server.Version)
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

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// The hosted analysis engine plugs in behind worker.Runner; the
	// replay runner keeps the daemon usable end to end until it is
	// linked in.
	runner := agent.NewReplay()

	httpSrv, cleanup, err := server.New(cfg, runner, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".inquest", "config.yaml")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Inquestd v%s — root-cause-analysis chat backend

Usage:
  inquestd serve [-config path]   Start the HTTP server
  inquestd version                Print the version

The config file is YAML; every knob has a default, so the daemon runs
without one. Default location: ~/.inquest/config.yaml
`, server.Version)
}
