// Cairn: transactional project memory MCP server
//
// An MCP server that gives AI coding tools a durable working memory:
// projects, tasks with subtask trees, and contextual memories, all
// behind a transactional in-memory store with snapshot persistence.
//
// Usage:
//
//	cairn serve    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cairnmcp/cairn/internal/metrics"
	cairnserver "github.com/cairnmcp/cairn/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("cairn v%s\n", cairnserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := cairnserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Optional Prometheus exposition. Stdout belongs to the MCP stdio
	// transport, so the listener logs to stderr only.
	if addr := os.Getenv("CAIRN_METRICS_ADDR"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "cairn: metrics listener: %v\n", err)
			}
		}()
	}

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `cairn - transactional project memory MCP server

Usage:
  cairn serve      Start the MCP server (stdio transport)
  cairn version    Print version
  cairn help       Show this help

Environment:
  CAIRN_DATA_DIR      Existing directory for snapshot persistence and the journal
  CAIRN_METRICS_ADDR  Address for the optional Prometheus /metrics listener`)
}
