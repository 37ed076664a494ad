// Package mcp provides the MCP (Model Context Protocol) subcommand. It runs
// as its own process and drives a running pimixer through the REST API.
package mcp

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/pimixer/pkg/mixmcp"
)

var (
	apiURL  string
	verbose bool
)

// Version is set by the main package
var Version string

func init() {
	Cmd.Flags().StringVar(&apiURL, "api-url", "http://127.0.0.1:8080", "Base URL of the pimixer REST API")
	Cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// Cmd is the MCP subcommand
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (connects to pimixer REST API)",
	Long: `Start an MCP (Model Context Protocol) server that connects to a running
pimixer instance via its REST API.

Architecture:
  ┌─────────────┐    stdio     ┌─────────────┐    HTTP      ┌─────────────┐
  │  AI Client  │ ←──────────→ │ pimixer mcp │ ←──────────→ │ pimixer run │
  │             │   MCP proto  │  (bridge)   │ REST API     │ (serial)    │
  └─────────────┘              └─────────────┘              └─────────────┘

pimixer run owns the serial device and the config file; an MCP client
spawns this process as a child and it only ever talks HTTP.

Tools: list_channels, set_channel, toggle_mute, touch, get_device_lines.
Resources: pimixer://channels.`,
	Example: `  # Connect to the API at http://127.0.0.1:8080
  pimixer mcp

  # A mixer on another host
  pimixer mcp --api-url http://mixer.local:8080

  # With verbose logging (logs go to stderr, not interfering with stdio MCP)
  pimixer mcp --verbose`,
	Run: runMCP,
}

func runMCP(_ *cobra.Command, _ []string) {
	// stdout carries the MCP stdio transport
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	log.Infof("Starting pimixer MCP server (version %s)", Version)
	log.Infof("Connecting to REST API at: %s", apiURL)

	client := mixmcp.NewHTTPClient(apiURL)

	// Tools are registered either way; without the API they return
	// errors that say how to start it
	if err := verifyAPIConnection(client); err != nil {
		log.Warnf("Cannot connect to pimixer API at %s: %v", apiURL, err)
		log.Warn("MCP server will start but tools require pimixer to be running.")
		log.Warn("Start it in another terminal with: pimixer run")
	} else {
		log.Info("API connection verified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mixmcp.New(Version, apiURL, client)

	log.Info("MCP server initialized, starting stdio transport...")
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("MCP server error: %v", err)
		os.Exit(1)
	}

	log.Info("MCP server stopped")
}

// verifyAPIConnection checks that the pimixer API answers its health check
func verifyAPIConnection(client *mixmcp.HTTPClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		return errors.Wrap(err, "health check failed")
	}
	log.Debugf("API %s reports %s (version %s)", client.BaseURL(), health.Status, health.Version)
	return nil
}
