package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vango-edge",
		Short: "Serverless-edge adapter for Vango server functions",
		Long: `vango-edge runs Vango server functions behind an edge-style HTTP host.

It exposes registered server functions over HTTP, re-encoding
URL-encoded, JSON, and CBOR payloads between the host and the
function, with Prometheus metrics, OpenTelemetry traces, and a
WebSocket log tail for live debugging.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
