package hitgen

import (
	"fmt"
	"os"

	"github.com/okian/upshot/pkg/logger"
)

// SetupLogging initializes the logger for the CLI.
func SetupLogging(format string, verbose bool) error {
	if err := logger.Init(logger.WithFormat(format)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`upshot load generator
=====================

Sends concurrent image requests to a running proxy and checks that each key's
hit count grew by exactly the number of requests sent for it.

Usage:
  go run ./cmd/hitgen [options]

Options:
  -url string
        Base URL of the proxy (default "http://localhost:9080")
  -keys int
        Number of distinct keys to generate (default 50)
  -requests int
        Total number of image requests (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log-format string
        text or json (default "text")
  -verbose
        Log every request
  -help
        Show this help message

Examples:
  # Default run against a local proxy
  go run ./cmd/hitgen

  # Many requests over few keys to stress the single writer
  go run ./cmd/hitgen -keys 5 -requests 20000 -workers 64
`)
}
