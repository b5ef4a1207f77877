package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simulate_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`FITREP Session Simulation Tool
==============================

A concurrent tool that drives complete evaluation sessions against a running
engine and independently verifies every grade the ladder resolves.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of evaluation sessions to simulate (default 100)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed int
        Random seed; the same seed replays the same sessions (default 1)
  -log string
        Log file for simulation output (default: simulate_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/simulate/main.go

  # Simulate 1000 sessions with 16 workers
  go run cmd/simulate/main.go -sessions 1000 -workers 16

  # Replay a failing run
  go run cmd/simulate/main.go -seed 42 -verbose
`)
}
