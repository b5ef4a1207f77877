package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/simulate"
)

// Default configuration constants.
const (
	defaultSessions   = 100
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		sessions = flag.Int("sessions", defaultSessions, "Number of evaluation sessions to simulate")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed     = flag.Int64("seed", 1, "Random seed; the same seed replays the same sessions")
		logFile  = flag.String("log", "", "Log file for simulation output (default: simulate_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:  *baseURL,
		Sessions: *sessions,
		Workers:  *workers,
		Timeout:  *timeout,
		Seed:     *seed,
		LogFile:  *logFile,
		Verbose:  *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
