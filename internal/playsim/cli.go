package playsim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/hoops/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "playsim_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`hoops play simulator
====================

Plays concurrent sessions against a running hoops service and checks that
every reported standing and the leaderboard agree with the points scored.

Usage:
  go run ./cmd/playsim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -catalog string
        Catalog file the service reads (default "catalog.yaml")
  -secret string
        JWT secret shared with the service (default $HOOPS_JWT_SECRET)
  -issuer string
        JWT issuer (default "hoops")
  -players int
        Number of simulated players (default 200)
  -hits int
        Maximum hits per session (default 8)
  -batch float
        Share of players ending with a batch (default 0.5)
  -top int
        Number of leaderboard entries to fetch (default 50)
  -workers int
        Number of concurrent players (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for played sessions (default: plays_TIMESTAMP.json)
  -log string
        Log file for simulation output (default: playsim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message
`)
}
