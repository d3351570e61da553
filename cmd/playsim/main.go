package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/hoops/internal/playsim"
)

// Default configuration constants.
const (
	defaultPlayers     = 200
	defaultMaxHits     = 8
	defaultBatchShare  = 0.5
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		catalogPath = flag.String("catalog", "catalog.yaml", "Catalog file the service reads")
		secret      = flag.String("secret", os.Getenv("HOOPS_JWT_SECRET"), "JWT secret shared with the service")
		issuer      = flag.String("issuer", "hoops", "JWT issuer")
		players     = flag.Int("players", defaultPlayers, "Number of simulated players")
		maxHits     = flag.Int("hits", defaultMaxHits, "Maximum hits per session")
		batchShare  = flag.Float64("batch", defaultBatchShare, "Share of players ending with a batch")
		topN        = flag.Int("top", defaultTopN, "Number of leaderboard entries to fetch")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent players")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for played sessions (default: plays_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for simulation output (default: playsim_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		playsim.ShowHelp()
		return
	}
	if *players < 1 {
		os.Stderr.WriteString("-players must be positive\n")
		os.Exit(2)
	}

	if err := playsim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &playsim.Config{
		BaseURL:     *baseURL,
		CatalogPath: *catalogPath,
		Secret:      *secret,
		Issuer:      *issuer,
		Players:     *players,
		MaxHits:     *maxHits,
		BatchShare:  *batchShare,
		TopN:        *topN,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if err := playsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
