package playsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/hoops/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	if config.Players < 1 {
		return fmt.Errorf("players must be positive, got %d", config.Players)
	}
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting hoops play simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("catalog", config.CatalogPath),
		logger.Int("players", config.Players),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Load the catalog and generate plays
	snap, err := loadCatalog(ctx, config.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog load failed: %w", err)
	}
	plays := generatePlays(ctx, config, snap, stats)

	// Step 3: Play sessions concurrently
	if err := playSessions(ctx, config, client, plays, stats); err != nil {
		return fmt.Errorf("session play failed: %w", err)
	}

	// Step 4: Check standings
	if err := checkStandings(ctx, config, client, plays, stats); err != nil {
		return fmt.Errorf("standing check failed: %w", err)
	}

	// Step 5: Get leaderboard
	leaderboard, err := getLeaderboard(ctx, config, client, plays[0].PlayerID, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	// Step 6: Save plays to file
	if err := savePlaysToFile(ctx, config, plays); err != nil {
		logger.Get().Warn(ctx, "failed to save plays to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	// Step 7: Verify results
	if err := verifyResults(ctx, config, plays, leaderboard, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")
	// The service answers with Prometheus metrics, which are not JSON.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savePlaysToFile saves the played sessions to a JSON file.
func savePlaysToFile(ctx context.Context, config *Config, plays []Play) error {
	if len(plays) == 0 {
		return fmt.Errorf("no plays to save")
	}

	filename := config.OutputFile
	if filename == "" {
		filename = "plays_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(plays, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plays: %w", err)
	}
	if err := os.WriteFile(filename, data, outputPermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	logger.Get().Info(ctx, "plays saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, sessionsPerSecond float64
	if stats.PlayersSimulated > 0 {
		successRate = float64(stats.SessionsCompleted) / float64(stats.PlayersSimulated) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		sessionsPerSecond = float64(stats.SessionsCompleted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("playersSimulated", stats.PlayersSimulated),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("standingsChecked", stats.StandingsChecked),
		logger.Int("standingMismatches", stats.StandingMismatches),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}
