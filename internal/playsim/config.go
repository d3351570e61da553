package playsim

import (
	"time"

	"github.com/okian/hoops/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	CatalogPath string        // Catalog file the service reads
	Secret      string        // JWT signing secret shared with the service
	Issuer      string        // JWT issuer
	Players     int           // Number of simulated players
	MaxHits     int           // Upper bound of hits per session
	BatchShare  float64       // Share of players ending with a batch (0..1)
	TopN        int           // Number of leaderboard entries to fetch
	Workers     int           // Number of concurrent players
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for played sessions
	LogFile     string        // Log file for simulation output
	Verbose     bool          // Enable verbose logging
}

// Play is one simulated session.
type Play struct {
	PlayerID string             `json:"player_id"`
	Batch    bool               `json:"batch"`
	Events   []model.ScoreEvent `json:"events"`
	Expected int64              `json:"expected"`
	Standing model.Standing     `json:"standing"`
	Err      string             `json:"error,omitempty"`
}

// Stats holds simulation statistics.
type Stats struct {
	PlayersSimulated   int
	SessionsCompleted  int
	SessionsFailed     int
	EventsSubmitted    int
	StandingsChecked   int
	StandingMismatches int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
