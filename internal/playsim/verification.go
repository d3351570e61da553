package playsim

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/okian/hoops/internal/domain/model"
)

// verifyResults checks the leaderboard against the simulated plays.
func verifyResults(_ context.Context, config *Config, plays []Play, leaderboard []model.LeaderboardEntry, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if stats.SessionsCompleted == 0 {
		return fmt.Errorf("no completed sessions to verify")
	}
	if err := verifyLeaderboardConsistency(plays, leaderboard); err != nil {
		return err
	}
	if stats.StandingMismatches > 0 {
		return fmt.Errorf("%d standings disagree with the points scored", stats.StandingMismatches)
	}

	displayTopPerformers(plays, leaderboard, config.Verbose)
	log.Println("✅ Result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks ordering, rank numbering and the
// scores of simulated players that made the cut.
func verifyLeaderboardConsistency(plays []Play, leaderboard []model.LeaderboardEntry) error {
	expected := make(map[string]int64, len(plays))
	for _, p := range plays {
		if p.Err == "" {
			expected[p.PlayerID] = p.Expected
		}
	}

	for i, e := range leaderboard {
		if e.Rank != i+1 {
			return fmt.Errorf("leaderboard entry %d has rank %d", i, e.Rank)
		}
		if i > 0 && e.Score > leaderboard[i-1].Score {
			return fmt.Errorf("leaderboard not properly sorted: entry %d has higher score than entry %d", i, i-1)
		}
		if want, ok := expected[e.PlayerID]; ok && want != e.Score {
			return fmt.Errorf("leaderboard has %d for %s, expected %d", e.Score, e.PlayerID, want)
		}
	}
	return nil
}

// displayTopPerformers shows the best simulated sessions and the leaderboard head.
func displayTopPerformers(plays []Play, leaderboard []model.LeaderboardEntry, verbose bool) {
	sorted := make([]Play, 0, len(plays))
	for _, p := range plays {
		if p.Err == "" {
			sorted = append(sorted, p)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Expected > sorted[j].Expected })

	n := min(topPerformersShown, len(sorted))
	log.Printf("🏆 Top %d simulated sessions:", n)
	for i := 0; i < n; i++ {
		log.Printf("   %d. %s - %d points", i+1, sorted[i].PlayerID, sorted[i].Expected)
	}

	n = min(topPerformersShown, len(leaderboard))
	log.Printf("🥇 Top %d on the leaderboard:", n)
	for i := 0; i < n; i++ {
		log.Printf("   %d. %s - %d points", leaderboard[i].Rank, leaderboard[i].PlayerID, leaderboard[i].Score)
	}

	if verbose && len(sorted) > 0 {
		log.Printf(`📊 Session statistics:
   Average: %.2f
   Maximum: %d
   Minimum: %d
`, averagePoints(sorted), sorted[0].Expected, sorted[len(sorted)-1].Expected)
	}
}

func averagePoints(plays []Play) float64 {
	if len(plays) == 0 {
		return 0
	}
	var sum int64
	for _, p := range plays {
		sum += p.Expected
	}
	return float64(sum) / float64(len(plays))
}
