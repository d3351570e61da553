package playsim

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hoops/internal/domain/model"
)

// checkStandings compares each completed player's standing with the points
// they scored.
func checkStandings(ctx context.Context, config *Config, client *HTTPClient, plays []Play, stats *Stats) error {
	log.Printf("🏆 Checking standings for %d players...", len(plays))

	var checked, mismatched int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for i := range plays {
		p := &plays[i]
		if p.Err != "" {
			continue
		}
		g.Go(func() error {
			var st model.Standing
			if err := client.do(gctx, http.MethodGet, "/leaderboard/me", p.PlayerID, nil, &st, StatusOK); err != nil {
				return fmt.Errorf("standing of %s: %w", p.PlayerID, err)
			}
			atomic.AddInt64(&checked, 1)
			if st.Score != p.Expected || p.Standing.Score != p.Expected {
				atomic.AddInt64(&mismatched, 1)
				log.Printf("⚠️  %s scored %d, session reported %d, leaderboard has %d",
					p.PlayerID, p.Expected, p.Standing.Score, st.Score)
			}
			return nil
		})
	}
	err := g.Wait()
	stats.StandingsChecked = int(checked)
	stats.StandingMismatches = int(mismatched)
	return err
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, client *HTTPClient, viewer string, stats *Stats) ([]model.LeaderboardEntry, error) {
	log.Printf("🥇 Getting top %d leaderboard entries...", config.TopN)

	var entries []model.LeaderboardEntry
	path := fmt.Sprintf("/leaderboard?limit=%d", config.TopN)
	if err := client.do(ctx, http.MethodGet, path, viewer, nil, &entries, StatusOK); err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	stats.LeaderboardEntries = len(entries)
	log.Printf("✅ Retrieved %d leaderboard entries", len(entries))
	return entries, nil
}
