package playsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/hoops/internal/adapters/remoteconfig"
	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/logger"
)

const randomFloatDivisor = 1_000_000

// randIntn returns a uniform int in [0, n) using crypto/rand.
func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func randFloat() float64 {
	return float64(randIntn(randomFloatDivisor)) / randomFloatDivisor
}

// loadCatalog reads the targets the service validates against.
func loadCatalog(ctx context.Context, path string) (catalog.Snapshot, error) {
	src, err := remoteconfig.NewFileSource(path)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	snap, err := catalog.NewReader(src).Snapshot(ctx, model.Player{})
	if err != nil {
		return catalog.Snapshot{}, err
	}
	if len(snap.Targets) == 0 {
		return catalog.Snapshot{}, fmt.Errorf("catalog %s has no targets", path)
	}
	return snap, nil
}

// generatePlays creates one session per fresh player. Event times are filled
// in while playing since they must fall inside the live session.
func generatePlays(ctx context.Context, config *Config, snap catalog.Snapshot, stats *Stats) []Play {
	logger.Get().Info(ctx, "generating plays", logger.Int("players", config.Players))

	plays := make([]Play, config.Players)
	for i := range plays {
		hits := 1 + randIntn(max(config.MaxHits, 1))
		p := Play{
			PlayerID: "sim-" + uuid.NewString(),
			Batch:    randFloat() < config.BatchShare,
			Events:   make([]model.ScoreEvent, hits),
		}
		for j := range p.Events {
			t := snap.Targets[randIntn(len(snap.Targets))]
			p.Events[j] = model.ScoreEvent{TargetID: t.ID, ClaimedPoints: t.Points}
			p.Expected += int64(t.Points)
		}
		plays[i] = p
	}
	stats.PlayersSimulated = len(plays)
	return plays
}
