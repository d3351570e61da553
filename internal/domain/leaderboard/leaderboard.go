// Package leaderboard reads and submits player scores on the external
// leaderboard store.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/metrics"
)

// Sentinel errors shared with store implementations.
var (
	ErrNotFound        = errors.New("leaderboard entry not found")
	ErrVersionNotFound = errors.New("leaderboard version not found")
	ErrNoRollover      = errors.New("leaderboard store cannot roll over versions")
)

// Store is the external leaderboard service.
type Store interface {
	// AddPlayerScore adds delta to the player's score and returns the new entry.
	AddPlayerScore(ctx context.Context, leaderboardID, playerID string, delta int64) (model.LeaderboardEntry, error)
	// PlayerScore returns the player's entry, or ErrNotFound.
	PlayerScore(ctx context.Context, leaderboardID, playerID string) (model.LeaderboardEntry, error)
	// TopEntries returns up to limit entries of a version; "" is the current one.
	TopEntries(ctx context.Context, leaderboardID, versionID string, limit int) ([]model.LeaderboardEntry, error)
}

// Roller is implemented by stores that archive versions on demand.
type Roller interface {
	// Rollover archives the current version and returns its id.
	Rollover(ctx context.Context, leaderboardID string) (string, error)
}

// Accessor binds a Store to one leaderboard id for player-scoped calls.
type Accessor struct {
	store Store
	id    string
}

// NewAccessor builds an Accessor for leaderboardID.
func NewAccessor(store Store, leaderboardID string) *Accessor {
	return &Accessor{store: store, id: leaderboardID}
}

// ID returns the bound leaderboard id.
func (a *Accessor) ID() string { return a.id }

// Submit adds delta to the player's score.
func (a *Accessor) Submit(ctx context.Context, player model.Player, delta int64) (model.Standing, error) {
	start := time.Now()
	e, err := a.store.AddPlayerScore(ctx, a.id, player.ID, delta)
	metrics.RecordDependencyLatency("leaderboard", "submit", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDependencyError("leaderboard", "submit")
		return model.Standing{}, fmt.Errorf("submit %d to leaderboard %s: %w", delta, a.id, err)
	}
	metrics.RecordLeaderboardSubmit()
	return model.Standing{Score: e.Score, Rank: e.Rank}, nil
}

// Withdraw takes back a delta already submitted by a call whose player-state
// write was rejected, so a retry does not credit the points twice.
func (a *Accessor) Withdraw(ctx context.Context, player model.Player, delta int64) error {
	start := time.Now()
	_, err := a.store.AddPlayerScore(ctx, a.id, player.ID, -delta)
	metrics.RecordDependencyLatency("leaderboard", "withdraw", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDependencyError("leaderboard", "withdraw")
		return fmt.Errorf("withdraw %d from leaderboard %s: %w", delta, a.id, err)
	}
	return nil
}

// Standing returns the player's current entry. found is false when the player
// has no score yet.
func (a *Accessor) Standing(ctx context.Context, player model.Player) (st model.Standing, found bool, err error) {
	start := time.Now()
	e, err := a.store.PlayerScore(ctx, a.id, player.ID)
	metrics.RecordDependencyLatency("leaderboard", "get", float64(time.Since(start).Milliseconds()))
	if errors.Is(err, ErrNotFound) {
		return model.Standing{}, false, nil
	}
	if err != nil {
		metrics.RecordDependencyError("leaderboard", "get")
		return model.Standing{}, false, fmt.Errorf("read leaderboard %s: %w", a.id, err)
	}
	return model.Standing{Score: e.Score, Rank: e.Rank}, true, nil
}

// Top returns up to limit entries of any leaderboard version.
func (a *Accessor) Top(ctx context.Context, leaderboardID, versionID string, limit int) ([]model.LeaderboardEntry, error) {
	if leaderboardID == "" {
		leaderboardID = a.id
	}
	start := time.Now()
	entries, err := a.store.TopEntries(ctx, leaderboardID, versionID, limit)
	metrics.RecordDependencyLatency("leaderboard", "top", float64(time.Since(start).Milliseconds()))
	if err != nil {
		if !errors.Is(err, ErrVersionNotFound) {
			metrics.RecordDependencyError("leaderboard", "top")
		}
		return nil, fmt.Errorf("read top of %s/%s: %w", leaderboardID, versionID, err)
	}
	return entries, nil
}

// Rollover archives the current version of leaderboardID when the store
// supports it and returns the archived version id.
func (a *Accessor) Rollover(ctx context.Context, leaderboardID string) (string, error) {
	roller, ok := a.store.(Roller)
	if !ok {
		return "", ErrNoRollover
	}
	if leaderboardID == "" {
		leaderboardID = a.id
	}
	archived, err := roller.Rollover(ctx, leaderboardID)
	if err != nil {
		metrics.RecordDependencyError("leaderboard", "rollover")
		return "", fmt.Errorf("roll over %s: %w", leaderboardID, err)
	}
	return archived, nil
}
