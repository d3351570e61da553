// Package repository holds the leaderboard store: versioned, additive score
// tables with rank lookups.
package repository

import (
	"context"

	"github.com/okian/hoops/internal/domain/model"
)

// Entry represents a leaderboard row. Ranks start at 1.
type Entry = model.LeaderboardEntry

// Store provides read/write access to versioned leaderboards. A leaderboard is
// created on its first write; writes always go to its current version.
type Store interface {
	// AddPlayerScore adds delta to the player's score in the current version
	// and returns the updated entry.
	AddPlayerScore(ctx context.Context, leaderboardID, playerID string, delta int64) (Entry, error)

	// PlayerScore returns the player's entry in the current version.
	// Returns ErrNotFound if the player has no score.
	PlayerScore(ctx context.Context, leaderboardID, playerID string) (Entry, error)

	// TopEntries returns up to limit entries of a version ordered by rank.
	// An empty versionID selects the current version.
	TopEntries(ctx context.Context, leaderboardID, versionID string, limit int) ([]Entry, error)

	// CurrentVersion returns the id of the version accepting writes.
	CurrentVersion(ctx context.Context, leaderboardID string) (string, error)

	// Rollover archives the current version, opens an empty one and returns
	// the archived version id.
	Rollover(ctx context.Context, leaderboardID string) (string, error)

	// Count returns the number of players in the current version.
	Count(ctx context.Context, leaderboardID string) int
}
