package repository

import (
	"errors"

	"github.com/okian/hoops/internal/domain/leaderboard"
)

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound           = leaderboard.ErrNotFound
	ErrVersionNotFound    = leaderboard.ErrVersionNotFound
	ErrInvalidLimit       = errors.New("invalid leaderboard limit")
	ErrInvalidLeaderboard = errors.New("invalid leaderboard id")
)
