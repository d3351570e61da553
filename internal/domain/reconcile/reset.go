package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/leaderboard"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/internal/domain/notify"
	"github.com/okian/hoops/internal/platform/tracing"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

// ResetResult names the rewarded winner of a leaderboard version.
type ResetResult struct {
	LeaderboardID string                 `json:"leaderboard_id"`
	VersionID     string                 `json:"version_id"`
	Winner        model.LeaderboardEntry `json:"winner"`
}

// ResetHandler reacts to a leaderboard version closing: it broadcasts a
// leaderboard update and sends a reward notice to the top player.
type ResetHandler struct {
	board   *leaderboard.Accessor
	notices *notify.Dispatcher
	log     logger.Logger
}

// ResetOption configures a ResetHandler.
type ResetOption func(*ResetHandler)

// WithResetLogger sets the logger.
func WithResetLogger(l logger.Logger) ResetOption {
	return func(h *ResetHandler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewResetHandler builds a ResetHandler.
func NewResetHandler(board *leaderboard.Accessor, notices *notify.Dispatcher, opts ...ResetOption) *ResetHandler {
	h := &ResetHandler{board: board, notices: notices, log: logger.Default().Named("reset")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// LeaderboardReset reads the top entry of versionID and notifies. It does not
// roll the leaderboard over. An empty or unknown version fails with NoEntries.
func (h *ResetHandler) LeaderboardReset(ctx context.Context, leaderboardID, versionID string) (res ResetResult, err error) {
	began := time.Now()
	ctx, end := tracing.Start(ctx, scope, "LeaderboardReset")
	defer func() {
		end(err)
		metrics.RecordOperationLatency("leaderboard_reset", apperrors.Outcome(err), float64(time.Since(began).Milliseconds()))
	}()

	if leaderboardID == "" {
		leaderboardID = h.board.ID()
	}
	top, err := h.board.Top(ctx, leaderboardID, versionID, 1)
	switch {
	case errors.Is(err, leaderboard.ErrVersionNotFound):
		return ResetResult{}, apperrors.NoEntries(leaderboardID, versionID)
	case err != nil:
		return ResetResult{}, apperrors.Dependency("leaderboard reset read", err)
	case len(top) == 0:
		return ResetResult{}, apperrors.NoEntries(leaderboardID, versionID)
	}

	winner := top[0]
	h.notices.ToAll(ctx, notify.MessageUpdateLeaderboard, notify.TypeLeaderboard)
	h.notices.ToPlayer(ctx, winner.PlayerID, notify.MessageReward, notify.TypeReward)

	metrics.RecordLeaderboardReset()
	h.log.Info(ctx, "leaderboard version rewarded",
		logger.String("leaderboard_id", leaderboardID),
		logger.String("version_id", versionID),
		logger.String("winner", winner.PlayerID),
		logger.Int64("score", winner.Score),
	)
	return ResetResult{LeaderboardID: leaderboardID, VersionID: versionID, Winner: winner}, nil
}

// RolloverAndReset archives the current version and runs LeaderboardReset on
// it. The rollover stands even when the archived version was empty.
func (h *ResetHandler) RolloverAndReset(ctx context.Context, leaderboardID string) (ResetResult, error) {
	if leaderboardID == "" {
		leaderboardID = h.board.ID()
	}
	archived, err := h.board.Rollover(ctx, leaderboardID)
	if err != nil {
		return ResetResult{}, apperrors.Dependency("leaderboard rollover", err)
	}
	return h.LeaderboardReset(ctx, leaderboardID, archived)
}
