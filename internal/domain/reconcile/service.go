// Package reconcile validates client score claims against the catalog and
// stored session, then commits them to player state and the leaderboard.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/leaderboard"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/internal/domain/notify"
	"github.com/okian/hoops/internal/domain/progress"
	"github.com/okian/hoops/internal/domain/scoring"
	"github.com/okian/hoops/internal/domain/session"
	"github.com/okian/hoops/internal/platform/fanout"
	"github.com/okian/hoops/internal/platform/tracing"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

const scope = "github.com/okian/hoops/internal/domain/reconcile"

// Score paths, used as metric labels.
const (
	pathSingle = "single"
	pathBatch  = "batch"
)

// Defaults.
const (
	DefaultGracePeriod   = 2 * time.Second
	DefaultTopRankNotify = 10
)

// Service is the produced API of the game backend.
type Service struct {
	sessions *session.Manager
	resets   *ResetHandler
	catalog  *catalog.Reader
	state    *progress.Accessor
	board    *leaderboard.Accessor
	notices  *notify.Dispatcher

	log     logger.Logger
	now     func() time.Time
	grace   time.Duration
	topRank int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithGracePeriod sets how long after the session end a final batch is still
// accepted.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.grace = d
		}
	}
}

// WithTopRankNotify sets the rank at or above which a score triggers a
// leaderboard-update broadcast. Zero disables the broadcast.
func WithTopRankNotify(rank int) Option {
	return func(s *Service) {
		if rank >= 0 {
			s.topRank = rank
		}
	}
}

// New builds a Service.
func New(cat *catalog.Reader, state *progress.Accessor, board *leaderboard.Accessor, notices *notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		catalog: cat,
		state:   state,
		board:   board,
		notices: notices,
		log:     logger.Default().Named("reconcile"),
		now:     time.Now,
		grace:   DefaultGracePeriod,
		topRank: DefaultTopRankNotify,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = session.NewManager(cat, state, board,
		session.WithLogger(s.log.Named("session")),
		session.WithClock(s.now),
	)
	s.resets = NewResetHandler(board, notices, WithResetLogger(s.log.Named("reset")))
	return s
}

// StartSession opens a session for player.
func (s *Service) StartSession(ctx context.Context, player model.Player) error {
	return s.sessions.StartSession(ctx, player)
}

// EndSession commits the stored session score.
func (s *Service) EndSession(ctx context.Context, player model.Player) (model.Standing, error) {
	return s.sessions.EndSession(ctx, player)
}

// LeaderboardReset rewards the winner of a leaderboard version.
func (s *Service) LeaderboardReset(ctx context.Context, leaderboardID, versionID string) (ResetResult, error) {
	return s.resets.LeaderboardReset(ctx, leaderboardID, versionID)
}

// RolloverAndReset archives the current version of leaderboardID and rewards
// its winner.
func (s *Service) RolloverAndReset(ctx context.Context, leaderboardID string) (ResetResult, error) {
	return s.resets.RolloverAndReset(ctx, leaderboardID)
}

// AddScore validates one hit against the catalog and the open session and
// commits it. It returns the new session total.
func (s *Service) AddScore(ctx context.Context, player model.Player, ev model.ScoreEvent) (total int64, err error) {
	began := s.now()
	ctx, end := tracing.Start(ctx, scope, "AddScore", tracing.Player(player.ID))
	defer func() {
		end(err)
		metrics.RecordOperationLatency("add_score", apperrors.Outcome(err), float64(s.now().Sub(began).Milliseconds()))
	}()

	snap, state, err := s.fetch(ctx, player)
	if err != nil {
		s.log.Error(ctx, "add score fetch failed", logger.String("player_id", player.ID), logger.Error(err))
		return 0, apperrors.Dependency("add score fetch", err)
	}

	target, err := scoring.Target(snap, ev)
	if err != nil {
		return 0, s.reject(ctx, pathSingle, player, err)
	}
	start, ok := state.SessionStart()
	if !ok {
		return 0, s.reject(ctx, pathSingle, player, apperrors.SessionExpired("no session has been started"))
	}
	now := s.now()
	window := model.SessionWindow{Start: start, Length: snap.SessionLength}
	if !window.Open(now, 0) {
		return 0, s.reject(ctx, pathSingle, player, apperrors.SessionExpired(
			fmt.Sprintf("now %d outside session [%d, %d]", now.UnixMilli(), start.UnixMilli(), window.End().UnixMilli())))
	}
	if !window.Open(ev.EventTime(), 0) {
		return 0, s.reject(ctx, pathSingle, player, apperrors.SessionExpired(
			fmt.Sprintf("event at %d outside session [%d, %d]", ev.EventTimeMillis, start.UnixMilli(), window.End().UnixMilli())))
	}

	points := int64(target.Points)
	total = state.Value(progress.KeySessionScore) + points
	st, err := s.commit(ctx, player, state, scoring.Tally{Points: points, Hits: 1}, snap.PointsPerHit, now)
	if err != nil {
		return 0, apperrors.Dependency("add score commit", err)
	}

	metrics.RecordScoresAccepted(pathSingle, 1)
	metrics.RecordPointsCommitted(points)
	s.announceRank(ctx, st)
	return total, nil
}

// EndSessionWithScores validates a whole batch of hits and commits it as one
// delta. Any invalid event rejects the batch with nothing written. An empty
// batch writes nothing and returns the current standing.
func (s *Service) EndSessionWithScores(ctx context.Context, player model.Player, events []model.ScoreEvent) (res model.Standing, err error) {
	began := s.now()
	ctx, end := tracing.Start(ctx, scope, "EndSessionWithScores", tracing.Player(player.ID))
	defer func() {
		end(err)
		metrics.RecordOperationLatency("end_session_with_scores", apperrors.Outcome(err), float64(s.now().Sub(began).Milliseconds()))
	}()

	snap, state, err := s.fetch(ctx, player)
	if err != nil {
		s.log.Error(ctx, "end session fetch failed", logger.String("player_id", player.ID), logger.Error(err))
		return model.Standing{}, apperrors.Dependency("end session fetch", err)
	}

	start, ok := state.SessionStart()
	if !ok {
		metrics.RecordSessionStateError(apperrors.CodeNoActiveSession)
		return model.Standing{}, apperrors.NoActiveSession()
	}
	now := s.now()
	window := model.SessionWindow{Start: start, Length: snap.SessionLength}
	if deadline := window.End().Add(s.grace); now.After(deadline) {
		metrics.RecordSessionStateError(apperrors.CodeExpired)
		return model.Standing{}, apperrors.Expired(now.Sub(deadline).Milliseconds())
	}

	tally, err := scoring.Batch(snap, window, s.grace, events)
	if err != nil {
		return model.Standing{}, s.reject(ctx, pathBatch, player, err)
	}

	stored := state.Value(progress.KeySessionScore)
	if len(events) == 0 {
		st, _, err := s.board.Standing(ctx, player)
		if err != nil {
			return model.Standing{}, apperrors.Dependency("end session read", err)
		}
		metrics.RecordSessionEnded()
		return model.Standing{Score: stored, Rank: st.Rank}, nil
	}

	st, err := s.commit(ctx, player, state, tally, snap.PointsPerHit, now)
	if err != nil {
		return model.Standing{}, apperrors.Dependency("end session commit", err)
	}

	metrics.RecordScoresAccepted(pathBatch, len(events))
	metrics.RecordPointsCommitted(tally.Points)
	metrics.RecordSessionEnded()
	s.announceRank(ctx, st)
	return model.Standing{Score: stored + tally.Points, Rank: st.Rank}, nil
}

// GetProgress returns the player's counters with the daily count reset when
// it was last written on an earlier day.
func (s *Service) GetProgress(ctx context.Context, player model.Player) (model.Progress, error) {
	state, err := s.state.Load(ctx, player, progress.KeySessionScore, progress.KeyDailyHoopCount, progress.KeyProgressPoints)
	if err != nil {
		return model.Progress{}, apperrors.Dependency("progress read", err)
	}
	return model.Progress{
		ProgressPoints: state.Value(progress.KeyProgressPoints),
		DailyHoopCount: state.DailyHoopCount(s.now()),
		SessionScore:   state.Value(progress.KeySessionScore),
	}, nil
}

// Standing returns the player's current leaderboard entry. A player without
// a score gets a zero standing.
func (s *Service) Standing(ctx context.Context, player model.Player) (model.Standing, error) {
	st, _, err := s.board.Standing(ctx, player)
	if err != nil {
		return model.Standing{}, apperrors.Dependency("leaderboard read", err)
	}
	return st, nil
}

// Top returns up to limit entries of the current leaderboard version.
func (s *Service) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	entries, err := s.board.Top(ctx, "", "", limit)
	if err != nil {
		return nil, apperrors.Dependency("leaderboard read", err)
	}
	return entries, nil
}

func (s *Service) fetch(ctx context.Context, player model.Player) (catalog.Snapshot, progress.State, error) {
	var (
		snap  catalog.Snapshot
		state progress.State
	)
	err := fanout.All(ctx,
		fanout.Go("remote_config", func(ctx context.Context) error {
			var err error
			snap, err = s.catalog.Snapshot(ctx, player)
			return err
		}),
		fanout.Go("player_state", func(ctx context.Context) error {
			var err error
			state, err = s.state.Load(ctx, player, progress.AllKeys...)
			return err
		}),
	)
	return snap, state, err
}

// commit writes the counter batch and submits the leaderboard delta
// concurrently. Every counter write is conditional on the revision read, so
// a concurrent reconciliation makes one of them fail with a write conflict.
// The loser's leaderboard delta is withdrawn again.
func (s *Service) commit(ctx context.Context, player model.Player, state progress.State, tally scoring.Tally, perHit int64, now time.Time) (model.Standing, error) {
	writes := []progress.Write{
		{
			Key:       progress.KeySessionScore,
			Value:     state.Value(progress.KeySessionScore) + tally.Points,
			WriteLock: state.Lock(progress.KeySessionScore),
		},
		{
			Key:       progress.KeySessionSubmitted,
			Value:     state.Value(progress.KeySessionSubmitted) + tally.Points,
			WriteLock: state.Lock(progress.KeySessionSubmitted),
		},
		{
			Key:       progress.KeyDailyHoopCount,
			Value:     state.DailyHoopCount(now) + tally.Hits,
			WriteLock: state.Lock(progress.KeyDailyHoopCount),
		},
		{
			Key:       progress.KeyProgressPoints,
			Value:     state.Value(progress.KeyProgressPoints) + tally.Hits*perHit,
			WriteLock: state.Lock(progress.KeyProgressPoints),
		},
	}

	var (
		st        model.Standing
		submitted bool
	)
	err := fanout.All(ctx,
		fanout.Go("player_state", func(ctx context.Context) error {
			return s.state.Save(ctx, player, writes...)
		}),
		fanout.Go("leaderboard", func(ctx context.Context) error {
			var err error
			st, err = s.board.Submit(ctx, player, tally.Points)
			submitted = err == nil
			return err
		}),
	)
	if err != nil {
		if submitted && errors.Is(err, apperrors.ErrWriteConflict) {
			if werr := s.board.Withdraw(context.WithoutCancel(ctx), player, tally.Points); werr != nil {
				s.log.Error(ctx, "leaderboard withdraw failed",
					logger.String("player_id", player.ID),
					logger.Int64("points", tally.Points),
					logger.Error(werr),
				)
			}
		}
		s.log.Error(ctx, "score commit failed",
			logger.String("player_id", player.ID),
			logger.Int64("points", tally.Points),
			logger.Int64("hits", tally.Hits),
			logger.Error(err),
		)
		return model.Standing{}, err
	}
	return st, nil
}

func (s *Service) reject(ctx context.Context, path string, player model.Player, err error) error {
	metrics.RecordScoreRejected(path, apperrors.CodeOf(err))
	s.log.Debug(ctx, "score rejected",
		logger.String("player_id", player.ID),
		logger.String("path", path),
		logger.Error(err),
	)
	return err
}

func (s *Service) announceRank(ctx context.Context, st model.Standing) {
	if st.Rank > 0 && st.Rank <= s.topRank {
		s.notices.ToAll(ctx, notify.MessageUpdateLeaderboard, notify.TypeLeaderboard)
	}
}
