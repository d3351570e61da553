// Package session opens and closes timed play sessions.
//
// A session is open from its stored start until start plus the configured
// session length. Starting a new session is refused while one is open; once
// the length has elapsed the next StartSession overwrites the old start.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/leaderboard"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/internal/domain/progress"
	"github.com/okian/hoops/internal/platform/fanout"
	"github.com/okian/hoops/internal/platform/tracing"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

const scope = "github.com/okian/hoops/internal/domain/session"

// Manager runs StartSession and EndSession.
type Manager struct {
	catalog *catalog.Reader
	state   *progress.Accessor
	board   *leaderboard.Accessor
	log     logger.Logger
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager builds a Manager.
func NewManager(cat *catalog.Reader, state *progress.Accessor, board *leaderboard.Accessor, opts ...Option) *Manager {
	m := &Manager{
		catalog: cat,
		state:   state,
		board:   board,
		log:     logger.Default().Named("session"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSession opens a new session for player. It fails with SessionConflict
// while the previous session is still open.
func (m *Manager) StartSession(ctx context.Context, player model.Player) (err error) {
	began := m.now()
	ctx, end := tracing.Start(ctx, scope, "StartSession", tracing.Player(player.ID))
	defer func() {
		end(err)
		metrics.RecordOperationLatency("start_session", apperrors.Outcome(err), float64(m.now().Sub(began).Milliseconds()))
	}()

	var (
		state  progress.State
		length time.Duration
	)
	err = fanout.All(ctx,
		fanout.Go("player_state", func(ctx context.Context) error {
			var err error
			state, err = m.state.Load(ctx, player, progress.KeySessionStart)
			return err
		}),
		fanout.Go("remote_config", func(ctx context.Context) error {
			var err error
			length, err = m.catalog.SessionLength(ctx, player)
			return err
		}),
	)
	if err != nil {
		m.log.Error(ctx, "start session fetch failed", logger.String("player_id", player.ID), logger.Error(err))
		return apperrors.Dependency("start session fetch", err)
	}

	now := m.now()
	if start, ok := state.SessionStart(); ok {
		window := model.SessionWindow{Start: start, Length: length}
		if now.Before(window.End()) {
			metrics.RecordSessionConflict()
			return apperrors.SessionConflict(window.End().Sub(now).Milliseconds())
		}
	}

	err = m.state.Save(ctx, player,
		progress.Write{Key: progress.KeySessionStart, Value: now.UnixMilli()},
		progress.Write{Key: progress.KeySessionScore, Value: 0},
		progress.Write{Key: progress.KeySessionSubmitted, Value: 0},
	)
	if err != nil {
		m.log.Error(ctx, "start session write failed", logger.String("player_id", player.ID), logger.Error(err))
		return apperrors.Dependency("start session write", err)
	}

	metrics.RecordSessionStarted()
	m.log.Debug(ctx, "session started",
		logger.String("player_id", player.ID),
		logger.Int64("start_ms", now.UnixMilli()),
		logger.Duration("length", length),
	)
	return nil
}

// EndSession commits the stored session score to the leaderboard and returns
// the session total with the resulting rank. Points already submitted by
// AddScore are not submitted again. A session with no points returns a zero
// result without touching the leaderboard. Session fields are left in place.
func (m *Manager) EndSession(ctx context.Context, player model.Player) (res model.Standing, err error) {
	began := m.now()
	ctx, end := tracing.Start(ctx, scope, "EndSession", tracing.Player(player.ID))
	defer func() {
		end(err)
		metrics.RecordOperationLatency("end_session", apperrors.Outcome(err), float64(m.now().Sub(began).Milliseconds()))
	}()

	state, err := m.state.Load(ctx, player, progress.SessionKeys...)
	if err != nil {
		m.log.Error(ctx, "end session fetch failed", logger.String("player_id", player.ID), logger.Error(err))
		return model.Standing{}, apperrors.Dependency("end session fetch", err)
	}
	if _, ok := state.SessionStart(); !ok {
		metrics.RecordSessionStateError(apperrors.CodeNoActiveSession)
		return model.Standing{}, apperrors.NoActiveSession()
	}

	score := state.Value(progress.KeySessionScore)
	if score <= 0 {
		metrics.RecordSessionEnded()
		return model.Standing{}, nil
	}

	pending := score - state.Value(progress.KeySessionSubmitted)
	if pending <= 0 {
		st, _, err := m.board.Standing(ctx, player)
		if err != nil {
			return model.Standing{}, apperrors.Dependency("end session read", err)
		}
		metrics.RecordSessionEnded()
		return model.Standing{Score: score, Rank: st.Rank}, nil
	}

	var (
		st        model.Standing
		submitted bool
	)
	err = fanout.All(ctx,
		fanout.Go("player_state", func(ctx context.Context) error {
			return m.state.Save(ctx, player, progress.Write{
				Key:       progress.KeySessionSubmitted,
				Value:     score,
				WriteLock: state.Lock(progress.KeySessionSubmitted),
			})
		}),
		fanout.Go("leaderboard", func(ctx context.Context) error {
			var err error
			st, err = m.board.Submit(ctx, player, pending)
			submitted = err == nil
			return err
		}),
	)
	if err != nil {
		if submitted && errors.Is(err, apperrors.ErrWriteConflict) {
			if werr := m.board.Withdraw(context.WithoutCancel(ctx), player, pending); werr != nil {
				m.log.Error(ctx, "leaderboard withdraw failed",
					logger.String("player_id", player.ID),
					logger.Int64("pending", pending),
					logger.Error(werr),
				)
			}
		}
		m.log.Error(ctx, "end session commit failed",
			logger.String("player_id", player.ID),
			logger.Int64("pending", pending),
			logger.Error(err),
		)
		return model.Standing{}, apperrors.Dependency("end session commit", err)
	}

	metrics.RecordSessionEnded()
	metrics.RecordPointsCommitted(pending)
	m.log.Debug(ctx, "session ended",
		logger.String("player_id", player.ID),
		logger.Int64("score", score),
		logger.Int("rank", st.Rank),
	)
	return model.Standing{Score: score, Rank: st.Rank}, nil
}
