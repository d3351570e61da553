// Package scoring validates client score claims against a catalog snapshot and
// a session window. It is pure: no I/O, no clocks.
package scoring

import (
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/model"
)

// Tally is the validated outcome of one or more events.
type Tally struct {
	Points int64 // sum of configured target points
	Hits   int64 // number of validated events
}

// Target checks that ev names a catalog target and claims its configured
// points. Existence is checked first, so an unknown target is reported as
// UnknownTarget whatever the claim.
func Target(snap catalog.Snapshot, ev model.ScoreEvent) (model.ScoringTarget, error) {
	t, ok := snap.Target(ev.TargetID)
	if !ok {
		return model.ScoringTarget{}, apperrors.UnknownTarget(ev.TargetID)
	}
	if ev.ClaimedPoints != t.Points {
		return model.ScoringTarget{}, apperrors.ScoreMismatch(ev.TargetID, ev.ClaimedPoints, t.Points)
	}
	return t, nil
}

// Event validates one batched event: target, points, then its timestamp
// within [Start, End()+grace].
func Event(snap catalog.Snapshot, window model.SessionWindow, grace time.Duration, ev model.ScoreEvent) (model.ScoringTarget, error) {
	t, err := Target(snap, ev)
	if err != nil {
		return model.ScoringTarget{}, err
	}
	if !window.Open(ev.EventTime(), grace) {
		return model.ScoringTarget{}, apperrors.EventOutOfWindow(
			ev.TargetID,
			ev.EventTimeMillis,
			window.Start.UnixMilli(),
			window.End().Add(grace).UnixMilli(),
		)
	}
	return t, nil
}

// Batch validates every event in order and stops at the first violation.
// The tally is only meaningful when err is nil.
func Batch(snap catalog.Snapshot, window model.SessionWindow, grace time.Duration, events []model.ScoreEvent) (Tally, error) {
	var tally Tally
	for _, ev := range events {
		t, err := Event(snap, window, grace, ev)
		if err != nil {
			return Tally{}, err
		}
		tally.Points += int64(t.Points)
		tally.Hits++
	}
	return tally, nil
}
