// Package model contains domain models passed between layers.
package model

import "time"

// Player is the authenticated caller of every produced operation. It is built
// by the transport from a verified bearer credential and passed explicitly.
type Player struct {
	ID    string // authenticated player id
	Token string // bearer credential forwarded to remote stores
}

// Position locates a target in the play space. The server never validates it;
// it is carried so clients can spawn targets from the same snapshot.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// ScoringTarget is one hoop of a catalog snapshot.
type ScoringTarget struct {
	ID       int      `json:"id"`
	Points   int      `json:"score"`
	Position Position `json:"position"`
}

// ScoreEvent is one client claim. It is untrusted and never persisted.
type ScoreEvent struct {
	TargetID        int   `json:"hoopId"`
	ClaimedPoints   int   `json:"hoopScore"`
	EventTimeMillis int64 `json:"eventTime"`
}

// EventTime returns the event timestamp.
func (e ScoreEvent) EventTime() time.Time {
	return time.UnixMilli(e.EventTimeMillis)
}

// SessionWindow bounds the times at which score events are valid.
type SessionWindow struct {
	Start  time.Time
	Length time.Duration
}

// End returns Start + Length.
func (w SessionWindow) End() time.Time {
	return w.Start.Add(w.Length)
}

// Open reports whether t lies in [Start, End()+grace].
func (w SessionWindow) Open(t time.Time, grace time.Duration) bool {
	return !t.Before(w.Start) && !t.After(w.End().Add(grace))
}

// LeaderboardEntry is a ranked row owned by the leaderboard store.
type LeaderboardEntry struct {
	PlayerID string `json:"player_id"`
	Score    int64  `json:"score"`
	Rank     int    `json:"rank"`
}

// Standing is the result of committing a session score.
type Standing struct {
	Score int64 `json:"score"`
	Rank  int   `json:"rank"`
}

// Progress is a player's long-lived counters as of a read.
type Progress struct {
	ProgressPoints int64 `json:"progress_points"`
	DailyHoopCount int64 `json:"daily_hoop_count"`
	SessionScore   int64 `json:"session_score"`
}
