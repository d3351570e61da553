// Package progress reads and writes the per-player progress fields kept in
// the external player-state store.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/metrics"
)

// Player-state keys.
const (
	KeySessionStart   = "session-start"    // unix ms of the current or last session start
	KeySessionScore   = "session-score"    // validated points of the current session
	KeyDailyHoopCount = "daily-hoop-count" // validated hits today, lazily reset
	KeyProgressPoints = "progress-points"  // reward currency, never decreases
	// KeySessionSubmitted holds the part of session-score already added to
	// the leaderboard, so EndSession submits only the remainder.
	KeySessionSubmitted = "session-submitted"
)

// SessionKeys and AllKeys are the field sets read by the produced operations.
var (
	SessionKeys = []string{KeySessionStart, KeySessionScore, KeySessionSubmitted}
	AllKeys     = []string{KeySessionStart, KeySessionScore, KeySessionSubmitted, KeyDailyHoopCount, KeyProgressPoints}
)

// Field is one stored value with its modification metadata.
type Field struct {
	Key      string
	Value    int64
	Modified time.Time
	// WriteLock is an opaque token identifying this revision. Passing it back
	// in a Write makes the write conditional on the field being unchanged.
	WriteLock string
}

// Write sets one field. An empty WriteLock writes unconditionally.
type Write struct {
	Key       string
	Value     int64
	WriteLock string
}

// Store is the external per-player key-value store.
type Store interface {
	// GetFields returns the stored fields among keys; absent keys are omitted.
	GetFields(ctx context.Context, playerID string, keys []string) ([]Field, error)
	// SetFields applies writes atomically. A stale WriteLock fails the whole
	// batch with an error wrapping apperrors.ErrWriteConflict.
	SetFields(ctx context.Context, playerID string, writes []Write) error
}

// State is a read view of a player's fields.
type State struct {
	fields map[string]Field
}

// NewState builds a State from fields.
func NewState(fields []Field) State {
	s := State{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		s.fields[f.Key] = f
	}
	return s
}

// Field returns the stored field for key.
func (s State) Field(key string) (Field, bool) {
	f, ok := s.fields[key]
	return f, ok
}

// Value returns the stored value for key, or 0 when absent.
func (s State) Value(key string) int64 {
	return s.fields[key].Value
}

// Lock returns the write lock for key, or "" when absent.
func (s State) Lock(key string) string {
	return s.fields[key].WriteLock
}

// SessionStart returns the stored session start.
func (s State) SessionStart() (time.Time, bool) {
	f, ok := s.fields[KeySessionStart]
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(f.Value), true
}

// DailyHoopCount returns today's hit count as of now, applying the lazy reset.
func (s State) DailyHoopCount(now time.Time) int64 {
	f, ok := s.fields[KeyDailyHoopCount]
	if !ok {
		return 0
	}
	return ResetIfStale(f.Value, f.Modified, now)
}

// ResetIfStale returns value when lastModified falls on the same UTC calendar
// day as now, and 0 otherwise.
func ResetIfStale(value int64, lastModified, now time.Time) int64 {
	if sameDayUTC(lastModified, now) {
		return value
	}
	return 0
}

func sameDayUTC(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Accessor wraps a Store with timing and error context.
type Accessor struct {
	store Store
}

// NewAccessor builds an Accessor.
func NewAccessor(store Store) *Accessor {
	return &Accessor{store: store}
}

// Load reads keys for player.
func (a *Accessor) Load(ctx context.Context, player model.Player, keys ...string) (State, error) {
	start := time.Now()
	fields, err := a.store.GetFields(ctx, player.ID, keys)
	metrics.RecordDependencyLatency("player_state", "get", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDependencyError("player_state", "get")
		return State{}, fmt.Errorf("get player fields %v: %w", keys, err)
	}
	return NewState(fields), nil
}

// Save writes one batch for player.
func (a *Accessor) Save(ctx context.Context, player model.Player, writes ...Write) error {
	start := time.Now()
	err := a.store.SetFields(ctx, player.ID, writes)
	metrics.RecordDependencyLatency("player_state", "set", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDependencyError("player_state", "set")
		if errors.Is(err, apperrors.ErrWriteConflict) {
			metrics.RecordWriteConflict()
		}
		return fmt.Errorf("set player fields %v: %w", writeKeys(writes), err)
	}
	return nil
}

func writeKeys(writes []Write) []string {
	keys := make([]string, len(writes))
	for i, w := range writes {
		keys[i] = w.Key
	}
	return keys
}
