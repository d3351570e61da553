// Package playerstate provides player-state stores for the progress accessor.
//
// MemoryStore keeps fields in process memory. The sqlite and postgres
// subpackages persist them.
package playerstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hoops/internal/domain/apperrors"
	"github.com/okian/hoops/internal/domain/progress"
)

// MemoryStore is an in-process progress.Store.
type MemoryStore struct {
	mu      sync.Mutex
	players map[string]map[string]progress.Field
	now     func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the clock used to stamp modifications.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		players: make(map[string]map[string]progress.Field),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetFields implements progress.Store.
func (s *MemoryStore) GetFields(ctx context.Context, playerID string, keys []string) ([]progress.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.players[playerID]
	out := make([]progress.Field, 0, len(keys))
	for _, k := range keys {
		if f, ok := stored[k]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// SetFields implements progress.Store. Every lock is checked before any field
// is written, so a conflict leaves the player untouched.
func (s *MemoryStore) SetFields(ctx context.Context, playerID string, writes []progress.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.players[playerID]
	for _, w := range writes {
		if w.WriteLock == "" {
			continue
		}
		if cur, ok := stored[w.Key]; !ok || cur.WriteLock != w.WriteLock {
			return fmt.Errorf("%w: key %s", apperrors.ErrWriteConflict, w.Key)
		}
	}

	if stored == nil {
		stored = make(map[string]progress.Field, len(writes))
		s.players[playerID] = stored
	}
	now := s.now().UTC()
	for _, w := range writes {
		stored[w.Key] = progress.Field{
			Key:       w.Key,
			Value:     w.Value,
			Modified:  now,
			WriteLock: uuid.NewString(),
		}
	}
	return nil
}

// Seed stores a field with an explicit modification time.
func (s *MemoryStore) Seed(playerID string, key string, value int64, modified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.players[playerID]
	if stored == nil {
		stored = make(map[string]progress.Field)
		s.players[playerID] = stored
	}
	stored[key] = progress.Field{Key: key, Value: value, Modified: modified.UTC(), WriteLock: uuid.NewString()}
}
