package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/hoops/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then playerID ASC (deterministic). "less" means ranks
// earlier, so in-order traversal yields the leaderboard from best to worst and
// subtree sizes give a player's rank in O(log n).

// treap node
type node struct {
	id    string
	score int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID).
func less(aScore int64, aID string, bScore int64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score int64, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score int64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based position of (id, score), or 0 if absent.
func rankOf(n *node, id string, score int64) int {
	before := 0
	for n != nil {
		switch {
		case n.id == id && n.score == score:
			return before + nsize(n.left) + 1
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			before += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Entry{Rank: len(*out) + 1, PlayerID: n.id, Score: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// version is one generation of a leaderboard.
type version struct {
	id     string
	root   *node
	scores map[string]int64
}

func newVersion(id string) *version {
	return &version{id: id, scores: make(map[string]int64)}
}

type board struct {
	current  *version
	archived map[string]*version
	order    []string // archived ids, oldest first
	seq      int
}

// TreapStore keeps every leaderboard in memory.
type TreapStore struct {
	mu          sync.RWMutex
	boards      map[string]*board
	rng         *rand.Rand
	seed        uint64
	maxArchived int
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		boards:      make(map[string]*board),
		seed:        uint64(time.Now().UnixNano()),
		maxArchived: 16,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed>>1|1))
	return s
}

func versionID(seq int) string {
	return fmt.Sprintf("v%d", seq)
}

// boardLocked returns the board for id, creating it when create is set.
func (s *TreapStore) boardLocked(id string, create bool) *board {
	b, ok := s.boards[id]
	if !ok && create {
		b = &board{current: newVersion(versionID(1)), archived: make(map[string]*version), seq: 1}
		s.boards[id] = b
	}
	return b
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidLeaderboard
	}
	return nil
}

// AddPlayerScore implements Store.AddPlayerScore in O(log n) expected time.
func (s *TreapStore) AddPlayerScore(ctx context.Context, leaderboardID, playerID string, delta int64) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := validID(leaderboardID); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	v := s.boardLocked(leaderboardID, true).current
	old, existed := v.scores[playerID]
	if existed {
		v.root = deleteNode(v.root, playerID, old)
	}
	score := old + delta
	v.scores[playerID] = score
	v.root = insert(v.root, playerID, score, s.rng.Uint64())
	rank := rankOf(v.root, playerID, score)
	count := len(v.scores)
	s.mu.Unlock()

	if !existed {
		metrics.UpdateLeaderboardPlayers(leaderboardID, count)
	}
	return Entry{Rank: rank, PlayerID: playerID, Score: score}, nil
}

// PlayerScore implements Store.PlayerScore in O(log n).
func (s *TreapStore) PlayerScore(ctx context.Context, leaderboardID, playerID string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.boardLocked(leaderboardID, false)
	if b == nil {
		return Entry{}, ErrNotFound
	}
	score, ok := b.current.scores[playerID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: rankOf(b.current.root, playerID, score), PlayerID: playerID, Score: score}, nil
}

// TopEntries implements Store.TopEntries.
func (s *TreapStore) TopEntries(ctx context.Context, leaderboardID, versionID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.boardLocked(leaderboardID, false)
	if b == nil {
		if versionID == "" {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("%w: %s/%s", ErrVersionNotFound, leaderboardID, versionID)
	}
	v := b.current
	if versionID != "" && versionID != v.id {
		var ok bool
		if v, ok = b.archived[versionID]; !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrVersionNotFound, leaderboardID, versionID)
		}
	}
	out := make([]Entry, 0, min(limit, len(v.scores)))
	collectTopN(v.root, limit, &out)
	return out, nil
}

// CurrentVersion implements Store.CurrentVersion.
func (s *TreapStore) CurrentVersion(ctx context.Context, leaderboardID string) (string, error) {
	if err := validID(leaderboardID); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardLocked(leaderboardID, true).current.id, nil
}

// Rollover implements Store.Rollover.
func (s *TreapStore) Rollover(ctx context.Context, leaderboardID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validID(leaderboardID); err != nil {
		return "", err
	}
	s.mu.Lock()
	b := s.boardLocked(leaderboardID, true)
	prev := b.current
	b.archived[prev.id] = prev
	b.order = append(b.order, prev.id)
	for len(b.order) > s.maxArchived {
		delete(b.archived, b.order[0])
		b.order = b.order[1:]
	}
	b.seq++
	b.current = newVersion(versionID(b.seq))
	s.mu.Unlock()

	metrics.UpdateLeaderboardPlayers(leaderboardID, 0)
	return prev.id, nil
}

// Count returns the number of players in the current version.
func (s *TreapStore) Count(ctx context.Context, leaderboardID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.boardLocked(leaderboardID, false)
	if b == nil {
		return 0
	}
	return len(b.current.scores)
}
