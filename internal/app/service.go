// Package service assembles the reconciliation core with its stores, the
// notification pipeline and the inbox hub, and owns their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"

	noticequeue "github.com/okian/hoops/internal/adapters/mq/queue"
	workerpool "github.com/okian/hoops/internal/adapters/mq/worker"
	"github.com/okian/hoops/internal/adapters/playerstate"
	"github.com/okian/hoops/internal/adapters/push"
	repository "github.com/okian/hoops/internal/adapters/repository"
	"github.com/okian/hoops/internal/domain/catalog"
	"github.com/okian/hoops/internal/domain/dedupe"
	"github.com/okian/hoops/internal/domain/leaderboard"
	"github.com/okian/hoops/internal/domain/notify"
	"github.com/okian/hoops/internal/domain/progress"
	"github.com/okian/hoops/internal/domain/reconcile"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

// ErrNoCatalog is returned by Start when no catalog source is configured.
var ErrNoCatalog = errors.New("catalog source is required")

// Service owns every long-lived component behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	core    *reconcile.Service
	board   *repository.TreapStore
	state   progress.Store
	source  catalog.Source
	deduper dedupe.Deduper
	queue   *noticequeue.InMemoryQueue
	pool    *workerpool.Pool
	hub     *push.Hub

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	inboxSize     int
	leaderboardID string
	gracePeriod   time.Duration
	topRank       int
	now           func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the notification queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency-key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithInboxSize caps each player's undelivered messages.
func WithInboxSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.inboxSize = size
		}
	}
}

// WithLeaderboardID names the leaderboard sessions submit to.
func WithLeaderboardID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.leaderboardID = id
		}
	}
}

// WithGracePeriod sets the batch acceptance grace after session end.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.gracePeriod = d
		}
	}
}

// WithTopRankNotify sets the rank at or above which a score triggers a
// leaderboard broadcast. Zero disables the broadcast.
func WithTopRankNotify(rank int) Option {
	return func(s *Service) {
		if rank >= 0 {
			s.topRank = rank
		}
	}
}

// WithPlayerStore sets the player-state store. The default keeps state in
// memory. A store implementing io.Closer is closed on Stop.
func WithPlayerStore(store progress.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.state = store
		}
	}
}

// WithCatalogSource sets the remote-config source. Required.
func WithCatalogSource(src catalog.Source) Option {
	return func(s *Service) { s.source = src }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     10_000,
		dedupeSize:    100_000,
		inboxSize:     100,
		leaderboardID: "scores",
		gracePeriod:   2 * time.Second,
		topRank:       10,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the notification workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.source == nil {
		return ErrNoCatalog
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting hoops service...")

	if s.state == nil {
		s.state = playerstate.NewMemoryStore(playerstate.WithClock(s.now))
		s.logger.Info(ctx, "using in-memory player state")
	}
	s.board = repository.NewTreapStore()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.hub = push.NewHub(push.WithInboxSize(s.inboxSize))
	s.queue = noticequeue.NewInMemoryQueue(noticequeue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.hub,
		workerpool.WithLogger(s.logger.Named("notify")),
	)
	// Workers outlive the start context: they stop when Stop closes the queue.
	s.pool.Start(context.WithoutCancel(ctx))

	notices := notify.NewDispatcher(s.queue, notify.WithLogger(s.logger.Named("notify")))
	s.core = reconcile.New(
		catalog.NewReader(s.source),
		progress.NewAccessor(s.state),
		leaderboard.NewAccessor(s.board, s.leaderboardID),
		notices,
		reconcile.WithLogger(s.logger.Named("reconcile")),
		reconcile.WithClock(s.now),
		reconcile.WithGracePeriod(s.gracePeriod),
		reconcile.WithTopRankNotify(s.topRank),
	)

	s.started = true
	s.logger.Info(ctx, "hoops service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("leaderboard", s.leaderboardID),
	)
	return nil
}

// Stop drains pending notices and closes the player-state store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping hoops service...")

	var err error
	if perr := s.pool.Shutdown(ctx); perr != nil {
		err = multierr.Append(err, fmt.Errorf("drain notices: %w", perr))
	}
	if closer, ok := s.state.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close player store: %w", cerr))
		}
	}

	s.started = false
	s.logger.Info(ctx, "hoops service stopped")
	return err
}

// Core returns the reconciliation service. Nil before Start.
func (s *Service) Core() *reconcile.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.core
}

// Inbox returns the push hub players read their messages from.
func (s *Service) Inbox() *push.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// Deduper returns the idempotency-key cache.
func (s *Service) Deduper() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"leaderboard":   s.leaderboardID,
		"topRankNotify": s.topRank,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	players := s.board.Count(context.Background(), s.leaderboardID)
	stats["queueLength"] = queueLen
	stats["rankedPlayers"] = players
	stats["idempotencyKeys"] = s.deduper.Size()
	stats["inboxReaders"] = s.hub.Readers()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats["goroutines"] = runtime.NumGoroutine()
	stats["heapBytes"] = mem.HeapAlloc

	metrics.UpdateNotifyQueueSize(queueLen)
	metrics.UpdateLeaderboardPlayers(s.leaderboardID, players)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	return stats
}
