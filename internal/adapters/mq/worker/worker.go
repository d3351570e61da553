package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultDeliveryTimeout = 5 * time.Second
	poolShutdownTimeout    = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.Notice

// Sender is the push-delivery capability.
type Sender interface {
	SendToPlayer(ctx context.Context, id, playerID, message, messageType string) error
	SendToAll(ctx context.Context, id, message, messageType string) error
}

// Queue defines how workers receive notices.
type Queue interface {
	Dequeue() <-chan Event
}

// Worker delivers notices.
type Worker interface {
	// Run delivers notices until the queue is drained or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. Delivery failures are logged and counted,
// never retried.
type InMemoryWorker struct {
	queue   Queue
	sender  Sender
	name    string
	timeout time.Duration

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sender Sender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   queue,
		sender:  sender,
		name:    "worker",
		timeout: defaultDeliveryTimeout,
		done:    make(chan struct{}),
		logger:  logger.Default().Named("notify-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	notices := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			if err := w.deliver(ctx, n); err != nil {
				w.logger.Warn(ctx, "notice delivery failed",
					logger.String("notice_id", n.ID),
					logger.String("audience", string(n.Audience)),
					logger.String("type", n.Type),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown waits for the worker to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) deliver(ctx context.Context, n model.Notice) error { //nolint:gocritic // hugeParam: channel semantics need a value
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch n.Audience {
	case model.AudiencePlayer:
		err = w.sender.SendToPlayer(ctx, n.ID, n.PlayerID, n.Message, n.Type)
	case model.AudienceAll:
		err = w.sender.SendToAll(ctx, n.ID, n.Message, n.Type)
	default:
		err = fmt.Errorf("unknown audience %q", n.Audience)
	}
	if err != nil {
		metrics.RecordNotifyFailed(string(n.Audience), n.Type)
		return fmt.Errorf("deliver notice %s: %w", n.ID, err)
	}
	metrics.RecordNotifyDelivered(string(n.Audience), n.Type, float64(time.Since(start).Milliseconds()))
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, queue Queue, sender Sender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Default().Named("notify-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, sender, workerOpts...)
	}
	metrics.UpdateNotifyWorkers(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateNotifyWorkers(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
