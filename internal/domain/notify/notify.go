// Package notify is the fire-and-forget side of push notifications: it turns
// messages into notices and hands them to a queue without waiting.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/logger"
)

// Messages and message types.
const (
	MessageUpdateLeaderboard = "update-leaderboard"
	MessageReward            = "reward"

	TypeWelcome      = "Welcome"
	TypeWelcomeBack  = "WelcomeBack"
	TypeReward       = "reward"
	TypeAnnouncement = ""
	TypeLeaderboard  = ""
)

// Enqueuer accepts notices without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, n model.Notice) error
}

// Dispatcher builds notices and enqueues them. It never reports failure to
// callers; rejected notices are logged.
type Dispatcher struct {
	queue Enqueuer
	log   logger.Logger
	now   func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDispatcher builds a Dispatcher over queue.
func NewDispatcher(queue Enqueuer, opts ...Option) *Dispatcher {
	d := &Dispatcher{queue: queue, log: logger.Default().Named("notify"), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ToPlayer queues a one-to-one notice and returns its id.
func (d *Dispatcher) ToPlayer(ctx context.Context, playerID, message, messageType string) string {
	return d.dispatch(ctx, model.Notice{
		Audience: model.AudiencePlayer,
		PlayerID: playerID,
		Message:  message,
		Type:     messageType,
	})
}

// ToAll queues a broadcast notice and returns its id.
func (d *Dispatcher) ToAll(ctx context.Context, message, messageType string) string {
	return d.dispatch(ctx, model.Notice{
		Audience: model.AudienceAll,
		Message:  message,
		Type:     messageType,
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, n model.Notice) string {
	n.ID = uuid.NewString()
	n.CreatedAt = d.now().UTC()
	// The caller's request may finish before delivery; detach from its cancellation.
	if err := d.queue.Enqueue(context.WithoutCancel(ctx), n); err != nil {
		d.log.Warn(ctx, "notice dropped",
			logger.String("notice_id", n.ID),
			logger.String("audience", string(n.Audience)),
			logger.String("player_id", n.PlayerID),
			logger.String("message", n.Message),
			logger.Error(err),
		)
		return n.ID
	}
	d.log.Debug(ctx, "notice queued",
		logger.String("notice_id", n.ID),
		logger.String("audience", string(n.Audience)),
		logger.String("type", n.Type),
	)
	return n.ID
}
