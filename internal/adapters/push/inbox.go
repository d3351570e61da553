// Package push delivers notices to in-process player inboxes that clients
// poll over HTTP.
package push

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoPlayer is returned for a one-to-one send without a player id.
var ErrNoPlayer = errors.New("player id is required")

const defaultInboxSize = 100

// Message is one delivered notice as seen by a player.
type Message struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Broadcast bool      `json:"broadcast"`
	SentAt    time.Time `json:"sent_at"`
}

// Hub keeps a bounded inbox per player and a bounded broadcast log. Each
// player reads broadcasts from its own cursor. A missing cursor means the
// oldest retained broadcast, so cursors that fall behind the log are pruned.
type Hub struct {
	mu         sync.Mutex
	inboxes    map[string][]Message
	broadcasts []Message
	dropped    int64 // broadcasts evicted from the head of the log
	pruned     int64 // value of dropped at the last cursor sweep
	cursors    map[string]int64
	size       int
	now        func() time.Time
}

// Option configures a Hub.
type Option func(*Hub)

// WithInboxSize bounds each player inbox and the broadcast log.
func WithInboxSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.size = n
		}
	}
}

// NewHub builds an empty Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		inboxes: make(map[string][]Message),
		cursors: make(map[string]int64),
		size:    defaultInboxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SendToPlayer appends to one player's inbox, evicting the oldest when full.
// id becomes the message id; an empty id gets a fresh one.
func (h *Hub) SendToPlayer(ctx context.Context, id, playerID, message, messageType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(playerID) == "" {
		return ErrNoPlayer
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	inbox := append(h.inboxes[playerID], h.message(id, message, messageType, false))
	if len(inbox) > h.size {
		inbox = inbox[len(inbox)-h.size:]
	}
	h.inboxes[playerID] = inbox
	return nil
}

// SendToAll appends to the broadcast log.
func (h *Hub) SendToAll(ctx context.Context, id, message, messageType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, h.message(id, message, messageType, true))
	if over := len(h.broadcasts) - h.size; over > 0 {
		h.broadcasts = h.broadcasts[over:]
		h.dropped += int64(over)
	}
	if h.dropped-h.pruned >= int64(h.size) {
		h.pruneLocked()
	}
	return nil
}

// pruneLocked drops cursors at or behind the head of the log; reading from
// the head is what a missing cursor does anyway.
func (h *Hub) pruneLocked() {
	for player, cursor := range h.cursors {
		if cursor <= h.dropped {
			delete(h.cursors, player)
		}
	}
	h.pruned = h.dropped
}

// Readers returns the number of players holding a broadcast cursor.
func (h *Hub) Readers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cursors)
}

// Drain returns and clears the player's pending messages: unread broadcasts
// first, then direct messages, each oldest first.
func (h *Hub) Drain(playerID string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	cursor := h.cursors[playerID]
	if cursor < h.dropped {
		cursor = h.dropped
	}
	start := int(cursor - h.dropped)
	out := make([]Message, 0, len(h.broadcasts)-start+len(h.inboxes[playerID]))
	out = append(out, h.broadcasts[start:]...)
	out = append(out, h.inboxes[playerID]...)

	if len(h.broadcasts) > 0 {
		h.cursors[playerID] = h.dropped + int64(len(h.broadcasts))
	} else {
		delete(h.cursors, playerID)
	}
	delete(h.inboxes, playerID)
	return out
}

func (h *Hub) message(id, message, messageType string, broadcast bool) Message {
	if id == "" {
		id = uuid.NewString()
	}
	return Message{
		ID:        id,
		Message:   message,
		Type:      messageType,
		Broadcast: broadcast,
		SentAt:    h.now().UTC(),
	}
}
