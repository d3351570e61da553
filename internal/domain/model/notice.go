package model

import "time"

// Audience selects who receives a Notice.
type Audience string

const (
	// AudiencePlayer delivers to a single player.
	AudiencePlayer Audience = "player"
	// AudienceAll broadcasts to every player.
	AudienceAll Audience = "all"
)

// Notice is a push message travelling through the notification queue.
type Notice struct {
	ID        string    `json:"id"`
	Audience  Audience  `json:"audience"`
	PlayerID  string    `json:"player_id,omitempty"` // set when Audience is AudiencePlayer
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
