package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/internal/domain/notify"
	"github.com/okian/hoops/pkg/logger"
)

// Welcome texts.
const (
	welcomeMessage     = "Welcome to the game!"
	welcomeBackMessage = "Welcome back! You last logged in at %s"
)

// PlayerRegistered greets a newly registered player and returns the notice id.
func (s *Service) PlayerRegistered(ctx context.Context, player model.Player) string {
	return s.notices.ToPlayer(ctx, player.ID, welcomeMessage, notify.TypeWelcome)
}

// PlayerLoggedIn greets a returning player with their previous login time.
func (s *Service) PlayerLoggedIn(ctx context.Context, player model.Player, lastLoginAt time.Time) string {
	msg := fmt.Sprintf(welcomeBackMessage, lastLoginAt.UTC().Format(time.RFC3339))
	return s.notices.ToPlayer(ctx, player.ID, msg, notify.TypeWelcomeBack)
}

// Announce broadcasts an operator message to every player.
func (s *Service) Announce(ctx context.Context, message string) string {
	id := s.notices.ToAll(ctx, message, notify.TypeAnnouncement)
	s.log.Info(ctx, "announcement queued", logger.String("notice_id", id))
	return id
}
