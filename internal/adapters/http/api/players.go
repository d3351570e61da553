package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/okian/hoops/internal/adapters/push"
	"github.com/okian/hoops/internal/domain/model"
)

type noticeResponse struct {
	NoticeID string `json:"notice_id"`
}

type loggedInRequest struct {
	LastLoginAt time.Time `json:"last_login_at"`
}

// handleGetProgress handles GET /players/me/progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request, player model.Player) {
	p, err := s.deps.GetProgress(r.Context(), player)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleGetMessages handles GET /players/me/messages. Reading drains the inbox.
func (s *Server) handleGetMessages(w http.ResponseWriter, _ *http.Request, player model.Player) {
	msgs := s.inbox.Drain(player.ID)
	if msgs == nil {
		msgs = []push.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handlePlayerRegistered handles POST /players/registered.
func (s *Server) handlePlayerRegistered(w http.ResponseWriter, r *http.Request, player model.Player) {
	writeJSON(w, http.StatusAccepted, noticeResponse{NoticeID: s.deps.PlayerRegistered(r.Context(), player)})
}

// handlePlayerLoggedIn handles POST /players/logged-in.
func (s *Server) handlePlayerLoggedIn(w http.ResponseWriter, r *http.Request, player model.Player) {
	var req loggedInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if req.LastLoginAt.IsZero() {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: missing last_login_at", ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusAccepted, noticeResponse{NoticeID: s.deps.PlayerLoggedIn(r.Context(), player, req.LastLoginAt)})
}
