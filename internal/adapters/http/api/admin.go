package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type announceRequest struct {
	Message string `json:"message"`
}

// handleRolloverReset handles POST /admin/leaderboards/{id}/reset: the
// current version is archived and its winner rewarded.
func (s *Server) handleRolloverReset(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.RolloverAndReset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleLeaderboardReset handles POST /admin/leaderboards/{id}/versions/{version}/reset.
func (s *Server) handleLeaderboardReset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.deps.LeaderboardReset(r.Context(), vars["id"], vars["version"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAnnounce handles POST /admin/announcements.
func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: missing message", ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusAccepted, noticeResponse{NoticeID: s.deps.Announce(r.Context(), req.Message)})
}
