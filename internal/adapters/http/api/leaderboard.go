package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/hoops/internal/domain/model"
)

const defaultLeaderboardLimit = 10

// handleGetLeaderboard handles GET /leaderboard?limit=N requests.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request, _ model.Player) {
	n := defaultLeaderboardLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
	}
	if n > s.maxLimit {
		writeError(w, http.StatusBadRequest, codeLimit, fmt.Errorf("%w: limit exceeds %d", ErrBadRequest, s.maxLimit))
		return
	}
	entries, err := s.deps.Top(r.Context(), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGetStanding handles GET /leaderboard/me requests.
func (s *Server) handleGetStanding(w http.ResponseWriter, r *http.Request, player model.Player) {
	st, err := s.deps.Standing(r.Context(), player)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
