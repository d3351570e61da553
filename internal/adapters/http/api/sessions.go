package api

import (
	"fmt"
	"net/http"

	"github.com/okian/hoops/internal/domain/model"
)

type addScoreResponse struct {
	SessionScore int64 `json:"session_score"`
}

type endSessionRequest struct {
	Events []model.ScoreEvent `json:"events"`
}

// handleStartSession handles POST /sessions/start.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request, player model.Player) {
	if err := s.deps.StartSession(r.Context(), player); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddScore handles POST /sessions/scores.
func (s *Server) handleAddScore(w http.ResponseWriter, r *http.Request, player model.Player) {
	var ev model.ScoreEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	s.idempotent(w, r, player, "scores", func() bool {
		total, err := s.deps.AddScore(r.Context(), player, ev)
		if err != nil {
			writeDomainError(w, err)
			return false
		}
		writeJSON(w, http.StatusOK, addScoreResponse{SessionScore: total})
		return true
	})
}

// handleEndSession handles POST /sessions/end.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request, player model.Player) {
	res, err := s.deps.EndSession(r.Context(), player)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleEndSessionWithScores handles POST /sessions/end-with-scores.
func (s *Server) handleEndSessionWithScores(w http.ResponseWriter, r *http.Request, player model.Player) {
	var req endSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	s.idempotent(w, r, player, "end-with-scores", func() bool {
		res, err := s.deps.EndSessionWithScores(r.Context(), player, req.Events)
		if err != nil {
			writeDomainError(w, err)
			return false
		}
		writeJSON(w, http.StatusOK, res)
		return true
	})
}
