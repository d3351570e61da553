// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/hoops/internal/adapters/http/auth"
	"github.com/okian/hoops/internal/adapters/push"
	"github.com/okian/hoops/internal/domain/dedupe"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/internal/domain/reconcile"
	"github.com/okian/hoops/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StartSession(ctx context.Context, player model.Player) error
	AddScore(ctx context.Context, player model.Player, ev model.ScoreEvent) (int64, error)
	EndSession(ctx context.Context, player model.Player) (model.Standing, error)
	EndSessionWithScores(ctx context.Context, player model.Player, events []model.ScoreEvent) (model.Standing, error)

	GetProgress(ctx context.Context, player model.Player) (model.Progress, error)
	Standing(ctx context.Context, player model.Player) (model.Standing, error)
	Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	PlayerRegistered(ctx context.Context, player model.Player) string
	PlayerLoggedIn(ctx context.Context, player model.Player, lastLoginAt time.Time) string
	Announce(ctx context.Context, message string) string

	LeaderboardReset(ctx context.Context, leaderboardID, versionID string) (reconcile.ResetResult, error)
	RolloverAndReset(ctx context.Context, leaderboardID string) (reconcile.ResetResult, error)
}

// Inbox hands out queued notices for a player.
type Inbox interface {
	Drain(playerID string) []push.Message
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps       Dependencies
	verifier   *auth.Verifier
	inbox      Inbox
	deduper    dedupe.Deduper
	stats      StatsProvider
	adminToken string
	maxLimit   int
	log        logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithDeduper enables Idempotency-Key handling on score submissions.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Server) { s.deduper = d }
}

// WithStats exposes GET /stats.
func WithStats(p StatsProvider) Option {
	return func(s *Server) { s.stats = p }
}

// WithAdminToken enables the /admin routes guarded by token.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, verifier *auth.Verifier, inbox Inbox, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		verifier: verifier,
		inbox:    inbox,
		maxLimit: 100,
		log:      logger.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(HandleHealth, "healthz")).Methods(http.MethodGet)
	if s.stats != nil {
		r.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats")).Methods(http.MethodGet)
	}

	r.HandleFunc("/sessions/start", s.player(s.handleStartSession, "start_session")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/scores", s.player(s.handleAddScore, "add_score")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/end", s.player(s.handleEndSession, "end_session")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/end-with-scores", s.player(s.handleEndSessionWithScores, "end_session_with_scores")).Methods(http.MethodPost)

	r.HandleFunc("/leaderboard", s.player(s.handleGetLeaderboard, "leaderboard")).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard/me", s.player(s.handleGetStanding, "leaderboard_me")).Methods(http.MethodGet)

	r.HandleFunc("/players/me/progress", s.player(s.handleGetProgress, "progress")).Methods(http.MethodGet)
	r.HandleFunc("/players/me/messages", s.player(s.handleGetMessages, "messages")).Methods(http.MethodGet)
	r.HandleFunc("/players/registered", s.player(s.handlePlayerRegistered, "player_registered")).Methods(http.MethodPost)
	r.HandleFunc("/players/logged-in", s.player(s.handlePlayerLoggedIn, "player_logged_in")).Methods(http.MethodPost)

	if s.adminToken != "" {
		admin := r.PathPrefix("/admin").Subrouter()
		admin.HandleFunc("/leaderboards/{id}/reset", s.admin(s.handleRolloverReset, "admin_rollover")).Methods(http.MethodPost)
		admin.HandleFunc("/leaderboards/{id}/versions/{version}/reset", s.admin(s.handleLeaderboardReset, "admin_reset")).Methods(http.MethodPost)
		admin.HandleFunc("/announcements", s.admin(s.handleAnnounce, "admin_announce")).Methods(http.MethodPost)
	}
}

// Router returns a new router with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
