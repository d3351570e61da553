package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/hoops/internal/adapters/http/auth"
	"github.com/okian/hoops/internal/domain/model"
	"github.com/okian/hoops/pkg/logger"
	"github.com/okian/hoops/pkg/metrics"
)

// playerHandler serves a request on behalf of an authenticated player.
type playerHandler func(w http.ResponseWriter, r *http.Request, player model.Player)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)
	}
}

// player authenticates the bearer token before calling next.
func (s *Server) player(next playerHandler, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.verifier.Verify(auth.FromHeader(r.Header.Get("Authorization")))
		if err != nil {
			s.log.Debug(r.Context(), "rejected credential",
				logger.String("endpoint", endpoint),
				logger.Error(err),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="hoops"`)
			writeError(w, http.StatusUnauthorized, codeUnauthorized, fmt.Errorf("%w: %w", ErrUnauthorized, err))
			return
		}
		next(w, r, p)
	}, endpoint)
}

// admin checks the operator token before calling next.
func (s *Server) admin(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		got := auth.FromHeader(r.Header.Get("Authorization"))
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusForbidden, codeForbidden, errors.New("admin token required"))
			return
		}
		next(w, r)
	}, endpoint)
}

// idempotent runs apply unless the player already used the request's
// Idempotency-Key. The key is released when apply fails so the client can
// retry with it.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, player model.Player, route string, apply func() bool) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || s.deduper == nil {
		apply()
		return
	}
	scoped := player.ID + ":" + route + ":" + key
	if s.deduper.SeenAndRecord(r.Context(), scoped) {
		metrics.RecordHTTPDuplicate()
		writeError(w, http.StatusConflict, codeDuplicate, fmt.Errorf("%w: %s", ErrDuplicate, key))
		return
	}
	if !apply() {
		s.deduper.Unrecord(r.Context(), scoped)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
