// Package auth turns bearer tokens into authenticated players.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/hoops/internal/domain/model"
)

// Sentinel errors.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrNoSecret     = errors.New("token secret is not configured")
)

// Verifier validates HS256 player tokens. The subject claim is the player id.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier builds a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify parses raw and returns the player it names.
func (v *Verifier) Verify(raw string) (model.Player, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Player{}, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return model.Player{}, ErrNoSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return model.Player{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.Player{}, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}
	return model.Player{ID: claims.Subject, Token: raw}, nil
}

// FromHeader extracts the token of an "Authorization: Bearer <token>" value.
func FromHeader(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Issue signs a token for playerID valid for ttl from now.
func Issue(secret, issuer, playerID string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token for %s: %w", playerID, err)
	}
	return signed, nil
}
