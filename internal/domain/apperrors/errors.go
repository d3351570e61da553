// Package apperrors defines the error taxonomy returned by every produced
// operation: validation, session-state and dependency failures.
package apperrors

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	// KindValidation means submitted data was rejected. Never retried.
	KindValidation Kind = "validation"
	// KindSessionState means the call conflicts with the session lifecycle.
	KindSessionState Kind = "session_state"
	// KindDependency means a remote store or config call failed; the caller may retry the whole call.
	KindDependency Kind = "dependency"
)

// Error codes.
const (
	CodeUnknownTarget    = "UNKNOWN_TARGET"
	CodeScoreMismatch    = "SCORE_MISMATCH"
	CodeEventOutOfWindow = "EVENT_OUT_OF_WINDOW"
	CodeSessionExpired   = "SESSION_EXPIRED"

	CodeSessionConflict = "SESSION_CONFLICT"
	CodeNoActiveSession = "NO_ACTIVE_SESSION"
	CodeExpired         = "EXPIRED"
	CodeNoEntries       = "NO_ENTRIES"

	CodeDependencyFailed = "DEPENDENCY_FAILED"
	CodeWriteConflict    = "WRITE_CONFLICT"
	CodeInvalidCatalog   = "INVALID_CATALOG"
)

// Error is the single error type surfaced by the domain.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err == nil {
		return e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes every aggregated cause so errors.Is/As see all of them.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return nil
	}
	return multierr.Errors(e.Err)
}

// Is matches another *Error by code, so sentinel-style comparisons work:
// errors.Is(err, apperrors.ErrUnknownTarget).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrUnknownTarget    = &Error{Kind: KindValidation, Code: CodeUnknownTarget}
	ErrScoreMismatch    = &Error{Kind: KindValidation, Code: CodeScoreMismatch}
	ErrEventOutOfWindow = &Error{Kind: KindValidation, Code: CodeEventOutOfWindow}
	ErrSessionExpired   = &Error{Kind: KindValidation, Code: CodeSessionExpired}
	ErrSessionConflict  = &Error{Kind: KindSessionState, Code: CodeSessionConflict}
	ErrNoActiveSession  = &Error{Kind: KindSessionState, Code: CodeNoActiveSession}
	ErrExpired          = &Error{Kind: KindSessionState, Code: CodeExpired}
	ErrNoEntries        = &Error{Kind: KindSessionState, Code: CodeNoEntries}
	ErrDependency       = &Error{Kind: KindDependency, Code: CodeDependencyFailed}
	ErrWriteConflict    = &Error{Kind: KindDependency, Code: CodeWriteConflict}
)

// UnknownTarget reports a target id missing from the catalog snapshot.
func UnknownTarget(targetID int) *Error {
	return &Error{Kind: KindValidation, Code: CodeUnknownTarget, Message: fmt.Sprintf("unknown target: %d", targetID)}
}

// ScoreMismatch reports a claimed value different from the configured one.
func ScoreMismatch(targetID, claimed, configured int) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeScoreMismatch,
		Message: fmt.Sprintf("target %d: claimed %d points, configured %d", targetID, claimed, configured),
	}
}

// EventOutOfWindow reports an event timestamp outside the session window.
func EventOutOfWindow(targetID int, eventMillis, startMillis, endMillis int64) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeEventOutOfWindow,
		Message: fmt.Sprintf("target %d: event at %d outside session [%d, %d]", targetID, eventMillis, startMillis, endMillis),
	}
}

// SessionExpired reports a single score arriving outside the session window.
func SessionExpired(reason string) *Error {
	return &Error{Kind: KindValidation, Code: CodeSessionExpired, Message: reason}
}

// SessionConflict reports an overlapping StartSession.
func SessionConflict(endsInMillis int64) *Error {
	return &Error{
		Kind:    KindSessionState,
		Code:    CodeSessionConflict,
		Message: fmt.Sprintf("a session is still active for %dms", endsInMillis),
	}
}

// NoActiveSession reports a call that needs a stored session start.
func NoActiveSession() *Error {
	return &Error{Kind: KindSessionState, Code: CodeNoActiveSession, Message: "no session has been started"}
}

// Expired reports a final batch arriving after the session end plus grace.
func Expired(lateByMillis int64) *Error {
	return &Error{
		Kind:    KindSessionState,
		Code:    CodeExpired,
		Message: fmt.Sprintf("session ended %dms past the grace period", lateByMillis),
	}
}

// NoEntries reports an empty leaderboard version.
func NoEntries(leaderboardID, versionID string) *Error {
	return &Error{
		Kind:    KindSessionState,
		Code:    CodeNoEntries,
		Message: fmt.Sprintf("leaderboard %s version %s has no entries", leaderboardID, versionID),
	}
}

// InvalidCatalog reports a catalog snapshot that cannot be decoded.
func InvalidCatalog(reason string, err error) *Error {
	return &Error{Kind: KindDependency, Code: CodeInvalidCatalog, Message: "invalid catalog: " + reason, Err: err}
}

// Dependency wraps one or more remote failures of op. A nil err yields nil.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	var app *Error
	if errors.As(err, &app) && len(multierr.Errors(err)) == 1 {
		// Already classified (write conflict, invalid catalog): keep it.
		return err
	}
	code := CodeDependencyFailed
	if errors.Is(err, ErrWriteConflict) {
		code = CodeWriteConflict
	}
	return &Error{Kind: KindDependency, Code: code, Message: op + " failed", Err: err}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var app *Error
	if errors.As(err, &app) {
		return app.Kind
	}
	return ""
}

// CodeOf returns the code of err, or "" when err is not a domain error.
func CodeOf(err error) string {
	var app *Error
	if errors.As(err, &app) {
		return app.Code
	}
	return ""
}

// Outcome labels err for metrics: "ok", its code, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := CodeOf(err); code != "" {
		return code
	}
	return "error"
}
