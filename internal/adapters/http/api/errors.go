package api

import (
	"errors"
	"net/http"

	"github.com/okian/hoops/internal/domain/apperrors"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDuplicate    = errors.New("duplicate submission")
)

// Response codes that do not come from the domain.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeDuplicate    = "duplicate_submission"
	codeLimit        = "limit_exceeded"
	codeInternal     = "internal_error"
)

// writeDomainError maps a domain error kind to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		writeError(w, http.StatusBadRequest, code, err)
	case apperrors.KindSessionState:
		if code == apperrors.CodeNoEntries {
			writeError(w, http.StatusNotFound, code, err)
			return
		}
		writeError(w, http.StatusConflict, code, err)
	case apperrors.KindDependency:
		writeError(w, http.StatusBadGateway, code, err)
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err)
	}
}
