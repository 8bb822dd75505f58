package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/authz/server/internal/auth"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusOf maps a flow error kind to its HTTP status.
func StatusOf(kind auth.Kind) int {
	switch kind {
	case auth.ErrValidation,
		auth.ErrInvalidCredential,
		auth.ErrDeviceChallengeRequired,
		auth.ErrCodeMismatch,
		auth.ErrAlreadyVerified:
		return http.StatusBadRequest
	case auth.ErrConflict:
		return http.StatusConflict
	case auth.ErrNotFound, auth.ErrInvalidOrExpired, auth.ErrTokenMissing:
		return http.StatusNotFound
	case auth.ErrUnauthenticated:
		return http.StatusUnauthorized
	case auth.ErrSuspended, auth.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithError writes err as a JSON error body with the status of its kind.
func RespondWithError(w http.ResponseWriter, err error) {
	kind := auth.KindOf(err)
	RespondWithJSON(w, StatusOf(kind), errorResponse{Error: auth.MessageOf(err), Code: string(kind)})
}

// RespondWithKind writes a JSON error body for kind with msg.
func RespondWithKind(w http.ResponseWriter, kind auth.Kind, msg string) {
	RespondWithJSON(w, StatusOf(kind), errorResponse{Error: msg, Code: string(kind)})
}

// RespondWithJSON sends v as a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
