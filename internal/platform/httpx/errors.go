// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/araxson/enorae-sub010/internal/shared"
)

// StatusFor maps a taxonomy error to its HTTP status code.
func StatusFor(err error) int {
	switch shared.KindOf(err) {
	case shared.ErrUnauthenticated, shared.ErrInvalidCredentials:
		return http.StatusUnauthorized
	case shared.ErrForbidden:
		return http.StatusForbidden
	case shared.ErrValidation:
		return http.StatusBadRequest
	case shared.ErrNotFound:
		return http.StatusNotFound
	case shared.ErrRateLimited:
		return http.StatusTooManyRequests
	case shared.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	detail := shared.UserSafeMessage(err)
	if status == http.StatusInternalServerError {
		detail = ""
	}
	Problem(w, status, http.StatusText(status), detail)
}
