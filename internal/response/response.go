// Package response writes the uniform API envelope: {success, data?, error?}.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/pkg/auth"
	"github.com/stagelink/talent-bookings/pkg/logger"
)

type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error codes
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidIdentifier = "INVALID_IDENTIFIER"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidCode       = "INVALID_OR_EXPIRED_CODE"
	CodeNoSubmission      = "NO_ACTIVE_SUBMISSION"
	CodeCancelled         = "BOOKING_CANCELLED"
	CodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeInternalError     = "INTERNAL_ERROR"
)

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(Envelope{Success: true, Data: data}); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	env := Envelope{Success: false, Error: &ErrorBody{Message: message, Code: code}}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// DomainError maps core errors onto the envelope. Internal failures never
// leak detail to the caller.
func DomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(w, http.StatusBadRequest, verr.Error(), CodeInvalidInput)
	case errors.Is(err, domain.ErrInvalidFormat):
		Error(w, http.StatusBadRequest, err.Error(), CodeInvalidIdentifier)
	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error(), CodeNotFound)
	case errors.Is(err, domain.ErrCancelled):
		Error(w, http.StatusForbidden, err.Error(), CodeCancelled)
	case errors.Is(err, domain.ErrInvalidOrExpiredCode):
		Error(w, http.StatusUnauthorized, err.Error(), CodeInvalidCode)
	case errors.Is(err, domain.ErrNoActiveSubmission):
		Error(w, http.StatusNotFound, err.Error(), CodeNoSubmission)
	case errors.Is(err, domain.ErrConflict):
		Error(w, http.StatusConflict, err.Error(), CodeConflict)
	case errors.Is(err, auth.ErrInvalidToken):
		Error(w, http.StatusUnauthorized, err.Error(), CodeInvalidToken)
	default:
		// Covers ErrExhausted and unexpected failures alike.
		Error(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
	}
}
