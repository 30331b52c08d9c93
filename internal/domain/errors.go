package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the booking ID or email does not resolve to a record.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidFormat means an identifier failed format validation before lookup.
	ErrInvalidFormat = errors.New("invalid booking ID format")

	// ErrCancelled means the record exists but is cancelled. Authentication
	// treats this as a hard failure, not a state for callers to check.
	ErrCancelled = errors.New("booking is cancelled")

	// ErrExhausted means the allocator hit its collision ceiling.
	ErrExhausted = errors.New("identifier space exhausted")

	// ErrConflict is a persistence uniqueness violation. It triggers an
	// allocator retry and is not surfaced to callers unless retries run out.
	ErrConflict = errors.New("booking ID already exists")

	// ErrInvalidOrExpiredCode covers OTP mismatch, expiry and lockout alike.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")

	// ErrNoActiveSubmission means no pending submission matches the email.
	ErrNoActiveSubmission = errors.New("no active submission for this email")
)

// ValidationError is a recoverable input error: the caller can correct the
// field and retry.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
