package domain

import (
	"regexp"
	"strings"
	"time"
)

type SubmissionState string

const (
	StateSubmitted    SubmissionState = "submitted"
	StateEmailPending SubmissionState = "email_pending"
	StateVerified     SubmissionState = "verified"
	StateProcessed    SubmissionState = "processed"
)

// PendingSubmission tracks a booking request between form submission and
// email verification. Once it reaches StateProcessed the authoritative record
// belongs to the repository and the submission is kept only for status reads.
type PendingSubmission struct {
	SubmissionID string          `json:"submission_id"`
	BookingID    string          `json:"booking_id"`
	State        SubmissionState `json:"state"`
	Request      SubmitRequest   `json:"request"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	VerifiedAt   *time.Time      `json:"verified_at,omitempty"`
}

type SubmitRequest struct {
	ClientName    string    `json:"client_name"`
	ClientEmail   string    `json:"client_email"`
	ClientPhone   string    `json:"client_phone"`
	EventType     string    `json:"event_type"`
	EventDate     time.Time `json:"event_date"`
	EventLocation string    `json:"event_location"`
	BudgetTier    string    `json:"budget_tier"`
	Notes         string    `json:"notes"`
	AcceptedTerms bool      `json:"accepted_terms"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendOtpRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
}

type ImpersonateRequest struct {
	Identifier string `json:"identifier"`
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^[\+]?[\d\s\-\(\)]+$`)
	codeRegex  = regexp.MustCompile(`^\d{6}$`)
)

func (r *SubmitRequest) Normalize() {
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientEmail = NormalizeEmail(r.ClientEmail)
	r.ClientPhone = strings.TrimSpace(r.ClientPhone)
	r.EventType = strings.TrimSpace(r.EventType)
	r.EventLocation = strings.TrimSpace(r.EventLocation)
	r.BudgetTier = strings.ToLower(strings.TrimSpace(r.BudgetTier))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *SubmitRequest) Validate() error {
	if r.ClientName == "" {
		return NewValidationError("client_name", "name is required")
	}
	if r.ClientEmail == "" {
		return NewValidationError("client_email", "email is required")
	}
	if !emailRegex.MatchString(r.ClientEmail) {
		return NewValidationError("client_email", "invalid email format")
	}
	if r.ClientPhone == "" {
		return NewValidationError("client_phone", "phone is required")
	}
	if !phoneRegex.MatchString(r.ClientPhone) || len(r.ClientPhone) < 7 {
		return NewValidationError("client_phone", "invalid phone format")
	}
	if r.EventType == "" {
		return NewValidationError("event_type", "event type is required")
	}
	if r.EventDate.IsZero() {
		return NewValidationError("event_date", "event date is required")
	}
	if r.EventDate.Before(time.Now()) {
		return NewValidationError("event_date", "event date must be in the future")
	}
	if !IsValidTier(r.BudgetTier) {
		return NewValidationError("budget_tier", "unknown budget tier")
	}
	if !r.AcceptedTerms {
		return NewValidationError("accepted_terms", "terms must be accepted")
	}
	return nil
}

func (r *VerifyEmailRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyEmailRequest) Validate() error {
	if r.Email == "" {
		return NewValidationError("email", "email is required")
	}
	if !emailRegex.MatchString(r.Email) {
		return NewValidationError("email", "invalid email format")
	}
	if !codeRegex.MatchString(r.Code) {
		return NewValidationError("code", "code must be 6 digits")
	}
	return nil
}

func (r *ResendOtpRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *ResendOtpRequest) Validate() error {
	if r.Email == "" {
		return NewValidationError("email", "email is required")
	}
	if !emailRegex.MatchString(r.Email) {
		return NewValidationError("email", "invalid email format")
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
