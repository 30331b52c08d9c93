package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/response"
)

// Submit accepts a booking request, allocates a booking ID and sends the OTP.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON format", response.CodeInvalidInput)
		return
	}

	sub, err := h.workflow.Submit(r.Context(), &req)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusAccepted, map[string]string{
		"identifier":    sub.BookingID,
		"submission_id": sub.SubmissionID,
		"message":       "verification code sent to your email",
	})
}

// VerifyEmail consumes the OTP and promotes the submission to processed.
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON format", response.CodeInvalidInput)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.DomainError(w, err)
		return
	}

	booking, err := h.workflow.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"identifier": booking.ID,
	})
}

// ResendOtp re-issues the code for a pending submission.
func (h *Handlers) ResendOtp(w http.ResponseWriter, r *http.Request) {
	var req domain.ResendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON format", response.CodeInvalidInput)
		return
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		response.DomainError(w, err)
		return
	}

	if err := h.workflow.ResendOtp(r.Context(), req.Email); err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"message": "verification code sent to your email",
	})
}
