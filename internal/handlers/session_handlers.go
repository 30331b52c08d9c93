package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/response"
)

// Login validates a booking ID as a session credential and returns the
// record. There is nothing to mint: the booking ID itself is the bearer
// credential on subsequent requests.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON format", response.CodeInvalidInput)
		return
	}

	booking, err := h.authenticator.Authenticate(r.Context(), req.Identifier)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

func (h *Handlers) GetMyBooking(w http.ResponseWriter, r *http.Request) {
	booking := sessionBooking(r)
	if booking == nil {
		response.Error(w, http.StatusUnauthorized, "no session", response.CodeUnauthorized)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

func (h *Handlers) UpdateMyBooking(w http.ResponseWriter, r *http.Request) {
	booking := sessionBooking(r)
	if booking == nil {
		response.Error(w, http.StatusUnauthorized, "no session", response.CodeUnauthorized)
		return
	}

	var patch domain.ClientPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON format", response.CodeInvalidInput)
		return
	}

	updated, err := h.bookingRepo.Update(r.Context(), booking.ID, patch)
	if err != nil {
		response.DomainError(w, err)
		return
	}
	if updated == nil {
		response.Error(w, http.StatusNotFound, "booking not found", response.CodeNotFound)
		return
	}

	response.JSON(w, http.StatusOK, updated)
}

func (h *Handlers) CancelMyBooking(w http.ResponseWriter, r *http.Request) {
	booking := sessionBooking(r)
	if booking == nil {
		response.Error(w, http.StatusUnauthorized, "no session", response.CodeUnauthorized)
		return
	}

	if err := h.adminService.CancelBooking(r.Context(), booking.ID, "client_requested"); err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"message": "booking cancelled",
	})
}
