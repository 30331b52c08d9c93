package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/response"
)

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var status *domain.BookingStatus
	if v := r.URL.Query().Get("status"); v != "" {
		parsed, ok := domain.ParseBookingStatus(v)
		if !ok {
			response.Error(w, http.StatusBadRequest, "invalid status filter", response.CodeInvalidInput)
			return
		}
		status = &parsed
	}

	bookings, err := h.adminService.ListBookings(r.Context(), limit, offset, status)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.adminService.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.CancelBooking(r.Context(), chi.URLParam(r, "id"), "admin_cancelled"); err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"message": "booking cancelled",
	})
}

// CreateClient materializes a client record directly, skipping the OTP step.
func (h *Handlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON format", response.CodeInvalidInput)
		return
	}

	createdBy := ""
	if claims := getClaims(r); claims != nil {
		createdBy = claims.Sub
	}

	booking, err := h.adminService.CreateClient(r.Context(), &req, createdBy)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, booking)
}

// Impersonate mints a short-lived token scoped to one booking.
func (h *Handlers) Impersonate(w http.ResponseWriter, r *http.Request) {
	var req domain.ImpersonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid JSON format", response.CodeInvalidInput)
		return
	}

	issuedBy := ""
	if claims := getClaims(r); claims != nil {
		issuedBy = claims.Sub
	}

	token, err := h.issuer.Issue(r.Context(), req.Identifier, issuedBy)
	if err != nil {
		response.DomainError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, token)
}
