package service

import (
	"context"
	"fmt"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/identifier"
	"github.com/stagelink/talent-bookings/internal/repository"
)

// SessionAuthenticator validates a booking ID presented as a bearer
// credential. Every request re-runs the check against current record state:
// a booking can be cancelled between requests, and a cancelled record is a
// hard authentication failure here, not a state for endpoints to police.
type SessionAuthenticator struct {
	bookingRepo repository.BookingRepository
}

func NewSessionAuthenticator(bookingRepo repository.BookingRepository) *SessionAuthenticator {
	return &SessionAuthenticator{bookingRepo: bookingRepo}
}

func (a *SessionAuthenticator) Authenticate(ctx context.Context, id string) (*domain.Booking, error) {
	id = identifier.Normalize(id)

	// Format check before any lookup.
	if !identifier.Valid(id) {
		return nil, domain.ErrInvalidFormat
	}

	booking, err := a.bookingRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if booking.IsCancelled() {
		return nil, domain.ErrCancelled
	}

	return booking, nil
}
