package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/identifier"
	"github.com/stagelink/talent-bookings/internal/repository"
	"github.com/stagelink/talent-bookings/pkg/events"
	"github.com/stagelink/talent-bookings/pkg/logger"
)

// AdminService covers the staff surface: direct client creation (no OTP
// step), listing and cancellation.
type AdminService interface {
	CreateClient(ctx context.Context, req *domain.SubmitRequest, createdBy string) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, id, reason string) error
}

type adminService struct {
	bookingRepo repository.BookingRepository
	allocator   *identifier.Allocator
	eventBus    events.Publisher
	tiers       domain.TierLookup
}

func NewAdminService(
	bookingRepo repository.BookingRepository,
	allocator *identifier.Allocator,
	eventBus events.Publisher,
	tiers domain.TierLookup,
) AdminService {
	return &adminService{
		bookingRepo: bookingRepo,
		allocator:   allocator,
		eventBus:    eventBus,
		tiers:       tiers,
	}
}

// CreateClient materializes a record immediately. The email ownership check
// is skipped on purpose: the caller is staff entering a known client.
func (s *adminService) CreateClient(ctx context.Context, req *domain.SubmitRequest, createdBy string) (*domain.Booking, error) {
	req.AcceptedTerms = true // staff entry carries implied consent
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	assignment, ok := s.tiers(req.BudgetTier)
	if !ok {
		return nil, domain.NewValidationError("budget_tier", "unknown budget tier")
	}

	for attempt := 0; attempt < materializeRetries; attempt++ {
		bookingID, err := s.allocator.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate booking ID: %w", err)
		}

		created, err := s.bookingRepo.Create(ctx, &domain.Booking{
			ID:             bookingID,
			Status:         domain.BookingActive,
			ClientName:     req.ClientName,
			ClientEmail:    req.ClientEmail,
			ClientPhone:    req.ClientPhone,
			EventType:      req.EventType,
			EventDate:      req.EventDate,
			EventLocation:  req.EventLocation,
			BudgetTier:     req.BudgetTier,
			Coordinator:    assignment.Coordinator,
			EstimatedValue: assignment.EstimatedValue,
			Notes:          req.Notes,
		})
		if err == nil {
			event := events.ClientCreatedEvent{
				BookingID:   created.ID,
				ClientEmail: created.ClientEmail,
				CreatedBy:   createdBy,
				CreatedAt:   time.Now(),
			}
			if err := s.eventBus.Publish(ctx, events.ClientCreated, event); err != nil {
				logger.ErrorContext(ctx, "Failed to publish client created event", "error", err, "booking_id", created.ID)
			}
			return created, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to create client record: %w", err)
		}

		logger.WarnContext(ctx, "Booking ID conflict on insert, re-allocating",
			"booking_id", bookingID, "attempt", attempt+1)
	}

	return nil, domain.ErrExhausted
}

func (s *adminService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	id = identifier.Normalize(id)
	if !identifier.Valid(id) {
		return nil, domain.ErrInvalidFormat
	}

	booking, err := s.bookingRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	return booking, nil
}

func (s *adminService) ListBookings(ctx context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	bookings, err := s.bookingRepo.List(ctx, limit, offset, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *adminService) CancelBooking(ctx context.Context, id, reason string) error {
	booking, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.bookingRepo.Cancel(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !ok {
		return domain.ErrCancelled
	}

	event := events.BookingCancelledEvent{
		BookingID:   booking.ID,
		ClientEmail: booking.ClientEmail,
		Reason:      reason,
		CancelledAt: time.Now(),
	}
	if err := s.eventBus.Publish(ctx, events.BookingCancelled, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking cancelled event", "error", err, "booking_id", booking.ID)
	}

	return nil
}
