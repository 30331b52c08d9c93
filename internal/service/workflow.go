package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/identifier"
	"github.com/stagelink/talent-bookings/internal/mailer"
	"github.com/stagelink/talent-bookings/internal/otp"
	"github.com/stagelink/talent-bookings/internal/repository"
	"github.com/stagelink/talent-bookings/pkg/events"
	"github.com/stagelink/talent-bookings/pkg/logger"
)

// materializeRetries bounds allocate-and-create retries when the insert hits
// a uniqueness conflict.
const materializeRetries = 3

type SubmissionWorkflow interface {
	Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.PendingSubmission, error)
	ResendOtp(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) (*domain.Booking, error)
	Status(email string) (*domain.PendingSubmission, bool)
}

type submissionWorkflow struct {
	bookingRepo repository.BookingRepository
	allocator   *identifier.Allocator
	otpStore    *otp.Store
	mailer      mailer.Service
	eventBus    events.Publisher
	tiers       domain.TierLookup

	mu      sync.RWMutex
	pending map[string]*domain.PendingSubmission // keyed by normalized email
}

func NewSubmissionWorkflow(
	bookingRepo repository.BookingRepository,
	allocator *identifier.Allocator,
	otpStore *otp.Store,
	mailer mailer.Service,
	eventBus events.Publisher,
	tiers domain.TierLookup,
) SubmissionWorkflow {
	return &submissionWorkflow{
		bookingRepo: bookingRepo,
		allocator:   allocator,
		otpStore:    otpStore,
		mailer:      mailer,
		eventBus:    eventBus,
		tiers:       tiers,
		pending:     make(map[string]*domain.PendingSubmission),
	}
}

func (s *submissionWorkflow) Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.PendingSubmission, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bookingID, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate booking ID: %w", err)
	}

	sub := &domain.PendingSubmission{
		SubmissionID: uuid.NewString(),
		BookingID:    bookingID,
		State:        domain.StateSubmitted,
		Request:      *req,
		SubmittedAt:  time.Now(),
	}

	code, err := s.otpStore.Issue(req.ClientEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification code: %w", err)
	}
	sub.State = domain.StateEmailPending

	// A fresh submission for the same email supersedes the old one; the old
	// code was already replaced by Issue.
	s.mu.Lock()
	s.pending[req.ClientEmail] = sub
	s.mu.Unlock()

	if err := s.mailer.SendOtpEmail(req.ClientEmail, req.ClientName, bookingID, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send OTP email", "error", err, "submission_id", sub.SubmissionID)
		// Delivery is best-effort; the client can request a resend.
	}

	event := events.BookingSubmittedEvent{
		SubmissionID: sub.SubmissionID,
		BookingID:    bookingID,
		ClientEmail:  req.ClientEmail,
		ClientName:   req.ClientName,
		EventType:    req.EventType,
		EventDate:    req.EventDate,
		SubmittedAt:  sub.SubmittedAt,
	}
	if err := s.eventBus.Publish(ctx, events.BookingSubmitted, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking submitted event", "error", err, "submission_id", sub.SubmissionID)
	}

	return sub, nil
}

func (s *submissionWorkflow) ResendOtp(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	s.mu.RLock()
	sub, ok := s.pending[email]
	s.mu.RUnlock()

	if !ok || sub.State != domain.StateEmailPending {
		return domain.ErrNoActiveSubmission
	}

	code, err := s.otpStore.Issue(email)
	if err != nil {
		return fmt.Errorf("failed to re-issue verification code: %w", err)
	}

	if err := s.mailer.SendOtpEmail(email, sub.Request.ClientName, sub.BookingID, code); err != nil {
		logger.ErrorContext(ctx, "Failed to send OTP email", "error", err, "submission_id", sub.SubmissionID)
	}

	return nil
}

func (s *submissionWorkflow) VerifyEmail(ctx context.Context, email, code string) (*domain.Booking, error) {
	email = domain.NormalizeEmail(email)

	// Consuming the code is the sole gate: of any concurrent duplicate calls
	// only the one that observes true here materializes the record.
	if !s.otpStore.Verify(email, code) {
		return nil, domain.ErrInvalidOrExpiredCode
	}

	s.mu.Lock()
	sub, ok := s.pending[email]
	if !ok || sub.State != domain.StateEmailPending {
		s.mu.Unlock()
		return nil, domain.ErrInvalidOrExpiredCode
	}
	sub.State = domain.StateVerified
	s.mu.Unlock()

	booking, err := s.materialize(ctx, sub)
	if err != nil {
		// Roll the state back so a resend-and-retry still works.
		s.mu.Lock()
		sub.State = domain.StateEmailPending
		s.mu.Unlock()
		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	sub.BookingID = booking.ID
	sub.State = domain.StateProcessed
	sub.VerifiedAt = &now
	s.mu.Unlock()

	if err := s.mailer.SendConfirmationEmail(booking.ClientEmail, booking.ClientName, booking.ID, booking.Coordinator); err != nil {
		logger.ErrorContext(ctx, "Failed to send confirmation email", "error", err, "booking_id", booking.ID)
	}

	event := events.BookingVerifiedEvent{
		SubmissionID: sub.SubmissionID,
		BookingID:    booking.ID,
		ClientEmail:  booking.ClientEmail,
		Coordinator:  booking.Coordinator,
		VerifiedAt:   now,
	}
	if err := s.eventBus.Publish(ctx, events.BookingVerified, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking verified event", "error", err, "booking_id", booking.ID)
	}

	return booking, nil
}

func (s *submissionWorkflow) Status(email string) (*domain.PendingSubmission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.pending[domain.NormalizeEmail(email)]
	return sub, ok
}

// materialize converts the pending submission into the authoritative record.
// The repository's uniqueness constraint is the real collision oracle: on
// conflict the booking ID is re-allocated and the insert retried.
func (s *submissionWorkflow) materialize(ctx context.Context, sub *domain.PendingSubmission) (*domain.Booking, error) {
	assignment, ok := s.tiers(sub.Request.BudgetTier)
	if !ok {
		return nil, domain.NewValidationError("budget_tier", "unknown budget tier")
	}

	bookingID := sub.BookingID
	for attempt := 0; attempt < materializeRetries; attempt++ {
		record := &domain.Booking{
			ID:             bookingID,
			Status:         domain.BookingActive,
			ClientName:     sub.Request.ClientName,
			ClientEmail:    sub.Request.ClientEmail,
			ClientPhone:    sub.Request.ClientPhone,
			EventType:      sub.Request.EventType,
			EventDate:      sub.Request.EventDate,
			EventLocation:  sub.Request.EventLocation,
			BudgetTier:     sub.Request.BudgetTier,
			Coordinator:    assignment.Coordinator,
			EstimatedValue: assignment.EstimatedValue,
			Notes:          sub.Request.Notes,
		}

		created, err := s.bookingRepo.Create(ctx, record)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to create booking record: %w", err)
		}

		logger.WarnContext(ctx, "Booking ID conflict on insert, re-allocating",
			"booking_id", bookingID, "attempt", attempt+1)

		bookingID, err = s.allocator.Allocate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to re-allocate booking ID: %w", err)
		}
	}

	return nil, domain.ErrExhausted
}
