package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/pkg/auth"
	"github.com/stagelink/talent-bookings/pkg/events"
	"github.com/stagelink/talent-bookings/pkg/logger"
)

type ImpersonationToken struct {
	Token     string    `json:"token"`
	BookingID string    `json:"booking_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImpersonationIssuer mints short-lived, booking-scoped tokens for
// administrators. A token grants access as one specific client and nothing
// more; it never satisfies admin-only endpoints.
type ImpersonationIssuer struct {
	authenticator *SessionAuthenticator
	eventBus      events.Publisher
	secret        string
	ttl           time.Duration
}

func NewImpersonationIssuer(
	authenticator *SessionAuthenticator,
	eventBus events.Publisher,
	secret string,
	ttl time.Duration,
) *ImpersonationIssuer {
	return &ImpersonationIssuer{
		authenticator: authenticator,
		eventBus:      eventBus,
		secret:        secret,
		ttl:           ttl,
	}
}

// Issue resolves the target identifier through the same lookup ordinary
// sessions use, so unknown and cancelled bookings are rejected up front.
func (i *ImpersonationIssuer) Issue(ctx context.Context, id, issuedBy string) (*ImpersonationToken, error) {
	booking, err := i.authenticator.Authenticate(ctx, id)
	if err != nil {
		return nil, err
	}

	token, err := auth.NewImpersonationToken(booking.ID, issuedBy, i.secret, i.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign impersonation token: %w", err)
	}

	expiresAt := time.Now().Add(i.ttl)

	event := events.ClientImpersonatedEvent{
		BookingID: booking.ID,
		AdminID:   issuedBy,
		IssuedAt:  time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := i.eventBus.Publish(ctx, events.ClientImpersonated, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish impersonation event", "error", err, "booking_id", booking.ID)
	}

	return &ImpersonationToken{
		Token:     token,
		BookingID: booking.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature and expiry, then re-resolves the subject so a
// booking cancelled after issuance stops working immediately.
func (i *ImpersonationIssuer) Verify(ctx context.Context, token string) (*domain.Booking, *auth.Claims, error) {
	claims, err := auth.Parse(token, i.secret)
	if err != nil {
		return nil, nil, auth.ErrInvalidToken
	}
	if claims.Role != auth.RoleImpersonation {
		return nil, nil, auth.ErrInvalidToken
	}

	booking, err := i.authenticator.Authenticate(ctx, claims.Sub)
	if err != nil {
		return nil, nil, err
	}

	return booking, claims, nil
}
