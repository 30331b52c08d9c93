package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/service"
	"github.com/stagelink/talent-bookings/pkg/auth"
)

const testSecret = "test-secret"

func newIssuer(repo *mockBookingRepo, ttl time.Duration) *service.ImpersonationIssuer {
	authn := service.NewSessionAuthenticator(repo)
	return service.NewImpersonationIssuer(authn, noopEventBus{}, testSecret, ttl)
}

func TestImpersonation_IssueAndVerify(t *testing.T) {
	repo := newMockBookingRepo()
	seedBooking(repo, "X1Y2Z3A4", domain.BookingActive)
	issuer := newIssuer(repo, 30*time.Minute)

	tok, err := issuer.Issue(context.Background(), "x1y2z3a4", "admin-7")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if tok.BookingID != "X1Y2Z3A4" {
		t.Fatalf("token scoped to %s, want X1Y2Z3A4", tok.BookingID)
	}

	booking, claims, err := issuer.Verify(context.Background(), tok.Token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if booking.ID != "X1Y2Z3A4" {
		t.Fatalf("verified wrong booking: %s", booking.ID)
	}
	if claims.Role != auth.RoleImpersonation {
		t.Fatalf("expected impersonation role, got %s", claims.Role)
	}
	if claims.Issuer != "admin-7" {
		t.Fatalf("expected issuer claim admin-7, got %s", claims.Issuer)
	}
}

func TestImpersonation_IssueUnknownIdentifier(t *testing.T) {
	repo := newMockBookingRepo()
	issuer := newIssuer(repo, 30*time.Minute)

	if _, err := issuer.Issue(context.Background(), "AAAA1111", "admin-7"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImpersonation_IssueCancelledBooking(t *testing.T) {
	repo := newMockBookingRepo()
	seedBooking(repo, "X1Y2Z3A4", domain.BookingCancelled)
	issuer := newIssuer(repo, 30*time.Minute)

	if _, err := issuer.Issue(context.Background(), "X1Y2Z3A4", "admin-7"); !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestImpersonation_VerifyAfterCancellation(t *testing.T) {
	repo := newMockBookingRepo()
	seedBooking(repo, "X1Y2Z3A4", domain.BookingActive)
	issuer := newIssuer(repo, 30*time.Minute)

	tok, err := issuer.Issue(context.Background(), "X1Y2Z3A4", "admin-7")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Cancellation after issuance must invalidate the token immediately.
	repo.Cancel(context.Background(), "X1Y2Z3A4")

	if _, _, err := issuer.Verify(context.Background(), tok.Token); !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestImpersonation_VerifyExpiredToken(t *testing.T) {
	repo := newMockBookingRepo()
	seedBooking(repo, "X1Y2Z3A4", domain.BookingActive)
	issuer := newIssuer(repo, -time.Minute)

	tok, err := issuer.Issue(context.Background(), "X1Y2Z3A4", "admin-7")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, _, err := issuer.Verify(context.Background(), tok.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestImpersonation_RejectsAdminToken(t *testing.T) {
	repo := newMockBookingRepo()
	seedBooking(repo, "X1Y2Z3A4", domain.BookingActive)
	issuer := newIssuer(repo, 30*time.Minute)

	adminTok, err := auth.NewAdminToken("admin-7", "ops@stagelink.io", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewAdminToken failed: %v", err)
	}

	if _, _, err := issuer.Verify(context.Background(), adminTok); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("admin token must not pass impersonation verify, got %v", err)
	}
}

func TestImpersonation_RejectsTamperedToken(t *testing.T) {
	repo := newMockBookingRepo()
	seedBooking(repo, "X1Y2Z3A4", domain.BookingActive)
	issuer := newIssuer(repo, 30*time.Minute)

	tok, _ := issuer.Issue(context.Background(), "X1Y2Z3A4", "admin-7")
	tampered := tok.Token[:len(tok.Token)-2] + "xx"

	if _, _, err := issuer.Verify(context.Background(), tampered); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}
