package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/identifier"
	"github.com/stagelink/talent-bookings/internal/otp"
	"github.com/stagelink/talent-bookings/internal/service"
)

// ---------- Mocks ----------

type mockBookingRepo struct {
	mu           sync.Mutex
	bookings     map[string]*domain.Booking
	conflictHits int // first N Create calls fail with ErrConflict
	createCalls  int
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*domain.Booking)}
}

func (m *mockBookingRepo) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bookings[id]
	return ok, nil
}

func (m *mockBookingRepo) Get(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (m *mockBookingRepo) FindByEmail(_ context.Context, email string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if strings.EqualFold(b.ClientEmail, email) {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockBookingRepo) Create(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.conflictHits > 0 {
		m.conflictHits--
		return nil, domain.ErrConflict
	}
	if _, ok := m.bookings[b.ID]; ok {
		return nil, domain.ErrConflict
	}
	created := *b
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.bookings[b.ID] = &created
	out := created
	return &out, nil
}

func (m *mockBookingRepo) Update(_ context.Context, id string, patch domain.ClientPatch) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	if patch.ClientName != nil {
		b.ClientName = *patch.ClientName
	}
	if patch.Notes != nil {
		b.Notes = *patch.Notes
	}
	b.UpdatedAt = time.Now()
	copied := *b
	return &copied, nil
}

func (m *mockBookingRepo) Cancel(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status == domain.BookingCancelled {
		return false, nil
	}
	b.Status = domain.BookingCancelled
	return true, nil
}

func (m *mockBookingRepo) List(_ context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if status != nil && b.Status != *status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

type mockMailer struct {
	mu            sync.Mutex
	otpTo         string
	otpCode       string
	otpBookingID  string
	otpSends      int
	confirmTo     string
	confirmSends  int
	sendErr       error
}

func (m *mockMailer) SendOtpEmail(toEmail, _, bookingID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otpTo = toEmail
	m.otpCode = code
	m.otpBookingID = bookingID
	m.otpSends++
	return m.sendErr
}

func (m *mockMailer) SendConfirmationEmail(toEmail, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmTo = toEmail
	m.confirmSends++
	return m.sendErr
}

func (m *mockMailer) lastOtp() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otpCode
}

type noopEventBus struct{}

func (noopEventBus) Publish(context.Context, string, interface{}) error { return nil }
func (noopEventBus) Close() error                                       { return nil }

// ---------- Setup ----------

type workflowFixture struct {
	workflow service.SubmissionWorkflow
	repo     *mockBookingRepo
	mailer   *mockMailer
	otpStore *otp.Store
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	repo := newMockBookingRepo()
	mail := &mockMailer{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := otp.NewStore(otp.WithClock(clock.Now))
	alloc := identifier.NewAllocator(repo.Exists)

	wf := service.NewSubmissionWorkflow(repo, alloc, store, mail, noopEventBus{}, domain.DefaultTierLookup)

	return &workflowFixture{
		workflow: wf,
		repo:     repo,
		mailer:   mail,
		otpStore: store,
		clock:    clock,
	}
}

func validSubmit(email string) *domain.SubmitRequest {
	return &domain.SubmitRequest{
		ClientName:    "Ada Lovelace",
		ClientEmail:   email,
		ClientPhone:   "+1 555 0100",
		EventType:     "corporate gala",
		EventDate:     time.Now().Add(60 * 24 * time.Hour),
		EventLocation: "Grand Hall",
		BudgetTier:    domain.TierPremium,
		AcceptedTerms: true,
	}
}

// ---------- Tests ----------

func TestSubmit_AllocatesIdentifierAndSendsOtp(t *testing.T) {
	f := newWorkflowFixture(t)

	sub, err := f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if !identifier.Valid(sub.BookingID) {
		t.Fatalf("booking ID %q does not match format", sub.BookingID)
	}
	if sub.SubmissionID == "" {
		t.Fatal("expected a submission ID")
	}
	if sub.State != domain.StateEmailPending {
		t.Fatalf("expected state email_pending, got %s", sub.State)
	}
	if f.mailer.otpSends != 1 {
		t.Fatalf("expected exactly one OTP email, got %d", f.mailer.otpSends)
	}
	if f.mailer.otpTo != "a@b.com" || f.mailer.otpBookingID != sub.BookingID {
		t.Fatal("OTP email did not carry the right recipient or booking ID")
	}
	if len(f.mailer.lastOtp()) != 6 {
		t.Fatalf("expected 6-digit code, got %q", f.mailer.lastOtp())
	}

	// Not materialized yet.
	if b, _ := f.repo.Get(context.Background(), sub.BookingID); b != nil {
		t.Fatal("record must not exist before verification")
	}
}

func TestSubmit_ValidationFailures(t *testing.T) {
	f := newWorkflowFixture(t)

	cases := map[string]func(*domain.SubmitRequest){
		"missing name":   func(r *domain.SubmitRequest) { r.ClientName = "" },
		"bad email":      func(r *domain.SubmitRequest) { r.ClientEmail = "not-an-email" },
		"missing phone":  func(r *domain.SubmitRequest) { r.ClientPhone = "" },
		"past date":      func(r *domain.SubmitRequest) { r.EventDate = time.Now().Add(-time.Hour) },
		"unknown tier":   func(r *domain.SubmitRequest) { r.BudgetTier = "platinum" },
		"terms declined": func(r *domain.SubmitRequest) { r.AcceptedTerms = false },
	}

	for name, mutate := range cases {
		req := validSubmit("a@b.com")
		mutate(req)
		_, err := f.workflow.Submit(context.Background(), req)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", name, err)
		}
	}

	if f.mailer.otpSends != 0 {
		t.Fatal("no emails should be sent for invalid payloads")
	}
}

func TestVerifyEmail_MaterializesRecord(t *testing.T) {
	f := newWorkflowFixture(t)

	sub, err := f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	booking, err := f.workflow.VerifyEmail(context.Background(), "A@B.com", f.mailer.lastOtp())
	if err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	if booking.ID != sub.BookingID {
		t.Fatalf("expected booking ID %s, got %s", sub.BookingID, booking.ID)
	}
	if booking.Status != domain.BookingActive {
		t.Fatalf("expected active status, got %s", booking.Status)
	}
	// Premium tier assignment from the lookup table.
	if booking.Coordinator != "senior-coordinator" || booking.EstimatedValue != 10000 {
		t.Fatalf("unexpected tier assignment: %s / %d", booking.Coordinator, booking.EstimatedValue)
	}

	status, ok := f.workflow.Status("a@b.com")
	if !ok || status.State != domain.StateProcessed {
		t.Fatalf("expected processed state, got %+v", status)
	}
	if status.VerifiedAt == nil {
		t.Fatal("expected verification timestamp")
	}
	if f.mailer.confirmSends != 1 {
		t.Fatalf("expected one confirmation email, got %d", f.mailer.confirmSends)
	}
}

func TestVerifyEmail_WrongCodeKeepsStatePending(t *testing.T) {
	f := newWorkflowFixture(t)

	f.workflow.Submit(context.Background(), validSubmit("a@b.com"))

	wrong := "000000"
	if wrong == f.mailer.lastOtp() {
		wrong = "000001"
	}

	_, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", wrong)
	if !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Fatalf("expected ErrInvalidOrExpiredCode, got %v", err)
	}

	status, _ := f.workflow.Status("a@b.com")
	if status.State != domain.StateEmailPending {
		t.Fatalf("state should remain email_pending, got %s", status.State)
	}

	// The right code still works after one wrong attempt.
	if _, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", f.mailer.lastOtp()); err != nil {
		t.Fatalf("correct code should still verify: %v", err)
	}
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	f := newWorkflowFixture(t)

	f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	f.clock.Advance(11 * time.Minute)

	_, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", f.mailer.lastOtp())
	if !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Fatalf("expected ErrInvalidOrExpiredCode after expiry, got %v", err)
	}
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	f := newWorkflowFixture(t)

	f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	code := f.mailer.lastOtp()

	if _, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}
	if _, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", code); !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		t.Fatalf("second verify should fail with ErrInvalidOrExpiredCode, got %v", err)
	}

	// Exactly one record materialized.
	if f.repo.createCalls != 1 {
		t.Fatalf("expected one Create call, got %d", f.repo.createCalls)
	}
}

func TestVerifyEmail_ConcurrentDuplicates(t *testing.T) {
	f := newWorkflowFixture(t)

	f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	code := f.mailer.lastOtp()

	const racers = 8
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		go func() {
			_, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", code)
			errs <- err
		}()
	}

	wins := 0
	for i := 0; i < racers; i++ {
		if <-errs == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one concurrent verify should succeed, got %d", wins)
	}
	if f.repo.createCalls != 1 {
		t.Fatalf("record must materialize at most once, got %d Create calls", f.repo.createCalls)
	}
}

func TestVerifyEmail_RetriesOnInsertConflict(t *testing.T) {
	f := newWorkflowFixture(t)

	sub, _ := f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	f.repo.conflictHits = 1

	booking, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", f.mailer.lastOtp())
	if err != nil {
		t.Fatalf("VerifyEmail should recover from an insert conflict: %v", err)
	}

	if f.repo.createCalls != 2 {
		t.Fatalf("expected 2 Create calls, got %d", f.repo.createCalls)
	}
	if booking.ID == sub.BookingID {
		t.Fatal("conflicting identifier should have been re-allocated")
	}
	if !identifier.Valid(booking.ID) {
		t.Fatalf("re-allocated ID %q invalid", booking.ID)
	}

	status, _ := f.workflow.Status("a@b.com")
	if status.BookingID != booking.ID {
		t.Fatal("submission should track the final booking ID")
	}
}

func TestResendOtp_ReplacesCode(t *testing.T) {
	f := newWorkflowFixture(t)

	f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	oldCode := f.mailer.lastOtp()

	if err := f.workflow.ResendOtp(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("ResendOtp failed: %v", err)
	}
	newCode := f.mailer.lastOtp()

	if oldCode != newCode {
		if _, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", oldCode); !errors.Is(err, domain.ErrInvalidOrExpiredCode) {
			t.Fatalf("old code should be invalidated after resend, got %v", err)
		}
	}
	if _, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", newCode); err != nil {
		t.Fatalf("new code should verify: %v", err)
	}
}

func TestResendOtp_NoActiveSubmission(t *testing.T) {
	f := newWorkflowFixture(t)

	err := f.workflow.ResendOtp(context.Background(), "nobody@b.com")
	if !errors.Is(err, domain.ErrNoActiveSubmission) {
		t.Fatalf("expected ErrNoActiveSubmission, got %v", err)
	}
}

func TestEndToEnd_SubmitVerifyAuthenticate(t *testing.T) {
	f := newWorkflowFixture(t)
	authn := service.NewSessionAuthenticator(f.repo)

	sub, err := f.workflow.Submit(context.Background(), validSubmit("a@b.com"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Not a credential until verified.
	if _, err := authn.Authenticate(context.Background(), sub.BookingID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unverified booking ID must not authenticate, got %v", err)
	}

	if _, err := f.workflow.VerifyEmail(context.Background(), "a@b.com", f.mailer.lastOtp()); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}

	booking, err := authn.Authenticate(context.Background(), sub.BookingID)
	if err != nil {
		t.Fatalf("Authenticate failed after verification: %v", err)
	}
	if booking.ClientEmail != "a@b.com" {
		t.Fatalf("unexpected record: %+v", booking)
	}
}
