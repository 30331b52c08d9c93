package domain

import "time"

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingActive, BookingCompleted, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

// Booking is the authoritative client record. Its ID is both the primary key
// and the bearer credential a client presents on every request.
type Booking struct {
	ID             string        `json:"id"`
	Status         BookingStatus `json:"status"`
	ClientName     string        `json:"client_name"`
	ClientEmail    string        `json:"client_email"`
	ClientPhone    string        `json:"client_phone"`
	EventType      string        `json:"event_type"`
	EventDate      time.Time     `json:"event_date"`
	EventLocation  string        `json:"event_location"`
	BudgetTier     string        `json:"budget_tier"`
	Coordinator    string        `json:"coordinator"`
	EstimatedValue int64         `json:"estimated_value"`
	Notes          string        `json:"notes"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingCancelled
}

// ClientPatch carries the fields a client may edit on their own record.
type ClientPatch struct {
	ClientName    *string    `json:"client_name,omitempty"`
	ClientPhone   *string    `json:"client_phone,omitempty"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	EventLocation *string    `json:"event_location,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// Budget tiers
const (
	TierStandard = "standard"
	TierPremium  = "premium"
	TierHeadline = "headline"
)

// TierAssignment is the coordinator and estimated contract value derived from
// a submission's budget tier.
type TierAssignment struct {
	Coordinator    string
	EstimatedValue int64
}

// TierLookup resolves a budget tier to its assignment. It is injected into
// the workflow so business data stays out of the state machine.
type TierLookup func(tier string) (TierAssignment, bool)

var defaultTiers = map[string]TierAssignment{
	TierStandard: {Coordinator: "bookings-team", EstimatedValue: 2500},
	TierPremium:  {Coordinator: "senior-coordinator", EstimatedValue: 10000},
	TierHeadline: {Coordinator: "talent-director", EstimatedValue: 50000},
}

func DefaultTierLookup(tier string) (TierAssignment, bool) {
	a, ok := defaultTiers[tier]
	return a, ok
}

func IsValidTier(tier string) bool {
	_, ok := defaultTiers[tier]
	return ok
}
