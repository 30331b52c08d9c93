package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stagelink/talent-bookings/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// Submission lifecycle
	BookingSubmitted = "booking.submitted"
	BookingVerified  = "booking.verified"
	BookingCancelled = "booking.cancelled"

	// Admin events
	ClientCreated      = "client.created"
	ClientImpersonated = "client.impersonated"

	// Notification events
	NotifySend = "notify.send"
)

// Event payloads
type BookingSubmittedEvent struct {
	SubmissionID string    `json:"submission_id"`
	BookingID    string    `json:"booking_id"`
	ClientEmail  string    `json:"client_email"`
	ClientName   string    `json:"client_name"`
	EventType    string    `json:"event_type"`
	EventDate    time.Time `json:"event_date"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type BookingVerifiedEvent struct {
	SubmissionID string    `json:"submission_id"`
	BookingID    string    `json:"booking_id"`
	ClientEmail  string    `json:"client_email"`
	Coordinator  string    `json:"coordinator"`
	VerifiedAt   time.Time `json:"verified_at"`
}

type BookingCancelledEvent struct {
	BookingID   string    `json:"booking_id"`
	ClientEmail string    `json:"client_email"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type ClientCreatedEvent struct {
	BookingID   string    `json:"booking_id"`
	ClientEmail string    `json:"client_email"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type ClientImpersonatedEvent struct {
	BookingID string    `json:"booking_id"`
	AdminID   string    `json:"admin_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
}
