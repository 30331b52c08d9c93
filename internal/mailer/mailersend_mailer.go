package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendOtpEmail(toEmail, toName, bookingID, code string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Confirm your StageLink booking request"
	html := fmt.Sprintf(`
		<h2>Confirm your booking request</h2>
		<p>Hi %s,</p>
		<p>Your booking ID is: <strong>%s</strong></p>
		<p>Enter this verification code to confirm your email address:</p>
		<p><strong style="font-size: 24px;">%s</strong></p>
		<p>The code expires in 10 minutes. After confirming, use your booking ID to sign in and manage your booking.</p>
		<p>If you didn't request a booking with us, please ignore this email.</p>
	`, toName, bookingID, code)

	text := fmt.Sprintf("Your booking ID is: %s\n\nYour verification code is: %s\n\nThe code expires in 10 minutes.", bookingID, code)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendConfirmationEmail(toEmail, toName, bookingID, coordinator string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := "Your StageLink booking is confirmed"
	html := fmt.Sprintf(`
		<h2>Booking confirmed</h2>
		<p>Hi %s,</p>
		<p>Your booking <strong>%s</strong> is confirmed and has been assigned to <strong>%s</strong>, who will be in touch shortly.</p>
		<p>Sign in any time with your booking ID to review or update your event details.</p>
	`, toName, bookingID, coordinator)

	text := fmt.Sprintf("Your booking %s is confirmed and assigned to %s.\n\nSign in with your booking ID to review or update your event details.", bookingID, coordinator)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
