package mailer

import (
	"fmt"

	"github.com/stagelink/talent-bookings/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendOtpEmail(toEmail, toName, bookingID, code string) error {
	logger.Info("📧 [DEV MAIL] OTP Email",
		"to", toEmail,
		"name", toName,
		"booking_id", bookingID,
		"code", code,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 OTP EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Confirm your StageLink booking request\n"+
		"\n"+
		"Booking ID: %s\n"+
		"Verification Code: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, bookingID, code)

	return nil
}

func (d *DevMailer) SendConfirmationEmail(toEmail, toName, bookingID, coordinator string) error {
	logger.Info("📧 [DEV MAIL] Confirmation Email",
		"to", toEmail,
		"name", toName,
		"booking_id", bookingID,
		"coordinator", coordinator,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 CONFIRMATION EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Your StageLink booking is confirmed\n"+
		"\n"+
		"Booking ID: %s\n"+
		"Coordinator: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, bookingID, coordinator)

	return nil
}
