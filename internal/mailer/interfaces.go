package mailer

// Service is the notification collaborator. Delivery is best-effort from the
// core's perspective: callers log failures and do not retry.
type Service interface {
	SendOtpEmail(toEmail, toName, bookingID, code string) error
	SendConfirmationEmail(toEmail, toName, bookingID, coordinator string) error
}
