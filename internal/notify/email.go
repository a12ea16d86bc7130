package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"vaxline/internal/models"
)

// EmailService mails the clinic operator about each new submission. It is an
// optional secondary channel; the submitter is only ever reached through the
// push gateway.
type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	toEmail   string
}

func NewEmailService(apiKey, fromEmail, fromName, toEmail string) *EmailService {
	return &EmailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		toEmail:   toEmail,
	}
}

// SendSubmissionNotice tells the operator a new appointment was recorded.
func (s *EmailService) SendSubmissionNotice(rec models.AppointmentRecord) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", s.toEmail)
	subject := fmt.Sprintf("New vaccine appointment: %s", rec.VaccineName)

	plainContent := fmt.Sprintf("%s (%s) booked %s starting %s.",
		rec.UserName, rec.UserPhone, rec.VaccineName, rec.FirstDoseDate)
	htmlContent := fmt.Sprintf("<p>%s (%s) booked <strong>%s</strong> starting %s.</p>",
		rec.UserName, rec.UserPhone, rec.VaccineName, rec.FirstDoseDate)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	response, err := s.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned %d", response.StatusCode)
	}
	return nil
}
