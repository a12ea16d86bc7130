// Package notify formats and delivers user-facing messages. Delivery is
// best-effort end to end: a failed send is reported to the caller, which logs
// it and moves on; it never fails a submission.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"vaxline/internal/models"
)

// Pusher sends one text to a user identifier.
type Pusher interface {
	Push(ctx context.Context, to, text string) error
}

// Notifier owns the two message templates: the full-schedule confirmation and
// the single-dose reminder.
type Notifier struct {
	push  Pusher
	email *EmailService // nil unless SendGrid is configured
	log   zerolog.Logger
}

func New(push Pusher, email *EmailService, log zerolog.Logger) *Notifier {
	return &Notifier{push: push, email: email, log: log}
}

// SendConfirmation pushes the full dose schedule to the submitter and, when
// configured, mails the operator. The email leg never affects the returned
// error.
func (n *Notifier) SendConfirmation(ctx context.Context, rec models.AppointmentRecord) error {
	if n.email != nil {
		if err := n.email.SendSubmissionNotice(rec); err != nil {
			n.log.Warn().Err(err).Str("user_id", rec.UserID).Msg("operator email failed")
		}
	}
	return n.push.Push(ctx, rec.UserID, confirmationText(rec))
}

// SendReminder pushes a short due-date notice for one dose.
func (n *Notifier) SendReminder(ctx context.Context, userID, vaccine, due string, dose models.Dose) error {
	text := fmt.Sprintf("Reminder: your %s %s dose is due on %s.", dose, vaccine, due)
	return n.push.Push(ctx, userID, text)
}

func confirmationText(rec models.AppointmentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, your %s vaccination is booked.\n", rec.UserName, rec.VaccineName)
	fmt.Fprintf(&b, "Dose 1: %s\n", rec.FirstDoseDate)
	if rec.SecondDoseDate != "" {
		fmt.Fprintf(&b, "Dose 2: %s\n", rec.SecondDoseDate)
	}
	if rec.ThirdDoseDate != "" {
		fmt.Fprintf(&b, "Dose 3: %s\n", rec.ThirdDoseDate)
	}
	b.WriteString("We will remind you before each follow-up dose.")
	return b.String()
}
